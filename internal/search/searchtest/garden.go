// Package searchtest provides the garden collection fixture used by tests:
// genera, species, vernacular names, accessions, plants and locations
// loaded into an in-memory SQLite database.
package searchtest

import (
	"context"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlekbai/collection_search/internal/db"
	"github.com/atlekbai/collection_search/internal/schema"
)

//go:embed garden.yaml
var gardenSchema string

//go:embed garden.sql
var gardenData string

// Garden returns the garden registry and a session over a fresh copy of
// its data. The session is closed when the test ends.
func Garden(t testing.TB) (*schema.Registry, *db.SQLSession) {
	t.Helper()
	ctx := context.Background()

	reg, err := schema.Load(strings.NewReader(gardenSchema))
	require.NoError(t, err)

	sess, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	_, err = sess.DB().ExecContext(ctx, gardenData)
	require.NoError(t, err)
	return reg, sess
}

// GardenFiles writes the garden schema and a SQLite database file into a
// temporary directory and returns their paths.
func GardenFiles(t testing.TB) (schemaFile, dbFile string) {
	t.Helper()
	dir := t.TempDir()
	schemaFile = filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(schemaFile, []byte(gardenSchema), 0o644))

	dbFile = filepath.Join(dir, "garden.db")
	sess, err := db.OpenSQLite(context.Background(), dbFile)
	require.NoError(t, err)
	defer sess.Close()
	_, err = sess.DB().ExecContext(context.Background(), gardenData)
	require.NoError(t, err)
	return schemaFile, dbFile
}
