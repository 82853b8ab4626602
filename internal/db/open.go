package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/atlekbai/collection_search/internal/query"
)

// Open returns a Session for url. postgres URLs use a pgx pool unless the
// scheme is pgx+postgres, which goes through database/sql. duckdb: opens
// DuckDB. Anything else is a SQLite data source.
func Open(ctx context.Context, url string) (Session, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		pool, err := NewPool(ctx, url)
		if err != nil {
			return nil, err
		}
		return NewPoolSession(pool), nil
	}

	var (
		s   *SQLSession
		err error
	)
	switch {
	case strings.HasPrefix(url, "pgx+"):
		s, err = openSQL(ctx, "pgx", strings.TrimPrefix(url, "pgx+"), query.Postgres)
	case strings.HasPrefix(url, "duckdb:"):
		s, err = openSQL(ctx, "duckdb", strings.TrimPrefix(url, "duckdb:"), query.DuckDB)
	default:
		s, err = OpenSQLite(ctx, url)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSQLite opens a SQLite database. A single connection is kept so
// in-memory databases survive across queries.
func OpenSQLite(ctx context.Context, dsn string) (*SQLSession, error) {
	s, err := openSQL(ctx, "sqlite", dsn, query.SQLite)
	if err != nil {
		return nil, err
	}
	s.db.SetMaxOpenConns(1)
	return s, nil
}

func openSQL(ctx context.Context, driver, dsn string, d query.Dialect) (*SQLSession, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return NewSQLSession(db, d), nil
}
