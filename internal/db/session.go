package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atlekbai/collection_search/internal/query"
)

// Session is the connection capability the search engine runs queries through.
type Session interface {
	Dialect() query.Dialect
	// Fetch materializes the root rows matched by q, ordered by primary key.
	Fetch(ctx context.Context, q *query.Query) ([]Entity, error)
	Close() error
}

// SQLSession runs queries through database/sql.
type SQLSession struct {
	db *sql.DB
	d  query.Dialect
}

func NewSQLSession(db *sql.DB, d query.Dialect) *SQLSession {
	return &SQLSession{db: db, d: d}
}

func (s *SQLSession) Dialect() query.Dialect { return s.d }

// DB returns the underlying handle.
func (s *SQLSession) DB() *sql.DB { return s.db }

func (s *SQLSession) Close() error { return s.db.Close() }

func (s *SQLSession) Fetch(ctx context.Context, q *query.Query) ([]Entity, error) {
	sqlStr, args, err := q.RowsSQL()
	if err != nil {
		return nil, fmt.Errorf("build rows query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Root().Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Entity
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Root().Name, err)
		}
		fields := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				fields[c] = string(b)
				continue
			}
			fields[c] = vals[i]
		}
		out = append(out, Entity{Type: q.Root().Name, ID: fields[q.Root().PrimaryKey], Fields: fields})
	}
	return out, rows.Err()
}
