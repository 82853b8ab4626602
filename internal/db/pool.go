package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlekbai/collection_search/internal/query"
)

// NewPool connects a pgx pool and verifies the connection.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// PoolSession runs queries on PostgreSQL through a pgx pool.
type PoolSession struct {
	pool *pgxpool.Pool
}

func NewPoolSession(pool *pgxpool.Pool) *PoolSession {
	return &PoolSession{pool: pool}
}

func (s *PoolSession) Dialect() query.Dialect { return query.Postgres }

func (s *PoolSession) Close() error {
	s.pool.Close()
	return nil
}

func (s *PoolSession) Fetch(ctx context.Context, q *query.Query) ([]Entity, error) {
	sqlStr, args, err := q.RowsSQL()
	if err != nil {
		return nil, fmt.Errorf("build rows query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Root().Name, err)
	}
	defer rows.Close()
	return scanEntities(rows, q)
}

func scanEntities(rows pgx.Rows, q *query.Query) ([]Entity, error) {
	descs := rows.FieldDescriptions()
	var out []Entity
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Root().Name, err)
		}
		fields := make(map[string]any, len(descs))
		for i, fd := range descs {
			fields[fd.Name] = vals[i]
		}
		out = append(out, Entity{Type: q.Root().Name, ID: fields[q.Root().PrimaryKey], Fields: fields})
	}
	return out, rows.Err()
}
