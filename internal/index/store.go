package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIndex is the base error for vector index failures.
var ErrIndex = errors.New("vector index error")

// ErrNoCollection is returned when an operation targets a collection that
// does not exist.
var ErrNoCollection = fmt.Errorf("%w: collection does not exist", ErrIndex)

// ErrDimensionMismatch is returned when a vector's length differs from the
// collection's configured dimension.
var ErrDimensionMismatch = fmt.Errorf("%w: vector dimension mismatch", ErrIndex)

// opTimeout bounds every collection operation so a stalled database
// connection cannot hang ingestion or a query turn indefinitely.
const opTimeout = 30 * time.Second

// Store owns the connection pool to the vector database
type Store struct {
	pool      *pgxpool.Pool
	dimension int
	opTimeout time.Duration
}

// New creates a new store and verifies connectivity. It also ensures the
// pgvector extension is installed.
func New(ctx context.Context, connString string, dimension int) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure pgvector extension: %w", err)
	}

	return &Store{pool: pool, dimension: dimension, opTimeout: opTimeout}, nil
}

// opCtx derives the bounded context collection operations run under.
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.opTimeout
	if timeout <= 0 {
		timeout = opTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// Dimension returns the vector dimension collections are created with
func (s *Store) Dimension() int {
	return s.dimension
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}
