package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// collectionName restricts names to safe SQL identifiers; collection names
// come from configuration, not end users, but they are interpolated into DDL.
var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SearchResult is one retrieved chunk with its similarity score.
type SearchResult struct {
	Text  string
	Score float64
}

// tableFor maps a collection name to its backing table
func tableFor(name string) (string, error) {
	if !collectionName.MatchString(name) {
		return "", fmt.Errorf("%w: invalid collection name %q", ErrIndex, name)
	}
	return "rag_" + name, nil
}

// Recreate drops the collection if it exists and creates it fresh with the
// store's configured dimension. Absence of an existing collection is not an
// error. This is the whole consistency model: ingestion always starts from
// an empty collection, so there is never stale or duplicate data to
// reconcile.
func (s *Store) Recreate(ctx context.Context, name string) error {
	table, err := tableFor(name)
	if err != nil {
		return err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var regclass *string
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass($1)::text`, table).Scan(&regclass); err != nil {
		return fmt.Errorf("%w: failed to check collection %s: %v", ErrIndex, name, err)
	}
	if regclass == nil {
		log.Printf("[INDEX] no existing collection to drop: %s", name)
	}

	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
		return fmt.Errorf("%w: failed to drop collection %s: %v", ErrIndex, name, err)
	}

	create := fmt.Sprintf(
		`CREATE TABLE %s (
			id uuid PRIMARY KEY,
			content text NOT NULL,
			embedding vector(%d) NOT NULL
		)`, table, s.dimension)
	if _, err := s.pool.Exec(ctx, create); err != nil {
		return fmt.Errorf("%w: failed to create collection %s: %v", ErrIndex, name, err)
	}

	return nil
}

// Insert appends one (vector, text) record to the collection.
func (s *Store) Insert(ctx context.Context, name string, vector []float32, text string) error {
	table, err := tableFor(name)
	if err != nil {
		return err
	}
	if len(vector) != s.dimension {
		return fmt.Errorf("%w: got %d, collection %s uses %d",
			ErrDimensionMismatch, len(vector), name, s.dimension)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err = s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, content, embedding) VALUES ($1, $2, $3)`, table),
		uuid.New(), text, pgvector.NewVector(vector),
	)
	if err != nil {
		if isUndefinedTable(err) {
			return fmt.Errorf("%w: %s", ErrNoCollection, name)
		}
		return fmt.Errorf("%w: failed to insert into %s: %v", ErrIndex, name, err)
	}
	return nil
}

// Search returns up to k records ordered by descending cosine similarity to
// the query vector.
func (s *Store) Search(ctx context.Context, name string, vector []float32, k int) ([]SearchResult, error) {
	table, err := tableFor(name)
	if err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, collection %s uses %d",
			ErrDimensionMismatch, len(vector), name, s.dimension)
	}
	if k <= 0 {
		k = 10
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	// <=> is cosine distance; similarity = 1 - distance
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(
			`SELECT content, 1 - (embedding <=> $1) AS score
			 FROM %s
			 ORDER BY embedding <=> $1
			 LIMIT $2`, table),
		pgvector.NewVector(vector), k,
	)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoCollection, name)
		}
		return nil, fmt.Errorf("%w: failed to search %s: %v", ErrIndex, name, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("%w: failed to scan result: %v", ErrIndex, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}
	return results, nil
}

// isUndefinedTable reports whether err is Postgres undefined_table (42P01)
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
