// Package ingest implements the offline batch job that loads source
// documents into a vector index collection.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/helpdesk-ai/helpdesk/internal/documents"
)

// Embedder produces a vector for one chunk of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the slice of the vector index the ingestor needs.
type Store interface {
	Recreate(ctx context.Context, collection string) error
	Insert(ctx context.Context, collection string, vector []float32, text string) error
}

// Stats summarizes one ingestion run.
type Stats struct {
	FilesLoaded   int
	FilesSkipped  int
	ChunksStored  int
	ChunksSkipped int
}

// Ingestor rebuilds a collection from a list of source documents. The
// collection is dropped and recreated wholesale on every run, so re-running
// after documents change never leaves stale or duplicate records behind.
type Ingestor struct {
	loader   *documents.Loader
	chunker  *documents.Chunker
	embedder Embedder
	store    Store
	logger   *log.Logger
}

// New creates a new ingestor
func New(loader *documents.Loader, chunker *documents.Chunker, embedder Embedder, store Store, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	return &Ingestor{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Run recreates collection and loads every file in paths into it. Failures
// are isolated: an unsupported or unreadable file is logged and skipped, a
// chunk that fails to embed is logged and skipped, and the run continues.
// Only a failed recreate aborts the whole run.
//
// Run is not safe to invoke twice concurrently against the same collection.
func (in *Ingestor) Run(ctx context.Context, collection string, paths []string) (Stats, error) {
	var stats Stats

	if err := in.store.Recreate(ctx, collection); err != nil {
		return stats, fmt.Errorf("failed to recreate collection %s: %w", collection, err)
	}
	in.logger.Printf("recreated collection %s", collection)

	for _, path := range paths {
		if err := in.ingestFile(ctx, collection, path, &stats); err != nil {
			if errors.Is(err, documents.ErrUnsupportedFormat) {
				in.logger.Printf("skipping unsupported file: %s", path)
			} else {
				in.logger.Printf("error processing file %s: %v", path, err)
			}
			stats.FilesSkipped++
			continue
		}
		stats.FilesLoaded++
	}

	in.logger.Printf("ingestion complete: %d files loaded, %d skipped, %d chunks stored, %d chunks skipped",
		stats.FilesLoaded, stats.FilesSkipped, stats.ChunksStored, stats.ChunksSkipped)
	return stats, nil
}

// ingestFile loads, chunks, embeds and stores a single document.
func (in *Ingestor) ingestFile(ctx context.Context, collection, path string, stats *Stats) error {
	text, err := in.loader.Load(path)
	if err != nil {
		return err
	}

	for i, chunk := range in.chunker.Split(text) {
		vector, err := in.embedder.Embed(ctx, chunk)
		if err != nil {
			// a bad chunk should not sink the rest of the document
			in.logger.Printf("failed to embed chunk %d of %s, skipping: %v", i, path, err)
			stats.ChunksSkipped++
			continue
		}

		if err := in.store.Insert(ctx, collection, vector, chunk); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
		stats.ChunksStored++
	}

	return nil
}
