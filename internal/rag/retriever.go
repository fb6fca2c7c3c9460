package rag

import (
	"context"
	"log"

	"github.com/helpdesk-ai/helpdesk/internal/index"
)

// Searcher is the slice of the vector index the retriever needs.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, k int) ([]index.SearchResult, error)
}

// Retriever finds the chunks most similar to a query vector. Retrieval is
// best-effort: any index failure degrades to an empty result so the caller
// can still attempt an ungrounded answer instead of failing the turn.
type Retriever struct {
	searcher Searcher
	topK     int
	logger   *log.Logger
}

// NewRetriever creates a new retriever
func NewRetriever(searcher Searcher, topK int, logger *log.Logger) *Retriever {
	if topK <= 0 {
		topK = 10
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags)
	}
	return &Retriever{
		searcher: searcher,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve returns up to topK chunks from collection ordered by descending
// similarity. A failing or empty index yields an empty slice, never an
// error.
func (r *Retriever) Retrieve(ctx context.Context, collection string, queryVector []float32) []index.SearchResult {
	results, err := r.searcher.Search(ctx, collection, queryVector, r.topK)
	if err != nil {
		r.logger.Printf("retrieval failed for collection %s, continuing without context: %v", collection, err)
		return nil
	}
	if len(results) == 0 {
		r.logger.Printf("no relevant documents found in collection %s", collection)
	}
	return results
}
