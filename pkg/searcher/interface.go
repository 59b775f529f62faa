package searcher

import (
	"context"
	"errors"
)

// ErrNilEngine is returned when attempting to create an EngineSearcher
// without an engine.
var ErrNilEngine = errors.New("engine is required")

// Searcher performs search operations and returns ranked results.
//
// Implementations must be thread-safe for concurrent use.
type Searcher interface {
	// Search executes a search query and returns ranked results.
	//
	// Parameters:
	//   - ctx: Context for cancellation and deadlines
	//   - query: The search query string
	//   - limit: Maximum number of results to return
	//
	// Returns an empty slice (not nil) if no results match.
	// Returns an error if the search fails.
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Result represents a single search result.
type Result struct {
	// ID is the document's key, as passed to Indexer.Index.
	ID string

	// Score is the engine hit's score: 0 for plain term/tag matches, a
	// numeric reader's matched value, or for vector queries a similarity
	// derived from the cosine or L2 distance.
	Score float64

	// Payload carries the document's opaque payload bytes, if any.
	Payload []byte
}

// VectorSearcher performs k-nearest-neighbor search over a single
// vector field, taking the query vector as a []float32. Search can
// reach the same k-NN search through a "@field:<k v1,v2,...>" clause in
// its query string. This module carries no embedder to turn text into a
// vector.
type VectorSearcher interface {
	VectorSearch(ctx context.Context, field string, query []float32, k int) ([]Result, error)
}
