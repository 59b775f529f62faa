package searcher

import (
	"context"
	"fmt"

	"github.com/ftengine/ftengine/internal/engine"
)

// EngineSearcher adapts a single internal/engine.Engine shard to the
// Searcher and VectorSearcher interfaces. The teacher's split between
// BM25Searcher, VectorSearcher, and a composing FusionSearcher doesn't
// apply here: internal/engine.Search already executes the full
// term/tag/numeric query tree (AND/OR/NOT, tag and numeric filters)
// against one doc table, so there is nothing left for a fusion layer
// to reconcile.
type EngineSearcher struct {
	eng *engine.Engine
}

// Option configures an EngineSearcher.
type Option func(*EngineSearcher)

// WithEngine sets the backing engine. Required.
func WithEngine(e *engine.Engine) Option {
	return func(s *EngineSearcher) {
		s.eng = e
	}
}

// New creates an EngineSearcher. Requires WithEngine; returns
// ErrNilEngine otherwise.
func New(opts ...Option) (*EngineSearcher, error) {
	s := &EngineSearcher{}
	for _, opt := range opts {
		opt(s)
	}
	if s.eng == nil {
		return nil, ErrNilEngine
	}
	return s, nil
}

// Search runs query against the engine's term/tag/numeric index and
// returns at most limit results, ranked as the query iterator tree
// yields them.
func (s *EngineSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits, err := s.eng.Search(query, ^uint64(0))
	if err != nil {
		return nil, fmt.Errorf("searcher: search %q: %w", query, err)
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return toResults(hits), nil
}

// VectorSearch runs a k-nearest-neighbor query against field.
func (s *EngineSearcher) VectorSearch(ctx context.Context, field string, query []float32, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits, err := s.eng.VectorSearch(field, query, k)
	if err != nil {
		return nil, fmt.Errorf("searcher: vector search %q: %w", field, err)
	}
	return toResults(hits), nil
}

func toResults(hits []engine.Hit) []Result {
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{ID: h.Key, Score: h.Score, Payload: h.Payload})
	}
	return results
}

var _ Searcher = (*EngineSearcher)(nil)
var _ VectorSearcher = (*EngineSearcher)(nil)
