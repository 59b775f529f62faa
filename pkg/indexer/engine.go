package indexer

import (
	"context"
	"fmt"
	"sync"

	"github.com/ftengine/ftengine/internal/engine"
)

// EngineIndexer adapts a single internal/engine.Engine shard to the
// Indexer interface. The teacher's split between BM25Indexer,
// VectorIndexer, and a composing HybridIndexer doesn't apply here:
// internal/engine.AddDocument already indexes a document's text, tag,
// numeric, and vector fields together in one call, so there is only
// ever one backend to delegate to.
type EngineIndexer struct {
	eng    *engine.Engine
	mu     sync.RWMutex
	closed bool
}

// Option configures an EngineIndexer.
type Option func(*EngineIndexer)

// WithEngine sets the backing engine. Required.
func WithEngine(e *engine.Engine) Option {
	return func(i *EngineIndexer) {
		i.eng = e
	}
}

// New creates an EngineIndexer. Requires WithEngine; returns ErrNilEngine
// otherwise.
func New(opts ...Option) (*EngineIndexer, error) {
	i := &EngineIndexer{}
	for _, opt := range opts {
		opt(i)
	}
	if i.eng == nil {
		return nil, ErrNilEngine
	}
	return i, nil
}

// Index adds or replaces docs in the engine.
func (i *EngineIndexer) Index(ctx context.Context, docs []Document) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return fmt.Errorf("indexer: closed")
	}
	for _, d := range docs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := i.eng.AddDocument(d.Key, d.Score, d.Payload, d.Fields); err != nil {
			return fmt.Errorf("indexer: index %q: %w", d.Key, err)
		}
	}
	return nil
}

// Delete removes docs by key.
func (i *EngineIndexer) Delete(ctx context.Context, keys []string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return fmt.Errorf("indexer: closed")
	}
	for _, key := range keys {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		i.eng.DeleteDocument(key)
	}
	return nil
}

// Clear always returns ErrClearUnsupported; see its doc comment.
func (i *EngineIndexer) Clear(ctx context.Context) error {
	return ErrClearUnsupported
}

// Stats reports the engine's current occupancy.
func (i *EngineIndexer) Stats() IndexStats {
	docCount, termCount := i.eng.Stats()
	return IndexStats{DocumentCount: docCount, TermCount: termCount}
}

// Close marks the indexer closed; the underlying engine's lifecycle is
// owned by whoever constructed it (it may be shared with a searcher),
// so Close does not close the engine itself.
func (i *EngineIndexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

var _ Indexer = (*EngineIndexer)(nil)
