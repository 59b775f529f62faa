package indexer

import (
	"context"
	"errors"

	"github.com/ftengine/ftengine/internal/engine"
)

// ErrNilEngine is returned when attempting to create an EngineIndexer
// without an engine.
var ErrNilEngine = errors.New("engine is required")

// ErrClearUnsupported is returned by EngineIndexer.Clear. Wiping a
// shard's term/tag/numeric indexes along with its doc table would need
// a bulk-reset path none of internal/termidx/tagidx/numidx/doctable
// currently exposes; left as a known gap rather than an unsafe partial
// implementation (deleting only the doc table would leave every
// inverted index pointing at now-nonexistent doc-ids).
var ErrClearUnsupported = errors.New("indexer: Clear is not supported; delete documents individually")

// Document is one unit of content to index: an opaque key plus its
// per-field values, keyed by the field names in the engine's schema.
type Document struct {
	Key     string
	Score   float32
	Payload []byte
	Fields  map[string]engine.FieldValue
}

// Indexer defines the contract for indexing operations.
//
// Implementations must be thread-safe for concurrent use.
// All methods accept a context for cancellation and timeout support.
type Indexer interface {
	// Index adds or replaces documents in the index.
	//
	// Behavior:
	//   - Idempotent: re-indexing the same key updates its fields
	//   - Thread-safe: may be called concurrently
	//   - Empty slice is a no-op (returns nil)
	Index(ctx context.Context, docs []Document) error

	// Delete removes documents by key.
	//
	// Behavior:
	//   - No-op for non-existent keys (does not error)
	//   - Thread-safe: may be called concurrently
	//   - Empty slice is a no-op (returns nil)
	Delete(ctx context.Context, keys []string) error

	// Clear removes all indexed content. See ErrClearUnsupported.
	Clear(ctx context.Context) error

	// Stats returns current index statistics.
	Stats() IndexStats

	// Close releases all resources held by the indexer.
	Close() error
}

// IndexStats holds statistics about an index.
type IndexStats struct {
	// DocumentCount is the number of indexed documents.
	DocumentCount int

	// TermCount is the number of unique terms in the term index.
	TermCount int
}
