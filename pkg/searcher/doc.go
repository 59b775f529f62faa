// Package searcher provides modular search components over ftengine.
//
// The package implements Searcher with a single EngineSearcher: unlike
// a stack that reconciles separate BM25 and vector backends with an
// RRF fusion layer, internal/engine.Search already executes the full
// term/tag/numeric query tree against one doc table, and
// internal/engine.VectorSearch runs k-NN over a named vector field
// directly. There is no second backend to fuse against.
//
// # Architecture
//
//	┌─────────────────┐
//	│    Searcher     │  ← this package's interface
//	│ VectorSearcher  │
//	└────────┬────────┘
//	         │
//	┌────────▼────────┐
//	│  EngineSearcher │
//	└────────┬────────┘
//	         │
//	┌────────▼────────┐
//	│ internal/engine │  (query planner + iterator tree + vector index)
//	└──────────────────┘
//
// # Usage
//
//	eng := engine.New(cfg, schema, vecCfg)
//	s, err := searcher.New(searcher.WithEngine(eng))
//	if err != nil {
//	    return err
//	}
//	results, err := s.Search(ctx, "@color:{red} hello", 10)
//
// # Thread Safety
//
// EngineSearcher is safe for concurrent use; it only reads from the
// engine's own synchronized state.
package searcher
