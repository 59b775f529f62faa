// Package indexer provides modular indexing components for ftengine.
//
// This package follows Black Box Design principles (Eskil Steenberg):
//   - Clean interfaces that hide implementation details
//   - Replaceable components (swap backends without code changes)
//   - Single responsibility per module
//
// # Architecture
//
// Unlike a search stack that keeps separate BM25 and vector backends
// behind a composing hybrid layer, internal/engine already indexes a
// document's text, tag, numeric, and vector fields together in one
// AddDocument call. The indexer package therefore wraps a single
// engine shard rather than composing multiple backend-specific
// indexers:
//
//	┌─────────────────┐
//	│  Search Engine  │  (orchestrates search)
//	└────────┬────────┘
//	         │
//	┌────────▼────────┐
//	│    Indexer      │  ← This package
//	│   (interface)   │
//	└────────┬────────┘
//	         │
//	┌────────▼────────┐
//	│  EngineIndexer  │
//	└────────┬────────┘
//	         │
//	┌────────▼────────┐
//	│  internal/engine │  (text + tag + numeric + vector, one doc table)
//	└──────────────────┘
//
// # Usage
//
// Create an indexer over a running engine:
//
//	eng := engine.New(cfg, schema, vecCfg)
//	idx, err := indexer.New(indexer.WithEngine(eng))
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	err = idx.Index(ctx, []indexer.Document{{
//	    Key:    "doc:1",
//	    Fields: map[string]engine.FieldValue{"body": {Text: "hello world"}},
//	}})
//
// # Thread Safety
//
// All Indexer implementations are safe for concurrent use.
// Multiple goroutines may call Index, Delete, etc. simultaneously.
package indexer
