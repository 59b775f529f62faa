// Package engine is the top-level facade (C1's composition root): it
// owns one shard's doc table, term/tag/numeric indexes, optional vector
// index, and wires them to the planner, fork GC, cursor store, and
// snapshot sidecar built elsewhere in this module. It implements
// planner.Sources directly over termidx/tagidx/numidx, the way the
// teacher's internal/search package composes its BM25 index, embedding
// store, and classifier behind one Engine type.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ftengine/ftengine/internal/analyzer"
	"github.com/ftengine/ftengine/internal/config"
	"github.com/ftengine/ftengine/internal/cursorstore"
	"github.com/ftengine/ftengine/internal/doctable"
	"github.com/ftengine/ftengine/internal/dtsnapshot"
	"github.com/ftengine/ftengine/internal/forkgc"
	"github.com/ftengine/ftengine/internal/invidx"
	"github.com/ftengine/ftengine/internal/iter"
	"github.com/ftengine/ftengine/internal/numidx"
	"github.com/ftengine/ftengine/internal/planner"
	"github.com/ftengine/ftengine/internal/tagidx"
	"github.com/ftengine/ftengine/internal/termidx"
	"github.com/ftengine/ftengine/internal/vecindex"
)

// FieldValue is one field's value for a single AddDocument call. Exactly
// one of Text/Tags/Numeric/Vector is meaningful, selected by the
// field's planner.FieldKind in the engine's schema.
type FieldValue struct {
	Text    string
	Tags    []string
	Numeric float64
	Vector  []float32
}

// Hit is one search result, in ascending doc-id order per spec.md §4.4;
// Score carries a numeric reader's matched value or a vector reader's
// similarity, 0 for plain term/tag matches.
type Hit struct {
	DocID   uint64
	Key     string
	Score   float64
	Payload []byte
}

// Engine is one shard's full working set: doc table, field indexes,
// query planner, GC, cursors, and the optional vector/snapshot
// sidecars. A cluster fans queries out to N Engines via
// internal/coordinator; Engine itself only ever serves its own shard.
type Engine struct {
	cfg *config.Config

	schema   *planner.Schema
	analyzer *analyzer.Analyzer

	docs *doctable.Table

	mu      sync.RWMutex
	terms   *termidx.Index
	tags    map[string]*tagidx.Index
	numeric map[string]*numidx.Tree
	vec     map[string]*vecindex.Index

	gc       *forkgc.Collector
	cursors  *cursorstore.Store
	snapshot *dtsnapshot.Store
}

// New creates an engine over schema, allocating one tag/numeric/vector
// collaborator per non-text field and wiring the fork GC and cursor
// store from cfg. vecCfg supplies per-field vector dimensions/metric
// for any planner.Field the caller intends to index as a vector (a
// concern the planner's Sources interface itself doesn't name: its
// VectorKNN takes only a field name, a query vector and k).
func New(cfg *config.Config, schema *planner.Schema, vecCfg map[string]vecindex.Config) *Engine {
	e := &Engine{
		cfg:      cfg,
		schema:   schema,
		analyzer: analyzer.New(analyzer.DefaultStopWords),
		docs:     doctable.New(cfg.DocTable.MaxDocTableSize),
		terms:    termidx.New(),
		tags:     make(map[string]*tagidx.Index),
		numeric:  make(map[string]*numidx.Tree),
		vec:      make(map[string]*vecindex.Index),
		cursors:  cursorstore.New(cfg.Cursor.Capacity, cfg.CursorMaxIdle()),
	}
	var nextNumericID uint64
	for _, f := range schema.Fields {
		switch f.Kind {
		case planner.FieldTag:
			e.tags[f.Name] = tagidx.New(true)
		case planner.FieldNumeric:
			nextNumericID++
			e.numeric[f.Name] = numidx.New(nextNumericID, numidx.DefaultSplitCard)
		}
	}
	for name, vc := range vecCfg {
		e.vec[name] = vecindex.New(vc)
	}
	e.gc = forkgc.New(forkgc.Config{
		RunInterval:            cfg.ForkGCRunInterval(),
		RetryInterval:          cfg.ForkGCRetryInterval(),
		CleanThreshold:         cfg.ForkGC.CleanThreshold,
		SleepBeforeExit:        cfg.ForkGCSleepBeforeExit(),
		CleanNumericEmptyNodes: cfg.ForkGC.CleanNumericEmptyNodes,
	}, e.gcSources())
	return e
}

// AttachSnapshot points the engine at a SQLite doc-table sidecar,
// restoring from it immediately if it already holds a snapshot.
func (e *Engine) AttachSnapshot(ctx context.Context, store *dtsnapshot.Store) error {
	e.mu.Lock()
	e.snapshot = store
	e.mu.Unlock()
	return store.Load(ctx, e.docs)
}

// Snapshot persists the current doc table to the attached sidecar; a
// no-op if AttachSnapshot was never called.
func (e *Engine) Snapshot(ctx context.Context) error {
	e.mu.RLock()
	store := e.snapshot
	e.mu.RUnlock()
	if store == nil {
		return nil
	}
	return store.Save(ctx, e.docs)
}

// Stats returns basic occupancy counters: live document count and
// unique term count, for gcstats/pkg-level callers that only need a
// coarse snapshot rather than a full GC pass.
func (e *Engine) Stats() (docCount, termCount int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.docs.Size(), e.terms.Len()
}

// GC returns the engine's fork GC collector, for callers that want to
// run it in the background (Run) or drive it one round at a time
// (RepairOnce) from FT.DEBUG-style tooling.
func (e *Engine) GC() *forkgc.Collector { return e.gc }

// Cursors returns the engine's cursor store, for FT.AGGREGATE/FT.CURSOR
// handlers built on top of this engine.
func (e *Engine) Cursors() *cursorstore.Store { return e.cursors }

func (e *Engine) gcSources() forkgc.Sources {
	return forkgc.Sources{
		DocTable: e.docs,
		Terms:    e.terms,
		Tags:     e.tags,
		Numeric:  e.numeric,
	}
}

// AddDocument indexes key with the given field values, replacing any
// prior document under the same key. Replacement re-indexes under a
// fresh doc-id rather than mutating postings in place (spec.md §3's
// inverted index only ever appends in doc-id order), leaving the old
// postings for fork GC to reclaim on its next repair round.
func (e *Engine) AddDocument(key string, score float32, payload []byte, values map[string]FieldValue) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Old doc-id's postings, if any, remain until fork GC repairs them.
	e.docs.Pop([]byte(key))
	md, _, err := e.docs.Put([]byte(key), score, 0, payload, doctable.Type(0))
	if err != nil {
		return 0, fmt.Errorf("engine: add document %q: %w", key, err)
	}
	docID := md.ID

	for name, field := range e.schema.Fields {
		fv, ok := values[name]
		if !ok {
			continue
		}
		switch field.Kind {
		case planner.FieldText:
			if err := e.indexText(docID, field, fv.Text); err != nil {
				return 0, err
			}
		case planner.FieldTag:
			if err := e.indexTags(docID, name, fv.Tags); err != nil {
				return 0, err
			}
		case planner.FieldNumeric:
			tree := e.numeric[name]
			if tree != nil {
				if err := tree.Insert(docID, fv.Numeric); err != nil {
					return 0, fmt.Errorf("engine: index numeric field %q: %w", name, err)
				}
			}
		}
		if idx, ok := e.vec[name]; ok && len(fv.Vector) > 0 {
			if err := idx.Insert(docID, fv.Vector); err != nil {
				return 0, fmt.Errorf("engine: index vector field %q: %w", name, err)
			}
		}
	}
	return docID, nil
}

func (e *Engine) indexText(docID uint64, field planner.Field, text string) error {
	if text == "" {
		return nil
	}
	tokens := e.analyzer.Analyze(text)
	freq := make(map[string]uint32, len(tokens))
	offsets := make(map[string][]uint32, len(tokens))
	for _, tok := range tokens {
		freq[tok.Term]++
		offsets[tok.Term] = append(offsets[tok.Term], uint32(tok.Position))
	}
	for term, f := range freq {
		entry := e.terms.GetOrCreate(term, invidx.FlagStoreFreqs|invidx.FlagStoreFieldMask|invidx.FlagStoreTermOffsets)
		rec := invidx.Record{DocID: docID, Freq: f, FieldMask: field.Bit, Offsets: offsets[term]}
		if err := entry.Index.WriteEntry(docID, rec); err != nil {
			return fmt.Errorf("engine: index term %q: %w", term, err)
		}
	}
	return nil
}

func (e *Engine) indexTags(docID uint64, field string, tags []string) error {
	idx := e.tags[field]
	if idx == nil {
		return nil
	}
	for _, tag := range tags {
		entry := idx.GetOrCreate(tag, invidx.FlagDocIDsOnly)
		if err := entry.Index.WriteEntry(docID, invidx.Record{DocID: docID}); err != nil {
			return fmt.Errorf("engine: index tag %q=%q: %w", field, tag, err)
		}
	}
	return nil
}

// DeleteDocument removes key's doc-table entry; its postings are
// reclaimed by the next fork GC round, matching spec.md §4.3's deferred
// physical-delete lifecycle.
func (e *Engine) DeleteDocument(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	md, ok := e.docs.Pop([]byte(key))
	if ok {
		for _, idx := range e.vec {
			idx.Delete(md.ID)
		}
	}
	return ok
}

// Search parses query against the engine's schema and drains the
// resulting iterator tree up to cfg.Query.MaxSearchResults hits, honoring
// cfg.Query.TimeoutMS as the planner deadline.
func (e *Engine) Search(query string, fieldMask uint64) ([]Hit, error) {
	dl := iter.Deadline{At: time.Now().Add(e.cfg.QueryTimeout())}
	p := planner.New(e.schema, e, e.analyzer, dl)
	p.MaxPrefixExpansions = e.cfg.Query.MaxPrefixExpansions
	p.MaxSuffixExpansions = e.cfg.Query.MaxSuffixExpansions
	it, err := p.Parse(query, fieldMask)
	if err != nil {
		return nil, err
	}
	defer it.Free()

	var hits []Hit
	limit := e.cfg.Query.MaxSearchResults
	for len(hits) < limit {
		status, res := it.Read()
		switch status {
		case iter.StatusEOF, iter.StatusTimeout:
			return hits, nil
		case iter.StatusOK:
			hits = append(hits, e.toHit(res))
		default:
			// StatusNotFound never surfaces from Read, only SkipTo.
		}
	}
	return hits, nil
}

func (e *Engine) toHit(res *iter.Result) Hit {
	h := Hit{DocID: res.DocID, Score: res.Numeric}
	if md, ok := e.docs.Borrow(res.DocID); ok {
		h.Key = string(md.Key())
		h.Payload = md.Payload
		e.docs.Release(md)
	}
	return h
}

// VectorSearch runs a k-NN search over field's vector index, through
// the same Vector-KNN iterator node (internal/iter.NewVectorKNN) a
// "@field:<k v1,v2,...>" query clause uses, and ranks the live set of
// matches into a Hit slice by descending similarity (the one search
// path where doc-id order is intentionally abandoned in favour of
// relevance, since a pure KNN query has no other clause to intersect
// against).
func (e *Engine) VectorSearch(field string, query []float32, k int) ([]Hit, error) {
	it, err := e.VectorKNN(field, query, k)
	if err != nil {
		return nil, err
	}
	defer it.Free()

	var hits []Hit
	for {
		status, res := it.Read()
		if status != iter.StatusOK {
			break
		}
		hits = append(hits, e.toHit(res))
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

// Term implements planner.Sources.
func (e *Engine) Term(term string) (*invidx.InvertedIndex, bool) {
	entry, ok := e.terms.Get(term)
	if !ok {
		return nil, false
	}
	return entry.Index, true
}

// Tag implements planner.Sources.
func (e *Engine) Tag(field, tag string) (*invidx.InvertedIndex, bool) {
	e.mu.RLock()
	idx := e.tags[field]
	e.mu.RUnlock()
	if idx == nil {
		return nil, false
	}
	entry, ok := idx.Get(tag)
	if !ok {
		return nil, false
	}
	return entry.Index, true
}

// NumericRange implements planner.Sources.
func (e *Engine) NumericRange(field string, min, max float64) []*invidx.InvertedIndex {
	e.mu.RLock()
	tree := e.numeric[field]
	e.mu.RUnlock()
	if tree == nil {
		return nil
	}
	return tree.RangeQuery(min, max)
}

// NewWildcard implements planner.Sources.
func (e *Engine) NewWildcard(dl iter.Deadline) iter.Iterator {
	return iter.NewWildcard(e.docs, e.docs.MaxDocID(), dl)
}

// PrefixExpand implements planner.Sources, backing a `word*` query.
func (e *Engine) PrefixExpand(prefix string, limit int) []string {
	return e.terms.PrefixExpand(prefix, limit)
}

// TagSuffixExpand implements planner.Sources, backing a `*suffix` tag
// query.
func (e *Engine) TagSuffixExpand(field, suf string, limit int) []string {
	e.mu.RLock()
	idx := e.tags[field]
	e.mu.RUnlock()
	if idx == nil {
		return nil
	}
	matches := idx.MatchSuffix(suf)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// TagContainsExpand implements planner.Sources, backing a `*contains*`
// tag query.
func (e *Engine) TagContainsExpand(field, sub string, limit int) []string {
	e.mu.RLock()
	idx := e.tags[field]
	e.mu.RUnlock()
	if idx == nil {
		return nil
	}
	matches := idx.MatchContains(sub)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// VectorKNN implements planner.Sources: runs a k-NN search against
// field's vector index through internal/iter.NewVectorKNN, so both a
// query-string "<k v1,v2,...>" clause and VectorSearch route through
// the same iterator tree node and can compose with term/tag/numeric
// filters in the same query (spec.md §2, §4.6).
func (e *Engine) VectorKNN(field string, query []float32, k int) (iter.Iterator, error) {
	e.mu.RLock()
	idx, ok := e.vec[field]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: no vector index for field %q", field)
	}
	return iter.NewVectorKNN(idx, query, k)
}

// Close releases the engine's vector indexes and snapshot sidecar.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for _, idx := range e.vec {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.snapshot != nil {
		if err := e.snapshot.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ planner.Sources = (*Engine)(nil)
