// Package gcstats is the process-wide statistics counter cmd/ftmonitor's
// dashboard and an `FT.DEBUG`-style introspection command would read
// from: per-field-kind schema tallies and query/cursor counters, grounded
// on original_source/src/global_stats.c's RSGlobalStats (relaxed atomic
// counters updated under the caller's own lock, read lock-free), plus
// the engine's fork-GC round history.
package gcstats

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ftengine/ftengine/internal/forkgc"
)

// FieldKind mirrors global_stats.c's per-type tally buckets. It is its
// own enum, separate from planner.FieldKind, though both list the same
// four kinds (text, tag, numeric, vector).
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldTag
	FieldNumeric
	FieldVector
)

// FieldOptions are the modifiers global_stats.c breaks each kind's count
// down by (Sortable/NoIndex), plus the tag-only CaseSensitive flag.
type FieldOptions uint8

const (
	OptSortable FieldOptions = 1 << iota
	OptNoIndex
	OptCaseSensitive
)

// fieldTally holds one kind's counters, mirroring the text/numeric/tag
// breakdown blocks FieldsGlobalStats_UpdateStats keeps side by side.
type fieldTally struct {
	total         atomic.Int64
	sortable      atomic.Int64
	noIndex       atomic.Int64
	caseSensitive atomic.Int64 // tag only
	// vector-only breakdown by backing algorithm (Flat/HNSW), mirroring
	// numVectorFieldsFlat/numVectorFieldsHNSW.
	flat atomic.Int64
	hnsw atomic.Int64
}

// VectorAlgo selects which vector backend a vector field update counts
// against, mirroring global_stats.c's VecSimAlgo_BF/VecSimAlgo_HNSWLIB
// distinction. Zero value (none) is used for non-vector field kinds.
type VectorAlgo int

const (
	VectorAlgoNone VectorAlgo = iota
	VectorAlgoFlat
	VectorAlgoHNSW
)

// FieldSnapshot is one kind's tallies at the moment of Snapshot.
type FieldSnapshot struct {
	Total         int64
	Sortable      int64
	NoIndex       int64
	CaseSensitive int64
	Flat          int64
	HNSW          int64
}

// Snapshot is a point-in-time read of every counter Collector tracks.
type Snapshot struct {
	Fields map[FieldKind]FieldSnapshot

	TotalQueryCommands     int64
	TotalUniqueQueries     int64
	DocTableSize           int
	CursorsOpen            int
	GCRounds               int64
	LastGC                 forkgc.Stats
	LastGCEntriesReclaimed int64
}

// Collector accumulates schema field counts, query traffic, and GC round
// history. All counters are lock-free; LastGC is guarded by a mutex
// since forkgc.Stats is a small value struct, not a single word.
type Collector struct {
	fields map[FieldKind]*fieldTally

	totalQueryCommands atomic.Int64
	totalUniqueQueries atomic.Int64
	gcRounds           atomic.Int64

	mu     sync.Mutex
	lastGC forkgc.Stats

	docTableSize atomic.Int64
	cursorsOpen  atomic.Int64
}

// New creates a Collector with zeroed counters for every field kind.
func New() *Collector {
	c := &Collector{fields: make(map[FieldKind]*fieldTally, 4)}
	for _, k := range []FieldKind{FieldText, FieldTag, FieldNumeric, FieldVector} {
		c.fields[k] = &fieldTally{}
	}
	return c
}

// UpdateFieldStats records a field of kind being added (toAdd=1) or
// removed (toAdd=-1) from the schema, mirroring
// FieldsGlobalStats_UpdateStats's toAdd-delta accounting so a field drop
// decrements the same buckets its addition incremented.
func (c *Collector) UpdateFieldStats(kind FieldKind, opts FieldOptions, algo VectorAlgo, toAdd int64) {
	t := c.fields[kind]
	if t == nil {
		return
	}
	t.total.Add(toAdd)
	if opts&OptSortable != 0 {
		t.sortable.Add(toAdd)
	}
	if opts&OptNoIndex != 0 {
		t.noIndex.Add(toAdd)
	}
	if kind == FieldTag && opts&OptCaseSensitive != 0 {
		t.caseSensitive.Add(toAdd)
	}
	if kind == FieldVector {
		switch algo {
		case VectorAlgoFlat:
			t.flat.Add(toAdd)
		case VectorAlgoHNSW:
			t.hnsw.Add(toAdd)
		}
	}
}

// RecordQuery mirrors TotalGlobalStats_CountQuery: every served query
// command counts toward TotalQueryCommands; only commands that aren't a
// plain cursor-continuation (isCursorRead && !isAggregate) also count
// as a unique query, so paging through one FT.AGGREGATE via
// FT.CURSOR READ isn't double-counted as N distinct queries.
func (c *Collector) RecordQuery(isCursorRead, isAggregate bool) {
	c.totalQueryCommands.Add(1)
	if !isCursorRead || isAggregate {
		c.totalUniqueQueries.Add(1)
	}
}

// RecordGCRound records one fork-GC round's outcome.
func (c *Collector) RecordGCRound(stats forkgc.Stats) {
	c.gcRounds.Add(1)
	c.mu.Lock()
	c.lastGC = stats
	c.mu.Unlock()
}

// SetDocTableSize and SetCursorsOpen are gauges the engine updates after
// each mutation, rather than counters, since both can shrink.
func (c *Collector) SetDocTableSize(n int) { c.docTableSize.Store(int64(n)) }
func (c *Collector) SetCursorsOpen(n int)  { c.cursorsOpen.Store(int64(n)) }

// Snapshot reads every counter into a plain value, safe to render or
// serialize without holding any of the collector's locks afterward.
func (c *Collector) Snapshot() *Snapshot {
	s := &Snapshot{
		Fields:             make(map[FieldKind]FieldSnapshot, len(c.fields)),
		TotalQueryCommands: c.totalQueryCommands.Load(),
		TotalUniqueQueries: c.totalUniqueQueries.Load(),
		DocTableSize:       int(c.docTableSize.Load()),
		CursorsOpen:        int(c.cursorsOpen.Load()),
		GCRounds:           c.gcRounds.Load(),
	}
	for k, t := range c.fields {
		s.Fields[k] = FieldSnapshot{
			Total:         t.total.Load(),
			Sortable:      t.sortable.Load(),
			NoIndex:       t.noIndex.Load(),
			CaseSensitive: t.caseSensitive.Load(),
			Flat:          t.flat.Load(),
			HNSW:          t.hnsw.Load(),
		}
	}
	c.mu.Lock()
	s.LastGC = c.lastGC
	c.mu.Unlock()
	s.LastGCEntriesReclaimed = int64(s.LastGC.EntriesCollected)
	return s
}

// fieldKindName is used by Render for stable, lower-case section names.
func fieldKindName(k FieldKind) string {
	switch k {
	case FieldText:
		return "text"
	case FieldTag:
		return "tag"
	case FieldNumeric:
		return "numeric"
	case FieldVector:
		return "vector"
	default:
		return "unknown"
	}
}

// Render formats the snapshot as an INFO-style text block for FT.DEBUG
// output or a plain-text dashboard fallback. Like
// FieldsGlobalStats_AddToInfo it omits field kinds with no fields; the
// queries, doc_table_size, cursors_open and gc_rounds lines are always
// printed.
func (s *Snapshot) Render() string {
	var out string
	for _, k := range []FieldKind{FieldText, FieldTag, FieldNumeric, FieldVector} {
		f := s.Fields[k]
		if f.Total == 0 {
			continue
		}
		out += fmt.Sprintf("fields_%s: total=%d sortable=%d no_index=%d", fieldKindName(k), f.Total, f.Sortable, f.NoIndex)
		if k == FieldTag && f.CaseSensitive > 0 {
			out += fmt.Sprintf(" case_sensitive=%d", f.CaseSensitive)
		}
		if k == FieldVector {
			out += fmt.Sprintf(" flat=%d hnsw=%d", f.Flat, f.HNSW)
		}
		out += "\n"
	}
	out += fmt.Sprintf("queries: total_commands=%d total_unique=%d\n", s.TotalQueryCommands, s.TotalUniqueQueries)
	out += fmt.Sprintf("doc_table_size: %d\n", s.DocTableSize)
	out += fmt.Sprintf("cursors_open: %d\n", s.CursorsOpen)
	out += fmt.Sprintf("gc_rounds: %d last_entries_reclaimed=%d\n", s.GCRounds, s.LastGCEntriesReclaimed)
	return out
}
