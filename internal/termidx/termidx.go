// Package termidx implements the term index (C5): a trie mapping token
// strings to inverted indexes, each tagged with a unique id so readers
// that span a GC cycle can detect whether the index they opened before
// GC is still the same one after.
package termidx

import (
	"sort"
	"strings"
	"sync"

	"github.com/ftengine/ftengine/internal/invidx"
)

// Entry pairs one term's inverted index with the id that identifies its
// identity across reopens (spec.md §4.5: "bulk reopen after GC consults
// per-term uniqueId").
type Entry struct {
	Index    *invidx.InvertedIndex
	UniqueID uint64
}

// Index is the term trie: term string -> Entry.
type Index struct {
	mu sync.RWMutex

	terms  map[string]*Entry
	nextID uint64
}

// New creates an empty term index.
func New() *Index {
	return &Index{terms: make(map[string]*Entry)}
}

// GetOrCreate returns the inverted index for term, creating one with the
// given posting flags if it doesn't already exist.
func (idx *Index) GetOrCreate(term string, flags invidx.Flags) *Entry {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if e, ok := idx.terms[term]; ok {
		return e
	}
	idx.nextID++
	e := &Entry{Index: invidx.New(flags), UniqueID: idx.nextID}
	idx.terms[term] = e
	return e
}

// Get returns the entry for term without creating it.
func (idx *Index) Get(term string) (*Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.terms[term]
	return e, ok
}

// Delete drops a term entirely; used when GC finds its inverted index
// empty after a repair sweep.
func (idx *Index) Delete(term string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.terms, term)
}

// PrefixExpand returns up to limit indexed terms beginning with prefix,
// sorted, for the planner's `word*` prefix-query form. limit<=0 means
// unlimited. This is the engine-wide maxPrefixExpansions bound decided
// in SPEC_FULL.md's Open Question 1: a wide prefix (e.g. a single
// letter) against a large trie must not force every matching posting
// list into the resulting union.
func (idx *Index) PrefixExpand(prefix string, limit int) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []string
	for t := range idx.terms {
		if strings.HasPrefix(t, prefix) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Terms returns a snapshot of all indexed terms.
func (idx *Index) Terms() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, len(idx.terms))
	for t := range idx.terms {
		out = append(out, t)
	}
	return out
}

// StillValid reports whether the entry a reader cached for term is still
// the same identity (i.e. GC didn't replace the whole term slot between
// the reader's open and its reopen attempt).
func (idx *Index) StillValid(term string, uniqueID uint64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.terms[term]
	return ok && e.UniqueID == uniqueID
}

// Len returns the number of distinct terms held.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.terms)
}
