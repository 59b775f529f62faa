// Package tagidx implements the tag index (C5): a map from tag value to
// inverted index, with an optional suffix index that accelerates
// `*suffix` and `*contains*` queries, grounded on original_source's
// suffix.c (MIN_SUFFIX-based suffix trie over surviving tag strings).
package tagidx

import (
	"sort"
	"sync"

	"github.com/ftengine/ftengine/internal/invidx"
)

// MinSuffix is the shortest suffix length the suffix index tracks,
// mirroring original_source/src/suffix.h's MIN_SUFFIX.
const MinSuffix = 2

// Entry pairs one tag value's inverted index with its identity id.
type Entry struct {
	Index    *invidx.InvertedIndex
	UniqueID uint64
}

// Index is the tag trie plus its optional suffix accelerator.
type Index struct {
	mu sync.RWMutex

	tags   map[string]*Entry
	nextID uint64

	suffixEnabled bool
	// suffix maps every suffix (length >= MinSuffix) of each tag value to
	// the set of full tag strings it's a suffix of, per spec.md §4.5.
	suffix map[string]map[string]struct{}
}

// New creates a tag index; enableSuffix turns on the suffix accelerator
// used for `*suffix` and `*contains*` query forms.
func New(enableSuffix bool) *Index {
	idx := &Index{
		tags:          make(map[string]*Entry),
		suffixEnabled: enableSuffix,
	}
	if enableSuffix {
		idx.suffix = make(map[string]map[string]struct{})
	}
	return idx
}

// GetOrCreate returns the inverted index for a tag value, creating it
// (and indexing its suffixes) if it doesn't already exist.
func (idx *Index) GetOrCreate(tag string, flags invidx.Flags) *Entry {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if e, ok := idx.tags[tag]; ok {
		return e
	}
	idx.nextID++
	e := &Entry{Index: invidx.New(flags), UniqueID: idx.nextID}
	idx.tags[tag] = e
	if idx.suffixEnabled {
		idx.indexSuffixes(tag)
	}
	return e
}

func (idx *Index) indexSuffixes(tag string) {
	if len(tag) < MinSuffix {
		return
	}
	for start := 0; start <= len(tag)-MinSuffix; start++ {
		suf := tag[start:]
		set := idx.suffix[suf]
		if set == nil {
			set = make(map[string]struct{})
			idx.suffix[suf] = set
		}
		set[tag] = struct{}{}
	}
}

// Get returns the entry for a tag value without creating it.
func (idx *Index) Get(tag string) (*Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.tags[tag]
	return e, ok
}

// Delete removes a tag value entirely, pruning its suffixes; GC invokes
// this when the underlying inverted index becomes empty.
func (idx *Index) Delete(tag string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.tags, tag)
	if !idx.suffixEnabled || len(tag) < MinSuffix {
		return
	}
	for start := 0; start <= len(tag)-MinSuffix; start++ {
		suf := tag[start:]
		set := idx.suffix[suf]
		if set == nil {
			continue
		}
		delete(set, tag)
		if len(set) == 0 {
			delete(idx.suffix, suf)
		}
	}
}

// MatchSuffix returns every tag value ending in suf (the `*suffix` query
// form). Returns nil if the suffix accelerator is disabled.
func (idx *Index) MatchSuffix(suf string) []string {
	if !idx.suffixEnabled {
		return nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	set, ok := idx.suffix[suf]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// MatchContains returns every tag value containing sub anywhere (the
// `*contains*` query form), scanning the suffix index's keys since every
// substring of a tag is the prefix of one of its suffixes.
func (idx *Index) MatchContains(sub string) []string {
	if !idx.suffixEnabled || len(sub) == 0 {
		return nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	seen := make(map[string]struct{})
	for suf, set := range idx.suffix {
		if len(suf) < len(sub) || !hasPrefix(suf, sub) {
			continue
		}
		for tag := range set {
			seen[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Tags returns a snapshot of all indexed tag values.
func (idx *Index) Tags() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, len(idx.tags))
	for t := range idx.tags {
		out = append(out, t)
	}
	return out
}

// Len returns the number of distinct tag values held.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.tags)
}
