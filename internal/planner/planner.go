// Package planner implements the query planner (C7): parsing a query
// string into an iterator tree, expanding terms, and ordering intersect
// children for the best galloping behaviour.
package planner

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ftengine/ftengine/internal/analyzer"
	"github.com/ftengine/ftengine/internal/invidx"
	"github.com/ftengine/ftengine/internal/iter"
)

// FieldKind selects how a field's clauses are resolved to postings.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldTag
	FieldNumeric
	FieldVector
)

// Field describes one schema attribute: its kind and the bit it
// occupies in the wide field-mask bitset (spec.md §3's fieldMask).
type Field struct {
	Name string
	Kind FieldKind
	Bit  uint64
}

// Schema is the set of indexed fields a query may reference.
type Schema struct {
	Fields map[string]Field
}

// FieldMask returns the OR of every field's bit, used as the default
// mask for unfielded clauses.
func (s *Schema) FieldMask() uint64 {
	var mask uint64
	for _, f := range s.Fields {
		mask |= f.Bit
	}
	return mask
}

// Sources resolves schema clauses to concrete inverted indexes; the
// engine facade (internal/engine) implements this over termidx/tagidx/
// numidx/vecindex. Term is global across fields (spec.md §3: field
// selectivity lives in the posting's fieldMask, not in separate
// per-field term tries); Tag and NumericRange are per-field since
// tag/numeric attributes each own their own trie/tree. PrefixExpand,
// TagSuffixExpand, and TagContainsExpand back the `word*`/`*suffix`/
// `*contains*` query forms (spec.md §4.5); VectorKNN gives a `@field:
// <k v1,v2,...>` clause a composable iterator node (spec.md §4.6).
type Sources interface {
	Term(term string) (*invidx.InvertedIndex, bool)
	Tag(field, tag string) (*invidx.InvertedIndex, bool)
	NumericRange(field string, min, max float64) []*invidx.InvertedIndex
	NewWildcard(deadline iter.Deadline) iter.Iterator
	PrefixExpand(prefix string, limit int) []string
	TagSuffixExpand(field, suf string, limit int) []string
	TagContainsExpand(field, sub string, limit int) []string
	VectorKNN(field string, query []float32, k int) (iter.Iterator, error)
}

// defaultMaxExpansions bounds prefix/suffix fan-out when a Planner's
// MaxPrefixExpansions/MaxSuffixExpansions are left unset (e.g. in
// tests constructing a Planner directly rather than through
// internal/engine, which sets both from config.QueryConfig).
const defaultMaxExpansions = 128

// Planner parses query strings against a schema and a Sources provider.
type Planner struct {
	Schema   *Schema
	Sources  Sources
	Analyzer *analyzer.Analyzer
	Deadline iter.Deadline

	// MaxPrefixExpansions bounds how many terms a `word*` prefix query
	// may expand into; MaxSuffixExpansions bounds a tag `*suffix`/
	// `*contains*` query the same way, independently (SPEC_FULL.md Open
	// Question 1). <=0 falls back to defaultMaxExpansions.
	MaxPrefixExpansions int
	MaxSuffixExpansions int
}

func (p *Planner) maxPrefixExpansions() int {
	if p.MaxPrefixExpansions > 0 {
		return p.MaxPrefixExpansions
	}
	return defaultMaxExpansions
}

func (p *Planner) maxSuffixExpansions() int {
	if p.MaxSuffixExpansions > 0 {
		return p.MaxSuffixExpansions
	}
	return defaultMaxExpansions
}

// New creates a planner.
func New(schema *Schema, sources Sources, an *analyzer.Analyzer, dl iter.Deadline) *Planner {
	return &Planner{Schema: schema, Sources: sources, Analyzer: an, Deadline: dl}
}

// Parse builds an iterator tree for query. fieldMask, if non-zero,
// restricts unfielded term clauses to the given fields; 0 means "all
// indexed fields" (spec.md §4.6).
func (p *Planner) Parse(query string, fieldMask uint64) (iter.Iterator, error) {
	clauses, err := tokenizeClauses(query)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		return p.Sources.NewWildcard(p.Deadline), nil
	}

	var children []iter.Iterator
	for _, c := range clauses {
		it, err := p.buildClause(c, fieldMask)
		if err != nil {
			return nil, err
		}
		if it != nil {
			children = append(children, it)
		}
	}
	if len(children) == 0 {
		return p.Sources.NewWildcard(p.Deadline), nil
	}
	if len(children) == 1 {
		return children[0], nil
	}

	// Order intersect children by ascending numEstimated for best
	// galloping behaviour (spec.md §4.6).
	sort.Slice(children, func(i, j int) bool {
		return children[i].NumEstimated() < children[j].NumEstimated()
	})
	return iter.NewIntersect(children), nil
}

// clause is one top-level space-separated unit of the query string,
// with NOT/OPTIONAL modifiers and pipe-union alternatives already split
// out by the tokenizer.
type clause struct {
	negate   bool
	optional bool
	// field is empty for an unfielded clause.
	field string
	// alts holds the pipe-separated alternatives (union); phrase holds a
	// quoted multi-word alternative, mutually exclusive with word-level
	// alts within one clause for simplicity.
	alts   []string
	phrase []string
	// rangeLo/rangeHi are set for a "[lo hi]" numeric clause.
	isRange bool
	rangeLo float64
	rangeHi float64
	// vecK/vecQuery are set for a "<k v1,v2,...>" Vector-KNN clause.
	isVector bool
	vecK     int
	vecQuery []float32
}

func (p *Planner) buildClause(c clause, fieldMask uint64) (iter.Iterator, error) {
	mask := fieldMask
	if c.field != "" {
		f, ok := p.Schema.Fields[c.field]
		if !ok {
			return nil, fmt.Errorf("planner: unknown field %q", c.field)
		}
		mask = f.Bit
		switch f.Kind {
		case FieldTag:
			return p.buildTagClause(c, f)
		case FieldNumeric:
			return p.buildNumericClause(c, f)
		case FieldVector:
			return p.buildVectorClause(c, f)
		}
	}

	base, err := p.buildTextClause(c, mask)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, nil
	}
	if c.negate {
		return iter.NewNot(base, p.Sources.NewWildcard(p.Deadline)), nil
	}
	if c.optional {
		return iter.NewOptional(base, p.Sources.NewWildcard(p.Deadline)), nil
	}
	return base, nil
}

func (p *Planner) buildTextClause(c clause, mask uint64) (iter.Iterator, error) {
	if len(c.phrase) > 0 {
		var children []iter.Iterator
		for _, word := range c.phrase {
			it, err := p.unionOverExpansions(word, mask)
			if err != nil {
				return nil, err
			}
			if it == nil {
				return nil, nil // a phrase with a missing word matches nothing
			}
			children = append(children, it)
		}
		if len(children) == 1 {
			return children[0], nil
		}
		x := iter.NewIntersect(children)
		x.MaxSlop = 0
		x.InOrder = true
		return x, nil
	}

	var children []iter.Iterator
	for _, alt := range c.alts {
		it, err := p.unionOverExpansions(alt, mask)
		if err != nil {
			return nil, err
		}
		if it != nil {
			children = append(children, it)
		}
	}
	switch len(children) {
	case 0:
		return nil, nil
	case 1:
		return children[0], nil
	default:
		return iter.NewUnion(children), nil
	}
}

// unionOverExpansions expands one surface word into an iterator. A
// trailing "*" (and at least one character before it) makes it a
// prefix query, expanded through Sources.PrefixExpand up to
// maxPrefixExpansions terms (spec.md §4.5/SPEC_FULL.md Open Question
// 1); otherwise it runs through the analyzer's Expand hook
// (stemming/synonyms), unioning the results (spec.md §4.6).
func (p *Planner) unionOverExpansions(word string, mask uint64) (iter.Iterator, error) {
	if strings.HasSuffix(word, "*") && len(word) > 1 {
		prefix := word[:len(word)-1]
		terms := p.Sources.PrefixExpand(prefix, p.maxPrefixExpansions())
		return p.termsToIterator(terms, mask), nil
	}

	var variants []string
	if p.Analyzer != nil {
		variants = p.Analyzer.ExpandTerm(word)
	} else {
		variants = []string{word}
	}
	return p.termsToIterator(variants, mask), nil
}

// termsToIterator unions the term readers for every term in terms that
// Sources actually indexes, skipping the rest.
func (p *Planner) termsToIterator(terms []string, mask uint64) iter.Iterator {
	var children []iter.Iterator
	for _, v := range terms {
		idx, ok := p.Sources.Term(v)
		if !ok {
			continue
		}
		children = append(children, iter.NewTermReader(idx, mask, p.Deadline))
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return iter.NewUnion(children)
	}
}

func (p *Planner) buildTagClause(c clause, f Field) (iter.Iterator, error) {
	tags := c.alts
	if len(tags) == 0 && len(c.phrase) > 0 {
		tags = []string{strings.Join(c.phrase, " ")}
	}
	var children []iter.Iterator
	for _, tag := range tags {
		for _, idx := range p.resolveTagPattern(f.Name, tag) {
			children = append(children, iter.NewTermReader(idx, 0, p.Deadline))
		}
	}
	var base iter.Iterator
	switch len(children) {
	case 0:
		return nil, nil
	case 1:
		base = children[0]
	default:
		base = iter.NewUnion(children)
	}
	if c.negate {
		return iter.NewNot(base, p.Sources.NewWildcard(p.Deadline)), nil
	}
	return base, nil
}

// resolveTagPattern resolves one tag alternative to its inverted
// indexes. A leading "*" with a trailing "*" is a `*contains*` query; a
// leading "*" alone is a `*suffix` query (spec.md §4.5); anything else
// is an exact tag lookup.
func (p *Planner) resolveTagPattern(field, tag string) []*invidx.InvertedIndex {
	switch {
	case len(tag) > 2 && strings.HasPrefix(tag, "*") && strings.HasSuffix(tag, "*"):
		sub := tag[1 : len(tag)-1]
		return p.tagIndexesFor(field, p.Sources.TagContainsExpand(field, sub, p.maxSuffixExpansions()))
	case len(tag) > 1 && strings.HasPrefix(tag, "*"):
		suf := tag[1:]
		return p.tagIndexesFor(field, p.Sources.TagSuffixExpand(field, suf, p.maxSuffixExpansions()))
	default:
		idx, ok := p.Sources.Tag(field, tag)
		if !ok {
			return nil
		}
		return []*invidx.InvertedIndex{idx}
	}
}

func (p *Planner) tagIndexesFor(field string, tags []string) []*invidx.InvertedIndex {
	var out []*invidx.InvertedIndex
	for _, t := range tags {
		if idx, ok := p.Sources.Tag(field, t); ok {
			out = append(out, idx)
		}
	}
	return out
}

// buildVectorClause runs a Vector-KNN query against a "<k
// v1,v2,...>" clause through Sources.VectorKNN, giving vector search
// its own composable iterator tree node (spec.md §4.6) instead of
// bypassing the planner entirely.
func (p *Planner) buildVectorClause(c clause, f Field) (iter.Iterator, error) {
	if !c.isVector {
		return nil, fmt.Errorf("planner: vector field %q requires a \"<k v1,v2,...>\" clause", f.Name)
	}
	it, err := p.Sources.VectorKNN(f.Name, c.vecQuery, c.vecK)
	if err != nil {
		return nil, fmt.Errorf("planner: vector query on field %q: %w", f.Name, err)
	}
	if c.negate {
		return iter.NewNot(it, p.Sources.NewWildcard(p.Deadline)), nil
	}
	return it, nil
}

func (p *Planner) buildNumericClause(c clause, f Field) (iter.Iterator, error) {
	if !c.isRange {
		return nil, fmt.Errorf("planner: numeric field %q requires a [min max] clause", f.Name)
	}
	leaves := p.Sources.NumericRange(f.Name, c.rangeLo, c.rangeHi)
	var children []iter.Iterator
	for _, leaf := range leaves {
		children = append(children, iter.NewNumericReader(leaf, c.rangeLo, c.rangeHi, p.Deadline))
	}
	switch len(children) {
	case 0:
		return nil, nil
	case 1:
		return children[0], nil
	default:
		return iter.NewUnion(children), nil
	}
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
