// Package numidx implements the numeric index (C5): a range-split binary
// tree whose leaves are inverted indexes over the docs whose value falls
// in that leaf's [min, max) range.
package numidx

import (
	"errors"
	"sort"
	"sync"

	"github.com/ftengine/ftengine/internal/invidx"
)

// DefaultSplitCard is the entry count at which a leaf splits on its
// median value, per spec.md §3/§4.5.
const DefaultSplitCard = 500

// ErrEmptyTree is returned when a range query is issued against a tree
// with no leaves (shouldn't happen once New has run, kept for symmetry
// with invidx's error style).
var ErrEmptyTree = errors.New("numidx: empty tree")

// node is either an internal split node or a leaf carrying an inverted
// index of entries whose value falls in [min, max).
type node struct {
	min, max float64

	// internal node fields
	split       float64
	left, right *node

	// leaf fields
	leaf    *invidx.InvertedIndex
	samples []float64 // pending values retained to compute the next median split
	marked  bool       // true once the leaf becomes empty and awaits GC sweep
}

func (n *node) isLeaf() bool { return n.leaf != nil || (n.left == nil && n.right == nil) }

// Tree is the numeric range tree for one field.
type Tree struct {
	mu sync.RWMutex

	root      *node
	splitCard int
	uniqueID  uint64

	// emptyLeaves counts leaves with NumDocs == 0, for the ≥-half cleanup
	// sweep threshold used by fork GC (spec.md §4.7 step 4).
	emptyLeaves int
	totalLeaves int
}

// New creates a numeric tree covering (-Inf, +Inf) in a single leaf.
func New(uniqueID uint64, splitCard int) *Tree {
	if splitCard <= 0 {
		splitCard = DefaultSplitCard
	}
	return &Tree{
		root: &node{
			min:  negInf,
			max:  posInf,
			leaf: invidx.New(invidx.FlagStoreNumeric),
		},
		splitCard:   splitCard,
		uniqueID:    uniqueID,
		totalLeaves: 1,
	}
}

const (
	posInf = 1e308 * 10
	negInf = -1e308 * 10
)

// UniqueID identifies this tree's identity across reopens (spec.md §3).
func (t *Tree) UniqueID() uint64 {
	return t.uniqueID
}

// Insert adds value for docID, descending to the covering leaf and
// splitting it on the median once it crosses splitCard entries.
func (t *Tree) Insert(docID uint64, value float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.findLeaf(t.root, value)
	if err := n.leaf.WriteEntry(docID, invidx.Record{Numeric: value}); err != nil {
		return err
	}
	n.samples = append(n.samples, value)
	n.marked = false

	if int(n.leaf.NumDocs) >= t.splitCard {
		t.splitLeaf(n)
	}
	return nil
}

func (t *Tree) findLeaf(n *node, value float64) *node {
	for !n.isLeaf() {
		if value < n.split {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// splitLeaf splits n on its median sample value into two children,
// re-inserting its existing postings into whichever child now covers
// them.
func (t *Tree) splitLeaf(n *node) {
	if len(n.samples) < 2 {
		return
	}
	sorted := append([]float64(nil), n.samples...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if median <= n.min || median >= n.max {
		return
	}

	left := &node{min: n.min, max: median, leaf: invidx.New(invidx.FlagStoreNumeric)}
	right := &node{min: median, max: n.max, leaf: invidx.New(invidx.FlagStoreNumeric)}

	decode := n.leaf.GetDecoder()
	for _, blk := range n.leaf.Blocks {
		_ = decode(blk, func(r invidx.Record) bool {
			target := left
			if r.Numeric >= median {
				target = right
			}
			_ = target.leaf.WriteEntry(r.DocID, invidx.Record{Numeric: r.Numeric})
			target.samples = append(target.samples, r.Numeric)
			return true
		})
	}

	n.leaf = nil
	n.samples = nil
	n.split = median
	n.left = left
	n.right = right
	t.totalLeaves++
}

// RangeQuery returns every leaf overlapping [lo, hi], in left-to-right
// (ascending range) order, for readers to iterate in turn.
func (t *Tree) RangeQuery(lo, hi float64) []*invidx.InvertedIndex {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*invidx.InvertedIndex
	t.collect(t.root, lo, hi, &out)
	return out
}

func (t *Tree) collect(n *node, lo, hi float64, out *[]*invidx.InvertedIndex) {
	if n == nil || hi < n.min || lo >= n.max {
		return
	}
	if n.isLeaf() {
		*out = append(*out, n.leaf)
		return
	}
	t.collect(n.left, lo, hi, out)
	t.collect(n.right, lo, hi, out)
}

// MarkEmptyLeaves recomputes the empty-leaf count fork GC consults to
// decide whether a cleanup sweep is due (spec.md §4.7 step 4: "when ≥
// half are empty, a cleanup sweep trims them").
func (t *Tree) MarkEmptyLeaves() (empty, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emptyLeaves, t.totalLeaves = 0, 0
	t.walkMarkEmpty(t.root)
	return t.emptyLeaves, t.totalLeaves
}

func (t *Tree) walkMarkEmpty(n *node) {
	if n == nil {
		return
	}
	if n.isLeaf() {
		t.totalLeaves++
		n.marked = n.leaf.NumDocs == 0
		if n.marked {
			t.emptyLeaves++
		}
		return
	}
	t.walkMarkEmpty(n.left)
	t.walkMarkEmpty(n.right)
}

// ShouldSweep reports whether the last MarkEmptyLeaves pass found at
// least half the leaves empty.
func (t *Tree) ShouldSweep() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalLeaves > 0 && t.emptyLeaves*2 >= t.totalLeaves
}

// Sweep removes marked-empty leaves by collapsing their parent split
// node into whichever sibling remains.
func (t *Tree) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = sweepNode(t.root)
	if t.root == nil {
		t.root = &node{min: negInf, max: posInf, leaf: invidx.New(invidx.FlagStoreNumeric)}
	}
}

func sweepNode(n *node) *node {
	if n == nil {
		return nil
	}
	if n.isLeaf() {
		if n.marked {
			return nil
		}
		return n
	}
	n.left = sweepNode(n.left)
	n.right = sweepNode(n.right)
	switch {
	case n.left == nil && n.right == nil:
		return nil
	case n.left == nil:
		return n.right
	case n.right == nil:
		return n.left
	default:
		return n
	}
}

// LeafCount returns the current number of leaves in the tree.
func (t *Tree) LeafCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	var walk func(*node)
	walk = func(nd *node) {
		if nd == nil {
			return
		}
		if nd.isLeaf() {
			n++
			return
		}
		walk(nd.left)
		walk(nd.right)
	}
	walk(t.root)
	return n
}
