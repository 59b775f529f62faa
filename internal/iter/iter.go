// Package iter implements the query iterator tree (C6): a family of
// doc-id-ordered cursors composed by the planner into boolean/phrase
// query trees.
package iter

import "time"

// Status is the outcome of a Read or SkipTo call.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusEOF
	StatusTimeout
)

// Result is the payload an iterator produces for one doc-id: posting
// fields for leaf iterators, or an ordered list of child results for
// aggregate iterators (union/intersect), per spec.md §4.4.
type Result struct {
	DocID     uint64
	Freq      uint32
	FieldMask uint64
	Offsets   []uint32
	Numeric   float64

	// Children holds the contributing sub-results in insertion order,
	// when this Result was produced by an aggregate iterator.
	Children []*Result

	// Optional marks a result (under an Optional iterator) whose id also
	// matched the wrapped child, vs. one that only matched the wildcard.
	Optional bool
}

// Iterator is the uniform contract every query-tree node implements.
type Iterator interface {
	// Read advances to the next valid doc-id strictly greater than the
	// last one produced.
	Read() (Status, *Result)
	// SkipTo advances to the first doc-id >= target. StatusOK means the
	// result is exactly at target; StatusNotFound means it landed on the
	// next available id beyond target.
	SkipTo(target uint64) (Status, *Result)
	// LastDocID is the id of the most recently produced result, or 0.
	LastDocID() uint64
	// NumEstimated is an upper bound on remaining results, used by the
	// planner to order intersect children.
	NumEstimated() uint64
	Rewind()
	Abort()
	Free()
	// Current is the latest Result produced by Read/SkipTo.
	Current() *Result
}

// Deadline is an absolute cutoff iterators check at block boundaries and
// on every SkipTo, per spec.md §4.4 and §5.
type Deadline struct {
	At time.Time
}

// Expired reports whether the deadline has passed. A zero Deadline never
// expires.
func (d Deadline) Expired(now time.Time) bool {
	return !d.At.IsZero() && !now.Before(d.At)
}
