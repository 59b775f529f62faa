package iter

import (
	"time"

	"github.com/ftengine/ftengine/internal/doctable"
)

// docTable is the subset of doctable.Table the wildcard iterator needs;
// defined locally so iter doesn't force every caller to depend on the
// concrete doctable type during tests.
type docTable interface {
	IsLive(docID uint64) bool
}

var _ docTable = (*doctable.Table)(nil)

// Wildcard synthesises a dense doc-id stream from 1..maxDocID, skipping
// ids the doc table reports as deleted (spec.md §4.4).
type Wildcard struct {
	table    docTable
	maxDocID uint64
	deadline Deadline

	cur     uint64
	current *Result
	aborted bool
}

// NewWildcard creates a wildcard iterator bounded by maxDocID.
func NewWildcard(table docTable, maxDocID uint64, dl Deadline) *Wildcard {
	return &Wildcard{table: table, maxDocID: maxDocID, deadline: dl}
}

func (w *Wildcard) Read() (Status, *Result) {
	if w.aborted {
		return StatusEOF, nil
	}
	for {
		if w.deadline.Expired(time.Now()) {
			return StatusTimeout, nil
		}
		w.cur++
		if w.cur > w.maxDocID {
			return StatusEOF, nil
		}
		if !w.table.IsLive(w.cur) {
			continue
		}
		w.current = &Result{DocID: w.cur}
		return StatusOK, w.current
	}
}

func (w *Wildcard) SkipTo(target uint64) (Status, *Result) {
	if w.aborted {
		return StatusEOF, nil
	}
	if target <= w.cur && w.cur != 0 {
		return StatusOK, w.current
	}
	if target > w.maxDocID {
		return StatusEOF, nil
	}
	w.cur = target - 1
	st, res := w.Read()
	if st == StatusOK && res.DocID != target {
		return StatusNotFound, res
	}
	return st, res
}

func (w *Wildcard) LastDocID() uint64    { return w.cur }
func (w *Wildcard) NumEstimated() uint64 { return w.maxDocID }
func (w *Wildcard) Rewind()              { w.cur, w.current = 0, nil }
func (w *Wildcard) Abort()               { w.aborted = true }
func (w *Wildcard) Free()                { w.current = nil }
func (w *Wildcard) Current() *Result     { return w.current }
