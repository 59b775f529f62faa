package iter

import "sort"

// IDList iterates a pre-sorted doc-id array, skipping via binary search
// (spec.md §4.4).
type IDList struct {
	ids     []uint64
	pos     int
	lastID  uint64
	current *Result
	aborted bool

	// scores optionally carries a per-doc-id ranking value (e.g. vector
	// similarity from NewVectorKNN) into each produced Result.Numeric.
	scores map[uint64]float32
}

// NewIDList creates an iterator over a strictly increasing doc-id slice.
func NewIDList(ids []uint64) *IDList {
	return &IDList{ids: ids}
}

func (l *IDList) Read() (Status, *Result) {
	if l.aborted {
		return StatusEOF, nil
	}
	if l.pos >= len(l.ids) {
		return StatusEOF, nil
	}
	id := l.ids[l.pos]
	l.pos++
	l.lastID = id
	l.current = &Result{DocID: id, Numeric: float64(l.scores[id])}
	return StatusOK, l.current
}

func (l *IDList) SkipTo(target uint64) (Status, *Result) {
	if l.aborted {
		return StatusEOF, nil
	}
	if target <= l.lastID && l.lastID != 0 {
		return StatusOK, l.current
	}
	idx := sort.Search(len(l.ids), func(i int) bool { return l.ids[i] >= target })
	if idx >= len(l.ids) {
		l.pos = len(l.ids)
		return StatusEOF, nil
	}
	l.pos = idx + 1
	l.lastID = l.ids[idx]
	l.current = &Result{DocID: l.lastID, Numeric: float64(l.scores[l.lastID])}
	if l.lastID == target {
		return StatusOK, l.current
	}
	return StatusNotFound, l.current
}

func (l *IDList) LastDocID() uint64    { return l.lastID }
func (l *IDList) NumEstimated() uint64 { return uint64(len(l.ids)) }
func (l *IDList) Rewind()              { l.pos, l.lastID, l.current = 0, 0, nil }
func (l *IDList) Abort()               { l.aborted = true }
func (l *IDList) Free()                { l.current = nil }
func (l *IDList) Current() *Result     { return l.current }
