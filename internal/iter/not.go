package iter

// Not wraps a child and a wildcard stream, yielding ids present in the
// wildcard but absent from the child (spec.md §4.4: "Requires a
// doc-ceiling for the wildcard").
type Not struct {
	child    Iterator
	wildcard Iterator

	childExhausted bool
	childNext      uint64 // 0 once exhausted

	lastID  uint64
	current *Result
	aborted bool
}

// NewNot creates a negation iterator: wildcard minus child.
func NewNot(child, wildcard Iterator) *Not {
	n := &Not{child: child, wildcard: wildcard}
	n.advanceChild()
	return n
}

func (n *Not) advanceChild() {
	st, res := n.child.Read()
	if st != StatusOK {
		n.childExhausted = true
		n.childNext = 0
		return
	}
	n.childNext = res.DocID
}

func (n *Not) Read() (Status, *Result) {
	if n.aborted {
		return StatusEOF, nil
	}
	for {
		st, res := n.wildcard.Read()
		if st != StatusOK {
			return st, nil
		}
		for !n.childExhausted && n.childNext < res.DocID {
			n.advanceChild()
		}
		if !n.childExhausted && n.childNext == res.DocID {
			continue // excluded by child
		}
		n.lastID = res.DocID
		n.current = res
		return StatusOK, n.current
	}
}

func (n *Not) SkipTo(target uint64) (Status, *Result) {
	if n.aborted {
		return StatusEOF, nil
	}
	if target <= n.lastID && n.lastID != 0 {
		return StatusOK, n.current
	}
	origTarget := target
	cursor := target
	for {
		st, res := n.wildcard.SkipTo(cursor)
		if st == StatusEOF {
			return StatusEOF, nil
		}
		for !n.childExhausted && n.childNext < res.DocID {
			n.advanceChild()
		}
		if !n.childExhausted && n.childNext == res.DocID {
			cursor = res.DocID + 1
			continue
		}
		n.lastID = res.DocID
		n.current = res
		if res.DocID == origTarget {
			return StatusOK, n.current
		}
		return StatusNotFound, n.current
	}
}

func (n *Not) LastDocID() uint64    { return n.lastID }
func (n *Not) NumEstimated() uint64 { return n.wildcard.NumEstimated() }
func (n *Not) Rewind() {
	n.child.Rewind()
	n.wildcard.Rewind()
	n.lastID, n.current = 0, nil
	n.advanceChild()
}
func (n *Not) Abort() {
	n.aborted = true
	n.child.Abort()
	n.wildcard.Abort()
}
func (n *Not) Free() {
	n.child.Free()
	n.wildcard.Free()
	n.current = nil
}
func (n *Not) Current() *Result { return n.current }
