package iter

// Optional always yields the wildcard stream, marking results whose id
// also appears in the wrapped child for scoring purposes (spec.md §4.4).
type Optional struct {
	child    Iterator
	wildcard Iterator

	childExhausted bool
	childNext      uint64

	lastID  uint64
	current *Result
	aborted bool
}

// NewOptional creates an iterator over wildcard, annotating matches
// against child.
func NewOptional(child, wildcard Iterator) *Optional {
	o := &Optional{child: child, wildcard: wildcard}
	o.advanceChild()
	return o
}

func (o *Optional) advanceChild() {
	st, res := o.child.Read()
	if st != StatusOK {
		o.childExhausted = true
		o.childNext = 0
		return
	}
	o.childNext = res.DocID
}

func (o *Optional) annotate(res *Result) *Result {
	for !o.childExhausted && o.childNext < res.DocID {
		o.advanceChild()
	}
	if !o.childExhausted && o.childNext == res.DocID {
		child := o.child.Current()
		res = &Result{DocID: res.DocID, Optional: true, Children: []*Result{child}}
	}
	return res
}

func (o *Optional) Read() (Status, *Result) {
	if o.aborted {
		return StatusEOF, nil
	}
	st, res := o.wildcard.Read()
	if st != StatusOK {
		return st, nil
	}
	o.current = o.annotate(res)
	o.lastID = o.current.DocID
	return StatusOK, o.current
}

func (o *Optional) SkipTo(target uint64) (Status, *Result) {
	if o.aborted {
		return StatusEOF, nil
	}
	if target <= o.lastID && o.lastID != 0 {
		return StatusOK, o.current
	}
	st, res := o.wildcard.SkipTo(target)
	if st == StatusEOF {
		return StatusEOF, nil
	}
	o.current = o.annotate(res)
	o.lastID = o.current.DocID
	return st, o.current
}

func (o *Optional) LastDocID() uint64    { return o.lastID }
func (o *Optional) NumEstimated() uint64 { return o.wildcard.NumEstimated() }
func (o *Optional) Rewind() {
	o.child.Rewind()
	o.wildcard.Rewind()
	o.lastID, o.current = 0, nil
	o.advanceChild()
}
func (o *Optional) Abort() {
	o.aborted = true
	o.child.Abort()
	o.wildcard.Abort()
}
func (o *Optional) Free() {
	o.child.Free()
	o.wildcard.Free()
	o.current = nil
}
func (o *Optional) Current() *Result { return o.current }
