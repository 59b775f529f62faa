package iter

import "container/heap"

// unionHeapItem tracks one child's most recent result for the min-heap.
type unionHeapItem struct {
	child Iterator
	docID uint64
}

type unionHeap []*unionHeapItem

func (h unionHeap) Len() int            { return len(h) }
func (h unionHeap) Less(i, j int) bool  { return h[i].docID < h[j].docID }
func (h unionHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *unionHeap) Push(x interface{}) { *h = append(*h, x.(*unionHeapItem)) }
func (h *unionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Union merges its children by minimum lastDocId, classic k-way
// min-merge, de-duplicating identical ids across children by combining
// their results into one aggregate Result (spec.md §4.4).
type Union struct {
	children []Iterator
	h        unionHeap
	started  bool
	lastID   uint64
	current  *Result
	aborted  bool
}

// NewUnion creates a union iterator over children. Children are primed
// (each Read once) lazily on the first Read/SkipTo call.
func NewUnion(children []Iterator) *Union {
	return &Union{children: children}
}

func (u *Union) prime() {
	if u.started {
		return
	}
	u.started = true
	u.h = make(unionHeap, 0, len(u.children))
	for _, c := range u.children {
		st, res := c.Read()
		if st == StatusOK {
			heap.Push(&u.h, &unionHeapItem{child: c, docID: res.DocID})
		}
	}
	heap.Init(&u.h)
}

func (u *Union) Read() (Status, *Result) {
	if u.aborted {
		return StatusEOF, nil
	}
	u.prime()
	if u.h.Len() == 0 {
		return StatusEOF, nil
	}

	target := u.h[0].docID
	var children []*Result
	for u.h.Len() > 0 && u.h[0].docID == target {
		item := heap.Pop(&u.h).(*unionHeapItem)
		children = append(children, item.child.Current())
		st, res := item.child.Read()
		if st == StatusOK {
			heap.Push(&u.h, &unionHeapItem{child: item.child, docID: res.DocID})
		}
	}

	u.lastID = target
	u.current = &Result{DocID: target, Children: children}
	return StatusOK, u.current
}

func (u *Union) SkipTo(target uint64) (Status, *Result) {
	if u.aborted {
		return StatusEOF, nil
	}
	u.prime()
	if target <= u.lastID && u.lastID != 0 {
		return StatusOK, u.current
	}

	// Forward every child to target and rebuild the heap from whatever's
	// left, per spec.md §4.4 ("skipTo forwards to each child then
	// re-selects the min").
	u.h = u.h[:0]
	for _, c := range u.children {
		if c.LastDocID() >= target {
			if res := c.Current(); res != nil {
				heap.Push(&u.h, &unionHeapItem{child: c, docID: res.DocID})
			}
			continue
		}
		st, res := c.SkipTo(target)
		if st == StatusOK || st == StatusNotFound {
			heap.Push(&u.h, &unionHeapItem{child: c, docID: res.DocID})
		}
	}
	heap.Init(&u.h)
	if u.h.Len() == 0 {
		return StatusEOF, nil
	}
	if u.h[0].docID == target {
		return u.Read()
	}
	got := u.h[0].docID
	st, res := u.Read()
	if st == StatusOK && got > target {
		return StatusNotFound, res
	}
	return st, res
}

func (u *Union) LastDocID() uint64    { return u.lastID }
func (u *Union) NumEstimated() uint64 {
	var sum uint64
	for _, c := range u.children {
		sum += c.NumEstimated()
	}
	return sum
}
func (u *Union) Rewind() {
	for _, c := range u.children {
		c.Rewind()
	}
	u.started, u.lastID, u.current = false, 0, nil
	u.h = nil
}
func (u *Union) Abort() {
	u.aborted = true
	for _, c := range u.children {
		c.Abort()
	}
}
func (u *Union) Free() {
	for _, c := range u.children {
		c.Free()
	}
	u.current = nil
}
func (u *Union) Current() *Result { return u.current }
