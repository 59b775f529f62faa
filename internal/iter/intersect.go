package iter

import "sort"

// Intersect computes the boolean AND of its children via galloping
// skipTo: pick the largest current candidate id, ask every other child
// to skipTo it; if any lands past it, restart from that new id. When
// every child's term reader carries offsets and MaxSlop >= 0, also
// requires the matched positions to fall within the configured slop
// window (spec.md §4.4: "Tracks 'slop' ... when children are term
// readers").
type Intersect struct {
	children []Iterator

	// MaxSlop < 0 disables phrase-slop checking (plain boolean AND).
	MaxSlop int
	InOrder bool

	lastID  uint64
	current *Result
	aborted bool
}

// NewIntersect creates a boolean-AND iterator over children, ordered by
// the caller per spec.md §4.6 (ascending numEstimated for best galloping
// behaviour).
func NewIntersect(children []Iterator) *Intersect {
	return &Intersect{children: children, MaxSlop: -1}
}

func (x *Intersect) Read() (Status, *Result) {
	st, res, _ := x.matchFrom(x.lastID + 1)
	return st, res
}

func (x *Intersect) SkipTo(target uint64) (Status, *Result) {
	if x.aborted || len(x.children) == 0 {
		return StatusEOF, nil
	}
	if target <= x.lastID && x.lastID != 0 {
		return StatusOK, x.current
	}
	st, res, found := x.matchFrom(target)
	if st != StatusOK {
		return st, res
	}
	if found == target {
		return StatusOK, res
	}
	return StatusNotFound, res
}

// matchFrom searches for the first doc-id >= from at which every child
// agrees (and, when slop tracking is enabled, satisfies the phrase
// window). It always reports the match as StatusOK — the OK/NotFound
// distinction relative to a caller-supplied target is SkipTo's job.
func (x *Intersect) matchFrom(from uint64) (Status, *Result, uint64) {
	cur := from
	for {
		advanced := false
		for _, c := range x.children {
			st, res := c.SkipTo(cur)
			if st == StatusEOF {
				return StatusEOF, nil, 0
			}
			if st == StatusTimeout {
				return StatusTimeout, nil, 0
			}
			if res.DocID != cur {
				cur = res.DocID
				advanced = true
				break
			}
		}
		if advanced {
			continue
		}

		if x.MaxSlop >= 0 && !x.slopMatches() {
			cur++
			continue
		}

		children := make([]*Result, len(x.children))
		for i, c := range x.children {
			children[i] = c.Current()
		}
		x.lastID = cur
		x.current = &Result{DocID: cur, Children: children}
		return StatusOK, x.current, cur
	}
}

// slopMatches checks whether the current per-child offsets admit a
// phrase match within MaxSlop. When InOrder is set, positions must be
// strictly increasing in child order; otherwise any assignment of one
// offset per child within the narrowest window counts.
func (x *Intersect) slopMatches() bool {
	lists := make([][]uint32, len(x.children))
	for i, c := range x.children {
		res := c.Current()
		if res == nil || len(res.Offsets) == 0 {
			return true // not a term reader with positions; skip the check
		}
		lists[i] = res.Offsets
	}

	if x.InOrder {
		return x.bestOrderedWindow(lists) <= x.MaxSlop
	}
	return x.bestUnorderedWindow(lists) <= x.MaxSlop
}

// bestOrderedWindow returns the minimum (span - (n-1)) over all strictly
// increasing position tuples (one per list, in list order), or a large
// sentinel if none exists.
func (x *Intersect) bestOrderedWindow(lists [][]uint32) int {
	best := 1 << 30
	var rec func(i int, prev int, first int)
	rec = func(i int, prev int, first int) {
		if i == len(lists) {
			span := prev - first - (len(lists) - 1)
			if span < best {
				best = span
			}
			return
		}
		for _, o := range lists[i] {
			if int(o) <= prev && i > 0 {
				continue
			}
			f := first
			if i == 0 {
				f = int(o)
			}
			rec(i+1, int(o), f)
		}
	}
	rec(0, -1, 0)
	return best
}

// bestUnorderedWindow returns the narrowest span containing at least one
// position from every list, minus (n-1).
func (x *Intersect) bestUnorderedWindow(lists [][]uint32) int {
	type tagged struct {
		pos    int
		listID int
	}
	var all []tagged
	for li, l := range lists {
		for _, o := range l {
			all = append(all, tagged{pos: int(o), listID: li})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].pos < all[j].pos })

	n := len(lists)
	count := make(map[int]int)
	distinct := 0
	best := 1 << 30
	left := 0
	for right := 0; right < len(all); right++ {
		count[all[right].listID]++
		if count[all[right].listID] == 1 {
			distinct++
		}
		for distinct == n {
			span := all[right].pos - all[left].pos - (n - 1)
			if span < best {
				best = span
			}
			count[all[left].listID]--
			if count[all[left].listID] == 0 {
				distinct--
			}
			left++
		}
	}
	return best
}

func (x *Intersect) LastDocID() uint64 { return x.lastID }
func (x *Intersect) NumEstimated() uint64 {
	if len(x.children) == 0 {
		return 0
	}
	min := x.children[0].NumEstimated()
	for _, c := range x.children[1:] {
		if e := c.NumEstimated(); e < min {
			min = e
		}
	}
	return min
}
func (x *Intersect) Rewind() {
	for _, c := range x.children {
		c.Rewind()
	}
	x.lastID, x.current = 0, nil
}
func (x *Intersect) Abort() {
	x.aborted = true
	for _, c := range x.children {
		c.Abort()
	}
}
func (x *Intersect) Free() {
	for _, c := range x.children {
		c.Free()
	}
	x.current = nil
}
func (x *Intersect) Current() *Result { return x.current }
