package iter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ftengine/ftengine/internal/invidx"
)

func termIndex(t *testing.T, ids ...uint64) *invidx.InvertedIndex {
	t.Helper()
	ii := invidx.New(invidx.FlagStoreFreqs)
	for _, id := range ids {
		require.NoError(t, ii.WriteEntry(id, invidx.Record{Freq: 1}))
	}
	return ii
}

func drain(it Iterator) []uint64 {
	var out []uint64
	for {
		st, res := it.Read()
		if st != StatusOK {
			break
		}
		out = append(out, res.DocID)
	}
	return out
}

func TestTermReaderReadStrictlyIncreasing(t *testing.T) {
	ii := termIndex(t, 1, 5, 9, 250, 251)
	r := NewTermReader(ii, 0, Deadline{})
	require.Equal(t, []uint64{1, 5, 9, 250, 251}, drain(r))
}

func TestTermReaderSkipToSemantics(t *testing.T) {
	ii := termIndex(t, 1, 5, 9, 20)
	r := NewTermReader(ii, 0, Deadline{})

	st, res := r.SkipTo(5)
	require.Equal(t, StatusOK, st)
	require.Equal(t, uint64(5), res.DocID)

	// skipTo with t <= lastDocId after a prior read returns the current result.
	st, res = r.SkipTo(3)
	require.Equal(t, StatusOK, st)
	require.Equal(t, uint64(5), res.DocID)

	st, res = r.SkipTo(7)
	require.Equal(t, StatusNotFound, st)
	require.Equal(t, uint64(9), res.DocID)

	st, _ = r.SkipTo(1000)
	require.Equal(t, StatusEOF, st)
}

func TestUnionMergesAndDedupes(t *testing.T) {
	a := NewTermReader(termIndex(t, 1, 3, 5), 0, Deadline{})
	b := NewTermReader(termIndex(t, 3, 4, 6), 0, Deadline{})
	u := NewUnion([]Iterator{a, b})
	require.Equal(t, []uint64{1, 3, 4, 5, 6}, drain(u))
}

func TestIntersectBooleanAnd(t *testing.T) {
	a := NewTermReader(termIndex(t, 1, 2, 3, 4, 5), 0, Deadline{})
	b := NewTermReader(termIndex(t, 2, 4, 5, 7), 0, Deadline{})
	x := NewIntersect([]Iterator{a, b})
	require.Equal(t, []uint64{2, 4, 5}, drain(x))
}

func TestIDListSkipToBinarySearch(t *testing.T) {
	l := NewIDList([]uint64{2, 4, 6, 8, 10})
	st, res := l.SkipTo(5)
	require.Equal(t, StatusNotFound, st)
	require.Equal(t, uint64(6), res.DocID)

	st, res = l.SkipTo(8)
	require.Equal(t, StatusOK, st)
	require.Equal(t, uint64(8), res.DocID)

	st, _ = l.SkipTo(11)
	require.Equal(t, StatusEOF, st)
}

type fakeTable struct {
	deleted map[uint64]bool
}

func (f *fakeTable) IsLive(docID uint64) bool { return !f.deleted[docID] }

func TestWildcardSkipsDeleted(t *testing.T) {
	table := &fakeTable{deleted: map[uint64]bool{2: true, 4: true}}
	w := NewWildcard(table, 5, Deadline{})
	require.Equal(t, []uint64{1, 3, 5}, drain(w))
}

func TestNotExcludesChildMatches(t *testing.T) {
	table := &fakeTable{}
	wildcard := NewWildcard(table, 6, Deadline{})
	child := NewTermReader(termIndex(t, 2, 4), 0, Deadline{})
	n := NewNot(child, wildcard)
	require.Equal(t, []uint64{1, 3, 5, 6}, drain(n))
}

func TestOptionalMarksChildMatches(t *testing.T) {
	table := &fakeTable{}
	wildcard := NewWildcard(table, 4, Deadline{})
	child := NewTermReader(termIndex(t, 2, 3), 0, Deadline{})
	o := NewOptional(child, wildcard)

	var marked []uint64
	for {
		st, res := o.Read()
		if st != StatusOK {
			break
		}
		if res.Optional {
			marked = append(marked, res.DocID)
		}
	}
	require.Equal(t, []uint64{2, 3}, marked)
}

func TestNumericReaderFiltersByRange(t *testing.T) {
	ii := invidx.New(invidx.FlagStoreNumeric)
	values := map[uint64]float64{1: 10, 2: 25, 3: 30, 4: 99}
	for id := uint64(1); id <= 4; id++ {
		require.NoError(t, ii.WriteEntry(id, invidx.Record{Numeric: values[id]}))
	}
	r := NewNumericReader(ii, 20, 30, Deadline{})
	require.Equal(t, []uint64{2, 3}, drain(r))
}
