package numidx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndRangeQuerySingleLeaf(t *testing.T) {
	tr := New(1, 1000)
	for i := uint64(1); i <= 10; i++ {
		require.NoError(t, tr.Insert(i, float64(i)))
	}
	require.Equal(t, 1, tr.LeafCount())

	leaves := tr.RangeQuery(0, 100)
	require.Len(t, leaves, 1)
	require.Equal(t, uint64(10), leaves[0].NumDocs)
}

func TestSplitOnMedianWhenCrossingSplitCard(t *testing.T) {
	tr := New(1, 8)
	for i := uint64(1); i <= 20; i++ {
		require.NoError(t, tr.Insert(i, float64(i)))
	}
	require.Greater(t, tr.LeafCount(), 1, "tree should have split at least once past splitCard")

	var total uint64
	for _, ii := range tr.RangeQuery(negInf, posInf) {
		total += ii.NumDocs
	}
	require.Equal(t, uint64(20), total)
}

func TestRangeQueryOnlyReturnsOverlappingLeaves(t *testing.T) {
	tr := New(1, 4)
	for i := uint64(1); i <= 30; i++ {
		require.NoError(t, tr.Insert(i, float64(i)))
	}
	require.Greater(t, tr.LeafCount(), 2)

	narrow := tr.RangeQuery(5, 6)
	require.NotEmpty(t, narrow)
	require.Less(t, len(narrow), tr.LeafCount())
}

func TestSweepRemovesEmptyLeavesPastHalfThreshold(t *testing.T) {
	tr := New(1, 4)
	for i := uint64(1); i <= 20; i++ {
		require.NoError(t, tr.Insert(i, float64(i)))
	}
	before := tr.LeafCount()
	require.Greater(t, before, 1)

	// Simulate GC having emptied every leaf's inverted index via repair.
	for _, ii := range tr.RangeQuery(negInf, posInf) {
		ii.Lock()
		ii.Blocks = nil
		ii.NumDocs = 0
		ii.Unlock()
	}

	empty, total := tr.MarkEmptyLeaves()
	require.Equal(t, total, empty)
	require.True(t, tr.ShouldSweep())

	tr.Sweep()
	require.Equal(t, 1, tr.LeafCount(), "sweeping an all-empty tree should collapse to a single fresh leaf")
}

func TestUniqueIDIsStable(t *testing.T) {
	tr := New(42, 100)
	require.Equal(t, uint64(42), tr.UniqueID())
}
