package iter

import (
	"errors"
	"testing"

	"github.com/ftengine/ftengine/internal/vecindex"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	matches []vecindex.Match
	err     error
}

func (f *fakeSearcher) Search(query []float32, k int) ([]vecindex.Match, error) {
	return f.matches, f.err
}

func TestNewVectorKNNSortsByDocIDAscending(t *testing.T) {
	fs := &fakeSearcher{matches: []vecindex.Match{
		{DocID: 30, Score: 0.5},
		{DocID: 10, Score: 0.9},
		{DocID: 20, Score: 0.7},
	}}

	l, err := NewVectorKNN(fs, []float32{1, 0}, 3)
	require.NoError(t, err)

	st, res := l.Read()
	require.Equal(t, StatusOK, st)
	require.Equal(t, uint64(10), res.DocID)
	require.InDelta(t, 0.9, res.Numeric, 1e-6)

	_, res = l.Read()
	require.Equal(t, uint64(20), res.DocID)
	require.InDelta(t, 0.7, res.Numeric, 1e-6)

	_, res = l.Read()
	require.Equal(t, uint64(30), res.DocID)
	require.InDelta(t, 0.5, res.Numeric, 1e-6)

	st, _ = l.Read()
	require.Equal(t, StatusEOF, st)
}

func TestNewVectorKNNPropagatesSearchError(t *testing.T) {
	fs := &fakeSearcher{err: errors.New("vector index unavailable")}

	_, err := NewVectorKNN(fs, []float32{1, 0}, 3)
	require.Error(t, err)
}

func TestNewVectorKNNEmptyMatches(t *testing.T) {
	fs := &fakeSearcher{}
	l, err := NewVectorKNN(fs, []float32{1, 0}, 3)
	require.NoError(t, err)
	st, _ := l.Read()
	require.Equal(t, StatusEOF, st)
}
