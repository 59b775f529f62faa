package cursorstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// fakePipeline yields one batch per Resume call from a fixed queue of
// batches, reporting done once the queue is empty.
type fakePipeline struct {
	batches [][]Row
	calls   int
	failOn  int // -1 disables; else Resume returns an error on this call index
}

func (f *fakePipeline) Resume(ctx context.Context, batchSize int) ([]Row, bool, error) {
	if f.failOn >= 0 && f.calls == f.failOn {
		f.calls++
		return nil, false, errBoom
	}
	if f.calls >= len(f.batches) {
		f.calls++
		return nil, true, nil
	}
	rows := f.batches[f.calls]
	f.calls++
	done := f.calls >= len(f.batches)
	return rows, done, nil
}

func TestOpenReadAdvancesAcrossRounds(t *testing.T) {
	s := New(8, time.Minute)
	p := &fakePipeline{batches: [][]Row{
		{{"id": 1}},
		{{"id": 2}},
	}}
	id := s.Open(p)
	require.NotZero(t, id)

	rows, done, err := s.Read(context.Background(), id, 10)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, []Row{{"id": 1}}, rows)
	require.Equal(t, 1, s.Len())

	rows, done, err = s.Read(context.Background(), id, 10)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, []Row{{"id": 2}}, rows)
	require.Equal(t, 0, s.Len())
}

func TestReadUnknownCursorReturnsNotFound(t *testing.T) {
	s := New(8, time.Minute)
	_, _, err := s.Read(context.Background(), 999, 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadDropsEntryOnPipelineError(t *testing.T) {
	s := New(8, time.Minute)
	p := &fakePipeline{batches: [][]Row{{{"id": 1}}}, failOn: 0}
	id := s.Open(p)

	_, done, err := s.Read(context.Background(), id, 10)
	require.Error(t, err)
	require.True(t, done)
	require.Equal(t, 0, s.Len())
}

func TestDelRemovesCursor(t *testing.T) {
	s := New(8, time.Minute)
	id := s.Open(&fakePipeline{batches: [][]Row{{{"id": 1}}}})
	require.True(t, s.Del(id))
	require.False(t, s.Del(id))

	_, _, err := s.Read(context.Background(), id, 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIdleCursorsAreSweptOnAccess(t *testing.T) {
	s := New(8, 10*time.Millisecond)
	id := s.Open(&fakePipeline{batches: [][]Row{{{"id": 1}}, {{"id": 2}}}})
	require.Equal(t, 1, s.Len())

	time.Sleep(30 * time.Millisecond)

	// A second Open triggers sweepLocked and should reap the idle entry.
	other := s.Open(&fakePipeline{batches: [][]Row{{{"id": 9}}}})
	require.NotEqual(t, id, other)

	_, _, err := s.Read(context.Background(), id, 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadWhileInUseReturnsErrInUse(t *testing.T) {
	s := New(8, time.Minute)
	id := s.Open(&fakePipeline{batches: [][]Row{{{"id": 1}}}})

	// Simulate a resume in flight by marking the entry in-use directly.
	s.mu.Lock()
	e, ok := s.cache.Get(id)
	require.True(t, ok)
	e.inUse = true
	s.mu.Unlock()

	_, _, err := s.Read(context.Background(), id, 10)
	require.ErrorIs(t, err, ErrInUse)
}
