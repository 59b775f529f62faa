package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeShard is a ShardClient backed by a fixed, already-sorted Result
// slice. It can simulate a dispatch error, an in-stream error after N
// results, or a stream that never produces anything before the test's
// deadline.
type fakeShard struct {
	results []Result
	delay   time.Duration // delay before the first send, to test deadlines
	failAt  int           // if >=0, send rep.Err after this many results
	dialErr error
}

func (f *fakeShard) Query(ctx context.Context, shardIndex int, cmd Command) (<-chan ShardReply, error) {
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	ch := make(chan ShardReply, len(f.results)+1)
	go func() {
		defer close(ch)
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return
			}
		}
		for i, r := range f.results {
			if f.failAt >= 0 && i == f.failAt {
				ch <- ShardReply{Err: errors.New("shard fault")}
				return
			}
			r.ShardIndex = shardIndex
			select {
			case ch <- ShardReply{Result: r}:
			case <-ctx.Done():
				return
			}
		}
		ch <- ShardReply{EOF: true, TotalResults: int64(len(f.results))}
	}()
	return ch, nil
}

func resultsOf(keys ...float64) []Result {
	out := make([]Result, len(keys))
	for i, k := range keys {
		out[i] = Result{DocID: uint64(i + 1), SortKey: k}
	}
	return out
}

func sortKeys(rs []Result) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.SortKey
	}
	return out
}

func TestQueryMergesAscendingAcrossShards(t *testing.T) {
	shards := []ShardClient{
		&fakeShard{results: resultsOf(1, 4, 9), failAt: -1},
		&fakeShard{results: resultsOf(2, 3, 10), failAt: -1},
	}
	c := New(shards, 0)

	res, err := c.Query(context.Background(), Command{Query: "q"}, 0, time.Now().Add(time.Second))
	require.NoError(t, err)
	require.False(t, res.Partial)
	require.Equal(t, []float64{1, 2, 3, 4, 9, 10}, sortKeys(res.Results))
	require.True(t, res.Barrier.AllReplied())
	require.Equal(t, int64(6), res.Barrier.AccumulatedTotal())
	require.False(t, res.Barrier.HasError())
}

func TestQueryCutsOffAtK(t *testing.T) {
	shards := []ShardClient{
		&fakeShard{results: resultsOf(1, 4, 9), failAt: -1},
		&fakeShard{results: resultsOf(2, 3, 10), failAt: -1},
	}
	c := New(shards, 0)

	res, err := c.Query(context.Background(), Command{Query: "q"}, 3, time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, sortKeys(res.Results))
}

func TestQuerySurvivesOneShardError(t *testing.T) {
	shards := []ShardClient{
		&fakeShard{results: resultsOf(1, 5), failAt: -1},
		&fakeShard{results: resultsOf(2, 3), failAt: 1}, // errors after its first result
	}
	c := New(shards, 0)

	res, err := c.Query(context.Background(), Command{Query: "q"}, 0, time.Now().Add(time.Second))
	require.NoError(t, err)
	require.True(t, res.Barrier.HasError())
	require.True(t, res.Barrier.AllReplied())
	// Shard 1 contributed its SortKey=2 result before faulting.
	require.Equal(t, []float64{1, 2, 5}, sortKeys(res.Results))
}

func TestQueryReturnsErrWhenEveryShardFails(t *testing.T) {
	shards := []ShardClient{
		&fakeShard{dialErr: errors.New("unreachable")},
		&fakeShard{results: resultsOf(1), failAt: 0},
	}
	c := New(shards, 0)

	res, err := c.Query(context.Background(), Command{Query: "q"}, 0, time.Now().Add(time.Second))
	require.ErrorIs(t, err, ErrAllShardsFailed)
	require.Nil(t, res)
}

func TestQueryDeadlinePartialResults(t *testing.T) {
	shards := []ShardClient{
		&fakeShard{results: resultsOf(1, 2), failAt: -1}, // responds immediately
		&fakeShard{results: resultsOf(0, 0), delay: time.Second}, // too slow
	}
	c := New(shards, 0)

	res, err := c.Query(context.Background(), Command{Query: "q"}, 0, time.Now().Add(50*time.Millisecond))
	require.NoError(t, err)
	require.True(t, res.Partial)
	require.Equal(t, []float64{1, 2}, sortKeys(res.Results))
	require.False(t, res.Barrier.AllReplied())
}

func TestShardBarrierIgnoresDuplicateReply(t *testing.T) {
	b := NewShardBarrier(2)
	b.MarkReplied(0, 10, false)
	b.MarkReplied(0, 999, false) // duplicate, must be ignored
	b.MarkReplied(1, 5, false)

	require.True(t, b.AllReplied())
	require.Equal(t, int64(15), b.AccumulatedTotal())
	require.Equal(t, int64(2), b.NumResponded())
}

func TestClaimTryClaimReplyIsExactlyOnce(t *testing.T) {
	c := &claim{}
	require.True(t, c.tryClaimReply())
	require.False(t, c.tryClaimReply())
	c.finish()
	require.False(t, c.tryClaimReply())
}
