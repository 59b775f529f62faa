package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ftengine/ftengine/internal/engine"
	"github.com/ftengine/ftengine/internal/workqueue"
)

type fakeLocalEngine struct {
	hits []engine.Hit
	err  error
}

func (f *fakeLocalEngine) Search(string, uint64) ([]engine.Hit, error) {
	return f.hits, f.err
}

func drainReplies(t *testing.T, ch <-chan ShardReply) []ShardReply {
	t.Helper()
	var out []ShardReply
	for rep := range ch {
		out = append(out, rep)
	}
	return out
}

func TestLocalShardClientStreamsHitsThenEOF(t *testing.T) {
	eng := &fakeLocalEngine{hits: []engine.Hit{
		{DocID: 1, Key: "doc:a", Score: 0.9, Payload: []byte("pa")},
		{DocID: 2, Key: "doc:b", Score: 0.5, Payload: []byte("pb")},
	}}
	q := workqueue.New(1)
	q.Start(context.Background())
	defer q.Stop()

	c := NewLocalShardClient(eng, q)
	ch, err := c.Query(context.Background(), 3, Command{Query: "hello"})
	require.NoError(t, err)

	reps := drainReplies(t, ch)
	require.Len(t, reps, 3)

	require.Equal(t, 3, reps[0].Result.ShardIndex)
	require.Equal(t, "doc:a", reps[0].Result.Key)
	require.Equal(t, []byte("pa"), reps[0].Result.Payload)
	require.Equal(t, -0.9, reps[0].Result.SortKey)

	require.Equal(t, "doc:b", reps[1].Result.Key)
	require.Equal(t, -0.5, reps[1].Result.SortKey)

	require.True(t, reps[2].EOF)
	require.Equal(t, int64(2), reps[2].TotalResults)
}

func TestLocalShardClientSurfacesSearchError(t *testing.T) {
	eng := &fakeLocalEngine{err: errors.New("boom")}
	q := workqueue.New(1)
	q.Start(context.Background())
	defer q.Stop()

	c := NewLocalShardClient(eng, q)
	ch, err := c.Query(context.Background(), 0, Command{Query: "hello"})
	require.NoError(t, err)

	reps := drainReplies(t, ch)
	require.Len(t, reps, 1)
	require.Error(t, reps[0].Err)
}

func TestLocalShardClientComposesWithCoordinatorQuery(t *testing.T) {
	engA := &fakeLocalEngine{hits: []engine.Hit{{DocID: 1, Key: "a1", Score: 10}}}
	engB := &fakeLocalEngine{hits: []engine.Hit{{DocID: 2, Key: "b1", Score: 20}}}

	q := workqueue.New(2)
	q.Start(context.Background())
	defer q.Stop()

	shards := []ShardClient{
		NewLocalShardClient(engA, q),
		NewLocalShardClient(engB, q),
	}
	coord := New(shards, 0)

	res, err := coord.Query(context.Background(), Command{Query: "q"}, 0, time.Now().Add(time.Second))
	require.NoError(t, err)
	require.False(t, res.Partial)
	// Ascending SortKey = -Score, so the higher-scoring hit (b1) sorts first.
	require.Equal(t, []string{"b1", "a1"}, []string{res.Results[0].Key, res.Results[1].Key})
}
