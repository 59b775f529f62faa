package coordinator

import (
	"context"

	"github.com/ftengine/ftengine/internal/engine"
	"github.com/ftengine/ftengine/internal/replypool"
	"github.com/ftengine/ftengine/internal/workqueue"
)

// LocalShardEngine is the subset of *internal/engine.Engine a
// LocalShardClient needs, narrowed so tests can fake it without
// standing up a full engine.
type LocalShardEngine interface {
	Search(query string, fieldMask uint64) ([]engine.Hit, error)
}

// LocalShardClient adapts a same-process engine shard to ShardClient,
// dispatching each query through a shared workqueue.Queue at High
// priority (spec.md §4.8's priority pull policy: foreground queries
// ahead of background fork-GC/maintenance work) instead of running the
// search inline on the coordinator's fan-out goroutine, and copying
// each hit's Key/Payload into a replypool.Pool arena before it crosses
// the reply channel — doctable.Metadata.Key/Payload are only valid
// while the caller holds the Borrow refcount
// (internal/doctable.Metadata.Key's doc comment), and engine.Engine
// releases that refcount as soon as Search returns a Hit, so a
// LocalShardClient reply needs its own copy rather than engine's.
type LocalShardClient struct {
	eng   LocalShardEngine
	queue *workqueue.Queue
}

// NewLocalShardClient creates a LocalShardClient over eng, dispatching
// through queue. queue must already be running (workqueue.Queue.Start)
// before Query is called; LocalShardClient doesn't own the queue's
// lifecycle since a deployment may share one queue across several
// shards' LocalShardClients.
func NewLocalShardClient(eng LocalShardEngine, queue *workqueue.Queue) *LocalShardClient {
	return &LocalShardClient{eng: eng, queue: queue}
}

// Query implements ShardClient. It does not interpret cmd.SlotRanges:
// unlike a partitioned single index, each LocalShardClient owns one
// wholly separate on-disk shard directory (see cmd/ftctl's cluster
// subcommand), so there is no intra-shard slot range to filter by at
// this layer.
func (c *LocalShardClient) Query(ctx context.Context, shardIndex int, cmd Command) (<-chan ShardReply, error) {
	out := make(chan ShardReply, 16)
	c.queue.Push(workqueue.High, func(context.Context) {
		defer close(out)
		c.run(ctx, shardIndex, cmd, out)
	})
	return out, nil
}

func (c *LocalShardClient) run(ctx context.Context, shardIndex int, cmd Command, out chan<- ShardReply) {
	// Unlike the original's "install before parse, claim after" TLS
	// arena, this Pool is never Released back to the backing block
	// cache: its Results are handed across the reply channel and held
	// by the coordinator's merge step well past this goroutine's
	// return, so the arena's blocks stay reachable (and are reclaimed
	// by the Go garbage collector, not reused via blockCache) for as
	// long as any Result still references them.
	pool := replypool.New(0)

	hits, err := c.eng.Search(cmd.Query, ^uint64(0))
	if err != nil {
		send(ctx, out, ShardReply{Err: err})
		return
	}

	for _, h := range hits {
		r := Result{
			ShardIndex: shardIndex,
			DocID:      h.DocID,
			SortKey:    -h.Score, // ascending SortKey orders descending score first
			Key:        arenaString(pool, h.Key),
			Payload:    arenaCopy(pool, h.Payload),
		}
		if !send(ctx, out, ShardReply{Result: r}) {
			return
		}
	}
	send(ctx, out, ShardReply{EOF: true, TotalResults: int64(len(hits))})
}

// send delivers rep to out, honoring ctx cancellation so a fired
// deadline unblocks a LocalShardClient goroutine stuck writing to a
// channel drainShard has stopped reading from. Reports whether rep was
// actually delivered.
func send(ctx context.Context, out chan<- ShardReply, rep ShardReply) bool {
	select {
	case out <- rep:
		return true
	case <-ctx.Done():
		return false
	}
}

func arenaCopy(pool *replypool.Pool, b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	cp := pool.Alloc(len(b))
	copy(cp, b)
	return cp
}

func arenaString(pool *replypool.Pool, s string) string {
	if s == "" {
		return ""
	}
	return string(arenaCopy(pool, []byte(s)))
}
