// Package forkgc implements the fork GC (C8): a background compactor
// that repairs inverted-index blocks and sweeps empty numeric leaves
// without blocking foreground writers.
//
// The original design forks the host process so the collector scans a
// stable, unlocked snapshot. Go has no library-level fork() a program
// can safely call mid-execution, so this package simulates the same
// protocol with a goroutine plus a brief read-locked scan per index:
// the scan records each block's entry count, then the commit phase
// re-acquires the write lock and reconciles against whatever a
// foreground writer did in between (spec.md §4.7), modeled on the
// teacher's CompactionManager's scan/rebuild/hot-swap-under-lock idiom
// (internal/daemon/compaction.go).
package forkgc

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ftengine/ftengine/internal/doctable"
	"github.com/ftengine/ftengine/internal/invidx"
	"github.com/ftengine/ftengine/internal/numidx"
	"github.com/ftengine/ftengine/internal/tagidx"
	"github.com/ftengine/ftengine/internal/termidx"
)

// Config mirrors the enumerated knobs from spec.md §6.
type Config struct {
	RunInterval            time.Duration // forkGcRunIntervalSec
	RetryInterval          time.Duration // forkGcRetryInterval
	CleanThreshold         float64       // forkGcCleanThreshold (fraction of empty numeric leaves)
	SleepBeforeExit        time.Duration // forkGcSleepBeforeExit
	CleanNumericEmptyNodes bool          // forkGCCleanNumericEmptyNodes
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		RunInterval:            500 * time.Millisecond,
		RetryInterval:          5 * time.Second,
		CleanThreshold:         0.5,
		SleepBeforeExit:        0,
		CleanNumericEmptyNodes: true,
	}
}

// Stats accumulates one round's outcome for observability.
type Stats struct {
	BlocksRepaired   int
	BlocksFreed      int
	EntriesCollected int
	LastBlockDenied  int
	NumericSweeps    int
}

// Sources is everything one GC round needs read access to. The engine
// facade (internal/engine) supplies the concrete collections.
type Sources struct {
	DocTable *doctable.Table
	Terms    *termidx.Index
	Tags     map[string]*tagidx.Index // keyed by field name
	Numeric  map[string]*numidx.Tree  // keyed by field name
}

// Collector runs GC rounds against a Sources snapshot, either one-shot
// (RepairOnce, used by tests and FT.DEBUG) or in a background loop
// (Run).
type Collector struct {
	cfg     Config
	src     Sources
	paused  atomic.Bool
	aborted atomic.Bool

	mu   sync.Mutex
	last Stats
}

// New creates a collector over src with cfg.
func New(cfg Config, src Sources) *Collector {
	return &Collector{cfg: cfg, src: src}
}

// Pause stops the background loop at its next safe point (between
// rounds), per spec.md §4.8's pause/resume idiom applied to GC.
func (c *Collector) Pause()  { c.paused.Store(true) }
func (c *Collector) Resume() { c.paused.Store(false) }

// Abort ends the run as "SpecDeleted" (spec.md §4.7): the index's
// backing spec is gone, so further rounds would operate on nothing.
func (c *Collector) Abort() { c.aborted.Store(true) }

// Run loops until ctx is cancelled or Abort is called, sleeping
// RunInterval between rounds.
func (c *Collector) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.RunInterval):
		}
		if c.aborted.Load() {
			return
		}
		if c.paused.Load() {
			continue
		}
		stats := c.RepairOnce()
		slog.Debug("forkgc round complete",
			slog.Int("blocks_repaired", stats.BlocksRepaired),
			slog.Int("blocks_freed", stats.BlocksFreed),
			slog.Int("last_block_denied", stats.LastBlockDenied),
			slog.Int("numeric_sweeps", stats.NumericSweeps))
	}
}

// RepairOnce runs a single GC round and returns its stats. Each index's
// scan-then-commit is independent of every other index's, so the round
// fans out across them with errgroup — mirroring the teacher's
// errgroup-based fan-out in internal/search/engine.go, generalized here
// from parallel shard search to parallel per-index compaction. Safe to
// call directly for FT.DEBUG introspection or tests.
func (c *Collector) RepairOnce() Stats {
	var (
		accMu sync.Mutex
		total Stats
	)
	accumulate := func(s Stats) {
		accMu.Lock()
		total.BlocksRepaired += s.BlocksRepaired
		total.BlocksFreed += s.BlocksFreed
		total.EntriesCollected += s.EntriesCollected
		total.LastBlockDenied += s.LastBlockDenied
		total.NumericSweeps += s.NumericSweeps
		accMu.Unlock()
	}

	isDeleted := func(docID uint64) bool { return !c.src.DocTable.IsLive(docID) }

	var g errgroup.Group
	if c.src.Terms != nil {
		for _, term := range c.src.Terms.Terms() {
			term := term
			g.Go(func() error {
				entry, ok := c.src.Terms.Get(term)
				if !ok {
					return nil
				}
				var s Stats
				c.repairIndex(entry.Index, isDeleted, &s)
				accumulate(s)
				if indexIsEmpty(entry.Index) {
					c.src.Terms.Delete(term)
				}
				return nil
			})
		}
	}
	for _, tagIdx := range c.src.Tags {
		tagIdx := tagIdx
		for _, tag := range tagIdx.Tags() {
			tag := tag
			g.Go(func() error {
				entry, ok := tagIdx.Get(tag)
				if !ok {
					return nil
				}
				var s Stats
				c.repairIndex(entry.Index, isDeleted, &s)
				accumulate(s)
				if indexIsEmpty(entry.Index) {
					tagIdx.Delete(tag)
				}
				return nil
			})
		}
	}
	for _, tree := range c.src.Numeric {
		tree := tree
		g.Go(func() error {
			empty, total := tree.MarkEmptyLeaves()
			if total > 0 && c.cfg.CleanNumericEmptyNodes && float64(empty)/float64(total) >= c.cfg.CleanThreshold {
				tree.Sweep()
				accumulate(Stats{NumericSweeps: 1})
			}
			return nil
		})
	}
	_ = g.Wait() // repairIndex/MarkEmptyLeaves/Sweep never return an error

	c.mu.Lock()
	c.last = total
	c.mu.Unlock()
	return total
}

// LastStats returns the most recent completed round's stats.
func (c *Collector) LastStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// repairIndex scans idx's blocks under a brief read-locked snapshot,
// then commits repairs under the write lock, reconciling any tail-block
// growth a foreground writer made in between (the "last-block denied"
// path, spec.md §4.7 step 3).
func (c *Collector) repairIndex(idx *invidx.InvertedIndex, isDeleted func(uint64) bool, stats *Stats) {
	blocks, snapshotTailEntries := snapshotBlocks(idx)
	c.commitRepair(idx, blocks, snapshotTailEntries, isDeleted, stats)
}

// snapshotBlocks takes the brief read-locked scan a forked child process
// would take natively: a stable copy of the block list and the tail
// block's entry count at scan time.
func snapshotBlocks(idx *invidx.InvertedIndex) ([]*invidx.IndexBlock, uint16) {
	idx.RLock()
	defer idx.RUnlock()
	snapshotTailEntries := uint16(0)
	if n := len(idx.Blocks); n > 0 {
		snapshotTailEntries = idx.Blocks[n-1].NumEntries
	}
	blocks := make([]*invidx.IndexBlock, len(idx.Blocks))
	copy(blocks, idx.Blocks)
	return blocks, snapshotTailEntries
}

// commitRepair applies repairs for the given snapshot under idx's write
// lock, reconciling any tail-block growth a foreground writer made
// between the scan and this commit (the "last-block denied" path,
// spec.md §4.7 step 3).
func (c *Collector) commitRepair(idx *invidx.InvertedIndex, blocks []*invidx.IndexBlock, snapshotTailEntries uint16, isDeleted func(uint64) bool, stats *Stats) {
	// BumpGCMarker and LogError take the write lock themselves, so they
	// can't be called while idx.Lock() is held below; queue them instead.
	var errDocIDs []uint64
	var errMsgs []string
	changed := false

	idx.Lock()
	isTail := func(i int) bool { return i == len(idx.Blocks)-1 }

	var kept []*invidx.IndexBlock
	for i, blk := range blocks {
		if i >= len(idx.Blocks) || idx.Blocks[i] != blk {
			// The index structure already changed (e.g. an earlier GC
			// round or a concurrent commit); skip this stale reference
			// rather than repair against a block no longer in place.
			continue
		}
		if isTail(i) && blk.NumEntries > snapshotTailEntries {
			// The foreground writer appended to the tail after our scan;
			// discard our (now out of date) repair proposal for it.
			stats.LastBlockDenied++
			kept = append(kept, blk)
			continue
		}

		params := &invidx.RepairParams{IsDeleted: isDeleted}
		n, err := idx.Repair(blk, params)
		if err != nil {
			errDocIDs = append(errDocIDs, blk.FirstID)
			errMsgs = append(errMsgs, err.Error())
			kept = append(kept, blk)
			continue
		}
		stats.EntriesCollected += params.Collected
		if params.Collected > 0 {
			stats.BlocksRepaired++
			changed = true
		}
		if n == 0 {
			stats.BlocksFreed++
			changed = true
			continue
		}
		kept = append(kept, blk)
	}

	// Blocks a foreground writer appended after the scan are not in the
	// snapshot; carry them over unchanged.
	if len(idx.Blocks) > len(blocks) {
		kept = append(kept, idx.Blocks[len(blocks):]...)
	}
	if changed || len(kept) != len(idx.Blocks) {
		idx.Blocks = kept
		recomputeTotals(idx)
		changed = true
	}
	idx.Unlock()

	if changed {
		idx.BumpGCMarker()
	}
	for i, msg := range errMsgs {
		idx.LogError(errDocIDs[i], msg)
	}
}

func indexIsEmpty(idx *invidx.InvertedIndex) bool {
	idx.RLock()
	defer idx.RUnlock()
	return idx.NumDocs == 0
}

func recomputeTotals(idx *invidx.InvertedIndex) {
	var numDocs, numEntries uint64
	var lastID uint64
	decode := idx.GetDecoder()
	for _, blk := range idx.Blocks {
		_ = decode(blk, func(rec invidx.Record) bool {
			numDocs++
			numEntries++
			if rec.DocID > lastID {
				lastID = rec.DocID
			}
			return true
		})
	}
	idx.NumDocs = numDocs
	idx.NumEntries = numEntries
	if lastID > 0 {
		idx.LastID = lastID
	}
}
