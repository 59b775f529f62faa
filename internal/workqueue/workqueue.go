// Package workqueue implements the priority work queue (C9): two FIFOs
// (high, low) pulled at a 2:1 ratio, backing both query-level and
// index-maintenance background work (spec.md §4.8/§5).
//
// Go already gives every goroutine its own OS-thread-scheduled stack, so
// unlike the original's explicit thread pool this queue only needs to
// bound concurrency and implement the priority pull policy; the
// goroutine lifecycle (start/stop/wait) is modeled on the teacher's
// internal/async.BackgroundIndexer (stopCh/doneCh, mutex-guarded
// running flag).
package workqueue

import (
	"context"
	"sync"
)

// Priority selects which FIFO a task is pushed onto.
type Priority int

const (
	Low Priority = iota
	High
)

// Task is one unit of background work.
type Task func(ctx context.Context)

// Queue is a two-level FIFO serviced by a fixed worker pool, pulling
// high-priority tasks twice for every one low-priority pull (spec.md
// §4.8), falling through to the other FIFO when the chosen one is
// empty.
type Queue struct {
	mu       sync.Mutex
	high     []Task
	low      []Task
	pullSeq  int // counts consecutive high-priority pulls toward the 2:1 ratio
	notEmpty *sync.Cond

	pauseMu sync.Mutex
	paused  bool
	resume  *sync.Cond

	stopCh      chan struct{}
	doneCh      chan struct{}
	wg          sync.WaitGroup
	started     bool
	workerCount int
}

// New creates a queue with the given number of worker goroutines.
func New(workers int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	q := &Queue{
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		workerCount: workers,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.resume = sync.NewCond(&q.pauseMu)
	return q
}

// Push enqueues fn at the given priority and wakes one waiting worker.
func (q *Queue) Push(p Priority, fn Task) {
	q.mu.Lock()
	if p == High {
		q.high = append(q.high, fn)
	} else {
		q.low = append(q.low, fn)
	}
	q.mu.Unlock()
	q.notEmpty.Signal()
}

// Start launches the worker pool; it is a no-op if already started.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	n := q.workerCount
	q.mu.Unlock()

	q.wg.Add(n)
	for i := 0; i < n; i++ {
		go q.worker(ctx)
	}
	go func() {
		q.wg.Wait()
		close(q.doneCh)
	}()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		fn, ok := q.next()
		if !ok {
			return // stopped
		}
		q.waitIfPaused()
		fn(ctx)
	}
}

// next blocks until a task is available or the queue is stopped,
// applying the 2:1 high:low pull policy with fallthrough to whichever
// FIFO is non-empty.
func (q *Queue) next() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.high) == 0 && len(q.low) == 0 {
		if q.stopped() {
			return nil, false
		}
		q.notEmpty.Wait()
	}
	if q.stopped() {
		return nil, false
	}
	return q.pullLocked(), true
}

func (q *Queue) stopped() bool {
	select {
	case <-q.stopCh:
		return true
	default:
		return false
	}
}

func (q *Queue) pullLocked() Task {
	wantHigh := len(q.high) > 0 && (q.pullSeq < 2 || len(q.low) == 0)
	if wantHigh {
		t := q.high[0]
		q.high = q.high[1:]
		q.pullSeq++
		return t
	}
	if len(q.low) > 0 {
		t := q.low[0]
		q.low = q.low[1:]
		q.pullSeq = 0
		return t
	}
	// low chosen but empty, high has items: fall through.
	t := q.high[0]
	q.high = q.high[1:]
	q.pullSeq++
	return t
}

// Pause stops workers from picking up new tasks at their next safe
// point — between one task finishing and the next starting — so a
// diagnostic pass can collect consistent state (spec.md §4.8).
func (q *Queue) Pause() {
	q.pauseMu.Lock()
	q.paused = true
	q.pauseMu.Unlock()
}

// Resume flips the pause flag back and wakes every waiting worker.
func (q *Queue) Resume() {
	q.pauseMu.Lock()
	q.paused = false
	q.resume.Broadcast()
	q.pauseMu.Unlock()
}

func (q *Queue) waitIfPaused() {
	q.pauseMu.Lock()
	for q.paused {
		q.resume.Wait()
	}
	q.pauseMu.Unlock()
}

// Stop signals every worker to exit after its current task and blocks
// until they've all returned.
func (q *Queue) Stop() {
	q.mu.Lock()
	started := q.started
	q.mu.Unlock()
	if !started {
		return
	}
	close(q.stopCh)
	q.notEmpty.Broadcast()
	q.Resume() // unblock anyone parked in waitIfPaused so they can observe the stop
	<-q.doneCh
}

// Pending returns the current high and low queue depths, for metrics.
func (q *Queue) Pending() (high, low int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.high), len(q.low)
}
