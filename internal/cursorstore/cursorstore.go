// Package cursorstore implements the cursor store (C11): opaque int64
// continuation handles for multi-round `FT.AGGREGATE`/`FT.CURSOR`
// pagination (spec.md §4.10). Each handle keys a paused pipeline plus
// an idle timestamp; `Read` reclaims the entry for the duration of one
// resume so two concurrent `FT.CURSOR READ` calls on the same id can
// never race the same pipeline, and idle entries past `cursorMaxIdle`
// are swept on every access.
package cursorstore

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Row is one result row a Pipeline yields per resume.
type Row map[string]any

// Pipeline is a paused aggregation: each Resume call runs the pipeline
// forward until it has produced up to batchSize rows or has no more to
// give, per spec.md §4.10.
type Pipeline interface {
	Resume(ctx context.Context, batchSize int) (rows []Row, done bool, err error)
}

// ErrNotFound is returned by Read/Del for an id that was never issued,
// already completed, or has idled past cursorMaxIdle.
var ErrNotFound = errors.New("cursorstore: cursor not found or expired")

// ErrInUse is returned when Read is called for a cursor id that is
// already being resumed by another caller.
var ErrInUse = errors.New("cursorstore: cursor is already being read")

type entry struct {
	pipeline  Pipeline
	idleSince time.Time
	inUse     bool
}

// Store is a process-wide table of open cursors, bounded by an LRU
// capacity (teacher's `internal/embed/cached.go`/`internal/search/classifier.go`
// pattern for bounded caches) and swept for idle expiry on each access.
type Store struct {
	mu      sync.Mutex
	maxIdle time.Duration
	nextID  int64
	cache   *lru.Cache[int64, *entry]
}

// New creates a cursor store holding up to capacity resident cursors
// and expiring entries idle longer than maxIdle (spec.md's
// cursorMaxIdle; <=0 disables idle expiry).
func New(capacity int, maxIdle time.Duration) *Store {
	if capacity <= 0 {
		capacity = 128
	}
	c, _ := lru.New[int64, *entry](capacity)
	return &Store{cache: c, maxIdle: maxIdle}
}

// Open registers a paused pipeline and returns its opaque cursor id.
func (s *Store) Open(p Pipeline) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.nextID++
	id := s.nextID
	s.cache.Add(id, &entry{pipeline: p, idleSince: time.Now()})
	return id
}

// Read reclaims id's entry, resumes its pipeline, and either drops the
// entry (pipeline reports done, or errors) or leaves it in the cache
// with a fresh idle timestamp for the next round.
func (s *Store) Read(ctx context.Context, id int64, batchSize int) ([]Row, bool, error) {
	s.mu.Lock()
	s.sweepLocked()
	e, ok := s.cache.Get(id)
	if !ok {
		s.mu.Unlock()
		return nil, false, ErrNotFound
	}
	if e.inUse {
		s.mu.Unlock()
		return nil, false, ErrInUse
	}
	e.inUse = true
	s.mu.Unlock()

	rows, done, err := e.pipeline.Resume(ctx, batchSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || done {
		s.cache.Remove(id)
		return rows, true, err
	}
	e.inUse = false
	e.idleSince = time.Now()
	// e is still the cache's value for id (we never removed it), so no
	// re-Add is needed; this just keeps the LRU recency order fresh.
	s.cache.Get(id)
	return rows, false, nil
}

// Del drops a cursor outright, e.g. `FT.CURSOR DEL`.
func (s *Store) Del(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Remove(id)
}

// Len reports the number of resident cursors, for FT.DEBUG introspection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

// sweepLocked drops every entry idle longer than maxIdle. Must be
// called with s.mu held.
func (s *Store) sweepLocked() {
	if s.maxIdle <= 0 {
		return
	}
	now := time.Now()
	for _, id := range s.cache.Keys() {
		e, ok := s.cache.Peek(id)
		if !ok {
			continue
		}
		if e.inUse {
			continue
		}
		if now.Sub(e.idleSince) > s.maxIdle {
			s.cache.Remove(id)
		}
	}
}
