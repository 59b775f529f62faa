// Package doctable implements the doc table (C4): the mapping from an
// opaque external key to an internal monotonic doc-id, with metadata,
// refcounted lifecycle, TTL, and deletion semantics.
package doctable

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Flags is the per-document metadata bitset, per spec.md §3.
type Flags uint32

const (
	FlagDeleted Flags = 1 << iota
	FlagHasPayload
	FlagHasSortVector
	FlagHasOffsetVector
	FlagHasExpiration
)

// Errors returned by doc-table operations, per spec.md §4.3.
var (
	ErrFull    = errors.New("doctable: doc-id space exhausted")
	ErrBadKey  = errors.New("doctable: empty key")
)

// SortValue matches no particular enum in the core engine; SortVector
// values are opaque typed entries used for tie-break ordering.
type SortValue struct {
	Str string
	Num float64
	IsNum bool
}

// Metadata is a live (or tombstoned-but-not-yet-freed) document record.
type Metadata struct {
	ID       uint64
	Flags    Flags
	Score    float32
	Len      uint32
	MaxFreq  uint32
	refCount int32 // atomic; ≥1 while reachable from the bucket chain

	Payload     []byte
	SortVector  []SortValue
	ByteOffsets []byte

	key []byte // heap copy owned by the doc table

	prev, next *entry // bucket chain links (embedded via entry)
}

// entry wraps Metadata with the chain pointers doctable manages
// internally; Metadata itself is what callers see.
type entry struct {
	md         *Metadata
	prev, next *entry
}

// Table is the bucketed hashtable + key-trie + TTL side-table.
type Table struct {
	mu sync.RWMutex

	buckets []*entry // chain heads; grows, never shrinks
	maxSize int

	size     int // live doc count
	maxDocID uint64

	keys *keyTrie

	// ttl maps docId -> absolute expiration for the whole doc, plus a
	// per-field expiration map for field-level TTL queries.
	ttl       map[uint64]time.Time
	fieldTTL  map[uint64]map[string]time.Time
}

// Type distinguishes the kind of value stored for a doc (mirrors
// spec.md's `type` parameter to put — left generic here since the core
// engine doesn't interpret it beyond bookkeeping).
type Type uint8

// New creates a doc table bounded at maxSize buckets.
func New(maxSize int) *Table {
	if maxSize <= 0 {
		maxSize = 1 << 20
	}
	return &Table{
		maxSize:  maxSize,
		buckets:  make([]*entry, 16),
		keys:     newKeyTrie(),
		ttl:      make(map[uint64]time.Time),
		fieldTTL: make(map[uint64]map[string]time.Time),
	}
}

// bucketIndex implements spec.md §3's `min(docId, maxSize) % maxSize`
// addressing formula: the modulus is the configured maxSize, not the
// current (possibly still-growing) bucket array length.
func (t *Table) bucketIndex(id uint64) int {
	n := uint64(t.maxSize)
	v := id
	if v > n {
		v = n
	}
	return int(v % n)
}

// growIfNeeded enlarges the bucket array by half (up to maxSize, never
// shrinking) when idx falls outside the current array, per spec.md §4.3.
func (t *Table) growIfNeeded(idx int) {
	if idx < len(t.buckets) {
		return
	}
	newCap := len(t.buckets)
	if newCap == 0 {
		newCap = 16
	}
	for newCap <= idx && newCap < t.maxSize {
		newCap += newCap / 2
		if newCap == 0 {
			newCap = 16
		}
	}
	if newCap > t.maxSize {
		newCap = t.maxSize
	}
	if newCap <= len(t.buckets) {
		return
	}
	nb := make([]*entry, newCap)
	// Rehash existing chains into the larger array using the same
	// fixed-modulus addressing formula.
	for _, head := range t.buckets {
		for e := head; e != nil; {
			next := e.next
			e.prev, e.next = nil, nil
			i := t.bucketIndex(e.md.ID)
			if i >= len(nb) {
				i = i % len(nb)
			}
			e.next = nb[i]
			if nb[i] != nil {
				nb[i].prev = e
			}
			nb[i] = e
			e = next
		}
	}
	t.buckets = nb
}

// Put inserts a new document for key, or returns the existing one with
// its refcount incremented if key is already present.
func (t *Table) Put(key []byte, score float32, flags Flags, payload []byte, _ Type) (*Metadata, bool, error) {
	if len(key) == 0 {
		return nil, false, ErrBadKey
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing := t.keys.get(key); existing != nil {
		atomic.AddInt32(&existing.md.refCount, 1)
		return existing.md, false, nil
	}

	if t.maxDocID == ^uint64(0) {
		return nil, false, ErrFull
	}
	t.maxDocID++
	id := t.maxDocID

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	md := &Metadata{
		ID:       id,
		Score:    score,
		Flags:    flags,
		refCount: 1,
		key:      keyCopy,
	}
	if payload != nil {
		md.Payload = append([]byte(nil), payload...)
		md.Flags |= FlagHasPayload
	}

	e := &entry{md: md}
	t.growIfNeeded(int(id))
	idx := t.bucketIndex(id)
	e.next = t.buckets[idx]
	if t.buckets[idx] != nil {
		t.buckets[idx].prev = e
	}
	t.buckets[idx] = e

	t.keys.put(keyCopy, e)
	t.size++
	return md, true, nil
}

// Borrow looks up docId and increments its refcount. Returns (nil, false)
// if unknown, beyond maxDocId, or logically deleted.
func (t *Table) Borrow(docID uint64) (*Metadata, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if docID == 0 || docID > t.maxDocID {
		return nil, false
	}
	e := t.findByID(docID)
	if e == nil || e.md.Flags&FlagDeleted != 0 {
		return nil, false
	}
	atomic.AddInt32(&e.md.refCount, 1)
	return e.md, true
}

// Release decrements a borrowed reference; the entry becomes eligible for
// physical free once the count reaches zero (spec.md §3 lifecycle).
func (t *Table) Release(md *Metadata) {
	atomic.AddInt32(&md.refCount, -1)
}

// Key returns the document's original external key, valid for as long
// as the caller holds a reference (e.g. between Borrow and Release).
func (md *Metadata) Key() []byte {
	return md.key
}

func (t *Table) findByID(docID uint64) *entry {
	idx := t.bucketIndex(docID)
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.md.ID == docID {
			return e
		}
	}
	return nil
}

// IsLive reports whether docID currently names a non-deleted document,
// without touching its refcount. Used by the wildcard iterator to skip
// deleted ids when synthesizing a dense doc-id stream.
func (t *Table) IsLive(docID uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e := t.findByID(docID)
	return e != nil && e.md.Flags&FlagDeleted == 0
}

// GetID returns the doc-id for key, or 0 if unknown or deleted.
func (t *Table) GetID(key []byte) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e := t.keys.get(key)
	if e == nil || e.md.Flags&FlagDeleted != 0 {
		return 0
	}
	return e.md.ID
}

// Pop logically deletes key: flips Deleted, unlinks from the bucket chain
// and key-trie, decrements the live count. The caller's internal
// reference (the one returned) must eventually be released via Release.
func (t *Table) Pop(key []byte) (*Metadata, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.keys.get(key)
	if e == nil || e.md.Flags&FlagDeleted != 0 {
		return nil, false
	}

	e.md.Flags |= FlagDeleted
	t.unlinkChain(e)
	t.keys.remove(key)
	t.size--
	delete(t.ttl, e.md.ID)
	delete(t.fieldTTL, e.md.ID)
	return e.md, true
}

func (t *Table) unlinkChain(e *entry) {
	idx := t.bucketIndex(e.md.ID)
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		t.buckets[idx] = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	e.prev, e.next = nil, nil
}

// Replace retargets the key-trie from fromKey to toKey without
// reassigning the underlying doc-id.
func (t *Table) Replace(fromKey, toKey []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.keys.get(fromKey)
	if e == nil {
		return false
	}
	t.keys.remove(fromKey)
	keyCopy := make([]byte, len(toKey))
	copy(keyCopy, toKey)
	e.md.key = keyCopy
	t.keys.put(keyCopy, e)
	return true
}

// Size returns the live document count.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// MaxDocID returns the most recently assigned doc-id.
func (t *Table) MaxDocID() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.maxDocID
}

// SetExpiration records an absolute expiration time for a whole document.
func (t *Table) SetExpiration(docID uint64, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ttl[docID] = at
}

// SetFieldExpiration records an absolute expiration time for one field of
// a document.
func (t *Table) SetFieldExpiration(docID uint64, field string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.fieldTTL[docID]
	if m == nil {
		m = make(map[string]time.Time)
		t.fieldTTL[docID] = m
	}
	m[field] = at
}

// IsExpired reports whether md's whole-document TTL has passed as of now.
func (t *Table) IsExpired(md *Metadata, now time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	at, ok := t.ttl[md.ID]
	return ok && !now.Before(at)
}

// IsFieldExpired reports whether a specific field's TTL has passed.
func (t *Table) IsFieldExpired(docID uint64, field string, now time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.fieldTTL[docID]
	if !ok {
		return false
	}
	at, ok := m[field]
	return ok && !now.Before(at)
}

// SnapshotRecord is one row of a full table dump, the unit internal/dtsnapshot
// persists and restores.
type SnapshotRecord struct {
	Key         []byte
	ID          uint64
	Score       float32
	Flags       Flags
	Len         uint32
	MaxFreq     uint32
	Payload     []byte
	SortVector  []SortValue
	ByteOffsets []byte
	Expiration  *time.Time
}

// ForEach calls fn once for every live document, in bucket-chain order.
// fn must not mutate the table.
func (t *Table) ForEach(fn func(SnapshotRecord)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			rec := SnapshotRecord{
				Key:         append([]byte(nil), e.md.key...),
				ID:          e.md.ID,
				Score:       e.md.Score,
				Flags:       e.md.Flags,
				Len:         e.md.Len,
				MaxFreq:     e.md.MaxFreq,
				Payload:     e.md.Payload,
				SortVector:  e.md.SortVector,
				ByteOffsets: e.md.ByteOffsets,
			}
			if at, ok := t.ttl[e.md.ID]; ok {
				atCopy := at
				rec.Expiration = &atCopy
			}
			fn(rec)
		}
	}
}

// Restore repopulates the table from a SnapshotRecord produced by a prior
// ForEach, preserving the doc-id exactly — unlike Put, which always
// allocates the next id — so that other indexes' doc-id references
// (postings, the vector index) stay valid across a reload.
func (t *Table) Restore(rec SnapshotRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	keyCopy := append([]byte(nil), rec.Key...)
	md := &Metadata{
		ID:          rec.ID,
		Score:       rec.Score,
		Flags:       rec.Flags,
		Len:         rec.Len,
		MaxFreq:     rec.MaxFreq,
		refCount:    1,
		Payload:     rec.Payload,
		SortVector:  rec.SortVector,
		ByteOffsets: rec.ByteOffsets,
		key:         keyCopy,
	}

	e := &entry{md: md}
	t.growIfNeeded(int(rec.ID))
	idx := t.bucketIndex(rec.ID)
	e.next = t.buckets[idx]
	if t.buckets[idx] != nil {
		t.buckets[idx].prev = e
	}
	t.buckets[idx] = e

	t.keys.put(keyCopy, e)
	t.size++
	if rec.ID > t.maxDocID {
		t.maxDocID = rec.ID
	}
	if rec.Expiration != nil {
		t.ttl[rec.ID] = *rec.Expiration
	}
}
