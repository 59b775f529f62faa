package doctable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPutAssignsIdAndIsIdempotentOnKey(t *testing.T) {
	tbl := New(64)

	md, isNew, err := tbl.Put([]byte("doc:1"), 1.0, 0, nil, Type(0))
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, uint64(1), md.ID)

	again, isNew2, err := tbl.Put([]byte("doc:1"), 1.0, 0, nil, Type(0))
	require.NoError(t, err)
	require.False(t, isNew2)
	require.Same(t, md, again)
	require.Equal(t, int32(2), again.refCount)
}

func TestPutEmptyKeyFails(t *testing.T) {
	tbl := New(16)
	_, _, err := tbl.Put(nil, 0, 0, nil, Type(0))
	require.ErrorIs(t, err, ErrBadKey)
}

// TestPutBorrowPopConsistency exercises spec.md §8 invariant 3: after
// put(k) returns (md, isNew), getId(k) == md.id and borrow(md.id) returns
// the same metadata; after pop(k), getId(k) == 0.
func TestPutBorrowPopConsistency(t *testing.T) {
	tbl := New(64)

	md, isNew, err := tbl.Put([]byte("hello"), 0.5, 0, []byte("payload"), Type(0))
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, md.ID, tbl.GetID([]byte("hello")))

	borrowed, ok := tbl.Borrow(md.ID)
	require.True(t, ok)
	require.Same(t, md, borrowed)
	tbl.Release(borrowed)

	popped, ok := tbl.Pop([]byte("hello"))
	require.True(t, ok)
	require.Same(t, md, popped)
	require.Equal(t, uint64(0), tbl.GetID([]byte("hello")))

	_, ok = tbl.Borrow(md.ID)
	require.False(t, ok, "borrow must fail once the doc is logically deleted")

	_, ok = tbl.Pop([]byte("hello"))
	require.False(t, ok, "popping an already-deleted key must fail")
}

func TestBorrowRejectsUnknownAndOutOfRange(t *testing.T) {
	tbl := New(16)
	_, ok := tbl.Borrow(0)
	require.False(t, ok)

	_, _, err := tbl.Put([]byte("a"), 0, 0, nil, Type(0))
	require.NoError(t, err)

	_, ok = tbl.Borrow(999)
	require.False(t, ok)
}

func TestReplaceRetargetsKeyKeepingDocID(t *testing.T) {
	tbl := New(16)
	md, _, err := tbl.Put([]byte("old-key"), 0, 0, nil, Type(0))
	require.NoError(t, err)

	ok := tbl.Replace([]byte("old-key"), []byte("new-key"))
	require.True(t, ok)

	require.Equal(t, uint64(0), tbl.GetID([]byte("old-key")))
	require.Equal(t, md.ID, tbl.GetID([]byte("new-key")))

	borrowed, ok := tbl.Borrow(md.ID)
	require.True(t, ok)
	require.Same(t, md, borrowed)
}

func TestReplaceUnknownKeyFails(t *testing.T) {
	tbl := New(16)
	require.False(t, tbl.Replace([]byte("nope"), []byte("whatever")))
}

func TestSizeTracksLiveDocsAcrossPutAndPop(t *testing.T) {
	tbl := New(16)
	for i := 0; i < 5; i++ {
		_, _, err := tbl.Put([]byte{byte('a' + i)}, 0, 0, nil, Type(0))
		require.NoError(t, err)
	}
	require.Equal(t, 5, tbl.Size())

	_, ok := tbl.Pop([]byte{'a'})
	require.True(t, ok)
	require.Equal(t, 4, tbl.Size())

	require.Equal(t, uint64(5), tbl.MaxDocID())
}

func TestGrowsPastInitialBucketArrayWithoutLosingEntries(t *testing.T) {
	tbl := New(2048)
	const n = 500
	ids := make(map[uint64]bool, n)
	for i := 0; i < n; i++ {
		key := []byte{byte(i), byte(i >> 8), byte(i >> 16)}
		md, isNew, err := tbl.Put(key, 0, 0, nil, Type(0))
		require.NoError(t, err)
		require.True(t, isNew)
		ids[md.ID] = true
	}
	require.Len(t, ids, n)
	require.True(t, len(tbl.buckets) > 16, "bucket array should have grown beyond its initial size")

	for i := 0; i < n; i++ {
		key := []byte{byte(i), byte(i >> 8), byte(i >> 16)}
		require.NotZero(t, tbl.GetID(key))
	}
}

func TestExpirationTracking(t *testing.T) {
	tbl := New(16)
	md, _, err := tbl.Put([]byte("k"), 0, 0, nil, Type(0))
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	require.False(t, tbl.IsExpired(md, now))

	tbl.SetExpiration(md.ID, now.Add(-time.Second))
	require.True(t, tbl.IsExpired(md, now))

	tbl.SetFieldExpiration(md.ID, "title", now.Add(time.Second))
	require.False(t, tbl.IsFieldExpired(md.ID, "title", now))
	require.True(t, tbl.IsFieldExpired(md.ID, "title", now.Add(2*time.Second)))
	require.False(t, tbl.IsFieldExpired(md.ID, "body", now))
}

func TestForEachYieldsEveryLiveRecord(t *testing.T) {
	tbl := New(16)
	md1, _, err := tbl.Put([]byte("a"), 1.5, 0, []byte("p1"), Type(0))
	require.NoError(t, err)
	_, _, err = tbl.Put([]byte("b"), 2.5, 0, nil, Type(0))
	require.NoError(t, err)
	tbl.SetExpiration(md1.ID, time.Unix(5000, 0))

	var got []SnapshotRecord
	tbl.ForEach(func(rec SnapshotRecord) { got = append(got, rec) })

	require.Len(t, got, 2)
	byID := make(map[uint64]SnapshotRecord, len(got))
	for _, r := range got {
		byID[r.ID] = r
	}
	require.Equal(t, []byte("p1"), byID[md1.ID].Payload)
	require.NotNil(t, byID[md1.ID].Expiration)
	require.Equal(t, time.Unix(5000, 0), *byID[md1.ID].Expiration)
}

func TestForEachSkipsPoppedRecords(t *testing.T) {
	tbl := New(16)
	_, _, err := tbl.Put([]byte("a"), 0, 0, nil, Type(0))
	require.NoError(t, err)
	_, ok := tbl.Pop([]byte("a"))
	require.True(t, ok)

	var got []SnapshotRecord
	tbl.ForEach(func(rec SnapshotRecord) { got = append(got, rec) })
	require.Empty(t, got)
}

func TestRestorePreservesDocIDAndIsQueryableByKey(t *testing.T) {
	src := New(16)
	md, _, err := src.Put([]byte("a"), 3.0, 0, []byte("payload"), Type(0))
	require.NoError(t, err)
	src.SetExpiration(md.ID, time.Unix(9000, 0))

	var records []SnapshotRecord
	src.ForEach(func(rec SnapshotRecord) { records = append(records, rec) })
	require.Len(t, records, 1)

	dst := New(16)
	for _, rec := range records {
		dst.Restore(rec)
	}

	require.Equal(t, md.ID, dst.GetID([]byte("a")))
	require.True(t, dst.IsLive(md.ID))
	require.Equal(t, md.ID, dst.MaxDocID())
	require.True(t, dst.IsExpired(&Metadata{ID: md.ID}, time.Unix(9001, 0)))
}

func TestRestoreGrowsBucketsForHighDocIDs(t *testing.T) {
	dst := New(2048)
	rec := SnapshotRecord{Key: []byte("z"), ID: 500}
	dst.Restore(rec)

	require.Equal(t, uint64(500), dst.GetID([]byte("z")))
	require.True(t, len(dst.buckets) > 16)
}
