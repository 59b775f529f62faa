package dtsnapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ftengine/ftengine/internal/doctable"
)

func TestSaveAndLoadRoundTripsLiveDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.db")

	src := doctable.New(64)
	md1, _, err := src.Put([]byte("doc:1"), 1.5, 0, []byte("payload-1"), doctable.Type(0))
	require.NoError(t, err)
	_, _, err = src.Put([]byte("doc:2"), 2.5, 0, nil, doctable.Type(0))
	require.NoError(t, err)
	src.SetExpiration(md1.ID, time.Unix(123456, 0))

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, src))

	dst := doctable.New(64)
	require.NoError(t, store.Load(ctx, dst))

	require.Equal(t, 2, dst.Size())
	require.Equal(t, md1.ID, dst.GetID([]byte("doc:1")))
	require.True(t, dst.IsExpired(&doctable.Metadata{ID: md1.ID}, time.Unix(123457, 0)))
	require.False(t, dst.IsExpired(&doctable.Metadata{ID: md1.ID}, time.Unix(123455, 0)))
}

func TestSaveOmitsLogicallyDeletedDocuments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.db")

	src := doctable.New(64)
	_, _, err := src.Put([]byte("doc:1"), 0, 0, nil, doctable.Type(0))
	require.NoError(t, err)
	_, ok := src.Pop([]byte("doc:1"))
	require.True(t, ok)

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Save(ctx, src))

	dst := doctable.New(64)
	require.NoError(t, store.Load(ctx, dst))
	require.Equal(t, 0, dst.Size())
}

func TestSaveReplacesPriorSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	first := doctable.New(64)
	_, _, err = first.Put([]byte("doc:1"), 0, 0, nil, doctable.Type(0))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, first))

	second := doctable.New(64)
	_, _, err = second.Put([]byte("doc:2"), 0, 0, nil, doctable.Type(0))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, second))

	dst := doctable.New(64)
	require.NoError(t, store.Load(ctx, dst))
	require.Equal(t, 1, dst.Size())
	require.Zero(t, dst.GetID([]byte("doc:1")))
	require.NotZero(t, dst.GetID([]byte("doc:2")))
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
