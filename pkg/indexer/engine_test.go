package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ftengine/ftengine/internal/config"
	"github.com/ftengine/ftengine/internal/engine"
	"github.com/ftengine/ftengine/internal/planner"
)

func testSchema() *planner.Schema {
	return &planner.Schema{Fields: map[string]planner.Field{
		"body":  {Name: "body", Kind: planner.FieldText, Bit: 1},
		"color": {Name: "color", Kind: planner.FieldTag, Bit: 2},
	}}
}

func newTestIndexer(t *testing.T) *EngineIndexer {
	t.Helper()
	eng := engine.New(config.NewConfig(), testSchema(), nil)
	idx, err := New(WithEngine(eng))
	require.NoError(t, err)
	return idx
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New()
	require.ErrorIs(t, err, ErrNilEngine)
}

func TestIndexAddsDocumentsSearchableThroughTheEngine(t *testing.T) {
	idx := newTestIndexer(t)

	err := idx.Index(context.Background(), []Document{
		{
			Key:    "doc:1",
			Score:  1.0,
			Fields: map[string]engine.FieldValue{"body": {Text: "hello world"}, "color": {Tags: []string{"red"}}},
		},
	})
	require.NoError(t, err)

	stats := idx.Stats()
	require.Equal(t, 1, stats.DocumentCount)
	require.Greater(t, stats.TermCount, 0)
}

func TestDeleteRemovesDocuments(t *testing.T) {
	idx := newTestIndexer(t)
	require.NoError(t, idx.Index(context.Background(), []Document{
		{Key: "doc:1", Fields: map[string]engine.FieldValue{"body": {Text: "hello"}}},
	}))
	require.Equal(t, 1, idx.Stats().DocumentCount)

	require.NoError(t, idx.Delete(context.Background(), []string{"doc:1"}))
	require.Equal(t, 0, idx.Stats().DocumentCount)
}

func TestDeleteNonExistentKeyIsNoOp(t *testing.T) {
	idx := newTestIndexer(t)
	require.NoError(t, idx.Delete(context.Background(), []string{"missing"}))
}

func TestClearReturnsErrClearUnsupported(t *testing.T) {
	idx := newTestIndexer(t)
	err := idx.Clear(context.Background())
	require.ErrorIs(t, err, ErrClearUnsupported)
}

func TestIndexAfterCloseErrors(t *testing.T) {
	idx := newTestIndexer(t)
	require.NoError(t, idx.Close())

	err := idx.Index(context.Background(), []Document{
		{Key: "doc:1", Fields: map[string]engine.FieldValue{"body": {Text: "hello"}}},
	})
	require.Error(t, err)
}

func TestIndexRespectsCancelledContext(t *testing.T) {
	idx := newTestIndexer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := idx.Index(ctx, []Document{
		{Key: "doc:1", Fields: map[string]engine.FieldValue{"body": {Text: "hello"}}},
	})
	require.ErrorIs(t, err, context.Canceled)
}
