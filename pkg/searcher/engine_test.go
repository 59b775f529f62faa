package searcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ftengine/ftengine/internal/config"
	"github.com/ftengine/ftengine/internal/engine"
	"github.com/ftengine/ftengine/internal/planner"
	"github.com/ftengine/ftengine/internal/vecindex"
)

func testSchema() *planner.Schema {
	return &planner.Schema{Fields: map[string]planner.Field{
		"body":  {Name: "body", Kind: planner.FieldText, Bit: 1},
		"color": {Name: "color", Kind: planner.FieldTag, Bit: 2},
	}}
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New()
	require.ErrorIs(t, err, ErrNilEngine)
}

func TestSearchReturnsMatchesWithKeyAndPayload(t *testing.T) {
	eng := engine.New(config.NewConfig(), testSchema(), nil)
	_, err := eng.AddDocument("doc:1", 1.0, []byte("payload-1"), map[string]engine.FieldValue{
		"body":  {Text: "the quick brown fox"},
		"color": {Tags: []string{"red"}},
	})
	require.NoError(t, err)

	s, err := New(WithEngine(eng))
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "quick", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "doc:1", results[0].ID)
	require.Equal(t, []byte("payload-1"), results[0].Payload)
}

func TestSearchRespectsLimit(t *testing.T) {
	eng := engine.New(config.NewConfig(), testSchema(), nil)
	for _, key := range []string{"doc:1", "doc:2", "doc:3"} {
		_, err := eng.AddDocument(key, 1.0, nil, map[string]engine.FieldValue{
			"body": {Text: "shared term"},
		})
		require.NoError(t, err)
	}

	s, err := New(WithEngine(eng))
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "shared", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestSearchRespectsCancelledContext(t *testing.T) {
	eng := engine.New(config.NewConfig(), testSchema(), nil)
	s, err := New(WithEngine(eng))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Search(ctx, "anything", 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestVectorSearchRanksBySimilarity(t *testing.T) {
	schema := testSchema()
	eng := engine.New(config.NewConfig(), schema, map[string]vecindex.Config{
		"embedding": {Dimensions: 2, Metric: vecindex.MetricCosine, M: 8, EfSearch: 16},
	})

	_, err := eng.AddDocument("doc:near", 1.0, nil, map[string]engine.FieldValue{
		"embedding": {Vector: []float32{1, 0}},
	})
	require.NoError(t, err)
	_, err = eng.AddDocument("doc:far", 1.0, nil, map[string]engine.FieldValue{
		"embedding": {Vector: []float32{0, 1}},
	})
	require.NoError(t, err)

	s, err := New(WithEngine(eng))
	require.NoError(t, err)

	results, err := s.VectorSearch(context.Background(), "embedding", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "doc:near", results[0].ID)
}
