package tagidx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ftengine/ftengine/internal/invidx"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	idx := New(false)
	a := idx.GetOrCreate("red", invidx.FlagDocIDsOnly)
	b := idx.GetOrCreate("red", invidx.FlagDocIDsOnly)
	require.Same(t, a, b)
	require.Equal(t, 1, idx.Len())
}

func TestSuffixMatching(t *testing.T) {
	idx := New(true)
	idx.GetOrCreate("electronics", invidx.FlagDocIDsOnly)
	idx.GetOrCreate("robotics", invidx.FlagDocIDsOnly)
	idx.GetOrCreate("fabrics", invidx.FlagDocIDsOnly)

	matches := idx.MatchSuffix("ics")
	require.ElementsMatch(t, []string{"electronics", "robotics", "fabrics"}, matches)

	matches = idx.MatchSuffix("tronics")
	require.ElementsMatch(t, []string{"electronics"}, matches)
}

func TestContainsMatching(t *testing.T) {
	idx := New(true)
	idx.GetOrCreate("electronics", invidx.FlagDocIDsOnly)
	idx.GetOrCreate("tronic-age", invidx.FlagDocIDsOnly)
	idx.GetOrCreate("unrelated", invidx.FlagDocIDsOnly)

	matches := idx.MatchContains("tron")
	require.ElementsMatch(t, []string{"electronics", "tronic-age"}, matches)
}

func TestDeletePrunesSuffixes(t *testing.T) {
	idx := New(true)
	idx.GetOrCreate("abcdef", invidx.FlagDocIDsOnly)
	require.NotEmpty(t, idx.MatchSuffix("def"))

	idx.Delete("abcdef")
	require.Empty(t, idx.MatchSuffix("def"))
	require.Equal(t, 0, idx.Len())
}

func TestSuffixDisabledReturnsNil(t *testing.T) {
	idx := New(false)
	idx.GetOrCreate("abcdef", invidx.FlagDocIDsOnly)
	require.Nil(t, idx.MatchSuffix("def"))
	require.Nil(t, idx.MatchContains("cd"))
}
