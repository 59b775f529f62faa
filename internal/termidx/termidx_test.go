package termidx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ftengine/ftengine/internal/invidx"
)

func TestGetOrCreateIsIdempotentPerTerm(t *testing.T) {
	idx := New()
	a := idx.GetOrCreate("hello", invidx.FlagStoreFreqs)
	b := idx.GetOrCreate("hello", invidx.FlagStoreFreqs)
	require.Same(t, a, b)
	require.Equal(t, a.UniqueID, b.UniqueID)

	c := idx.GetOrCreate("world", invidx.FlagStoreFreqs)
	require.NotEqual(t, a.UniqueID, c.UniqueID)
	require.Equal(t, 2, idx.Len())
}

func TestStillValidDetectsReplacedEntry(t *testing.T) {
	idx := New()
	e := idx.GetOrCreate("foo", invidx.FlagDocIDsOnly)
	require.True(t, idx.StillValid("foo", e.UniqueID))

	idx.Delete("foo")
	require.False(t, idx.StillValid("foo", e.UniqueID))

	e2 := idx.GetOrCreate("foo", invidx.FlagDocIDsOnly)
	require.NotEqual(t, e.UniqueID, e2.UniqueID)
	require.False(t, idx.StillValid("foo", e.UniqueID))
	require.True(t, idx.StillValid("foo", e2.UniqueID))
}

func TestTermsSnapshot(t *testing.T) {
	idx := New()
	idx.GetOrCreate("a", invidx.FlagDocIDsOnly)
	idx.GetOrCreate("b", invidx.FlagDocIDsOnly)
	terms := idx.Terms()
	require.ElementsMatch(t, []string{"a", "b"}, terms)
}
