package slotrange

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := Set{{Start: 0, End: 4095}, {Start: 8192, End: 12287}}
	buf := Encode(s)
	got, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, s, got)
}

func TestDecodeTruncatedBuffer(t *testing.T) {
	_, err := Decode([]byte{1, 0})
	require.ErrorIs(t, err, ErrTruncated)

	buf := Encode(Set{{Start: 0, End: 1}})
	_, err = Decode(buf[:len(buf)-1])
	require.ErrorIs(t, err, ErrTruncated)
}

func TestOwnsChecksSortedRanges(t *testing.T) {
	s := Set{{Start: 100, End: 199}, {Start: 0, End: 49}}.Sorted()
	require.True(t, s.Owns(0))
	require.True(t, s.Owns(49))
	require.False(t, s.Owns(50))
	require.True(t, s.Owns(150))
	require.False(t, s.Owns(200))
}

func TestMergeCoalescesAdjacentAndOverlapping(t *testing.T) {
	s := Set{{Start: 0, End: 10}, {Start: 11, End: 20}, {Start: 30, End: 40}, {Start: 35, End: 50}}
	merged := Merge(s)
	require.Equal(t, Set{{Start: 0, End: 20}, {Start: 30, End: 50}}, merged)
}

func TestMergeEmptySet(t *testing.T) {
	require.Nil(t, Merge(nil))
}
