package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, ^uint64(0)}
	for _, v := range values {
		buf := PutUvarint(nil, v)
		require.Equal(t, SizeUvarint(v), len(buf))
		got, n := Uvarint(buf)
		require.Greater(t, n, 0)
		require.Equal(t, v, got)
	}
}

func TestUvarintTruncated(t *testing.T) {
	buf := PutUvarint(nil, 1<<30)
	_, n := Uvarint(buf[:len(buf)-1])
	require.Equal(t, 0, n)
}

func TestQIntRoundTrip(t *testing.T) {
	cases := [][4]uint32{
		{0, 0, 0, 0},
		{1, 255, 256, 65535},
		{65536, 16777215, 16777216, 0xffffffff},
	}
	for _, c := range cases {
		buf := EncodeQInt4(nil, c[0], c[1], c[2], c[3])
		require.Equal(t, SizeQInt4(c[0], c[1], c[2], c[3]), len(buf))
		a, b, d, e, n := DecodeQInt4(buf)
		require.Equal(t, len(buf), n)
		require.Equal(t, c, [4]uint32{a, b, d, e})
	}
}

func TestQIntShortBuffer(t *testing.T) {
	buf := EncodeQInt4(nil, 1, 2, 3, 70000)
	_, _, _, _, n := DecodeQInt4(buf[:len(buf)-1])
	require.Equal(t, 0, n)
}
