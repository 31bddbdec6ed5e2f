package varlen_test

import (
	"testing"

	"github.com/cuemby/warren/pkg/types"
	"github.com/cuemby/warren/pkg/varlen"
	"github.com/stretchr/testify/require"
)

// TestGranuleHeaderBitbashing mirrors the original granule_header_bitbashing
// proptest: length and next-pointer round-trip independently of one another.
func TestGranuleHeaderBitbashing(t *testing.T) {
	lengths := []uint8{0, 1, 31, 62}
	nexts := []types.PageOffset{64, 128, 192, 65472}

	for _, length := range lengths {
		h := varlen.EncodeGranuleHeader(length, 0, false)
		require.Equal(t, length, h.Len())
		_, hasNext := h.Next()
		require.False(t, hasNext)

		for _, next := range nexts {
			h := varlen.EncodeGranuleHeader(length, next, true)
			require.Equal(t, length, h.Len())
			gotNext, hasNext := h.Next()
			require.True(t, hasNext)
			require.Equal(t, next, gotNext)
		}
	}
}

func TestBytesToGranules(t *testing.T) {
	cases := []struct {
		n         int
		count     int
		needsBlob bool
	}{
		{0, 0, false},
		{1, 1, false},
		{62, 1, false},
		{63, 2, false},
		{varlen.ObjectSizeBlobThreshold, varlen.ObjectMaxGranulesBeforeBlob, false},
		{varlen.ObjectSizeBlobThreshold + 1, 1, true},
		{2 * 1024 * 1024, 1, true},
	}
	for _, c := range cases {
		count, needsBlob := varlen.BytesToGranules(c.n)
		require.Equal(t, c.count, count, "n=%d", c.n)
		require.Equal(t, c.needsBlob, needsBlob, "n=%d", c.n)
	}
}

func TestLargeBlobSentinel(t *testing.T) {
	ref := varlen.LargeBlob(64)
	require.True(t, ref.IsLargeBlob())
	require.False(t, (varlen.VarLenRef{LengthInBytes: 10}).IsLargeBlob())
}
