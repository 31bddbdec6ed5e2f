package btreeindex_test

import (
	"testing"

	"github.com/cuemby/warren/pkg/btreeindex"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
	"github.com/stretchr/testify/require"
)

func ptr(off uint16) types.RowPointer {
	return types.RowPointer{PageOffset: types.PageOffset(off)}
}

func TestUniqueIndexRejectsDuplicateKey(t *testing.T) {
	idx := btreeindex.New(1, 1, types.NewColList(0), true, "idx_unique")
	require.NoError(t, idx.InsertUnique(sats.U32Value(1), ptr(0)))
	err := idx.InsertUnique(sats.U32Value(1), ptr(8))
	require.Error(t, err)
	require.ErrorIs(t, err, btreeindex.ErrUniqueConstraintViolation)
	require.Equal(t, []types.RowPointer{ptr(0)}, idx.Get(sats.U32Value(1)))
}

func TestNonUniqueIndexAllowsDuplicateKey(t *testing.T) {
	idx := btreeindex.New(1, 1, types.NewColList(0), false, "idx_dup")
	idx.InsertDuplicate(sats.U32Value(1), ptr(0))
	idx.InsertDuplicate(sats.U32Value(1), ptr(8))
	require.ElementsMatch(t, []types.RowPointer{ptr(0), ptr(8)}, idx.Get(sats.U32Value(1)))
}

func TestIndexDeleteRows(t *testing.T) {
	idx := btreeindex.New(1, 1, types.NewColList(0), false, "idx")
	idx.InsertDuplicate(sats.U32Value(1), ptr(0))
	idx.InsertDuplicate(sats.U32Value(1), ptr(8))
	require.True(t, idx.Delete(sats.U32Value(1), ptr(0)))
	require.Equal(t, []types.RowPointer{ptr(8)}, idx.Get(sats.U32Value(1)))
	require.True(t, idx.Delete(sats.U32Value(1), ptr(8)))
	require.False(t, idx.ContainsKey(sats.U32Value(1)))
	require.False(t, idx.Delete(sats.U32Value(1), ptr(8)))
}

func TestIndexIterAscending(t *testing.T) {
	idx := btreeindex.New(1, 1, types.NewColList(0), true, "idx")
	require.NoError(t, idx.Insert(sats.U32Value(3), ptr(3)))
	require.NoError(t, idx.Insert(sats.U32Value(1), ptr(1)))
	require.NoError(t, idx.Insert(sats.U32Value(2), ptr(2)))

	var keys []uint32
	idx.Iter(func(k sats.AlgebraicValue, p types.RowPointer) {
		keys = append(keys, k.U32)
	})
	require.Equal(t, []uint32{1, 2, 3}, keys)
}

func TestIndexSeekRange(t *testing.T) {
	idx := btreeindex.New(1, 1, types.NewColList(0), true, "idx")
	for i := uint32(0); i < 10; i++ {
		require.NoError(t, idx.Insert(sats.U32Value(i), ptr(uint16(i))))
	}
	lo := sats.U32Value(3)
	hi := sats.U32Value(6)
	got := idx.Seek(btreeindex.Range{Lo: &lo, Hi: &hi})
	require.Equal(t, []types.RowPointer{ptr(3), ptr(4), ptr(5), ptr(6)}, got)

	got = idx.Seek(btreeindex.Range{Lo: &lo, LoExcl: true, Hi: &hi, HiExcl: true})
	require.Equal(t, []types.RowPointer{ptr(4), ptr(5)}, got)
}

func TestIndexSeekEq(t *testing.T) {
	idx := btreeindex.New(1, 1, types.NewColList(0), false, "idx")
	idx.InsertDuplicate(sats.StringValue("a"), ptr(1))
	idx.InsertDuplicate(sats.StringValue("a"), ptr(2))
	idx.InsertDuplicate(sats.StringValue("b"), ptr(3))
	require.ElementsMatch(t, []types.RowPointer{ptr(1), ptr(2)}, idx.SeekEq(sats.StringValue("a")))
}
