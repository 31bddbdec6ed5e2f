package table_test

import (
	"testing"

	"github.com/cuemby/warren/pkg/blob"
	"github.com/cuemby/warren/pkg/btreeindex"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/table"
	"github.com/cuemby/warren/pkg/types"
	"github.com/stretchr/testify/require"
)

func personType() sats.AlgebraicType {
	return sats.Product(
		sats.Field("id", sats.U32()),
		sats.Field("name", sats.String()),
	)
}

func person(id uint32, name string) sats.AlgebraicValue {
	return sats.ProductOf(sats.U32Value(id), sats.StringValue(name))
}

func newTable() (*table.Table, blob.Store) {
	return table.New(1, "person", personType(), types.SquashedCommitted), blob.NewInMemoryStore()
}

func TestInsertAndGetRow(t *testing.T) {
	tbl, store := newTable()
	hash, ptr, err := tbl.Insert(store, person(1, "alice"))
	require.NoError(t, err)
	require.NotZero(t, hash)
	require.Equal(t, 1, tbl.NumRows())

	got, ok := tbl.Get(store, ptr)
	require.True(t, ok)
	require.True(t, got.Equal(person(1, "alice")))
}

func TestInsertDuplicateSetSemantics(t *testing.T) {
	tbl, store := newTable()
	_, ptr, err := tbl.Insert(store, person(1, "alice"))
	require.NoError(t, err)

	_, _, err = tbl.Insert(store, person(1, "alice"))
	require.Error(t, err)
	var dupErr *table.DuplicateError
	require.ErrorAs(t, err, &dupErr)
	require.Equal(t, ptr, dupErr.Existing)
	require.Equal(t, 1, tbl.NumRows())
}

func TestDeleteRemovesFromPointerMapAndScan(t *testing.T) {
	tbl, store := newTable()
	_, ptr, err := tbl.Insert(store, person(1, "alice"))
	require.NoError(t, err)

	row, ok := tbl.Delete(store, ptr)
	require.True(t, ok)
	require.True(t, row.Equal(person(1, "alice")))
	require.Equal(t, 0, tbl.NumRows())

	var seen int
	tbl.Scan(store, func(types.RowPointer, sats.AlgebraicValue) bool {
		seen++
		return true
	})
	require.Zero(t, seen)
}

func TestUniqueIndexRejectsDuplicateKeyOnInsert(t *testing.T) {
	tbl, store := newTable()
	idx := btreeindex.New(1, tbl.TableId, types.NewColList(0), true, "idx_id")
	require.NoError(t, tbl.InsertIndex(store, idx))

	_, _, err := tbl.Insert(store, person(1, "alice"))
	require.NoError(t, err)

	_, _, err = tbl.Insert(store, person(1, "bob"))
	require.Error(t, err)
	require.ErrorIs(t, err, btreeindex.ErrUniqueConstraintViolation)
}

func TestIndexBackfillAndSeek(t *testing.T) {
	tbl, store := newTable()
	_, p1, err := tbl.Insert(store, person(1, "alice"))
	require.NoError(t, err)
	_, p2, err := tbl.Insert(store, person(2, "bob"))
	require.NoError(t, err)

	idx := btreeindex.New(1, tbl.TableId, types.NewColList(0), true, "idx_id")
	require.NoError(t, tbl.InsertIndex(store, idx))

	one := sats.U32Value(1)
	ptrs, ok := tbl.IndexSeek(types.NewColList(0), btreeindex.Range{Lo: &one, Hi: &one})
	require.True(t, ok)
	require.Equal(t, []types.RowPointer{p1}, ptrs)

	_, p3, err := tbl.Insert(store, person(3, "carol"))
	require.NoError(t, err)
	two := sats.U32Value(2)
	three := sats.U32Value(3)
	ptrs, ok = tbl.IndexSeek(types.NewColList(0), btreeindex.Range{Lo: &two, Hi: &three})
	require.True(t, ok)
	require.ElementsMatch(t, []types.RowPointer{p2, p3}, ptrs)
}

func TestDeleteEqualRow(t *testing.T) {
	tbl, store := newTable()
	_, ptr, err := tbl.Insert(store, person(1, "alice"))
	require.NoError(t, err)

	deleted, err := tbl.DeleteEqualRow(store, person(1, "alice"))
	require.NoError(t, err)
	require.NotNil(t, deleted)
	require.Equal(t, ptr, *deleted)
	require.Equal(t, 0, tbl.NumRows())
}

func TestContainsSameRowAcrossTables(t *testing.T) {
	committed, store := newTable()
	_, committedPtr, err := committed.Insert(store, person(1, "alice"))
	require.NoError(t, err)

	tx := table.FromTemplate(committed, types.SquashedTx)
	hash, txPtr, err := tx.Insert(store, person(1, "alice"))
	require.NoError(t, err)

	existing, found := table.ContainsSameRow(committed, tx, txPtr, hash)
	require.True(t, found)
	require.Equal(t, committedPtr, existing)
}
