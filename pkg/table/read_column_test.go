package table_test

import (
	"testing"

	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/table"
	"github.com/stretchr/testify/require"
)

func TestReadColumnReturnsTypedValue(t *testing.T) {
	tbl, store := newTable()
	_, ptr, err := tbl.Insert(store, person(7, "alice"))
	require.NoError(t, err)

	id, err := table.ReadColumn[uint32](tbl, store, ptr, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(7), id)

	name, err := table.ReadColumn[string](tbl, store, ptr, 1)
	require.NoError(t, err)
	require.Equal(t, "alice", name)
}

func TestReadColumnAsAlgebraicValue(t *testing.T) {
	tbl, store := newTable()
	_, ptr, err := tbl.Insert(store, person(7, "alice"))
	require.NoError(t, err)

	v, err := table.ReadColumn[sats.AlgebraicValue](tbl, store, ptr, 0)
	require.NoError(t, err)
	require.True(t, v.Equal(sats.U32Value(7)))
}

func TestReadColumnWrongType(t *testing.T) {
	tbl, store := newTable()
	_, ptr, err := tbl.Insert(store, person(7, "alice"))
	require.NoError(t, err)

	_, err = table.ReadColumn[string](tbl, store, ptr, 0)
	require.Error(t, err)
	var wrongType *table.WrongTypeError
	require.ErrorAs(t, err, &wrongType)
	require.Equal(t, sats.KindU32, wrongType.Found.Kind)
}

func TestReadColumnIndexOutOfBounds(t *testing.T) {
	tbl, store := newTable()
	_, ptr, err := tbl.Insert(store, person(7, "alice"))
	require.NoError(t, err)

	_, err = table.ReadColumn[sats.AlgebraicValue](tbl, store, ptr, 2)
	require.Error(t, err)
	var oob *table.IndexOutOfBoundsError
	require.ErrorAs(t, err, &oob)
	require.Equal(t, 2, oob.Desired)
}
