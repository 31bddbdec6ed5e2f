package catalog_test

import (
	"testing"

	"github.com/cuemby/warren/pkg/catalog"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestBootstrapCreatesSystemTables(t *testing.T) {
	cs := catalog.NewCommittedState(types.NewDatabaseAddress())

	for _, id := range []types.TableId{
		catalog.StTablesId, catalog.StColumnsId, catalog.StIndexesId,
		catalog.StConstraintsId, catalog.StSequencesId,
	} {
		_, ok := cs.GetTable(id)
		require.True(t, ok, "table %d should exist after bootstrap", id)
	}

	stTables, ok := cs.GetTable(catalog.StTablesId)
	require.True(t, ok)
	require.GreaterOrEqual(t, stTables.NumRows(), 9)
}

func TestBootstrapRowCountIsStableAcrossInstances(t *testing.T) {
	a := catalog.NewCommittedState(types.NewDatabaseAddress())
	b := catalog.NewCommittedState(types.NewDatabaseAddress())

	aRows, _ := a.GetTable(catalog.StTablesId)
	bRows, _ := b.GetTable(catalog.StTablesId)
	require.Equal(t, aRows.NumRows(), bRows.NumRows())
}

func TestCreateTableRegistersSchema(t *testing.T) {
	cs := catalog.NewCommittedState(types.NewDatabaseAddress())

	rowType := sats.Product(
		sats.Field("id", sats.U32()),
		sats.Field("name", sats.String()),
	)
	schema, err := cs.CreateTable("person", rowType, []catalog.ColumnSchema{
		{ColPos: 0, ColName: "id", ColType: sats.U32()},
		{ColPos: 1, ColName: "name", ColType: sats.String()},
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, uint32(schema.TableId), uint32(catalog.FirstUserTableId))

	tbl, ok := cs.GetTable(schema.TableId)
	require.True(t, ok)
	require.Equal(t, "person", tbl.Name)

	stColumns, ok := cs.GetTable(catalog.StColumnsId)
	require.True(t, ok)
	found := 0
	stColumns.Scan(cs.BlobStore, func(_ types.RowPointer, row sats.AlgebraicValue) bool {
		if types.TableId(row.Prod.Elems[0].U32) == schema.TableId {
			found++
		}
		return true
	})
	require.Equal(t, 2, found)
}

func TestCreateIndexBackfillsAndRecords(t *testing.T) {
	cs := catalog.NewCommittedState(types.NewDatabaseAddress())

	rowType := sats.Product(sats.Field("id", sats.U32()), sats.Field("name", sats.String()))
	schema, err := cs.CreateTable("widget", rowType, nil)
	require.NoError(t, err)

	tbl, _ := cs.GetTable(schema.TableId)
	_, _, err = tbl.Insert(cs.BlobStore, sats.ProductOf(sats.U32Value(1), sats.StringValue("a")))
	require.NoError(t, err)

	idx, err := cs.CreateIndex(schema.TableId, "widget_id", types.NewColList(0), true)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())

	_, _, err = tbl.Insert(cs.BlobStore, sats.ProductOf(sats.U32Value(1), sats.StringValue("b")))
	require.Error(t, err)
}

func TestBuildIndexesRecoversMultiColumnIndex(t *testing.T) {
	cs := catalog.NewCommittedState(types.NewDatabaseAddress())

	rowType := sats.Product(sats.Field("a", sats.U32()), sats.Field("b", sats.U32()), sats.Field("c", sats.String()))
	schema, err := cs.CreateTable("widget", rowType, nil)
	require.NoError(t, err)

	_, err = cs.CreateIndex(schema.TableId, "widget_b_c", types.NewColList(1, 2), true)
	require.NoError(t, err)

	// Simulate recovery: a fresh committed state replays st_indexes
	// into a table that otherwise has no index objects of its own.
	fresh := catalog.NewCommittedState(cs.Address)
	_, err = fresh.CreateTable("widget", rowType, nil)
	require.NoError(t, err)

	cs.Tables[catalog.StIndexesId].Scan(cs.BlobStore, func(_ types.RowPointer, row sats.AlgebraicValue) bool {
		_, _, err := fresh.Tables[catalog.StIndexesId].Insert(fresh.BlobStore, row)
		require.NoError(t, err)
		return true
	})

	require.NoError(t, fresh.BuildIndexes())

	tbl, ok := fresh.GetTable(schema.TableId)
	require.True(t, ok)
	idx, ok := tbl.Index(types.NewColList(1, 2))
	require.True(t, ok)
	require.True(t, idx.IsUnique)
}

func TestCreateSequenceAllocates(t *testing.T) {
	cs := catalog.NewCommittedState(types.NewDatabaseAddress())

	schema, err := cs.CreateTable("counter", sats.Product(sats.Field("id", sats.U32())), nil)
	require.NoError(t, err)

	seq, err := cs.CreateSequence(catalog.SequenceSchema{
		TableId:   schema.TableId,
		ColPos:    0,
		Name:      "counter_id_seq",
		Increment: 1,
		MinValue:  1,
		MaxValue:  1 << 31,
		Start:     1,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), seq.Next())
	require.Equal(t, int64(2), seq.Next())
}

func TestReplayInsertAndDeleteAreIdempotent(t *testing.T) {
	cs := catalog.NewCommittedState(types.NewDatabaseAddress())
	schema, err := cs.CreateTable("event", sats.Product(sats.Field("id", sats.U32())), nil)
	require.NoError(t, err)

	row := sats.ProductOf(sats.U32Value(42))
	require.NoError(t, cs.ReplayInsert(schema.TableId, row))
	require.NoError(t, cs.ReplayInsert(schema.TableId, row))

	tbl, _ := cs.GetTable(schema.TableId)
	require.Equal(t, 1, tbl.NumRows())

	require.NoError(t, cs.ReplayDeleteByRel(schema.TableId, row))
	require.Equal(t, 0, tbl.NumRows())
}

func TestTxConsumesOffset(t *testing.T) {
	require.True(t, catalog.TxConsumesOffset(true, false, ""))
	require.True(t, catalog.TxConsumesOffset(false, true, ""))
	require.False(t, catalog.TxConsumesOffset(false, false, "some_reducer"))
	require.True(t, catalog.TxConsumesOffset(false, false, "__identity_connected__"))
	require.True(t, catalog.TxConsumesOffset(false, false, "__identity_disconnected__"))
}
