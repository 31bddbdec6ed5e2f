package persist_test

import (
	"testing"

	"github.com/cuemby/warren/pkg/datastore"
	"github.com/cuemby/warren/pkg/persist"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
	"github.com/stretchr/testify/require"
)

type fakeRowTypes map[types.TableId]sats.AlgebraicType

func (f fakeRowTypes) RowType(id types.TableId) (sats.AlgebraicType, bool) {
	t, ok := f[id]
	return t, ok
}

func testRowType() sats.AlgebraicType {
	return sats.Product(sats.Field("id", sats.U32()), sats.Field("name", sats.String()))
}

func testRow(id uint32, name string) sats.AlgebraicValue {
	return sats.ProductOf(sats.U32Value(id), sats.StringValue(name))
}

func TestCommitLogAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	log, err := persist.OpenCommitLog(dir)
	require.NoError(t, err)
	defer log.Close()

	rowTypes := fakeRowTypes{1: testRowType()}

	data := &datastore.TxData{
		Inserts: map[types.TableId][]sats.AlgebraicValue{1: {testRow(1, "alice"), testRow(2, "bob")}},
		Deletes: map[types.TableId][]sats.AlgebraicValue{1: {testRow(3, "carol")}},
	}
	require.NoError(t, log.Append(10, data, rowTypes))

	var events []persist.RowEvent
	require.NoError(t, log.Replay(rowTypes, func(offset uint64, ev persist.RowEvent) error {
		require.Equal(t, uint64(10), offset)
		events = append(events, ev)
		return nil
	}))

	require.Len(t, events, 3)
	require.Equal(t, testRow(3, "carol"), events[0].Row)
}

func TestCommitLogLastOffset(t *testing.T) {
	dir := t.TempDir()
	log, err := persist.OpenCommitLog(dir)
	require.NoError(t, err)
	defer log.Close()

	_, found, err := log.LastOffset()
	require.NoError(t, err)
	require.False(t, found)

	rowTypes := fakeRowTypes{1: testRowType()}
	data := &datastore.TxData{Inserts: map[types.TableId][]sats.AlgebraicValue{1: {testRow(1, "a")}}}
	require.NoError(t, log.Append(5, data, rowTypes))
	require.NoError(t, log.Append(6, data, rowTypes))

	last, found, err := log.LastOffset()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(6), last)
}

func TestCommitLogReplayStopsOnError(t *testing.T) {
	dir := t.TempDir()
	log, err := persist.OpenCommitLog(dir)
	require.NoError(t, err)
	defer log.Close()

	rowTypes := fakeRowTypes{1: testRowType()}
	data := &datastore.TxData{Inserts: map[types.TableId][]sats.AlgebraicValue{1: {testRow(1, "a"), testRow(2, "b")}}}
	require.NoError(t, log.Append(1, data, rowTypes))

	calls := 0
	wantErr := require.Error
	err = log.Replay(rowTypes, func(offset uint64, ev persist.RowEvent) error {
		calls++
		return errStop
	})
	wantErr(t, err)
	require.Equal(t, 1, calls)
}

var errStop = &stopError{}

type stopError struct{}

func (*stopError) Error() string { return "stop" }
