package catalog

import (
	"fmt"

	"github.com/cuemby/warren/pkg/blob"
	"github.com/cuemby/warren/pkg/btreeindex"
	"github.com/cuemby/warren/pkg/log"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/table"
	"github.com/cuemby/warren/pkg/types"
)

// Sequence is the live runtime state of one auto-increment sequence.
// It mirrors a row of st_sequences but is kept as a separate struct so
// every allocation doesn't have to round-trip through row encoding.
type Sequence struct {
	Schema    SequenceSchema
	Allocated int64
}

// Next returns the next value to assign and bumps the in-memory
// allocation pointer. It does not persist the new high-water mark;
// callers must write it back to st_sequences through a transaction
// like any other row update.
func (s *Sequence) Next() int64 {
	s.Allocated += s.Schema.Increment
	return s.Allocated
}

// CommittedState is the live, in-memory snapshot of a database: every
// table (system and user), keyed by id, plus the sequence allocators
// derived from st_sequences.
type CommittedState struct {
	Address      types.DatabaseAddress
	NextTxOffset uint64
	Tables       map[types.TableId]*table.Table
	BlobStore    blob.Store
	Sequences    map[types.SequenceId]*Sequence

	nextUserTableId types.TableId
	nextIndexId     types.IndexId
	nextConstraintId types.ConstraintId
	nextSequenceId  types.SequenceId
}

// NewCommittedState bootstraps a fresh, empty database: the system
// catalog tables are created and seeded with their own metadata rows,
// mirroring bootstrap_system_tables in the committed-state model this
// repository is ported from.
func NewCommittedState(addr types.DatabaseAddress) *CommittedState {
	cs := &CommittedState{
		Address:          addr,
		Tables:           make(map[types.TableId]*table.Table),
		BlobStore:        blob.NewInMemoryStore(),
		Sequences:        make(map[types.SequenceId]*Sequence),
		nextUserTableId:  FirstUserTableId,
		nextIndexId:      1,
		nextConstraintId: 1,
		nextSequenceId:   1,
	}
	cs.bootstrapSystemTables()
	return cs
}

func (cs *CommittedState) bootstrapSystemTables() {
	logger := log.WithComponent("catalog")
	for _, schema := range systemTables() {
		cs.Tables[schema.TableId] = table.New(schema.TableId, schema.TableName, schema.RowType, types.SquashedCommitted)
	}
	for _, schema := range systemTables() {
		cs.ignoreDuplicateInsertError(cs.insertIntoStTables(schema))
		for _, col := range schema.Columns {
			cs.ignoreDuplicateInsertError(cs.insertIntoStColumns(col))
		}
		logger.Debug().Str("table_name", schema.TableName).Uint32("table_id", uint32(schema.TableId)).Msg("bootstrapped system table")
	}
}

// ignoreDuplicateInsertError swallows set-semantic duplicate errors
// during bootstrap: re-running bootstrap against an already-seeded
// catalog (e.g. after a crash mid-bootstrap) must be idempotent.
func (cs *CommittedState) ignoreDuplicateInsertError(err error) {
	if err == nil {
		return
	}
	var dup *table.DuplicateError
	if isDuplicateError(err, &dup) {
		return
	}
	log.WithComponent("catalog").Warn().Err(err).Msg("bootstrap insert failed")
}

func isDuplicateError(err error, target **table.DuplicateError) bool {
	de, ok := err.(*table.DuplicateError)
	if ok {
		*target = de
	}
	return ok
}

func (cs *CommittedState) insertIntoStTables(schema TableSchema) error {
	row := sats.ProductOf(
		sats.U32Value(uint32(schema.TableId)),
		sats.StringValue(schema.TableName),
		sats.U8Value(0),
		sats.U8Value(0),
	)
	_, _, err := cs.Tables[StTablesId].Insert(cs.BlobStore, row)
	return err
}

func (cs *CommittedState) insertIntoStColumns(col ColumnSchema) error {
	row := sats.ProductOf(
		sats.U32Value(uint32(col.TableId)),
		sats.U16Value(uint16(col.ColPos)),
		sats.StringValue(col.ColName),
		sats.StringValue(col.ColType.Kind.String()),
	)
	_, _, err := cs.Tables[StColumnsId].Insert(cs.BlobStore, row)
	return err
}

// GetTable returns the table with the given id, if it exists.
func (cs *CommittedState) GetTable(id types.TableId) (*table.Table, bool) {
	t, ok := cs.Tables[id]
	return t, ok
}

// GetTableAndBlobStore returns both the table and the blob store rows
// in it may reference, mirroring the paired accessor the row codec
// needs for reading var-len columns.
func (cs *CommittedState) GetTableAndBlobStore(id types.TableId) (*table.Table, blob.Store, bool) {
	t, ok := cs.Tables[id]
	if !ok {
		return nil, nil, false
	}
	return t, cs.BlobStore, true
}

// RowType returns the BSATN row type a table's rows are encoded with.
// It satisfies persist.RowTypes, letting the commit log resolve
// decoding types from the catalog rather than carrying them itself.
func (cs *CommittedState) RowType(id types.TableId) (sats.AlgebraicType, bool) {
	t, ok := cs.Tables[id]
	if !ok {
		return sats.AlgebraicType{}, false
	}
	return t.RowType, true
}

// CreateTable registers a new user table and its schema rows in
// st_tables/st_columns, assigning it the next available user table id.
func (cs *CommittedState) CreateTable(name string, rowType sats.AlgebraicType, columns []ColumnSchema) (*TableSchema, error) {
	id := cs.nextUserTableId
	cs.nextUserTableId++

	schema := &TableSchema{TableId: id, TableName: name, RowType: rowType, Columns: columns}
	cs.Tables[id] = table.New(id, name, rowType, types.SquashedCommitted)

	if err := cs.insertIntoStTables(*schema); err != nil {
		delete(cs.Tables, id)
		return nil, fmt.Errorf("catalog: create table %q: %w", name, err)
	}
	for _, col := range columns {
		col.TableId = id
		if err := cs.insertIntoStColumns(col); err != nil {
			return nil, fmt.Errorf("catalog: create table %q column %q: %w", name, col.ColName, err)
		}
	}
	log.WithComponent("catalog").Info().Str("table_name", name).Uint32("table_id", uint32(id)).Msg("created table")
	return schema, nil
}

// ScheduledTableEntry is one row of st_scheduled: it names a
// user-declared table that holds pending schedules, the reducer its
// rows invoke, and which of its columns carry the schedule id and the
// ScheduleAt value.
type ScheduledTableEntry struct {
	TableId     types.TableId
	ReducerName string
	IdColumn    types.ColId
	AtColumn    types.ColId
}

// RegisterScheduledTable records tableId as a scheduled table in
// st_scheduled, so the scheduler discovers it at startup.
func (cs *CommittedState) RegisterScheduledTable(entry ScheduledTableEntry) error {
	row := sats.ProductOf(
		sats.U32Value(uint32(entry.TableId)),
		sats.StringValue(entry.ReducerName),
		sats.U16Value(uint16(entry.IdColumn)),
		sats.U16Value(uint16(entry.AtColumn)),
	)
	_, _, err := cs.Tables[StScheduledId].Insert(cs.BlobStore, row)
	return err
}

// ScheduledTables returns every registered scheduled-table mapping.
func (cs *CommittedState) ScheduledTables() []ScheduledTableEntry {
	var out []ScheduledTableEntry
	cs.Tables[StScheduledId].Scan(cs.BlobStore, func(_ types.RowPointer, row sats.AlgebraicValue) bool {
		out = append(out, ScheduledTableEntry{
			TableId:     types.TableId(row.Prod.Elems[0].U32),
			ReducerName: row.Prod.Elems[1].Str,
			IdColumn:    types.ColId(row.Prod.Elems[2].U16),
			AtColumn:    types.ColId(row.Prod.Elems[3].U16),
		})
		return true
	})
	return out
}

// CreateIndex builds a BTreeIndex over an existing table, backfills it
// from the table's current rows, and records it in st_indexes.
func (cs *CommittedState) CreateIndex(tableId types.TableId, name string, cols types.ColList, unique bool) (*btreeindex.BTreeIndex, error) {
	t, ok := cs.Tables[tableId]
	if !ok {
		return nil, fmt.Errorf("catalog: create index: no such table %d", tableId)
	}
	id := cs.nextIndexId
	cs.nextIndexId++

	idx := btreeindex.New(id, tableId, cols, unique, name)
	if err := t.InsertIndex(cs.BlobStore, idx); err != nil {
		return nil, fmt.Errorf("catalog: create index %q: %w", name, err)
	}

	row := sats.ProductOf(
		sats.U32Value(uint32(id)),
		sats.U32Value(uint32(tableId)),
		sats.StringValue(name),
		sats.StringValue(cols.String()),
		sats.BoolValue(unique),
	)
	if _, _, err := cs.Tables[StIndexesId].Insert(cs.BlobStore, row); err != nil {
		return nil, fmt.Errorf("catalog: record index %q: %w", name, err)
	}
	return idx, nil
}

// CreateSequence registers a new sequence feeding a column, recording
// it in st_sequences and returning its live allocator.
func (cs *CommittedState) CreateSequence(schema SequenceSchema) (*Sequence, error) {
	id := cs.nextSequenceId
	cs.nextSequenceId++
	schema.SequenceId = id

	seq := &Sequence{Schema: schema, Allocated: schema.Start - schema.Increment}
	cs.Sequences[id] = seq

	row := sats.ProductOf(
		sats.U32Value(uint32(id)),
		sats.StringValue(schema.Name),
		sats.U32Value(uint32(schema.TableId)),
		sats.U16Value(uint16(schema.ColPos)),
		sats.I64Value(schema.Increment),
		sats.I64Value(schema.MinValue),
		sats.I64Value(schema.MaxValue),
		sats.I64Value(schema.Start),
		sats.I64Value(seq.Allocated),
	)
	if _, _, err := cs.Tables[StSequencesId].Insert(cs.BlobStore, row); err != nil {
		delete(cs.Sequences, id)
		return nil, fmt.Errorf("catalog: create sequence %q: %w", schema.Name, err)
	}
	return seq, nil
}

// ReplayInsert re-applies a committed insert recovered from the commit
// log: the row is written back into its table with the same duplicate
// tolerance bootstrap uses, since replay must be idempotent across a
// log that was only partially flushed before a crash.
func (cs *CommittedState) ReplayInsert(tableId types.TableId, row sats.AlgebraicValue) error {
	t, ok := cs.Tables[tableId]
	if !ok {
		return fmt.Errorf("catalog: replay insert: no such table %d", tableId)
	}
	_, _, err := t.Insert(cs.BlobStore, row)
	var dup *table.DuplicateError
	if isDuplicateError(err, &dup) {
		return nil
	}
	return err
}

// ReplayDeleteByRel re-applies a committed delete recovered from the
// commit log by removing the equal row from the table, tolerating the
// row already being absent for the same idempotent-replay reason as
// ReplayInsert.
func (cs *CommittedState) ReplayDeleteByRel(tableId types.TableId, row sats.AlgebraicValue) error {
	t, ok := cs.Tables[tableId]
	if !ok {
		return fmt.Errorf("catalog: replay delete: no such table %d", tableId)
	}
	_, err := t.DeleteEqualRow(cs.BlobStore, row)
	return err
}

// BuildIndexes recreates in-memory BTreeIndexes for every row recorded
// in st_indexes, used after replaying a commit log into freshly
// bootstrapped, index-less tables.
func (cs *CommittedState) BuildIndexes() error {
	var errs []error
	cs.Tables[StIndexesId].Scan(cs.BlobStore, func(_ types.RowPointer, row sats.AlgebraicValue) bool {
		indexId := types.IndexId(row.Prod.Elems[0].U32)
		tableId := types.TableId(row.Prod.Elems[1].U32)
		name := row.Prod.Elems[2].Str
		cols, err := types.ParseColList(row.Prod.Elems[3].Str)
		if err != nil {
			errs = append(errs, fmt.Errorf("catalog: build indexes: index %q: %w", name, err))
			return true
		}
		unique := row.Prod.Elems[4].Bool

		t, ok := cs.Tables[tableId]
		if !ok {
			errs = append(errs, fmt.Errorf("catalog: build indexes: no such table %d", tableId))
			return true
		}
		idx := btreeindex.New(indexId, tableId, cols, unique, name)
		if err := t.InsertIndex(cs.BlobStore, idx); err != nil {
			errs = append(errs, err)
		}
		if indexId >= cs.nextIndexId {
			cs.nextIndexId = indexId + 1
		}
		return true
	})
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// BuildSequenceState recovers every sequence's live allocator from
// st_sequences, bumping the allocated high-water mark past whatever
// was last persisted so the sequence never reissues an id handed out
// before the crash that triggered recovery.
func (cs *CommittedState) BuildSequenceState() error {
	cs.Tables[StSequencesId].Scan(cs.BlobStore, func(_ types.RowPointer, row sats.AlgebraicValue) bool {
		schema := SequenceSchema{
			SequenceId: types.SequenceId(row.Prod.Elems[0].U32),
			Name:       row.Prod.Elems[1].Str,
			TableId:    types.TableId(row.Prod.Elems[2].U32),
			ColPos:     types.ColId(row.Prod.Elems[3].U16),
			Increment:  row.Prod.Elems[4].I64,
			MinValue:   row.Prod.Elems[5].I64,
			MaxValue:   row.Prod.Elems[6].I64,
			Start:      row.Prod.Elems[7].I64,
		}
		allocated := row.Prod.Elems[8].I64

		isSystem := schema.TableId < FirstUserTableId
		if isSystem && allocated < schema.Start+ReservedSequenceRange {
			allocated = schema.Start + ReservedSequenceRange
		}
		cs.Sequences[schema.SequenceId] = &Sequence{Schema: schema, Allocated: allocated}
		if schema.SequenceId >= cs.nextSequenceId {
			cs.nextSequenceId = schema.SequenceId + 1
		}
		return true
	})
	return nil
}

// TxConsumesOffset reports whether a committed transaction should
// advance NextTxOffset: empty read-only transactions are free, but
// any transaction that mutated rows, or that ran the identity
// connect/disconnect reducers, consumes an offset so the commit log
// stays a faithful record of observable state transitions.
func TxConsumesOffset(hasInserts, hasDeletes bool, reducerName string) bool {
	if hasInserts || hasDeletes {
		return true
	}
	return reducerName == "__identity_connected__" || reducerName == "__identity_disconnected__"
}
