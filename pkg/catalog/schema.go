package catalog

import (
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
)

// ColumnSchema describes one column of a table.
type ColumnSchema struct {
	TableId types.TableId
	ColPos  types.ColId
	ColName string
	ColType sats.AlgebraicType
}

// IndexSchema describes one index over a table.
type IndexSchema struct {
	IndexId   types.IndexId
	TableId   types.TableId
	IndexName string
	Columns   types.ColList
	IsUnique  bool
}

// ConstraintSchema describes one unique/check constraint over a table.
type ConstraintSchema struct {
	ConstraintId   types.ConstraintId
	TableId        types.TableId
	ConstraintName string
	Columns        types.ColList
}

// SequenceSchema describes an auto-increment sequence feeding one column.
type SequenceSchema struct {
	SequenceId types.SequenceId
	TableId    types.TableId
	ColPos     types.ColId
	Name       string
	Increment  int64
	MinValue   int64
	MaxValue   int64
	Start      int64
	Allocated  int64
}

// TableSchema is the full description of a table: its id, name, row
// type, and the indexes/constraints/sequences that apply to it.
type TableSchema struct {
	TableId     types.TableId
	TableName   string
	RowType     sats.AlgebraicType
	Columns     []ColumnSchema
	Indexes     []IndexSchema
	Constraints []ConstraintSchema
	Sequences   []SequenceSchema
	IsSystem    bool
}

// System table ids, reserved below the range available to user tables.
const (
	StTablesId      types.TableId = 0
	StColumnsId     types.TableId = 1
	StIndexesId     types.TableId = 2
	StConstraintsId types.TableId = 3
	StSequencesId   types.TableId = 4
	StModuleId      types.TableId = 5
	StClientsId     types.TableId = 6
	StVarId         types.TableId = 7
	StScheduledId   types.TableId = 8

	// FirstUserTableId is the smallest TableId CreateTable may assign.
	FirstUserTableId types.TableId = 4096

	// ReservedSequenceRange is how many ids each system sequence
	// pre-allocates for itself, mirroring the original implementation's
	// bootstrap reservation so system- and user-assigned ids never collide.
	ReservedSequenceRange int64 = 4096
)

func stTablesRowType() sats.AlgebraicType {
	return sats.Product(
		sats.Field("table_id", sats.U32()),
		sats.Field("table_name", sats.String()),
		sats.Field("table_type", sats.U8()),
		sats.Field("table_access", sats.U8()),
	)
}

func stColumnsRowType() sats.AlgebraicType {
	return sats.Product(
		sats.Field("table_id", sats.U32()),
		sats.Field("col_pos", sats.U16()),
		sats.Field("col_name", sats.String()),
		// The column's declared type, stringified. Storing a full
		// AlgebraicType here would require a self-describing type
		// catalog (a type for types) that bootstraps before any types
		// exist; this repository sidesteps that chicken-and-egg problem
		// by keeping only a human-readable record of the declared kind.
		sats.Field("col_type", sats.String()),
	)
}

func stIndexesRowType() sats.AlgebraicType {
	return sats.Product(
		sats.Field("index_id", sats.U32()),
		sats.Field("table_id", sats.U32()),
		sats.Field("index_name", sats.String()),
		sats.Field("columns", sats.String()),
		sats.Field("is_unique", sats.Bool()),
	)
}

func stConstraintsRowType() sats.AlgebraicType {
	return sats.Product(
		sats.Field("constraint_id", sats.U32()),
		sats.Field("table_id", sats.U32()),
		sats.Field("constraint_name", sats.String()),
		sats.Field("columns", sats.String()),
	)
}

func stSequencesRowType() sats.AlgebraicType {
	return sats.Product(
		sats.Field("sequence_id", sats.U32()),
		sats.Field("sequence_name", sats.String()),
		sats.Field("table_id", sats.U32()),
		sats.Field("col_pos", sats.U16()),
		sats.Field("increment", sats.I64()),
		sats.Field("min_value", sats.I64()),
		sats.Field("max_value", sats.I64()),
		sats.Field("start", sats.I64()),
		sats.Field("allocated", sats.I64()),
	)
}

func stModuleRowType() sats.AlgebraicType {
	return sats.Product(sats.Field("program_hash", sats.String()))
}

func stClientsRowType() sats.AlgebraicType {
	return sats.Product(
		sats.Field("identity", sats.String()),
		sats.Field("address", sats.String()),
	)
}

func stVarRowType() sats.AlgebraicType {
	return sats.Product(sats.Field("name", sats.String()), sats.Field("value", sats.String()))
}

// stScheduledRowType describes st_scheduled, which has one row per
// *scheduled table* (a mapping), not one row per pending schedule —
// the pending schedules themselves are ordinary rows of the
// user-declared table named by table_id.
func stScheduledRowType() sats.AlgebraicType {
	return sats.Product(
		sats.Field("table_id", sats.U32()),
		sats.Field("reducer_name", sats.String()),
		sats.Field("id_column", sats.U16()),
		sats.Field("at_column", sats.U16()),
	)
}

// systemTables returns the hardcoded schemas of every system table, in
// bootstrap order.
func systemTables() []TableSchema {
	return []TableSchema{
		{TableId: StTablesId, TableName: "st_tables", RowType: stTablesRowType(), IsSystem: true},
		{TableId: StColumnsId, TableName: "st_columns", RowType: stColumnsRowType(), IsSystem: true},
		{TableId: StIndexesId, TableName: "st_indexes", RowType: stIndexesRowType(), IsSystem: true},
		{TableId: StConstraintsId, TableName: "st_constraints", RowType: stConstraintsRowType(), IsSystem: true},
		{TableId: StSequencesId, TableName: "st_sequences", RowType: stSequencesRowType(), IsSystem: true},
		{TableId: StModuleId, TableName: "st_module", RowType: stModuleRowType(), IsSystem: true},
		{TableId: StClientsId, TableName: "st_clients", RowType: stClientsRowType(), IsSystem: true},
		{TableId: StVarId, TableName: "st_var", RowType: stVarRowType(), IsSystem: true},
		{TableId: StScheduledId, TableName: "st_scheduled", RowType: stScheduledRowType(), IsSystem: true},
	}
}
