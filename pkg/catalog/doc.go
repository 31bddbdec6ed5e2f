// Package catalog holds CommittedState: the live, in-memory snapshot
// of a database — its tables, their schemas, and the system catalog
// tables (st_tables, st_columns, st_indexes, st_constraints,
// st_sequences) that describe them.
//
// CommittedState is built once at startup, either by bootstrapping a
// fresh system catalog or by replaying a commit log, and is then
// mutated by datastore's Commit as transactions commit and by its own
// CreateTable, CreateIndex, CreateSequence and RegisterScheduledTable
// methods, which apply immediately.
package catalog
