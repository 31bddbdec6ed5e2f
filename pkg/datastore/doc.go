// Package datastore implements the transactional layer over a
// catalog.CommittedState: a scratchpad TxState for in-flight reads and
// writes, and Begin/Commit/Rollback that merge a finished transaction
// into committed state or discard it untouched.
//
// The datastore is guarded by a single process-wide lock. There is no
// MVCC: a writer excludes all other writers and readers for the
// duration of its transaction, and conflicts surface as ordinary
// sequential serialization rather than a retryable conflict error.
package datastore
