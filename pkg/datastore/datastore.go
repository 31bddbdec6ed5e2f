package datastore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cuemby/warren/pkg/blob"
	"github.com/cuemby/warren/pkg/catalog"
	"github.com/cuemby/warren/pkg/log"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/table"
	"github.com/cuemby/warren/pkg/types"
)

// ErrNoSuchTable is returned when an operation names a table id the
// datastore has no schema for.
var ErrNoSuchTable = errors.New("datastore: no such table")

// ErrTxClosed is returned by any operation against a Tx that has
// already been committed or rolled back.
var ErrTxClosed = errors.New("datastore: transaction already closed")

// reducer names that consume a tx offset even on an otherwise empty
// transaction, matching the connection lifecycle hooks the host
// invokes outside of any user-visible row change.
const (
	ReducerClientConnected    = "__identity_connected__"
	ReducerClientDisconnected = "__identity_disconnected__"
)

// TxState is the scratchpad for one in-flight transaction: newly
// inserted rows live in per-table shadow tables sharing the
// committed schema, and pending deletes of committed rows are tracked
// by pointer until commit applies them.
type TxState struct {
	insertTables map[types.TableId]*table.Table
	deleteTables map[types.TableId]map[types.RowPointer]struct{}
}

func newTxState() *TxState {
	return &TxState{
		insertTables: make(map[types.TableId]*table.Table),
		deleteTables: make(map[types.TableId]map[types.RowPointer]struct{}),
	}
}

// TxData is the observable delta of a committed transaction: the rows
// inserted and deleted, per table, plus the tx offset assigned to it
// if it consumed one.
type TxData struct {
	Inserts  map[types.TableId][]sats.AlgebraicValue
	Deletes  map[types.TableId][]sats.AlgebraicValue
	TxOffset *uint64
}

func newTxData() *TxData {
	return &TxData{
		Inserts: make(map[types.TableId][]sats.AlgebraicValue),
		Deletes: make(map[types.TableId][]sats.AlgebraicValue),
	}
}

// Datastore guards a CommittedState with a single process-wide lock
// and drives transactions over it.
type Datastore struct {
	mu        sync.Mutex
	committed *catalog.CommittedState
}

// New wraps an already-bootstrapped committed state in a datastore.
func New(committed *catalog.CommittedState) *Datastore {
	return &Datastore{committed: committed}
}

// Committed returns the underlying committed state, for callers (such
// as the scheduler) that need read-only access outside of a tx.
func (ds *Datastore) Committed() *catalog.CommittedState {
	return ds.committed
}

// Tx is a single in-flight transaction: a lock hold, a scratchpad, and
// the reducer name it is running on behalf of (used only to decide tx
// offset consumption for otherwise-empty commits). Var-len columns
// the tx inserts are written to blobStore, a store private to this
// tx, so a large value never touches committed state's blob store
// until Commit re-encodes it there — an aborted tx's blobs simply go
// out of scope with the Tx instead of leaking a permanently-refcounted
// orphan into committed state.
type Tx struct {
	ds          *Datastore
	state       *TxState
	blobStore   blob.Store
	reducerName string
	closed      bool
}

// BeginTx acquires the datastore's lock and returns a fresh
// transaction scratchpad. reducerName is used only by Commit to decide
// whether a tx that inserted and deleted nothing should still consume
// a tx offset (the connection lifecycle reducers always do).
func (ds *Datastore) BeginTx(reducerName string) *Tx {
	ds.mu.Lock()
	return &Tx{ds: ds, state: newTxState(), blobStore: blob.NewInMemoryStore(), reducerName: reducerName}
}

func (tx *Tx) insertTableFor(tableId types.TableId) (*table.Table, error) {
	if t, ok := tx.state.insertTables[tableId]; ok {
		return t, nil
	}
	committed, ok := tx.ds.committed.GetTable(tableId)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchTable, tableId)
	}
	shadow := table.FromTemplate(committed, types.SquashedTx)
	tx.state.insertTables[tableId] = shadow
	return shadow, nil
}

// Insert writes row into the tx-local shadow table for tableId. The
// row is not visible to other transactions until Commit. Conflicts
// are checked against both this tx's own prior inserts and the rows
// already committed for tableId, so a unique-index or set-semantic
// violation against either surfaces here, synchronously, rather than
// only being discovered when Commit merges the shadow table in.
func (tx *Tx) Insert(tableId types.TableId, row sats.AlgebraicValue) (types.RowPointer, error) {
	if tx.closed {
		return types.RowPointer{}, ErrTxClosed
	}
	shadow, err := tx.insertTableFor(tableId)
	if err != nil {
		return types.RowPointer{}, err
	}
	committed, ok := tx.ds.committed.GetTable(tableId)
	if !ok {
		return types.RowPointer{}, fmt.Errorf("%w: %d", ErrNoSuchTable, tableId)
	}
	_, ptr, err := shadow.InsertChecked(tx.blobStore, committed, row)
	return ptr, err
}

// Delete removes the row at ptr, whether it lives in committed state
// or in this tx's own shadow table.
func (tx *Tx) Delete(tableId types.TableId, ptr types.RowPointer) error {
	if tx.closed {
		return ErrTxClosed
	}
	if ptr.SquashedOffset == types.SquashedTx {
		shadow, ok := tx.state.insertTables[tableId]
		if !ok {
			return fmt.Errorf("%w: %d", ErrNoSuchTable, tableId)
		}
		if _, ok := shadow.Delete(tx.blobStore, ptr); !ok {
			return fmt.Errorf("datastore: delete: no row at %+v", ptr)
		}
		return nil
	}
	if _, ok := tx.ds.committed.GetTable(tableId); !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchTable, tableId)
	}
	deleted, ok := tx.state.deleteTables[tableId]
	if !ok {
		deleted = make(map[types.RowPointer]struct{})
		tx.state.deleteTables[tableId] = deleted
	}
	deleted[ptr] = struct{}{}
	return nil
}

// Get reads the row at ptr, consulting tx state before falling back to
// committed state. A committed pointer pending delete in this tx is
// reported as absent.
func (tx *Tx) Get(tableId types.TableId, ptr types.RowPointer) (sats.AlgebraicValue, bool) {
	if ptr.SquashedOffset == types.SquashedTx {
		shadow, ok := tx.state.insertTables[tableId]
		if !ok {
			return sats.AlgebraicValue{}, false
		}
		return shadow.Get(tx.blobStore, ptr)
	}
	if deleted, ok := tx.state.deleteTables[tableId]; ok {
		if _, pending := deleted[ptr]; pending {
			return sats.AlgebraicValue{}, false
		}
	}
	committed, ok := tx.ds.committed.GetTable(tableId)
	if !ok {
		return sats.AlgebraicValue{}, false
	}
	return committed.Get(tx.ds.committed.BlobStore, ptr)
}

// Scan visits every live row of tableId as seen by this transaction:
// committed rows not pending delete, followed by this tx's own
// inserted rows.
func (tx *Tx) Scan(tableId types.TableId, visit func(types.RowPointer, sats.AlgebraicValue) bool) error {
	store := tx.ds.committed.BlobStore
	committed, ok := tx.ds.committed.GetTable(tableId)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchTable, tableId)
	}
	deleted := tx.state.deleteTables[tableId]

	keepGoing := true
	committed.Scan(store, func(ptr types.RowPointer, row sats.AlgebraicValue) bool {
		if !keepGoing {
			return false
		}
		if _, pending := deleted[ptr]; pending {
			return true
		}
		keepGoing = visit(ptr, row)
		return keepGoing
	})
	if !keepGoing {
		return nil
	}
	if shadow, ok := tx.state.insertTables[tableId]; ok {
		shadow.Scan(tx.blobStore, func(ptr types.RowPointer, row sats.AlgebraicValue) bool {
			if !keepGoing {
				return false
			}
			keepGoing = visit(ptr, row)
			return keepGoing
		})
	}
	return nil
}

// Commit applies deletes then inserts into committed state, assigns a
// tx offset if the transaction consumed one, and releases the
// datastore's lock.
func (ds *Datastore) Commit(tx *Tx) (*TxData, error) {
	defer ds.mu.Unlock()
	if tx.closed {
		return nil, ErrTxClosed
	}
	tx.closed = true
	logger := log.WithComponent("datastore")

	data := newTxData()
	store := ds.committed.BlobStore

	for tableId, ptrs := range tx.state.deleteTables {
		committed, ok := ds.committed.GetTable(tableId)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrNoSuchTable, tableId)
		}
		for ptr := range ptrs {
			row, ok := committed.Delete(store, ptr)
			if !ok {
				continue
			}
			data.Deletes[tableId] = append(data.Deletes[tableId], row)
		}
	}

	for tableId, shadow := range tx.state.insertTables {
		committed, ok := ds.committed.GetTable(tableId)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrNoSuchTable, tableId)
		}
		var mergeErr error
		shadow.Scan(tx.blobStore, func(_ types.RowPointer, row sats.AlgebraicValue) bool {
			if _, _, err := committed.Insert(store, row); err != nil {
				mergeErr = fmt.Errorf("datastore: commit: merging table %d: %w", tableId, err)
				return false
			}
			data.Inserts[tableId] = append(data.Inserts[tableId], row)
			return true
		})
		if mergeErr != nil {
			return nil, mergeErr
		}
	}

	hasInserts := len(data.Inserts) > 0
	hasDeletes := len(data.Deletes) > 0
	if catalog.TxConsumesOffset(hasInserts, hasDeletes, tx.reducerName) {
		offset := ds.committed.NextTxOffset
		ds.committed.NextTxOffset++
		data.TxOffset = &offset
		logger.Debug().Uint64("tx_offset", offset).Msg("committed transaction")
	}

	return data, nil
}

// Rollback discards the tx scratchpad, leaving committed state
// untouched, and releases the datastore's lock.
func (ds *Datastore) Rollback(tx *Tx) {
	defer ds.mu.Unlock()
	tx.closed = true
}
