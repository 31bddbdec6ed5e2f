package table

import (
	"errors"
	"fmt"

	"github.com/cuemby/warren/pkg/blob"
	"github.com/cuemby/warren/pkg/btreeindex"
	"github.com/cuemby/warren/pkg/page"
	"github.com/cuemby/warren/pkg/pointermap"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
)

// ErrWriteRow is returned when a row could not be written into any
// page, including a freshly allocated one (implying the row itself,
// or one of its var-len columns, is too large for a page).
var ErrWriteRow = errors.New("table: failed to write row to any page")

// DuplicateError is returned by Insert when row is already present,
// under BFLATN/set-semantic equality. Existing identifies the row
// already in the table.
type DuplicateError struct {
	Existing types.RowPointer
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("table: duplicate insertion of row %s violates set semantics", e.Existing)
}

// Table stores rows of exactly one schema across one or more pages,
// deduplicating by content and maintaining indexes.
type Table struct {
	TableId types.TableId
	Name    string
	RowType sats.AlgebraicType

	rowLayout      page.RowTypeLayout
	pages          []*page.Page
	pointerMap     *pointermap.PointerMap
	indexes        map[string]*btreeindex.BTreeIndex
	squashedOffset types.SquashedOffset
}

// New constructs an empty table for rows of rowType (a Product type).
func New(tableId types.TableId, name string, rowType sats.AlgebraicType, squashedOffset types.SquashedOffset) *Table {
	return &Table{
		TableId:        tableId,
		Name:           name,
		RowType:        rowType,
		rowLayout:      page.ComputeRowLayout(rowType),
		pointerMap:     pointermap.New(),
		indexes:        make(map[string]*btreeindex.BTreeIndex),
		squashedOffset: squashedOffset,
	}
}

// FromTemplate constructs an empty table with the same schema and
// index set as template, but no rows, for use as a transaction
// scratchpad sharing template's committed schema.
func FromTemplate(template *Table, squashedOffset types.SquashedOffset) *Table {
	t := New(template.TableId, template.Name, template.RowType, squashedOffset)
	for key, idx := range template.indexes {
		t.indexes[key] = btreeindex.New(idx.IndexId, idx.TableId, idx.Columns, idx.IsUnique, idx.Name)
		_ = key
	}
	return t
}

func (t *Table) rowSize() uint16 { return t.rowLayout.Size }

func (t *Table) pageFor(idx types.PageIndex) *page.Page { return t.pages[int(idx)] }

// insertInternalAllowDuplicate writes row's bytes into the first page
// with room, allocating a new page if none has space, without
// checking set semantics or indexes.
func (t *Table) insertInternalAllowDuplicate(store blob.Store, row sats.AlgebraicValue) (types.RowPointer, error) {
	fixed, varObjs, err := page.EncodeRow(row, t.RowType)
	if err != nil {
		return types.RowPointer{}, err
	}
	for i, p := range t.pages {
		off, err := p.InsertRow(fixed, varObjs, t.RowType, store)
		if err == nil {
			return types.RowPointer{SquashedOffset: t.squashedOffset, PageIndex: types.PageIndex(i), PageOffset: off}, nil
		}
		if !errors.Is(err, page.ErrPageFull) {
			return types.RowPointer{}, err
		}
	}
	np := page.NewPage(t.rowSize())
	off, err := np.InsertRow(fixed, varObjs, t.RowType, store)
	if err != nil {
		return types.RowPointer{}, fmt.Errorf("%w: %v", ErrWriteRow, err)
	}
	t.pages = append(t.pages, np)
	return types.RowPointer{SquashedOffset: t.squashedOffset, PageIndex: types.PageIndex(len(t.pages) - 1), PageOffset: off}, nil
}

func (t *Table) rowHashFor(ptr types.RowPointer) types.RowHash {
	return page.HashRowInPage(t.pageFor(ptr.PageIndex), ptr.PageOffset, t.RowType)
}

// ContainsSameRow reports whether committed already holds a row equal
// (under BFLATN equality) to the row at txPtr in tx, given that row's
// precomputed hash. Both tables must share the same row layout.
func ContainsSameRow(committed, tx *Table, txPtr types.RowPointer, hash types.RowHash) (types.RowPointer, bool) {
	for _, candidate := range committed.pointerMap.PointersFor(hash) {
		committedPage := committed.pageFor(candidate.PageIndex)
		txPage := tx.pageFor(txPtr.PageIndex)
		if page.EqRowInPage(committedPage, candidate.PageOffset, txPage, txPtr.PageOffset, committed.RowType) {
			return candidate, true
		}
	}
	return types.RowPointer{}, false
}

func (t *Table) buildUniqueViolation(idx *btreeindex.BTreeIndex, value sats.AlgebraicValue) error {
	return &btreeindex.UniqueConstraintViolation{IndexId: idx.IndexId, TableId: t.TableId, Columns: idx.Columns, Value: value}
}

// Insert adds row to the table, enforcing unique-index constraints and
// set semantics (no two live rows may be BFLATN-equal). On success it
// returns the row's hash and pointer. If row already exists, returns a
// *DuplicateError identifying the existing row and does not insert.
func (t *Table) Insert(store blob.Store, row sats.AlgebraicValue) (types.RowHash, types.RowPointer, error) {
	return t.InsertChecked(store, nil, row)
}

// InsertChecked adds row to t the same way Insert does, but also checks
// peer's unique indexes and rows for a conflict before committing the
// insert. A transaction's shadow table passes the already-committed
// table as peer so a unique-index or set-semantic violation against an
// already-committed row is caught here, synchronously, instead of only
// being discovered when the shadow table is later merged into
// committed state.
func (t *Table) InsertChecked(store blob.Store, peer *Table, row sats.AlgebraicValue) (types.RowHash, types.RowPointer, error) {
	for _, idx := range t.indexes {
		if !idx.IsUnique {
			continue
		}
		value := projectColumns(row, idx.Columns)
		if idx.ContainsKey(value) {
			return 0, types.RowPointer{}, t.buildUniqueViolation(idx, value)
		}
	}
	if peer != nil {
		for _, idx := range peer.indexes {
			if !idx.IsUnique {
				continue
			}
			value := projectColumns(row, idx.Columns)
			if idx.ContainsKey(value) {
				return 0, types.RowPointer{}, peer.buildUniqueViolation(idx, value)
			}
		}
	}

	ptr, err := t.insertInternalAllowDuplicate(store, row)
	if err != nil {
		return 0, types.RowPointer{}, err
	}

	hash := t.rowHashFor(ptr)
	if existing, found := ContainsSameRow(t, t, ptr, hash); found {
		_ = t.pageFor(ptr.PageIndex).DeleteRow(ptr.PageOffset, t.RowType, store)
		return 0, types.RowPointer{}, &DuplicateError{Existing: existing}
	}
	if peer != nil {
		if existing, found := ContainsSameRow(peer, t, ptr, hash); found {
			_ = t.pageFor(ptr.PageIndex).DeleteRow(ptr.PageOffset, t.RowType, store)
			return 0, types.RowPointer{}, &DuplicateError{Existing: existing}
		}
	}

	t.pointerMap.Insert(hash, ptr)
	for _, idx := range t.indexes {
		value := projectColumns(row, idx.Columns)
		_ = idx.Insert(value, ptr)
	}
	return hash, ptr, nil
}

// Get reconstructs the row at ptr, or reports false if it is not live.
func (t *Table) Get(store blob.Store, ptr types.RowPointer) (sats.AlgebraicValue, bool) {
	if int(ptr.PageIndex) >= len(t.pages) {
		return sats.AlgebraicValue{}, false
	}
	p := t.pageFor(ptr.PageIndex)
	if !p.IsLive(ptr.PageOffset) {
		return sats.AlgebraicValue{}, false
	}
	fixed := p.GetRowData(ptr.PageOffset)
	v, err := page.DecodeRow(fixed, t.RowType, func(relOff int) ([]byte, error) {
		return p.ReadVarLenObject(ptr.PageOffset, relOff, store)
	})
	if err != nil {
		return sats.AlgebraicValue{}, false
	}
	return v, true
}

// Delete removes the row at ptr, returning its value. Reports false if
// ptr did not refer to a live row.
func (t *Table) Delete(store blob.Store, ptr types.RowPointer) (sats.AlgebraicValue, bool) {
	row, ok := t.Get(store, ptr)
	if !ok {
		return sats.AlgebraicValue{}, false
	}

	hash := t.rowHashFor(ptr)
	t.pointerMap.Remove(hash, ptr)

	_ = t.pageFor(ptr.PageIndex).DeleteRow(ptr.PageOffset, t.RowType, store)

	for _, idx := range t.indexes {
		value := projectColumns(row, idx.Columns)
		idx.Delete(value, ptr)
	}
	return row, true
}

// DeleteEqualRow deletes the row equal (under BFLATN equality) to row,
// if one exists, returning the pointer it used to occupy.
func (t *Table) DeleteEqualRow(store blob.Store, row sats.AlgebraicValue) (*types.RowPointer, error) {
	ptr, err := t.insertInternalAllowDuplicate(store, row)
	if err != nil {
		return nil, err
	}
	hash := t.rowHashFor(ptr)
	existing, found := ContainsSameRow(t, t, ptr, hash)

	if found {
		if _, ok := t.Delete(store, existing); !ok {
			return nil, fmt.Errorf("table: found row by ContainsSameRow but failed to delete it")
		}
	}
	_ = t.pageFor(ptr.PageIndex).DeleteRow(ptr.PageOffset, t.RowType, store)

	if !found {
		return nil, nil
	}
	return &existing, nil
}

// InsertIndex registers idx and backfills it from every row currently
// in the table.
func (t *Table) InsertIndex(store blob.Store, idx *btreeindex.BTreeIndex) error {
	var err error
	t.Scan(store, func(ptr types.RowPointer, row sats.AlgebraicValue) bool {
		value := projectColumns(row, idx.Columns)
		if ierr := idx.Insert(value, ptr); ierr != nil {
			err = ierr
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	t.indexes[idx.Columns.Key()] = idx
	return nil
}

// Index returns the index registered over cols, if any.
func (t *Table) Index(cols types.ColList) (*btreeindex.BTreeIndex, bool) {
	idx, ok := t.indexes[cols.Key()]
	return idx, ok
}

// Scan visits every live row in the table, page by page; the order of
// rows within a page is unspecified. Stops early if visit returns false.
func (t *Table) Scan(store blob.Store, visit func(types.RowPointer, sats.AlgebraicValue) bool) {
	for i, p := range t.pages {
		var stop bool
		p.IterLive(func(off types.PageOffset) {
			if stop {
				return
			}
			ptr := types.RowPointer{SquashedOffset: t.squashedOffset, PageIndex: types.PageIndex(i), PageOffset: off}
			row, ok := t.Get(store, ptr)
			if !ok {
				return
			}
			if !visit(ptr, row) {
				stop = true
			}
		})
		if stop {
			return
		}
	}
}

// IndexSeek returns every RowPointer in the index over cols whose key
// falls in r. Reports false if no index exists over cols.
func (t *Table) IndexSeek(cols types.ColList, r btreeindex.Range) ([]types.RowPointer, bool) {
	idx, ok := t.indexes[cols.Key()]
	if !ok {
		return nil, false
	}
	return idx.Seek(r), true
}

// IndexCount reports how many btree indexes are registered on t.
func (t *Table) IndexCount() int {
	return len(t.indexes)
}

// NumRows reports the total number of live rows across all pages.
func (t *Table) NumRows() int {
	n := 0
	for _, p := range t.pages {
		n += p.NumRows()
	}
	return n
}

func projectColumns(row sats.AlgebraicValue, cols types.ColList) sats.AlgebraicValue {
	if cols.IsSingleton() {
		return row.Prod.Elems[cols.Head()]
	}
	elems := make([]sats.AlgebraicValue, len(cols))
	for i, c := range cols {
		elems[i] = row.Prod.Elems[c]
	}
	return sats.ProductOf(elems...)
}
