package btreeindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
)

// ErrUniqueConstraintViolation is returned by InsertUnique when the
// key already has an entry.
var ErrUniqueConstraintViolation = errors.New("btreeindex: unique constraint violation")

// UniqueConstraintViolation carries the detail of a failed unique
// insert: which index, table, and columns were involved, and the
// offending value.
type UniqueConstraintViolation struct {
	IndexId types.IndexId
	TableId types.TableId
	Columns types.ColList
	Value   sats.AlgebraicValue
}

func (e *UniqueConstraintViolation) Error() string {
	return fmt.Sprintf("btreeindex: unique constraint violation on index %d (table %d, cols %s): value %v already present",
		e.IndexId, e.TableId, e.Columns, e.Value)
}

func (e *UniqueConstraintViolation) Unwrap() error { return ErrUniqueConstraintViolation }

type entry struct {
	key  sats.AlgebraicValue
	ptrs []types.RowPointer
}

// BTreeIndex is an ordered index over Columns projected out of a
// table's rows, mapping to RowPointers. Unique indexes hold at most
// one pointer per key; non-unique indexes may hold many.
type BTreeIndex struct {
	IndexId  types.IndexId
	TableId  types.TableId
	Columns  types.ColList
	IsUnique bool
	Name     string

	entries []entry // kept sorted ascending by key
}

// New constructs an empty BTreeIndex.
func New(indexId types.IndexId, tableId types.TableId, cols types.ColList, unique bool, name string) *BTreeIndex {
	return &BTreeIndex{IndexId: indexId, TableId: tableId, Columns: cols, IsUnique: unique, Name: name}
}

func (idx *BTreeIndex) search(key sats.AlgebraicValue) (int, bool) {
	i := sort.Search(len(idx.entries), func(i int) bool {
		return sats.Compare(idx.entries[i].key, key) >= 0
	})
	if i < len(idx.entries) && sats.Compare(idx.entries[i].key, key) == 0 {
		return i, true
	}
	return i, false
}

// InsertUnique adds (key, ptr) to a unique index, failing if key is
// already present.
func (idx *BTreeIndex) InsertUnique(key sats.AlgebraicValue, ptr types.RowPointer) error {
	i, found := idx.search(key)
	if found {
		return &UniqueConstraintViolation{IndexId: idx.IndexId, TableId: idx.TableId, Columns: idx.Columns, Value: key}
	}
	idx.insertAt(i, key, ptr)
	return nil
}

// InsertDuplicate adds (key, ptr) to a non-unique index, appending ptr
// to the existing pointer list if key is already present.
func (idx *BTreeIndex) InsertDuplicate(key sats.AlgebraicValue, ptr types.RowPointer) {
	i, found := idx.search(key)
	if found {
		idx.entries[i].ptrs = append(idx.entries[i].ptrs, ptr)
		return
	}
	idx.insertAt(i, key, ptr)
}

// Insert adds (key, ptr), dispatching to InsertUnique or
// InsertDuplicate according to idx.IsUnique.
func (idx *BTreeIndex) Insert(key sats.AlgebraicValue, ptr types.RowPointer) error {
	if idx.IsUnique {
		return idx.InsertUnique(key, ptr)
	}
	idx.InsertDuplicate(key, ptr)
	return nil
}

func (idx *BTreeIndex) insertAt(i int, key sats.AlgebraicValue, ptr types.RowPointer) {
	e := entry{key: key, ptrs: []types.RowPointer{ptr}}
	idx.entries = append(idx.entries, entry{})
	copy(idx.entries[i+1:], idx.entries[i:])
	idx.entries[i] = e
}

// Delete removes exactly one (key, ptr) pair, reporting success.
func (idx *BTreeIndex) Delete(key sats.AlgebraicValue, ptr types.RowPointer) bool {
	i, found := idx.search(key)
	if !found {
		return false
	}
	ptrs := idx.entries[i].ptrs
	j := -1
	for k, p := range ptrs {
		if p == ptr {
			j = k
			break
		}
	}
	if j == -1 {
		return false
	}
	ptrs = append(ptrs[:j], ptrs[j+1:]...)
	if len(ptrs) == 0 {
		idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
	} else {
		idx.entries[i].ptrs = ptrs
	}
	return true
}

// ContainsKey reports whether key has any entry.
func (idx *BTreeIndex) ContainsKey(key sats.AlgebraicValue) bool {
	_, found := idx.search(key)
	return found
}

// Get returns the pointers for key, or nil if absent.
func (idx *BTreeIndex) Get(key sats.AlgebraicValue) []types.RowPointer {
	i, found := idx.search(key)
	if !found {
		return nil
	}
	out := make([]types.RowPointer, len(idx.entries[i].ptrs))
	copy(out, idx.entries[i].ptrs)
	return out
}

// Len reports the number of distinct keys (not pointers) in the index.
func (idx *BTreeIndex) Len() int { return len(idx.entries) }

// Iter calls visit with every (key, RowPointer) pair in ascending key
// order; pointers within one key are visited in insertion order.
func (idx *BTreeIndex) Iter(visit func(sats.AlgebraicValue, types.RowPointer)) {
	for _, e := range idx.entries {
		for _, p := range e.ptrs {
			visit(e.key, p)
		}
	}
}

// Range describes an inclusive/exclusive scan bound. A nil Value
// means unbounded on that side.
type Range struct {
	Lo       *sats.AlgebraicValue
	LoExcl   bool
	Hi       *sats.AlgebraicValue
	HiExcl   bool
}

// Seek returns every RowPointer whose key falls within r, in
// ascending key order.
func (idx *BTreeIndex) Seek(r Range) []types.RowPointer {
	start := 0
	if r.Lo != nil {
		start = sort.Search(len(idx.entries), func(i int) bool {
			c := sats.Compare(idx.entries[i].key, *r.Lo)
			if r.LoExcl {
				return c > 0
			}
			return c >= 0
		})
	}
	var out []types.RowPointer
	for i := start; i < len(idx.entries); i++ {
		if r.Hi != nil {
			c := sats.Compare(idx.entries[i].key, *r.Hi)
			if r.HiExcl && c >= 0 {
				break
			}
			if !r.HiExcl && c > 0 {
				break
			}
		}
		out = append(out, idx.entries[i].ptrs...)
	}
	return out
}

// SeekEq is a convenience for Seek with both bounds equal to value.
func (idx *BTreeIndex) SeekEq(value sats.AlgebraicValue) []types.RowPointer {
	return idx.Seek(Range{Lo: &value, Hi: &value})
}
