package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ColList is an ordered, non-empty list of ColIds, used as the key
// projection for indexes and constraints that cover more than one
// column. The original Rust implementation bit-packs small lists into
// a single machine word; this port keeps the simpler ordered-slice
// representation, since the optimization is orthogonal to the
// semantics this repository needs to reproduce.
type ColList []ColId

// NewColList builds a ColList from one or more column ids, in the
// given order.
func NewColList(cols ...ColId) ColList {
	out := make(ColList, len(cols))
	copy(out, cols)
	return out
}

// Head returns the first column id in the list.
func (c ColList) Head() ColId {
	return c[0]
}

// IsSingleton reports whether the list names exactly one column.
func (c ColList) IsSingleton() bool {
	return len(c) == 1
}

// Contains reports whether col appears anywhere in the list.
func (c ColList) Contains(col ColId) bool {
	for _, x := range c {
		if x == col {
			return true
		}
	}
	return false
}

// Equal reports whether c and other name the same columns in the same order.
func (c ColList) Equal(other ColList) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Key returns a comparable string key suitable for use as a map key,
// since Go slices cannot be map keys directly.
func (c ColList) Key() string {
	var b strings.Builder
	for i, col := range c {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", col)
	}
	return b.String()
}

func (c ColList) String() string {
	return "[" + c.Key() + "]"
}

// ParseColList parses the "[1,2,3]" form produced by String() back
// into a ColList, for recovering a column list from a system table
// row (e.g. st_indexes) after a commit-log replay.
func ParseColList(s string) (ColList, error) {
	s = strings.TrimPrefix(strings.TrimSuffix(s, "]"), "[")
	if s == "" {
		return nil, fmt.Errorf("types: empty column list")
	}
	parts := strings.Split(s, ",")
	out := make(ColList, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("types: invalid column list %q: %w", s, err)
		}
		out[i] = ColId(n)
	}
	return out, nil
}

// Sorted returns a copy of c sorted ascending.
func (c ColList) Sorted() ColList {
	out := make(ColList, len(c))
	copy(out, c)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
