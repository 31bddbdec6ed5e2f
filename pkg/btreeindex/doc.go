// Package btreeindex implements an ordered index over a projection of
// one or more row columns to RowPointers, in a unique or non-unique
// variant, with ascending range scans.
//
// Go has no ordered-map container in the standard library and no
// B-tree package is carried by any example this repository was
// grounded on, so the index is kept as a slice of (key, pointers)
// pairs held in sorted order, with insertion/lookup by binary search.
// This reproduces the ordered semantics the original BTreeMap-backed
// index provides without introducing a fabricated dependency.
package btreeindex
