// Package table implements a single table: rows stored across one or
// more pages, a pointer map enforcing set semantics (no two live rows
// may be byte-for-byte equal), and zero or more BTreeIndexes kept in
// sync with every insert and delete.
//
// A Table does not know whether it holds committed rows or a
// transaction's scratchpad changes; that distinction belongs to its
// SquashedOffset field and is interpreted by the datastore layer.
package table
