// Package pointermap implements the RowHash -> RowPointer* dedup
// multimap a table uses to enforce set semantics. The common case (one
// pointer per hash) is stored inline with no extra allocation; a
// second pointer arriving for the same hash promotes the entry to a
// "collider slot" index into a side list of pointer lists. Emptied
// collider slots are recycled via a freelist so slot indices already
// referenced elsewhere stay stable until they are actually reused.
package pointermap
