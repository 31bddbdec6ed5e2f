package pointermap

import "github.com/cuemby/warren/pkg/types"

type entry struct {
	isCollider bool
	ptr        types.RowPointer // valid when !isCollider
	slot       int              // valid when isCollider
}

// PointerMap maps a RowHash to the set of RowPointers whose rows
// happen to hash to it. Insert and Remove are both idempotent: a
// repeated insert of the same (hash, ptr) pair, or a remove of a pair
// already absent, is a cheap no-op rather than an error (remove
// reports false so callers can tell the two cases apart).
type PointerMap struct {
	entries   map[types.RowHash]entry
	colliders [][]types.RowPointer
	emptied   []int
}

// New returns an empty PointerMap.
func New() *PointerMap {
	return &PointerMap{entries: make(map[types.RowHash]entry)}
}

// Insert records that a row hashing to hash lives at ptr. Inserting
// the same pair twice is a no-op.
func (m *PointerMap) Insert(hash types.RowHash, ptr types.RowPointer) {
	e, ok := m.entries[hash]
	if !ok {
		m.entries[hash] = entry{ptr: ptr}
		return
	}
	if !e.isCollider {
		if e.ptr == ptr {
			return
		}
		slot := m.newSlot([]types.RowPointer{e.ptr, ptr})
		m.entries[hash] = entry{isCollider: true, slot: slot}
		return
	}
	for _, p := range m.colliders[e.slot] {
		if p == ptr {
			return
		}
	}
	m.colliders[e.slot] = append(m.colliders[e.slot], ptr)
}

func (m *PointerMap) newSlot(initial []types.RowPointer) int {
	if n := len(m.emptied); n > 0 {
		idx := m.emptied[n-1]
		m.emptied = m.emptied[:n-1]
		m.colliders[idx] = initial
		return idx
	}
	m.colliders = append(m.colliders, initial)
	return len(m.colliders) - 1
}

// Remove deletes the (hash, ptr) pair, reporting whether it was
// present. When a collider slot shrinks to a single remaining pointer
// it is converted back to an inline entry and its slot is recycled.
func (m *PointerMap) Remove(hash types.RowHash, ptr types.RowPointer) bool {
	e, ok := m.entries[hash]
	if !ok {
		return false
	}
	if !e.isCollider {
		if e.ptr != ptr {
			return false
		}
		delete(m.entries, hash)
		return true
	}
	slot := m.colliders[e.slot]
	idx := -1
	for i, p := range slot {
		if p == ptr {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	slot = append(slot[:idx], slot[idx+1:]...)
	if len(slot) == 1 {
		m.entries[hash] = entry{ptr: slot[0]}
		m.colliders[e.slot] = nil
		m.emptied = append(m.emptied, e.slot)
	} else {
		m.colliders[e.slot] = slot
	}
	return true
}

// Contains reports whether (hash, ptr) is present.
func (m *PointerMap) Contains(hash types.RowHash, ptr types.RowPointer) bool {
	e, ok := m.entries[hash]
	if !ok {
		return false
	}
	if !e.isCollider {
		return e.ptr == ptr
	}
	for _, p := range m.colliders[e.slot] {
		if p == ptr {
			return true
		}
	}
	return false
}

// PointersFor returns every pointer recorded for hash, in unspecified order.
func (m *PointerMap) PointersFor(hash types.RowHash) []types.RowPointer {
	e, ok := m.entries[hash]
	if !ok {
		return nil
	}
	if !e.isCollider {
		return []types.RowPointer{e.ptr}
	}
	out := make([]types.RowPointer, len(m.colliders[e.slot]))
	copy(out, m.colliders[e.slot])
	return out
}

// Len reports the number of distinct hashes tracked (not the total
// number of pointers).
func (m *PointerMap) Len() int { return len(m.entries) }
