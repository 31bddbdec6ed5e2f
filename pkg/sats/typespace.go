package sats

// Typespace holds registered AlgebraicTypes addressable by TypeId, with
// structural deduplication: registering a type that is structurally
// equal to one already present returns the existing TypeId instead of
// allocating a new one. This lets recursive or widely-shared types
// (declared independently by different host-language bindings) map
// onto a single canonical type.
type Typespace struct {
	types []AlgebraicType
}

// NewTypespace returns an empty Typespace.
func NewTypespace() *Typespace {
	return &Typespace{}
}

// Add registers t, returning its TypeId. If a structurally identical
// type was already registered, its existing TypeId is returned and no
// new entry is created.
func (ts *Typespace) Add(t AlgebraicType) TypeId {
	for i, existing := range ts.types {
		if existing.Equal(t) {
			return TypeId(i)
		}
	}
	ts.types = append(ts.types, t)
	return TypeId(len(ts.types) - 1)
}

// Resolve returns the type registered under id, following Ref chains
// at most once (Refs into a typespace name another registered type
// directly; the typespace does not support Refs to Refs).
func (ts *Typespace) Resolve(id TypeId) (AlgebraicType, bool) {
	if int(id) >= len(ts.types) {
		return AlgebraicType{}, false
	}
	return ts.types[id], true
}

// ResolveType follows t if it is a Ref, otherwise returns t unchanged.
func (ts *Typespace) ResolveType(t AlgebraicType) AlgebraicType {
	if t.Kind != KindRef {
		return t
	}
	resolved, ok := ts.Resolve(t.Ref)
	if !ok {
		return t
	}
	return resolved
}

// Len reports how many distinct types are registered.
func (ts *Typespace) Len() int { return len(ts.types) }
