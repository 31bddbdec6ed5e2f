package page

import (
	"github.com/cuemby/warren/pkg/sats"
)

// Layout describes the fixed-region footprint of an AlgebraicType:
// its size in bytes and its required alignment.
type Layout struct {
	Size  uint16
	Align uint16
}

func primitiveLayout(k sats.Kind) Layout {
	switch k {
	case sats.KindBool, sats.KindI8, sats.KindU8:
		return Layout{1, 1}
	case sats.KindI16, sats.KindU16:
		return Layout{2, 2}
	case sats.KindI32, sats.KindU32, sats.KindF32:
		return Layout{4, 4}
	case sats.KindI64, sats.KindU64, sats.KindF64:
		return Layout{8, 8}
	case sats.KindI128, sats.KindU128:
		return Layout{16, 16}
	case sats.KindI256, sats.KindU256:
		return Layout{32, 32}
	default:
		panic("page: not a primitive kind")
	}
}

func align(offset, a uint16) uint16 {
	if a == 0 {
		return offset
	}
	rem := offset % a
	if rem == 0 {
		return offset
	}
	return offset + (a - rem)
}

// ComputeLayout computes the in-page fixed-region layout of t,
// following the rules in BFLATN: primitive alignment equals size;
// String/Array occupy a 4-byte, 2-byte-aligned VarLenRef; Product
// elements are packed in order with padding to each element's
// alignment, the whole padded to the max element alignment (1 if
// empty); Sum stores its payload at offset 0 sized to the largest
// variant, followed by a 1-byte tag, the whole padded to the max
// variant alignment.
func ComputeLayout(t sats.AlgebraicType) Layout {
	switch t.Kind {
	case sats.KindString, sats.KindArray:
		return Layout{Size: 4, Align: 2}
	case sats.KindProduct:
		var offset, maxAlign uint16 = 0, 1
		for _, elem := range t.Elems {
			l := ComputeLayout(elem.Type)
			offset = align(offset, l.Align)
			offset += l.Size
			if l.Align > maxAlign {
				maxAlign = l.Align
			}
		}
		return Layout{Size: align(offset, maxAlign), Align: maxAlign}
	case sats.KindSum:
		var payloadSize, maxAlign uint16 = 0, 1
		for _, v := range t.Variants {
			l := ComputeLayout(v.Type)
			if l.Size > payloadSize {
				payloadSize = l.Size
			}
			if l.Align > maxAlign {
				maxAlign = l.Align
			}
		}
		total := payloadSize + 1
		return Layout{Size: align(total, maxAlign), Align: maxAlign}
	case sats.KindRef:
		panic("page: cannot compute layout of an unresolved Ref type")
	default:
		return primitiveLayout(t.Kind)
	}
}

// ColumnLayout is the precomputed fixed-region offset of one top-level
// column of a table's row type.
type ColumnLayout struct {
	Offset uint16
	Type   sats.AlgebraicType
	Layout Layout
}

// RowTypeLayout is the layout of an entire row, whose type is always a
// Product (the table's schema).
type RowTypeLayout struct {
	RowType sats.AlgebraicType
	Size    uint16
	Align   uint16
	Columns []ColumnLayout
}

// ComputeRowLayout computes column offsets for a row's Product type.
func ComputeRowLayout(rowType sats.AlgebraicType) RowTypeLayout {
	if rowType.Kind != sats.KindProduct {
		panic("page: row type must be a Product")
	}
	var offset, maxAlign uint16 = 0, 1
	cols := make([]ColumnLayout, 0, len(rowType.Elems))
	for _, elem := range rowType.Elems {
		l := ComputeLayout(elem.Type)
		offset = align(offset, l.Align)
		cols = append(cols, ColumnLayout{Offset: offset, Type: elem.Type, Layout: l})
		offset += l.Size
		if l.Align > maxAlign {
			maxAlign = l.Align
		}
	}
	return RowTypeLayout{
		RowType: rowType,
		Size:    align(offset, maxAlign),
		Align:   maxAlign,
		Columns: cols,
	}
}

// VisitVarLenRefs walks data (exactly Layout(t).Size bytes) according
// to t, calling visit with the absolute offset of every VarLenRef it
// contains. Sum columns are resolved using the tag byte actually
// present in data, so only the active variant's var-len refs are
// visited.
//
// This direct structural recursion plays the role the original
// implementation gives to a compiled visitor bytecode program: the
// bytecode exists there purely to keep the hot path monomorphic and
// branch-predictable, which is a performance concern orthogonal to
// the traversal this port needs to reproduce.
func VisitVarLenRefs(data []byte, t sats.AlgebraicType, visit func(offset int)) {
	walkVarLen(data, t, 0, visit)
}

func walkVarLen(data []byte, t sats.AlgebraicType, offset int, visit func(offset int)) {
	switch t.Kind {
	case sats.KindString, sats.KindArray:
		visit(offset)
	case sats.KindProduct:
		sub := offset
		for _, elem := range t.Elems {
			l := ComputeLayout(elem.Type)
			sub = int(align(uint16(sub), l.Align))
			walkVarLen(data, elem.Type, sub, visit)
			sub += int(l.Size)
		}
	case sats.KindSum:
		var payloadSize uint16
		for _, v := range t.Variants {
			l := ComputeLayout(v.Type)
			if l.Size > payloadSize {
				payloadSize = l.Size
			}
		}
		tag := data[offset+int(payloadSize)]
		if int(tag) < len(t.Variants) {
			walkVarLen(data, t.Variants[tag].Type, offset, visit)
		}
	default:
		// primitives carry no var-len refs
	}
}
