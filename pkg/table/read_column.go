package table

import (
	"fmt"
	"reflect"

	"github.com/cuemby/warren/pkg/blob"
	"github.com/cuemby/warren/pkg/sats"
	"github.com/cuemby/warren/pkg/types"
)

// IndexOutOfBoundsError is returned by ReadColumn when idx names a
// column beyond the row type's element count.
type IndexOutOfBoundsError struct {
	Desired int
	Found   sats.AlgebraicType
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("table: attempt to read column %d of a product with only %d columns of type %s",
		e.Desired, len(e.Found.Elems), e.Found.Kind)
}

// WrongTypeError is returned by ReadColumn when the column's declared
// type is not compatible with the Go type requested.
type WrongTypeError struct {
	Desired string
	Found   sats.AlgebraicType
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("table: attempt to read a column at type %q, but the column's type is %s", e.Desired, e.Found.Kind)
}

// columnValue is the set of Go types ReadColumn can extract: one
// native type per scalar Kind, plus sats.AlgebraicValue itself, which
// is compatible with a column of any type.
type columnValue interface {
	bool | int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64 | string | sats.AlgebraicValue
}

func typeName[T columnValue]() string {
	var zero T
	return reflect.TypeOf(&zero).Elem().String()
}

// isCompatibleType reports whether a column of algebraic type ty can
// be read out as the Go type named desired. Each primitive Go type
// matches exactly one Kind; sats.AlgebraicValue matches any Kind.
func isCompatibleType(desired string, ty sats.AlgebraicType) bool {
	switch desired {
	case "sats.AlgebraicValue":
		return true
	case "bool":
		return ty.Kind == sats.KindBool
	case "int8":
		return ty.Kind == sats.KindI8
	case "uint8":
		return ty.Kind == sats.KindU8
	case "int16":
		return ty.Kind == sats.KindI16
	case "uint16":
		return ty.Kind == sats.KindU16
	case "int32":
		return ty.Kind == sats.KindI32
	case "uint32":
		return ty.Kind == sats.KindU32
	case "int64":
		return ty.Kind == sats.KindI64
	case "uint64":
		return ty.Kind == sats.KindU64
	case "float32":
		return ty.Kind == sats.KindF32
	case "float64":
		return ty.Kind == sats.KindF64
	case "string":
		return ty.Kind == sats.KindString
	default:
		return false
	}
}

// extract pulls the Go value of type T out of val, assuming
// isCompatibleType already proved val.Kind matches T.
func extract[T columnValue](val sats.AlgebraicValue) T {
	if v, ok := any(val).(T); ok {
		return v
	}
	var out any
	switch val.Kind {
	case sats.KindBool:
		out = val.Bool
	case sats.KindI8:
		out = val.I8
	case sats.KindU8:
		out = val.U8
	case sats.KindI16:
		out = val.I16
	case sats.KindU16:
		out = val.U16
	case sats.KindI32:
		out = val.I32
	case sats.KindU32:
		out = val.U32
	case sats.KindI64:
		out = val.I64
	case sats.KindU64:
		out = val.U64
	case sats.KindF32:
		out = val.F32
	case sats.KindF64:
		out = val.F64
	case sats.KindString:
		out = val.Str
	default:
		out = val
	}
	return out.(T)
}

// ReadColumn extracts column idx of the row at ptr as a T, without
// requiring the caller to decode the full row into a ProductValue
// first. It checks idx against the row's column count and the
// column's declared type against T before reading, returning
// IndexOutOfBoundsError or WrongTypeError on mismatch. T may be
// sats.AlgebraicValue, compatible with any column, or one of the
// scalar Go types in columnValue, each compatible with exactly the
// matching AlgebraicType kind.
func ReadColumn[T columnValue](t *Table, store blob.Store, ptr types.RowPointer, idx int) (T, error) {
	var zero T
	if idx < 0 || idx >= len(t.rowLayout.Columns) {
		return zero, &IndexOutOfBoundsError{Desired: idx, Found: t.RowType}
	}
	col := t.rowLayout.Columns[idx]
	desired := typeName[T]()
	if !isCompatibleType(desired, col.Type) {
		return zero, &WrongTypeError{Desired: desired, Found: col.Type}
	}

	row, ok := t.Get(store, ptr)
	if !ok {
		return zero, fmt.Errorf("table: row %s is not live", ptr)
	}
	return extract[T](row.Prod.Elems[idx]), nil
}
