package sats

import "math/big"

// AlgebraicValue mirrors AlgebraicType: exactly one of its fields is
// meaningful, selected by Kind.
type AlgebraicValue struct {
	Kind Kind

	Bool bool
	I8   int8
	U8   uint8
	I16  int16
	U16  uint16
	I32  int32
	U32  uint32
	I64  int64
	U64  uint64
	// I128/U128/I256/U256 use big.Int; the sign and magnitude are
	// truncated/wrapped to the declared width at encode time.
	Big *big.Int
	F32 float32
	F64 float64
	Str string

	Array []AlgebraicValue
	Prod  ProductValue
	Sum   *SumValue
}

// ProductValue is an ordered tuple of field values.
type ProductValue struct {
	Elems []AlgebraicValue
}

// SumValue is a tagged union value: Tag selects the active variant by
// position, matching the variant order of the corresponding Sum type.
type SumValue struct {
	Tag     uint8
	Payload AlgebraicValue
}

func BoolValue(b bool) AlgebraicValue { return AlgebraicValue{Kind: KindBool, Bool: b} }
func I8Value(v int8) AlgebraicValue   { return AlgebraicValue{Kind: KindI8, I8: v} }
func U8Value(v uint8) AlgebraicValue  { return AlgebraicValue{Kind: KindU8, U8: v} }
func I16Value(v int16) AlgebraicValue { return AlgebraicValue{Kind: KindI16, I16: v} }
func U16Value(v uint16) AlgebraicValue { return AlgebraicValue{Kind: KindU16, U16: v} }
func I32Value(v int32) AlgebraicValue { return AlgebraicValue{Kind: KindI32, I32: v} }
func U32Value(v uint32) AlgebraicValue { return AlgebraicValue{Kind: KindU32, U32: v} }
func I64Value(v int64) AlgebraicValue { return AlgebraicValue{Kind: KindI64, I64: v} }
func U64Value(v uint64) AlgebraicValue { return AlgebraicValue{Kind: KindU64, U64: v} }
func F32Value(v float32) AlgebraicValue { return AlgebraicValue{Kind: KindF32, F32: v} }
func F64Value(v float64) AlgebraicValue { return AlgebraicValue{Kind: KindF64, F64: v} }
func StringValue(s string) AlgebraicValue { return AlgebraicValue{Kind: KindString, Str: s} }

// ArrayValue builds an Array value from its elements.
func ArrayValue(elems ...AlgebraicValue) AlgebraicValue {
	return AlgebraicValue{Kind: KindArray, Array: elems}
}

// ProductOf builds a Product value from its ordered elements.
func ProductOf(elems ...AlgebraicValue) AlgebraicValue {
	return AlgebraicValue{Kind: KindProduct, Prod: ProductValue{Elems: elems}}
}

// SumOf builds a Sum value with the given active tag and payload.
func SumOf(tag uint8, payload AlgebraicValue) AlgebraicValue {
	return AlgebraicValue{Kind: KindSum, Sum: &SumValue{Tag: tag, Payload: payload}}
}

// Some builds Option's Some(v) variant (tag 0).
func Some(v AlgebraicValue) AlgebraicValue { return SumOf(0, v) }

// None builds Option's None() variant (tag 1).
func None() AlgebraicValue { return SumOf(1, ProductOf()) }

// Equal reports deep value equality, used by Table.contains_same_row
// style dedup checks and by tests asserting round-trip behavior.
func (v AlgebraicValue) Equal(o AlgebraicValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == o.Bool
	case KindI8:
		return v.I8 == o.I8
	case KindU8:
		return v.U8 == o.U8
	case KindI16:
		return v.I16 == o.I16
	case KindU16:
		return v.U16 == o.U16
	case KindI32:
		return v.I32 == o.I32
	case KindU32:
		return v.U32 == o.U32
	case KindI64:
		return v.I64 == o.I64
	case KindU64:
		return v.U64 == o.U64
	case KindI128, KindU128, KindI256, KindU256:
		if v.Big == nil || o.Big == nil {
			return v.Big == o.Big
		}
		return v.Big.Cmp(o.Big) == 0
	case KindF32:
		return v.F32 == o.F32
	case KindF64:
		return v.F64 == o.F64
	case KindString:
		return v.Str == o.Str
	case KindArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	case KindProduct:
		if len(v.Prod.Elems) != len(o.Prod.Elems) {
			return false
		}
		for i := range v.Prod.Elems {
			if !v.Prod.Elems[i].Equal(o.Prod.Elems[i]) {
				return false
			}
		}
		return true
	case KindSum:
		return v.Sum.Tag == o.Sum.Tag && v.Sum.Payload.Equal(o.Sum.Payload)
	default:
		return false
	}
}
