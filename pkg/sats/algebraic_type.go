// Package sats implements the Spacetime Algebraic Type System: a small
// family of algebraic types (primitives, strings, arrays, products,
// sums, and refs into a typespace) together with AlgebraicValue, its
// runtime value counterpart, and BSATN, the canonical binary codec for
// both.
package sats

import "fmt"

// Kind discriminates the variants of AlgebraicType.
type Kind uint8

const (
	KindBool Kind = iota
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindI128
	KindU128
	KindI256
	KindU256
	KindF32
	KindF64
	KindString
	KindArray
	KindProduct
	KindSum
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindI8:
		return "I8"
	case KindU8:
		return "U8"
	case KindI16:
		return "I16"
	case KindU16:
		return "U16"
	case KindI32:
		return "I32"
	case KindU32:
		return "U32"
	case KindI64:
		return "I64"
	case KindU64:
		return "U64"
	case KindI128:
		return "I128"
	case KindU128:
		return "U128"
	case KindI256:
		return "I256"
	case KindU256:
		return "U256"
	case KindF32:
		return "F32"
	case KindF64:
		return "F64"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindProduct:
		return "Product"
	case KindSum:
		return "Sum"
	case KindRef:
		return "Ref"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ProductElem is one named (or anonymous) field of a Product type.
type ProductElem struct {
	Name *string
	Type AlgebraicType
}

// SumVariant is one named arm of a Sum type. Tag values are assigned
// by position: the Nth variant has tag N.
type SumVariant struct {
	Name string
	Type AlgebraicType
}

// AlgebraicType is one of: a primitive, String, Array(elem),
// Product(fields), Sum(variants), or Ref(TypeId) into a typespace.
//
// Field and variant order is significant and part of the type's
// identity; BSATN encoding depends on it.
type AlgebraicType struct {
	Kind     Kind
	Elem     *AlgebraicType // Array
	Elems    []ProductElem  // Product
	Variants []SumVariant   // Sum
	Ref      TypeId         // Ref
}

// TypeId names a type registered in a Typespace.
type TypeId uint32

func primitive(k Kind) AlgebraicType { return AlgebraicType{Kind: k} }

func Bool() AlgebraicType   { return primitive(KindBool) }
func I8() AlgebraicType     { return primitive(KindI8) }
func U8() AlgebraicType     { return primitive(KindU8) }
func I16() AlgebraicType    { return primitive(KindI16) }
func U16() AlgebraicType    { return primitive(KindU16) }
func I32() AlgebraicType    { return primitive(KindI32) }
func U32() AlgebraicType    { return primitive(KindU32) }
func I64() AlgebraicType    { return primitive(KindI64) }
func U64() AlgebraicType    { return primitive(KindU64) }
func I128() AlgebraicType   { return primitive(KindI128) }
func U128() AlgebraicType   { return primitive(KindU128) }
func I256() AlgebraicType   { return primitive(KindI256) }
func U256() AlgebraicType   { return primitive(KindU256) }
func F32() AlgebraicType    { return primitive(KindF32) }
func F64() AlgebraicType    { return primitive(KindF64) }
func String() AlgebraicType { return primitive(KindString) }

// Array builds an Array(elem) type.
func Array(elem AlgebraicType) AlgebraicType {
	e := elem
	return AlgebraicType{Kind: KindArray, Elem: &e}
}

// Product builds a Product type from its ordered fields.
func Product(elems ...ProductElem) AlgebraicType {
	return AlgebraicType{Kind: KindProduct, Elems: elems}
}

// Field is a convenience constructor for a named ProductElem.
func Field(name string, t AlgebraicType) ProductElem {
	n := name
	return ProductElem{Name: &n, Type: t}
}

// UnnamedField is a convenience constructor for an anonymous ProductElem.
func UnnamedField(t AlgebraicType) ProductElem {
	return ProductElem{Type: t}
}

// Sum builds a Sum type from its ordered variants.
func Sum(variants ...SumVariant) AlgebraicType {
	return AlgebraicType{Kind: KindSum, Variants: variants}
}

// Variant is a convenience constructor for a SumVariant.
func Variant(name string, t AlgebraicType) SumVariant {
	return SumVariant{Name: name, Type: t}
}

// RefType builds a Ref(id) type pointing into a typespace.
func RefType(id TypeId) AlgebraicType {
	return AlgebraicType{Kind: KindRef, Ref: id}
}

// Option builds the standard Option<T> = Sum[Some(T), None()] type.
func Option(t AlgebraicType) AlgebraicType {
	return Sum(Variant("Some", t), Variant("None", Product()))
}

// IsPrimitive reports whether the type is a fixed-width scalar (not
// String, Array, Product, Sum, or Ref).
func (t AlgebraicType) IsPrimitive() bool {
	return t.Kind <= KindF64
}

// IsVarLen reports whether values of this type may require the
// var-len heap when stored in BFLATN (String or Array).
func (t AlgebraicType) IsVarLen() bool {
	return t.Kind == KindString || t.Kind == KindArray
}

// Equal reports deep structural equality between two AlgebraicTypes.
func (t AlgebraicType) Equal(o AlgebraicType) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindArray:
		return t.Elem.Equal(*o.Elem)
	case KindProduct:
		if len(t.Elems) != len(o.Elems) {
			return false
		}
		for i := range t.Elems {
			a, b := t.Elems[i], o.Elems[i]
			if (a.Name == nil) != (b.Name == nil) {
				return false
			}
			if a.Name != nil && *a.Name != *b.Name {
				return false
			}
			if !a.Type.Equal(b.Type) {
				return false
			}
		}
		return true
	case KindSum:
		if len(t.Variants) != len(o.Variants) {
			return false
		}
		for i := range t.Variants {
			if t.Variants[i].Name != o.Variants[i].Name || !t.Variants[i].Type.Equal(o.Variants[i].Type) {
				return false
			}
		}
		return true
	case KindRef:
		return t.Ref == o.Ref
	default:
		return true
	}
}
