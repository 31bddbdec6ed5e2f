package sats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"unicode/utf8"
)

// Decode failure kinds, returned as typed errors rather than panics.
var (
	ErrUnexpectedEOF  = errors.New("bsatn: unexpected eof")
	ErrInvalidTag     = errors.New("bsatn: invalid sum tag")
	ErrInvalidUTF8    = errors.New("bsatn: invalid utf8")
	ErrLengthOverflow = errors.New("bsatn: length overflow")
)

// Encode serializes v (of type t) into canonical BSATN bytes.
//
// Encoding is little-endian throughout. Strings and arrays are
// prefixed with a u32 element/byte count. Product fields are
// concatenated in declaration order with no padding. Sums are a u8
// tag followed by the active variant's payload.
func Encode(v AlgebraicValue, t AlgebraicType) ([]byte, error) {
	var buf []byte
	buf, err := appendValue(buf, v, t)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func appendValue(buf []byte, v AlgebraicValue, t AlgebraicType) ([]byte, error) {
	switch t.Kind {
	case KindBool:
		if v.Bool {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case KindI8:
		return append(buf, byte(v.I8)), nil
	case KindU8:
		return append(buf, v.U8), nil
	case KindI16:
		return binary.LittleEndian.AppendUint16(buf, uint16(v.I16)), nil
	case KindU16:
		return binary.LittleEndian.AppendUint16(buf, v.U16), nil
	case KindI32:
		return binary.LittleEndian.AppendUint32(buf, uint32(v.I32)), nil
	case KindU32:
		return binary.LittleEndian.AppendUint32(buf, v.U32), nil
	case KindI64:
		return binary.LittleEndian.AppendUint64(buf, uint64(v.I64)), nil
	case KindU64:
		return binary.LittleEndian.AppendUint64(buf, v.U64), nil
	case KindI128, KindU128:
		return appendBigInt(buf, v.Big, 16), nil
	case KindI256, KindU256:
		return appendBigInt(buf, v.Big, 32), nil
	case KindF32:
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v.F32)), nil
	case KindF64:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.F64)), nil
	case KindString:
		b := []byte(v.Str)
		if uint64(len(b)) > math.MaxUint32 {
			return nil, ErrLengthOverflow
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
		return append(buf, b...), nil
	case KindArray:
		if uint64(len(v.Array)) > math.MaxUint32 {
			return nil, ErrLengthOverflow
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.Array)))
		var err error
		for _, elem := range v.Array {
			buf, err = appendValue(buf, elem, *t.Elem)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case KindProduct:
		if len(v.Prod.Elems) != len(t.Elems) {
			return nil, fmt.Errorf("bsatn: product arity mismatch: value has %d elems, type has %d", len(v.Prod.Elems), len(t.Elems))
		}
		var err error
		for i, elemType := range t.Elems {
			buf, err = appendValue(buf, v.Prod.Elems[i], elemType.Type)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case KindSum:
		if v.Sum == nil {
			return nil, fmt.Errorf("bsatn: nil sum value for type %s", t.Kind)
		}
		if int(v.Sum.Tag) >= len(t.Variants) {
			return nil, fmt.Errorf("%w: tag %d exceeds %d variants", ErrInvalidTag, v.Sum.Tag, len(t.Variants))
		}
		buf = append(buf, v.Sum.Tag)
		return appendValue(buf, v.Sum.Payload, t.Variants[v.Sum.Tag].Type)
	case KindRef:
		return nil, fmt.Errorf("bsatn: cannot encode a bare Ref type without a typespace")
	default:
		return nil, fmt.Errorf("bsatn: unknown type kind %d", t.Kind)
	}
}

func appendBigInt(buf []byte, v *big.Int, width int) []byte {
	if v == nil {
		v = new(big.Int)
	}
	// Reduce modulo 2^(8*width): negative values take their two's
	// complement form and values wider than width wrap.
	v = new(big.Int).Mod(v, new(big.Int).Lsh(big.NewInt(1), uint(8*width)))
	le := make([]byte, width)
	be := v.FillBytes(make([]byte, width))
	for i := 0; i < width; i++ {
		le[i] = be[width-1-i]
	}
	return append(buf, le...)
}

// Decode deserializes BSATN bytes of type t, returning the decoded
// value and the number of bytes consumed.
func Decode(data []byte, t AlgebraicType) (AlgebraicValue, int, error) {
	return decodeValue(data, t)
}

func need(data []byte, n int) error {
	if len(data) < n {
		return ErrUnexpectedEOF
	}
	return nil
}

func decodeValue(data []byte, t AlgebraicType) (AlgebraicValue, int, error) {
	switch t.Kind {
	case KindBool:
		if err := need(data, 1); err != nil {
			return AlgebraicValue{}, 0, err
		}
		if data[0] > 1 {
			return AlgebraicValue{}, 0, fmt.Errorf("bsatn: invalid bool byte %d", data[0])
		}
		return BoolValue(data[0] == 1), 1, nil
	case KindI8:
		if err := need(data, 1); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return I8Value(int8(data[0])), 1, nil
	case KindU8:
		if err := need(data, 1); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return U8Value(data[0]), 1, nil
	case KindI16:
		if err := need(data, 2); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return I16Value(int16(binary.LittleEndian.Uint16(data))), 2, nil
	case KindU16:
		if err := need(data, 2); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return U16Value(binary.LittleEndian.Uint16(data)), 2, nil
	case KindI32:
		if err := need(data, 4); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return I32Value(int32(binary.LittleEndian.Uint32(data))), 4, nil
	case KindU32:
		if err := need(data, 4); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return U32Value(binary.LittleEndian.Uint32(data)), 4, nil
	case KindI64:
		if err := need(data, 8); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return I64Value(int64(binary.LittleEndian.Uint64(data))), 8, nil
	case KindU64:
		if err := need(data, 8); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return U64Value(binary.LittleEndian.Uint64(data)), 8, nil
	case KindI128, KindU128:
		if err := need(data, 16); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return AlgebraicValue{Kind: t.Kind, Big: decodeBigInt(data[:16])}, 16, nil
	case KindI256, KindU256:
		if err := need(data, 32); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return AlgebraicValue{Kind: t.Kind, Big: decodeBigInt(data[:32])}, 32, nil
	case KindF32:
		if err := need(data, 4); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return F32Value(math.Float32frombits(binary.LittleEndian.Uint32(data))), 4, nil
	case KindF64:
		if err := need(data, 8); err != nil {
			return AlgebraicValue{}, 0, err
		}
		return F64Value(math.Float64frombits(binary.LittleEndian.Uint64(data))), 8, nil
	case KindString:
		if err := need(data, 4); err != nil {
			return AlgebraicValue{}, 0, err
		}
		n := binary.LittleEndian.Uint32(data)
		if err := need(data[4:], int(n)); err != nil {
			return AlgebraicValue{}, 0, err
		}
		b := data[4 : 4+n]
		if !utf8.Valid(b) {
			return AlgebraicValue{}, 0, ErrInvalidUTF8
		}
		return StringValue(string(b)), 4 + int(n), nil
	case KindArray:
		if err := need(data, 4); err != nil {
			return AlgebraicValue{}, 0, err
		}
		n := binary.LittleEndian.Uint32(data)
		off := 4
		elems := make([]AlgebraicValue, 0, n)
		for i := uint32(0); i < n; i++ {
			elem, consumed, err := decodeValue(data[off:], *t.Elem)
			if err != nil {
				return AlgebraicValue{}, 0, err
			}
			elems = append(elems, elem)
			off += consumed
		}
		return ArrayValue(elems...), off, nil
	case KindProduct:
		off := 0
		elems := make([]AlgebraicValue, 0, len(t.Elems))
		for _, elemType := range t.Elems {
			elem, consumed, err := decodeValue(data[off:], elemType.Type)
			if err != nil {
				return AlgebraicValue{}, 0, err
			}
			elems = append(elems, elem)
			off += consumed
		}
		return ProductOf(elems...), off, nil
	case KindSum:
		if err := need(data, 1); err != nil {
			return AlgebraicValue{}, 0, err
		}
		tag := data[0]
		if int(tag) >= len(t.Variants) {
			return AlgebraicValue{}, 0, fmt.Errorf("%w: tag %d exceeds %d variants", ErrInvalidTag, tag, len(t.Variants))
		}
		payload, consumed, err := decodeValue(data[1:], t.Variants[tag].Type)
		if err != nil {
			return AlgebraicValue{}, 0, err
		}
		return SumOf(tag, payload), 1 + consumed, nil
	default:
		return AlgebraicValue{}, 0, fmt.Errorf("bsatn: unknown type kind %d", t.Kind)
	}
}

func decodeBigInt(le []byte) *big.Int {
	be := make([]byte, len(le))
	for i := range le {
		be[len(le)-1-i] = le[i]
	}
	return new(big.Int).SetBytes(be)
}

