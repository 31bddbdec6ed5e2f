package page

import (
	"fmt"

	"github.com/cuemby/warren/pkg/sats"
)

// EncodeRow serializes row (a Product value of rowType) into the fixed
// bytes a page expects for InsertRow, plus the var-len objects (in
// VisitVarLenRefs order) that belong alongside it. String and Array
// columns are left as zeroed placeholders in the fixed bytes; the
// caller (Page.InsertRow) patches in the real VarLenRef once it knows
// where each object landed.
//
// Var-len column content is the plain BSATN encoding of that column's
// value: self-delimiting, so DecodeRow can read it back with no extra
// bookkeeping. This keeps the row codec in lockstep with the var-len
// traversal in layout.go/page.go rather than inventing a second
// encoding scheme for granule payloads.
func EncodeRow(row sats.AlgebraicValue, rowType sats.AlgebraicType) ([]byte, [][]byte, error) {
	layout := ComputeRowLayout(rowType)
	fixed := make([]byte, layout.Size)
	var varObjs [][]byte
	if err := encodeValue(fixed, rowType, 0, row, &varObjs); err != nil {
		return nil, nil, err
	}
	return fixed, varObjs, nil
}

func encodeValue(buf []byte, t sats.AlgebraicType, offset int, v sats.AlgebraicValue, varObjs *[][]byte) error {
	switch t.Kind {
	case sats.KindString, sats.KindArray:
		enc, err := sats.Encode(v, t)
		if err != nil {
			return err
		}
		*varObjs = append(*varObjs, enc)
		return nil
	case sats.KindProduct:
		sub := offset
		for i, elem := range t.Elems {
			l := ComputeLayout(elem.Type)
			sub = int(align(uint16(sub), l.Align))
			if err := encodeValue(buf, elem.Type, sub, v.Prod.Elems[i], varObjs); err != nil {
				return err
			}
			sub += int(l.Size)
		}
		return nil
	case sats.KindSum:
		if v.Sum == nil {
			return fmt.Errorf("page: nil sum value for type %s", t.Kind)
		}
		var payloadSize uint16
		for _, variant := range t.Variants {
			l := ComputeLayout(variant.Type)
			if l.Size > payloadSize {
				payloadSize = l.Size
			}
		}
		if int(v.Sum.Tag) >= len(t.Variants) {
			return fmt.Errorf("page: sum tag %d exceeds %d variants", v.Sum.Tag, len(t.Variants))
		}
		buf[offset+int(payloadSize)] = v.Sum.Tag
		return encodeValue(buf, t.Variants[v.Sum.Tag].Type, offset, v.Sum.Payload, varObjs)
	default:
		l := ComputeLayout(t)
		enc, err := sats.Encode(v, t)
		if err != nil {
			return err
		}
		if len(enc) != int(l.Size) {
			return fmt.Errorf("page: encoded primitive has %d bytes, want %d", len(enc), l.Size)
		}
		copy(buf[offset:offset+int(l.Size)], enc)
		return nil
	}
}

// DecodeRow reconstructs a row's Product value from its fixed bytes,
// resolving String/Array columns via readVar, which must return the
// bytes of the var-len object whose VarLenRef sits at relOffset within
// fixed.
func DecodeRow(fixed []byte, rowType sats.AlgebraicType, readVar func(relOffset int) ([]byte, error)) (sats.AlgebraicValue, error) {
	return decodeValueFromPage(fixed, rowType, 0, readVar)
}

func decodeValueFromPage(buf []byte, t sats.AlgebraicType, offset int, readVar func(int) ([]byte, error)) (sats.AlgebraicValue, error) {
	switch t.Kind {
	case sats.KindString, sats.KindArray:
		raw, err := readVar(offset)
		if err != nil {
			return sats.AlgebraicValue{}, err
		}
		v, _, err := sats.Decode(raw, t)
		if err != nil {
			return sats.AlgebraicValue{}, err
		}
		return v, nil
	case sats.KindProduct:
		elems := make([]sats.AlgebraicValue, len(t.Elems))
		sub := offset
		for i, elem := range t.Elems {
			l := ComputeLayout(elem.Type)
			sub = int(align(uint16(sub), l.Align))
			v, err := decodeValueFromPage(buf, elem.Type, sub, readVar)
			if err != nil {
				return sats.AlgebraicValue{}, err
			}
			elems[i] = v
			sub += int(l.Size)
		}
		return sats.ProductOf(elems...), nil
	case sats.KindSum:
		var payloadSize uint16
		for _, variant := range t.Variants {
			l := ComputeLayout(variant.Type)
			if l.Size > payloadSize {
				payloadSize = l.Size
			}
		}
		tag := buf[offset+int(payloadSize)]
		if int(tag) >= len(t.Variants) {
			return sats.AlgebraicValue{}, fmt.Errorf("page: invalid sum tag %d", tag)
		}
		payload, err := decodeValueFromPage(buf, t.Variants[tag].Type, offset, readVar)
		if err != nil {
			return sats.AlgebraicValue{}, err
		}
		return sats.SumOf(tag, payload), nil
	default:
		l := ComputeLayout(t)
		v, _, err := sats.Decode(buf[offset:offset+int(l.Size)], t)
		if err != nil {
			return sats.AlgebraicValue{}, err
		}
		return v, nil
	}
}
