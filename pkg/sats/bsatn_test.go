package sats_test

import (
	"testing"

	"github.com/cuemby/warren/pkg/sats"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, typ sats.AlgebraicType, val sats.AlgebraicValue) {
	t.Helper()
	encoded, err := sats.Encode(val, typ)
	require.NoError(t, err)
	decoded, n, err := sats.Decode(encoded, typ)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.True(t, val.Equal(decoded), "round trip mismatch: %+v != %+v", val, decoded)
}

func TestBSATNRoundTripPrimitives(t *testing.T) {
	roundTrip(t, sats.Bool(), sats.BoolValue(true))
	roundTrip(t, sats.Bool(), sats.BoolValue(false))
	roundTrip(t, sats.U8(), sats.U8Value(250))
	roundTrip(t, sats.I32(), sats.I32Value(-12345))
	roundTrip(t, sats.U64(), sats.U64Value(18446744073709551615))
	roundTrip(t, sats.F32(), sats.F32Value(3.5))
	roundTrip(t, sats.F64(), sats.F64Value(-2.25))
	roundTrip(t, sats.String(), sats.StringValue("hello, world"))
	roundTrip(t, sats.String(), sats.StringValue(""))
}

func TestBSATNRoundTripArray(t *testing.T) {
	typ := sats.Array(sats.U32())
	val := sats.ArrayValue(sats.U32Value(1), sats.U32Value(2), sats.U32Value(3))
	roundTrip(t, typ, val)

	empty := sats.ArrayValue()
	roundTrip(t, typ, empty)
}

func TestBSATNRoundTripProduct(t *testing.T) {
	typ := sats.Product(
		sats.Field("id", sats.U32()),
		sats.Field("name", sats.String()),
	)
	val := sats.ProductOf(sats.U32Value(7), sats.StringValue("alice"))
	roundTrip(t, typ, val)
}

func TestBSATNRoundTripSum(t *testing.T) {
	typ := sats.Option(sats.U32())
	roundTrip(t, typ, sats.Some(sats.U32Value(42)))
	roundTrip(t, typ, sats.None())
}

func TestBSATNRoundTripNested(t *testing.T) {
	typ := sats.Product(
		sats.Field("tags", sats.Array(sats.String())),
		sats.Field("opt", sats.Option(sats.I64())),
	)
	val := sats.ProductOf(
		sats.ArrayValue(sats.StringValue("a"), sats.StringValue("b")),
		sats.Some(sats.I64Value(-7)),
	)
	roundTrip(t, typ, val)
}

func TestBSATNInvalidSumTag(t *testing.T) {
	typ := sats.Option(sats.U32())
	_, _, err := sats.Decode([]byte{5, 0, 0, 0, 0}, typ)
	require.ErrorIs(t, err, sats.ErrInvalidTag)
}

func TestBSATNUnexpectedEOF(t *testing.T) {
	typ := sats.U32()
	_, _, err := sats.Decode([]byte{1, 2}, typ)
	require.ErrorIs(t, err, sats.ErrUnexpectedEOF)
}

func TestTypespaceStructuralDedup(t *testing.T) {
	ts := sats.NewTypespace()
	a := ts.Add(sats.Product(sats.Field("x", sats.U32())))
	b := ts.Add(sats.Product(sats.Field("x", sats.U32())))
	require.Equal(t, a, b, "structurally identical types must dedup to the same TypeId")

	c := ts.Add(sats.Product(sats.Field("y", sats.U32())))
	require.NotEqual(t, a, c)
}
