// Package wire implements the tagged binary encoding used to move
// CommandRequest and CommandResponse messages over a transport.Stream.
//
// Every message type in this package marshals itself with
// google.golang.org/protobuf/encoding/protowire's low-level tag/varint/
// length-delimited primitives rather than generated protobuf code: there is
// no .proto file, no protoc step, and no runtime reflection. Each field is
// written as an explicit (field number, wire type) tag followed by its
// value, the same shape a protoc-generated encoder would produce, which
// keeps the wire bytes forward-compatible with unknown fields (skipped via
// protowire.ConsumeFieldValue) without requiring the message definitions to
// live anywhere but here.
package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mickamy/kvtap/kverrors"
)

// Kind discriminates the variant held by a Value.
type Kind uint8

const (
	KindUnset Kind = iota
	KindInt64
	KindString
	KindBytes
	KindBool
	KindFloat64
)

func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "Unset"
	case KindInt64:
		return "Int64"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindBool:
		return "Bool"
	case KindFloat64:
		return "Float64"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is the tagged union stored under a key: exactly one of the typed
// fields is meaningful, selected by Kind. The zero Value is Unset.
type Value struct {
	Kind    Kind
	Int64   int64
	String  string
	Bytes   []byte
	Bool    bool
	Float64 float64
}

func Int64Value(v int64) Value     { return Value{Kind: KindInt64, Int64: v} }
func StringValue(v string) Value   { return Value{Kind: KindString, String: v} }
func BytesValue(v []byte) Value    { return Value{Kind: KindBytes, Bytes: v} }
func BoolValue(v bool) Value       { return Value{Kind: KindBool, Bool: v} }
func Float64Value(v float64) Value { return Value{Kind: KindFloat64, Float64: v} }

// AsInt64 returns the Int64 variant or a ConvertError.
func (v Value) AsInt64() (int64, error) {
	if v.Kind != KindInt64 {
		return 0, &kverrors.ConvertError{From: v.Kind.String(), To: "Int64"}
	}
	return v.Int64, nil
}

// AsString returns the String variant or a ConvertError.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", &kverrors.ConvertError{From: v.Kind.String(), To: "String"}
	}
	return v.String, nil
}

const (
	valueFieldInt64   protowire.Number = 1
	valueFieldString  protowire.Number = 2
	valueFieldBytes   protowire.Number = 3
	valueFieldBool    protowire.Number = 4
	valueFieldFloat64 protowire.Number = 5
)

// MarshalValue appends v's wire encoding to b and returns the result. An
// Unset value encodes to nothing.
func MarshalValue(b []byte, v Value) []byte {
	switch v.Kind {
	case KindUnset:
		return b
	case KindInt64:
		b = protowire.AppendTag(b, valueFieldInt64, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(v.Int64))
	case KindString:
		b = protowire.AppendTag(b, valueFieldString, protowire.BytesType)
		b = protowire.AppendString(b, v.String)
	case KindBytes:
		b = protowire.AppendTag(b, valueFieldBytes, protowire.BytesType)
		b = protowire.AppendBytes(b, v.Bytes)
	case KindBool:
		b = protowire.AppendTag(b, valueFieldBool, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(v.Bool))
	case KindFloat64:
		b = protowire.AppendTag(b, valueFieldFloat64, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.Float64))
	}
	return b
}

// UnmarshalValue decodes a Value previously written by MarshalValue. An
// empty buffer decodes to Unset.
func UnmarshalValue(b []byte) (Value, error) {
	if len(b) == 0 {
		return Value{Kind: KindUnset}, nil
	}

	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return Value{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
	}
	b = b[n:]

	switch num {
	case valueFieldInt64:
		if typ != protowire.VarintType {
			return Value{}, &kverrors.DecodeError{Err: fmt.Errorf("value: bad wire type %d for int64 field", typ)}
		}
		raw, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return Value{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
		}
		return Value{Kind: KindInt64, Int64: protowire.DecodeZigZag(raw)}, nil
	case valueFieldString:
		s, n := protowire.ConsumeString(b)
		if n < 0 {
			return Value{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
		}
		return Value{Kind: KindString, String: s}, nil
	case valueFieldBytes:
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return Value{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
		}
		return Value{Kind: KindBytes, Bytes: append([]byte(nil), raw...)}, nil
	case valueFieldBool:
		raw, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return Value{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
		}
		return Value{Kind: KindBool, Bool: protowire.DecodeBool(raw)}, nil
	case valueFieldFloat64:
		raw, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return Value{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
		}
		return Value{Kind: KindFloat64, Float64: math.Float64frombits(raw)}, nil
	default:
		return Value{}, &kverrors.DecodeError{Err: fmt.Errorf("value: unknown field %d", num)}
	}
}
