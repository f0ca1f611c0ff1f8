package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mickamy/kvtap/kverrors"
)

// KvPair is a key paired with its Value, as exchanged in Hset/Hmset
// requests and Hgetall/Hmget responses.
type KvPair struct {
	Key   string
	Value Value
}

const (
	kvPairFieldKey   protowire.Number = 1
	kvPairFieldValue protowire.Number = 2
)

// MarshalKvPair appends p's wire encoding to b and returns the result.
func MarshalKvPair(b []byte, p KvPair) []byte {
	b = protowire.AppendTag(b, kvPairFieldKey, protowire.BytesType)
	b = protowire.AppendString(b, p.Key)
	b = protowire.AppendTag(b, kvPairFieldValue, protowire.BytesType)
	b = protowire.AppendBytes(b, MarshalValue(nil, p.Value))
	return b
}

// UnmarshalKvPair decodes a KvPair previously written by MarshalKvPair.
func UnmarshalKvPair(b []byte) (KvPair, error) {
	var p KvPair
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return KvPair{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
		}
		b = b[n:]

		switch num {
		case kvPairFieldKey:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return KvPair{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			p.Key = s
			b = b[n:]
		case kvPairFieldValue:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return KvPair{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			v, err := UnmarshalValue(raw)
			if err != nil {
				return KvPair{}, err
			}
			p.Value = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return KvPair{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
		}
	}
	return p, nil
}
