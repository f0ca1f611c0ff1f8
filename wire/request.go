package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mickamy/kvtap/kverrors"
)

// Op identifies the operation carried by a CommandRequest.
type Op int32

const (
	OpUnspecified Op = iota
	OpHget
	OpHset
	OpHdel
	OpHexist
	OpHgetall
	OpHmget
	OpHmset
	OpHmdel
	OpHmexist
	OpPublish
	OpSubscribe
	OpUnsubscribe
)

func (o Op) String() string {
	switch o {
	case OpHget:
		return "Hget"
	case OpHset:
		return "Hset"
	case OpHdel:
		return "Hdel"
	case OpHexist:
		return "Hexist"
	case OpHgetall:
		return "Hgetall"
	case OpHmget:
		return "Hmget"
	case OpHmset:
		return "Hmset"
	case OpHmdel:
		return "Hmdel"
	case OpHmexist:
		return "Hmexist"
	case OpPublish:
		return "Publish"
	case OpSubscribe:
		return "Subscribe"
	case OpUnsubscribe:
		return "Unsubscribe"
	}
	return fmt.Sprintf("UnknownOp(%d)", int32(o))
}

// CommandRequest is the sum type of every request the service layer can
// execute. Only the fields relevant to Op are populated by a well-formed
// request; the dispatcher ignores the rest.
type CommandRequest struct {
	Op             Op
	Table          string
	Key            string
	Keys           []string
	Pair           KvPair
	Pairs          []KvPair
	Topic          string
	Values         []Value
	SubscriptionID uint32
}

func HgetRequest(table, key string) CommandRequest {
	return CommandRequest{Op: OpHget, Table: table, Key: key}
}

func HsetRequest(table string, pair KvPair) CommandRequest {
	return CommandRequest{Op: OpHset, Table: table, Pair: pair}
}

func HdelRequest(table, key string) CommandRequest {
	return CommandRequest{Op: OpHdel, Table: table, Key: key}
}

func HexistRequest(table, key string) CommandRequest {
	return CommandRequest{Op: OpHexist, Table: table, Key: key}
}

func HgetallRequest(table string) CommandRequest {
	return CommandRequest{Op: OpHgetall, Table: table}
}

func HmgetRequest(table string, keys []string) CommandRequest {
	return CommandRequest{Op: OpHmget, Table: table, Keys: keys}
}

func HmsetRequest(table string, pairs []KvPair) CommandRequest {
	return CommandRequest{Op: OpHmset, Table: table, Pairs: pairs}
}

func HmdelRequest(table string, keys []string) CommandRequest {
	return CommandRequest{Op: OpHmdel, Table: table, Keys: keys}
}

func HmexistRequest(table string, keys []string) CommandRequest {
	return CommandRequest{Op: OpHmexist, Table: table, Keys: keys}
}

func PublishRequest(topic string, values ...Value) CommandRequest {
	return CommandRequest{Op: OpPublish, Topic: topic, Values: values}
}

func SubscribeRequest(topic string) CommandRequest {
	return CommandRequest{Op: OpSubscribe, Topic: topic}
}

func UnsubscribeRequest(topic string, id uint32) CommandRequest {
	return CommandRequest{Op: OpUnsubscribe, Topic: topic, SubscriptionID: id}
}

const (
	reqFieldOp             protowire.Number = 1
	reqFieldTable          protowire.Number = 2
	reqFieldKey            protowire.Number = 3
	reqFieldKeys           protowire.Number = 4
	reqFieldPair           protowire.Number = 5
	reqFieldPairs          protowire.Number = 6
	reqFieldTopic          protowire.Number = 7
	reqFieldValues         protowire.Number = 8
	reqFieldSubscriptionID protowire.Number = 9
)

// MarshalCommandRequest appends req's wire encoding to b and returns the
// result.
func MarshalCommandRequest(b []byte, req CommandRequest) []byte {
	b = protowire.AppendTag(b, reqFieldOp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(req.Op))

	if req.Table != "" {
		b = protowire.AppendTag(b, reqFieldTable, protowire.BytesType)
		b = protowire.AppendString(b, req.Table)
	}
	if req.Key != "" {
		b = protowire.AppendTag(b, reqFieldKey, protowire.BytesType)
		b = protowire.AppendString(b, req.Key)
	}
	for _, k := range req.Keys {
		b = protowire.AppendTag(b, reqFieldKeys, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	if req.Op == OpHset {
		b = protowire.AppendTag(b, reqFieldPair, protowire.BytesType)
		b = protowire.AppendBytes(b, MarshalKvPair(nil, req.Pair))
	}
	for _, p := range req.Pairs {
		b = protowire.AppendTag(b, reqFieldPairs, protowire.BytesType)
		b = protowire.AppendBytes(b, MarshalKvPair(nil, p))
	}
	if req.Topic != "" {
		b = protowire.AppendTag(b, reqFieldTopic, protowire.BytesType)
		b = protowire.AppendString(b, req.Topic)
	}
	for _, v := range req.Values {
		b = protowire.AppendTag(b, reqFieldValues, protowire.BytesType)
		b = protowire.AppendBytes(b, MarshalValue(nil, v))
	}
	if req.Op == OpUnsubscribe {
		b = protowire.AppendTag(b, reqFieldSubscriptionID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(req.SubscriptionID))
	}
	return b
}

// UnmarshalCommandRequest decodes a CommandRequest previously written by
// MarshalCommandRequest.
func UnmarshalCommandRequest(b []byte) (CommandRequest, error) {
	var req CommandRequest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
		}
		b = b[n:]

		switch num {
		case reqFieldOp:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			req.Op = Op(v)
			b = b[n:]
		case reqFieldTable:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			req.Table = s
			b = b[n:]
		case reqFieldKey:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			req.Key = s
			b = b[n:]
		case reqFieldKeys:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			req.Keys = append(req.Keys, s)
			b = b[n:]
		case reqFieldPair:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			p, err := UnmarshalKvPair(raw)
			if err != nil {
				return CommandRequest{}, err
			}
			req.Pair = p
			b = b[n:]
		case reqFieldPairs:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			p, err := UnmarshalKvPair(raw)
			if err != nil {
				return CommandRequest{}, err
			}
			req.Pairs = append(req.Pairs, p)
			b = b[n:]
		case reqFieldTopic:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			req.Topic = s
			b = b[n:]
		case reqFieldValues:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			v, err := UnmarshalValue(raw)
			if err != nil {
				return CommandRequest{}, err
			}
			req.Values = append(req.Values, v)
			b = b[n:]
		case reqFieldSubscriptionID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			req.SubscriptionID = uint32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return CommandRequest{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
		}
	}

	if req.Op == OpUnspecified {
		return CommandRequest{}, &kverrors.InvalidCommandError{Detail: "missing op"}
	}
	return req, nil
}
