package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mickamy/kvtap/kverrors"
)

// CommandResponse carries the result of a CommandRequest back to the
// client. Status 0 with no Message, Values, or Pairs is the zero value
// used as a streaming sentinel: the dispatcher returns it (it is never
// sent) for a Subscribe request to mean "no single reply, frames arrive
// asynchronously from the broadcaster instead."
type CommandResponse struct {
	Status  int32
	Message string
	Values  []Value
	Pairs   []KvPair
}

// OK builds a 200 response carrying no payload.
func OK() CommandResponse {
	return CommandResponse{Status: 200}
}

// OKValues builds a 200 response carrying values.
func OKValues(values []Value) CommandResponse {
	return CommandResponse{Status: 200, Values: values}
}

// OKPairs builds a 200 response carrying pairs.
func OKPairs(pairs []KvPair) CommandResponse {
	return CommandResponse{Status: 200, Pairs: pairs}
}

// ErrorResponse builds a response from an error produced by the kverrors
// package, mapping it to a status code and message.
func ErrorResponse(err error) CommandResponse {
	return CommandResponse{
		Status:  kverrors.StatusCode(err),
		Message: kverrors.Message(err),
	}
}

// IsStreamingSentinel reports whether r is the zero-value placeholder the
// dispatcher returns for a Subscribe request.
func (r CommandResponse) IsStreamingSentinel() bool {
	return r.Status == 0 && r.Message == "" && len(r.Values) == 0 && len(r.Pairs) == 0
}

const (
	respFieldStatus  protowire.Number = 1
	respFieldMessage protowire.Number = 2
	respFieldValues  protowire.Number = 3
	respFieldPairs   protowire.Number = 4
)

// MarshalCommandResponse appends resp's wire encoding to b and returns the
// result.
func MarshalCommandResponse(b []byte, resp CommandResponse) []byte {
	if resp.Status != 0 {
		b = protowire.AppendTag(b, respFieldStatus, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(resp.Status)))
	}
	if resp.Message != "" {
		b = protowire.AppendTag(b, respFieldMessage, protowire.BytesType)
		b = protowire.AppendString(b, resp.Message)
	}
	for _, v := range resp.Values {
		b = protowire.AppendTag(b, respFieldValues, protowire.BytesType)
		b = protowire.AppendBytes(b, MarshalValue(nil, v))
	}
	for _, p := range resp.Pairs {
		b = protowire.AppendTag(b, respFieldPairs, protowire.BytesType)
		b = protowire.AppendBytes(b, MarshalKvPair(nil, p))
	}
	return b
}

// UnmarshalCommandResponse decodes a CommandResponse previously written by
// MarshalCommandResponse.
func UnmarshalCommandResponse(b []byte) (CommandResponse, error) {
	var resp CommandResponse
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return CommandResponse{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
		}
		b = b[n:]

		switch num {
		case respFieldStatus:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return CommandResponse{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			resp.Status = int32(uint32(v))
			b = b[n:]
		case respFieldMessage:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return CommandResponse{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			resp.Message = s
			b = b[n:]
		case respFieldValues:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return CommandResponse{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			v, err := UnmarshalValue(raw)
			if err != nil {
				return CommandResponse{}, err
			}
			resp.Values = append(resp.Values, v)
			b = b[n:]
		case respFieldPairs:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return CommandResponse{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			p, err := UnmarshalKvPair(raw)
			if err != nil {
				return CommandResponse{}, err
			}
			resp.Pairs = append(resp.Pairs, p)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return CommandResponse{}, &kverrors.DecodeError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
		}
	}
	return resp, nil
}
