// Package transport adapts the frame and wire packages into a blocking
// duplex message stream over any io.ReadWriteCloser — a TLS connection, a
// plain net.Conn, or an in-memory pipe in tests.
//
// The original async-Rust implementation this protocol is descended from
// modeled the stream as a Sink/Stream pair: writes accumulate in a buffer
// until an explicit flush, reads pull one frame at a time. Go has no
// async runtime to schedule around, so Stream keeps that same buffer-then-
// flush write discipline but every call blocks the calling goroutine
// directly. The client drives its Stream from one goroutine; the server
// shares one Stream between a connection's reader and its subscription
// forwarders and serializes their writes with a mutex.
package transport

import (
	"bytes"
	"io"

	"github.com/mickamy/kvtap/frame"
	"github.com/mickamy/kvtap/wire"
)

// Stream is a framed request/response channel over rwc. It is not safe
// for concurrent use by multiple goroutines without external
// synchronization; callers that write from more than one goroutine must
// serialize calls to the Write* and Flush methods themselves.
type Stream struct {
	rwc  io.ReadWriteCloser
	wbuf bytes.Buffer
}

// New wraps rwc in a Stream.
func New(rwc io.ReadWriteCloser) *Stream {
	return &Stream{rwc: rwc}
}

// WriteRequest encodes req as a frame and appends it to the internal write
// buffer. Call Flush to push buffered frames to the underlying writer.
func (s *Stream) WriteRequest(req wire.CommandRequest) error {
	return frame.Encode(&s.wbuf, wire.MarshalCommandRequest(nil, req))
}

// WriteResponse encodes resp as a frame and appends it to the internal
// write buffer.
func (s *Stream) WriteResponse(resp wire.CommandResponse) error {
	return frame.Encode(&s.wbuf, wire.MarshalCommandResponse(nil, resp))
}

// Flush pushes any buffered frames to the underlying writer.
func (s *Stream) Flush() error {
	if s.wbuf.Len() == 0 {
		return nil
	}
	_, err := s.rwc.Write(s.wbuf.Bytes())
	s.wbuf.Reset()
	return err
}

// ReadRequest blocks until one frame arrives and decodes it as a
// CommandRequest.
func (s *Stream) ReadRequest() (wire.CommandRequest, error) {
	payload, err := frame.Decode(s.rwc)
	if err != nil {
		return wire.CommandRequest{}, err
	}
	return wire.UnmarshalCommandRequest(payload)
}

// ReadResponse blocks until one frame arrives and decodes it as a
// CommandResponse.
func (s *Stream) ReadResponse() (wire.CommandResponse, error) {
	payload, err := frame.Decode(s.rwc)
	if err != nil {
		return wire.CommandResponse{}, err
	}
	return wire.UnmarshalCommandResponse(payload)
}

// Close flushes any buffered frames, then closes the underlying connection.
func (s *Stream) Close() error {
	flushErr := s.Flush()
	if err := s.rwc.Close(); err != nil {
		return err
	}
	return flushErr
}
