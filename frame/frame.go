// Package frame implements the length-prefixed, selectively-compressed
// message framing used on every kvtap connection: a 4-byte big-endian
// header followed by the payload. The header's most significant bit flags
// gzip compression; the low 31 bits hold the payload length.
package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/mickamy/kvtap/kverrors"
)

const (
	// MaxFrameLen caps frame sizes: Encode rejects a payload of MaxFrameLen
	// bytes or more before compression, and both Encode and Decode reject a
	// frame body longer than MaxFrameLen.
	MaxFrameLen = 2 * 1024 * 1024

	// CompressionThreshold is the payload size above which Encode gzips
	// the body before framing it.
	CompressionThreshold = 1436

	compressionBit uint32 = 1 << 31
	lengthMask     uint32 = compressionBit - 1

	headerLen = 4
)

// Encode frames payload, gzip-compressing it first when it is larger than
// CompressionThreshold, and writes the result to w.
func Encode(w io.Writer, payload []byte) error {
	if len(payload) >= MaxFrameLen {
		return &kverrors.FrameError{Detail: fmt.Sprintf("payload %d exceeds max %d", len(payload), MaxFrameLen)}
	}

	body := payload
	compressed := false

	if len(payload) > CompressionThreshold {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(payload); err != nil {
			return &kverrors.FrameError{Detail: fmt.Sprintf("gzip write: %v", err)}
		}
		if err := gz.Close(); err != nil {
			return &kverrors.FrameError{Detail: fmt.Sprintf("gzip close: %v", err)}
		}
		body = buf.Bytes()
		compressed = true
	}

	if len(body) > MaxFrameLen {
		return &kverrors.FrameError{Detail: fmt.Sprintf("frame body %d exceeds max %d", len(body), MaxFrameLen)}
	}

	header := uint32(len(body)) & lengthMask
	if compressed {
		header |= compressionBit
	}

	var hdr [headerLen]byte
	binary.BigEndian.PutUint32(hdr[:], header)

	if _, err := w.Write(hdr[:]); err != nil {
		return &kverrors.FrameError{Detail: fmt.Sprintf("write header: %v", err)}
	}
	if _, err := w.Write(body); err != nil {
		return &kverrors.FrameError{Detail: fmt.Sprintf("write body: %v", err)}
	}
	return nil
}

// Decode reads one frame from r and returns its (decompressed) payload.
func Decode(r io.Reader) ([]byte, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &kverrors.FrameError{Detail: fmt.Sprintf("read header: %v", err)}
	}

	header := binary.BigEndian.Uint32(hdr[:])
	compressed := header&compressionBit != 0
	length := header & lengthMask

	if length > MaxFrameLen {
		return nil, &kverrors.FrameError{Detail: fmt.Sprintf("frame length %d exceeds max %d", length, MaxFrameLen)}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, &kverrors.FrameError{Detail: fmt.Sprintf("read body: %v", err)}
	}

	if !compressed {
		return body, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, &kverrors.FrameError{Detail: fmt.Sprintf("gzip reader: %v", err)}
	}
	defer gz.Close()

	payload, err := io.ReadAll(gz)
	if err != nil {
		return nil, &kverrors.FrameError{Detail: fmt.Sprintf("gzip read: %v", err)}
	}
	return payload, nil
}
