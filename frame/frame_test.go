package frame_test

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/mickamy/kvtap/frame"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", []byte{}},
		{"small", []byte("hello")},
		{"large uncompressible", bytes.Repeat([]byte{0xAB}, frame.CompressionThreshold+1)},
		{"large compressible", []byte(strings.Repeat("a", frame.CompressionThreshold*4))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := frame.Encode(&buf, tt.payload); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := frame.Decode(&buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(tt.payload))
			}
		})
	}
}

func TestEncodeCompressesAboveThreshold(t *testing.T) {
	t.Parallel()

	payload := []byte(strings.Repeat("x", frame.CompressionThreshold+1))
	var buf bytes.Buffer
	if err := frame.Encode(&buf, payload); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.Len() >= len(payload) {
		t.Errorf("expected compression to shrink a repetitive payload, got %d bytes from %d", buf.Len(), len(payload))
	}
}

func TestDecodeMultipleFrames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	want := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	for _, p := range want {
		if err := frame.Encode(&buf, p); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	for _, w := range want {
		got, err := frame.Decode(&buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !bytes.Equal(got, w) {
			t.Errorf("got %q, want %q", got, w)
		}
	}
}

func TestDecodeEOFOnEmptyReader(t *testing.T) {
	t.Parallel()

	_, err := frame.Decode(&bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an error reading from an empty buffer")
	}
}

func TestEncodeRejectsOversizedFrame(t *testing.T) {
	t.Parallel()

	// Incompressible payload larger than MaxFrameLen: Encode must reject it
	// on its uncompressed length, before any gzip step.
	payload := make([]byte, frame.MaxFrameLen+1)
	rand.New(rand.NewSource(1)).Read(payload)
	var buf bytes.Buffer
	if err := frame.Encode(&buf, payload); err == nil {
		t.Fatal("expected FrameError for oversized payload")
	}
}

func TestEncodeRejectsOversizedCompressiblePayload(t *testing.T) {
	t.Parallel()

	// The cap applies to the uncompressed length: a payload this size must
	// be rejected even though it gzips down to almost nothing.
	payload := bytes.Repeat([]byte{0x00}, frame.MaxFrameLen+1)
	var buf bytes.Buffer
	if err := frame.Encode(&buf, payload); err == nil {
		t.Fatal("expected FrameError for a pre-compression length over the cap")
	}
}
