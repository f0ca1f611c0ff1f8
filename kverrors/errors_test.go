package kverrors_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/mickamy/kvtap/kverrors"
)

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int32
	}{
		{"nil", nil, 200},
		{"not found", &kverrors.NotFoundError{Table: "users", Key: "1"}, 404},
		{"invalid command", &kverrors.InvalidCommandError{Detail: "no op set"}, 400},
		{"convert", &kverrors.ConvertError{From: "string", To: "int64"}, 400},
		{"storage", &kverrors.StorageError{Op: "get", Err: errors.New("disk full")}, 500},
		{"plain", errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := kverrors.StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestNotFoundErrorMessageContainsNotFound(t *testing.T) {
	t.Parallel()

	err := &kverrors.NotFoundError{Table: "score", Key: "u1"}
	if !strings.Contains(err.Error(), "Not found") {
		t.Errorf("got %q, want it to contain %q", err.Error(), "Not found")
	}
}

func TestStorageErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("disk full")
	err := &kverrors.StorageError{Op: "set", Err: inner}

	if !errors.Is(err, inner) {
		t.Fatal("expected errors.Is to find the wrapped error")
	}
}

func TestCertificateParseErrorMessage(t *testing.T) {
	t.Parallel()

	withErr := &kverrors.CertificateParseError{Detail: "bad key", Err: errors.New("asn1: syntax error")}
	if withErr.Error() == "" {
		t.Fatal("expected non-empty message")
	}

	withoutErr := &kverrors.CertificateParseError{Detail: "empty PEM"}
	if withoutErr.Error() != "certificate: empty PEM" {
		t.Errorf("got %q", withoutErr.Error())
	}
}
