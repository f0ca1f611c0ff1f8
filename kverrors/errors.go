// Package kverrors defines the error taxonomy shared by the storage,
// service, and transport layers of kvtap.
package kverrors

import "fmt"

// NotFoundError is returned when a key or table lookup misses.
type NotFoundError struct {
	Table string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Not found for table: %s, key: %s", e.Table, e.Key)
}

// InvalidCommandError is returned when a CommandRequest carries no
// recognized operation.
type InvalidCommandError struct {
	Detail string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid command: %s", e.Detail)
}

// ConvertError is returned when a Value cannot be converted to the type
// a caller requested.
type ConvertError struct {
	From string
	To   string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
}

// StorageError wraps a failure from a Storage backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// EncodeError is returned when a wire value fails to marshal.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a wire value fails to unmarshal.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FrameError is returned when a length-prefixed frame is malformed or
// exceeds the maximum frame size.
type FrameError struct {
	Detail string
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame: %s", e.Detail)
}

// CertificateParseError is returned when a PEM certificate or private key
// cannot be parsed.
type CertificateParseError struct {
	Detail string
	Err    error
}

func (e *CertificateParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("certificate: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("certificate: %s", e.Detail)
}

func (e *CertificateParseError) Unwrap() error {
	return e.Err
}

// StatusCode maps an error produced by this package to the status code the
// wire protocol returns to the client. Callers that don't recognize err as
// one of this package's types get 500.
func StatusCode(err error) int32 {
	if err == nil {
		return 200
	}
	switch err.(type) {
	case *NotFoundError:
		return 404
	case *InvalidCommandError, *ConvertError:
		return 400
	default:
		return 500
	}
}

// Message returns the text to surface to the client for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
