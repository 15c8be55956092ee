// Package fatfs provides the shared error vocabulary used by every package in
// this module. The FAT table engine, directory entry engine, and file/directory
// API all report failures through these sentinels so a caller can distinguish
// "card full" from "file not found" without parsing error strings.
package fatfs

import (
	"errors"
	"fmt"
)

// DriverError is a wrapper around one of the sentinel errors below, optionally
// carrying extra context or a wrapped cause.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
	Unwrap() error
}

type sentinelError string

// Error taxonomy (spec section "ERROR HANDLING DESIGN"). Each sentinel covers
// exactly one trigger condition; operations compare against these with
// errors.Is rather than switching on strings.
const (
	// ErrIO means the block device reported a failed read or write.
	ErrIO = sentinelError("i/o error")

	// ErrFormatInvalid means the MBR/BPB failed validation: bad boot
	// signature, unsupported sector size, non-FAT partition type, or a
	// FAT12 volume (FAT12 is out of scope).
	ErrFormatInvalid = sentinelError("invalid FAT volume format")

	// ErrNotFound means a name did not resolve to a directory entry.
	ErrNotFound = sentinelError("no such file or directory")

	// ErrExists means create was attempted against an existing name.
	ErrExists = sentinelError("file exists")

	// ErrOutOfSpace means no free cluster or no free directory entry run
	// could be found.
	ErrOutOfSpace = sentinelError("no space left on device")

	// ErrCapability means a read was attempted on a write-only handle, or
	// vice versa.
	ErrCapability = sentinelError("operation not permitted on this handle")

	// ErrOutOfBounds means a seek target fell outside [0, file size] on a
	// handle that was not opened in append mode.
	ErrOutOfBounds = sentinelError("seek target out of bounds")

	// ErrWriteProtected means the block device refused a write because the
	// card (or caller) marked it read-only.
	ErrWriteProtected = sentinelError("device is write-protected")

	// ErrInvalidArgument means a caller passed a malformed argument, e.g. an
	// empty filename or a negative count.
	ErrInvalidArgument = sentinelError("invalid argument")
)

func (e sentinelError) Error() string { return string(e) }

func (e sentinelError) WithMessage(message string) DriverError {
	return &wrappedError{sentinel: e, message: fmt.Sprintf("%s: %s", e, message)}
}

func (e sentinelError) Wrap(err error) DriverError {
	return &wrappedError{sentinel: e, message: fmt.Sprintf("%s: %s", e, err.Error()), cause: err}
}

func (e sentinelError) Unwrap() error { return nil }

// wrappedError carries extra context or an underlying cause alongside one of
// the sentinel errors above. errors.Is(wrappedError, sentinel) succeeds
// because Unwrap returns the sentinel.
type wrappedError struct {
	sentinel sentinelError
	message  string
	cause    error
}

func (e *wrappedError) Error() string { return e.message }

func (e *wrappedError) WithMessage(message string) DriverError {
	return &wrappedError{sentinel: e.sentinel, message: fmt.Sprintf("%s: %s", e.message, message), cause: e.cause}
}

func (e *wrappedError) Wrap(err error) DriverError {
	return &wrappedError{sentinel: e.sentinel, message: fmt.Sprintf("%s: %s", e.message, err.Error()), cause: err}
}

// Unwrap exposes the sentinel so errors.Is(err, fatfs.ErrNotFound) works
// regardless of how much context has been layered on with WithMessage/Wrap.
func (e *wrappedError) Unwrap() error { return e.sentinel }

// Is lets errors.Is(err, cause) succeed when cause is the error that was
// passed to Wrap, not just the sentinel it was wrapped with.
func (e *wrappedError) Is(target error) bool {
	return e.cause != nil && errors.Is(e.cause, target)
}
