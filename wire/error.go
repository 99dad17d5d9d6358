// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2024 The Embercoin developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "fmt"

// ErrorKind identifies a kind of message error.  It has full support for
// errors.Is and errors.As, so the caller can directly check against an error
// kind when determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific MessageError.
const (
	// ErrTruncatedStream indicates the stream ended before the expected
	// number of bytes could be read.
	ErrTruncatedStream = ErrorKind("ErrTruncatedStream")

	// ErrTrailingBytes indicates extra bytes remain in the stream after the
	// final element of a message was decoded.
	ErrTrailingBytes = ErrorKind("ErrTrailingBytes")

	// ErrVarIntOverflow indicates a variable length integer was not
	// canonically encoded or exceeds the range of the element it counts.
	ErrVarIntOverflow = ErrorKind("ErrVarIntOverflow")

	// ErrVarBytesTooLong indicates a variable length byte slice exceeds the
	// maximum allowed length for the element being decoded.
	ErrVarBytesTooLong = ErrorKind("ErrVarBytesTooLong")

	// ErrTooManyTxs indicates the number of transactions claimed by a block
	// exceeds the maximum possible number that could fit in a message.
	ErrTooManyTxs = ErrorKind("ErrTooManyTxs")

	// ErrTooManyVectors indicates an inventory style message claims more
	// entries than are allowed per message.
	ErrTooManyVectors = ErrorKind("ErrTooManyVectors")

	// ErrNegativeCount indicates a count that must be non-negative was
	// negative when it was handed to the encoder.
	ErrNegativeCount = ErrorKind("ErrNegativeCount")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// MessageError describes an issue with a message.  An example of some
// potential issues are messages from the wrong network, invalid commands,
// mismatched checksums, and exceeding max payloads.
type MessageError struct {
	Func        string    // Function name
	Err         ErrorKind // The underlying error kind
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (m MessageError) Error() string {
	if m.Func != "" {
		return fmt.Sprintf("%v: %v", m.Func, m.Description)
	}
	return m.Description
}

// Is implements the interface to work with the standard library's errors.Is.
//
// It returns true in the following cases:
// - The target is a MessageError and the error kinds match
// - The target is an ErrorKind and the error kinds match
func (m MessageError) Is(target error) bool {
	switch target := target.(type) {
	case MessageError:
		return m.Err == target.Err
	case ErrorKind:
		return m.Err == target
	}
	return false
}

// Unwrap returns the underlying wrapped error kind.
func (m MessageError) Unwrap() error {
	return m.Err
}

// messageError creates a MessageError given a set of arguments.
func messageError(fn string, kind ErrorKind, desc string) MessageError {
	return MessageError{Func: fn, Err: kind, Description: desc}
}
