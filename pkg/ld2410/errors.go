package ld2410

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperation indicates an operation not allowed in the current
	// state, e.g. a configuration command outside configuration mode.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrTimeout indicates no matching ack arrived in time.
	ErrTimeout = errors.New("command timeout")
	// ErrClosed indicates the session was closed while a command was waiting.
	ErrClosed = errors.New("session closed")
)

// FormatError indicates bytes matched a frame header and length but failed
// structural decoding.
type FormatError struct {
	Family Family
	// Code is the raw command field of a command-family frame,
	// zero if decoding stopped before it.
	Code   uint16
	Reason string
}

// Error implements error.
func (e *FormatError) Error() string {
	if e.Family == FamilyCommand && e.Code != 0 {
		return fmt.Sprintf("malformed %s frame (code %04x): %s", e.Family, e.Code, e.Reason)
	}
	return fmt.Sprintf("malformed %s frame: %s", e.Family, e.Reason)
}

// ValidationError indicates a value out of its allowed range.
type ValidationError struct {
	Field string
	Value int
	Min   int
	Max   int
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

func validateRange(field string, value, min, max int) error {
	if value < min || value > max {
		return &ValidationError{Field: field, Value: value, Min: min, Max: max}
	}
	return nil
}

// TransportError wraps a failure of the underlying byte transport.
// The session state is unknown after it.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// CommandError indicates the module acknowledged a command with a failure status.
type CommandError struct {
	Kind   CommandKind
	Status uint16
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed with status %04x", e.Kind, e.Status)
}

func invalidOperation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}
