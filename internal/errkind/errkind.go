// Package errkind defines the error taxonomy shared by every focusmute
// component, from the transport up through the supervisor.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is one of the error taxonomy members from the design notes: a
// classification, not a concrete error type. Callers compare kinds with
// errors.As against *Error, never by matching strings.
type Kind int

const (
	// Unknown is the zero value; real errors never carry it.
	Unknown Kind = iota
	NotFound
	Busy
	Forbidden
	Protocol
	Io
	Timeout
	Unsupported
	Transient
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Busy:
		return "busy"
	case Forbidden:
		return "forbidden"
	case Protocol:
		return "protocol"
	case Io:
		return "io"
	case Timeout:
		return "timeout"
	case Unsupported:
		return "unsupported"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with the operation that produced it and
// the taxonomy Kind a caller should branch on.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error for op, wrapping err (which may be nil).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf formats a message and wraps it under kind, the way the rest of the
// corpus wraps with fmt.Errorf("...: %w", err).
func Wrapf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether the first *Error in err's chain carries the given
// Kind, the same *Error KindOf reads.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or Unknown if err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
