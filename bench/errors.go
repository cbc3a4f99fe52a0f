package bench

import (
	"errors"
	"fmt"
)

// Kind classifies a contract failure. Kinds are distinguishable for
// conformance testing; across the Boundary they collapse to Failure.
type Kind uint8

const (
	KindNone Kind = iota
	InvalidHandle
	DuplicateHandle
	InvalidState
	InvalidArgument
	ResourceExhausted
	NotOwner
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case InvalidHandle:
		return "invalid handle"
	case DuplicateHandle:
		return "duplicate handle"
	case InvalidState:
		return "invalid state"
	case InvalidArgument:
		return "invalid argument"
	case ResourceExhausted:
		return "resource exhausted"
	case NotOwner:
		return "not owner"
	default:
		return "unknown"
	}
}

// Error makes a Kind usable as an errors.Is target.
func (k Kind) Error() string { return k.String() }

// NoHandle marks an Error that does not refer to a handle.
const NoHandle = -1

// Error is the failure returned by a backend operation.
type Error struct {
	Op     string
	Handle int
	Kind   Kind
	Detail string
}

// Errorf builds an Error for op on handle (NoHandle if none).
func Errorf(op string, handle int, kind Kind, format string, args ...any) *Error {
	e := &Error{Op: op, Handle: handle, Kind: kind}
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	return e
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Handle != NoHandle {
		msg = fmt.Sprintf("%s %d", msg, e.Handle)
	}
	msg += ": " + e.Kind.String()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

// KindOf returns the Kind carried by err, or KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return KindNone
}
