// Package griberrors defines the flat error-kind taxonomy GribJump
// surfaces to callers, and the TaskGroup error list used by the engine
// to aggregate per-task failures (report-and-continue or raise).
package griberrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is one of the error categories of spec §7.
type Kind int

const (
	// BadGrib: unsupported edition/packing, malformed sections.
	BadGrib Kind = iota
	// BadJumpInfo: wrong jumper for the packing type.
	BadJumpInfo
	// GridHashMismatch: caller-supplied md5GridSection does not match.
	GridHashMismatch
	// IndexOutOfRange: an interval exceeds numberOfDataPoints.
	IndexOutOfRange
	// IOError: read/seek/short-read failure.
	IOError
	// CacheMissLazyOff: a cache miss occurred with lazy extraction disabled.
	CacheMissLazyOff
	// InternalError: anything else.
	InternalError
)

func (k Kind) String() string {
	switch k {
	case BadGrib:
		return "BadGrib"
	case BadJumpInfo:
		return "BadJumpInfo"
	case GridHashMismatch:
		return "GridHashMismatch"
	case IndexOutOfRange:
		return "IndexOutOfRange"
	case IOError:
		return "IOError"
	case CacheMissLazyOff:
		return "CacheMissLazyOff"
	default:
		return "InternalError"
	}
}

// Error is a kinded, wrapped error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a *Error with no wrapped cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a *Error wrapping an underlying cause.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err (or something it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == k
	}
	return false
}

// List aggregates per-task errors for a TaskGroup. The group never
// propagates eagerly; it drains then exposes this list, and the caller
// decides whether to serialise it (report-and-continue) or raise it.
type List struct {
	Errors []error
}

// Add records an error against the list if non-nil.
func (l *List) Add(err error) {
	if err != nil {
		l.Errors = append(l.Errors, err)
	}
}

// Empty reports whether no errors were recorded.
func (l *List) Empty() bool { return len(l.Errors) == 0 }

// AsError returns nil if the list is empty, otherwise an error whose
// message concatenates every recorded error (the "raise" path).
func (l *List) AsError() error {
	if l.Empty() {
		return nil
	}
	msgs := make([]string, len(l.Errors))
	for i, e := range l.Errors {
		msgs[i] = e.Error()
	}
	return errors.New(strings.Join(msgs, "; "))
}
