// Package errs defines the typed error categories the field engine
// returns, so callers can branch on intent rather than on message text.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the categories spec.md §7 names.
type Kind int

const (
	// KindInvalidArgument covers bad names, unknown type names, a
	// representation not present in a field's declared list, and
	// incompatible value casts.
	KindInvalidArgument Kind = iota
	// KindSchemaMismatch covers on-disk column types that do not match
	// any representation a field declares, and an on-disk type version
	// a class field's evolution rules refuse.
	KindSchemaMismatch
	// KindStateViolation covers an operation attempted in the wrong
	// connection state (e.g. changing representation after sink connect).
	KindStateViolation
	// KindUnsupported covers field kinds the engine cannot map at all
	// (raw pointers, function types, non-default-constructible classes
	// without an IO constructor).
	KindUnsupported
	// KindIO covers errors propagated from the page sink/source.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid-argument"
	case KindSchemaMismatch:
		return "schema-mismatch"
	case KindStateViolation:
		return "state-violation"
	case KindUnsupported:
		return "unsupported"
	case KindIO:
		return "io-error"
	default:
		return "unknown"
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around a cause with a formatted message.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Sentinels for conditions callers commonly want to test with errors.Is.
var (
	ErrNotFound          = errors.New("errs: not found")
	ErrTruncated         = errors.New("errs: truncated buffer")
	ErrClusterBoundary   = errors.New("errs: operation crosses a cluster boundary")
	ErrValuelessVariant  = errors.New("errs: variant is valueless")
	ErrCycle             = errors.New("errs: field type is self-referential")
	ErrNotDefaultConstructible = errors.New("errs: type has no default or IO constructor")
)
