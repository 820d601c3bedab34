package wire

import "errors"

var (
	// ErrTruncated indicates a column buffer lacked the bytes an element needs.
	ErrTruncated = errors.New("wire: truncated buffer")
	// ErrUnknownElementType indicates an element type outside the fixed set.
	ErrUnknownElementType = errors.New("wire: unknown element type")
)
