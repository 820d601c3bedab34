package ntuple

import (
	"reflect"

	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/field"
	"github.com/fieldstore/ntuple/storage"
)

// Reader drives a field tree connected to a PageSource: Read populates one
// entry at a time by global index. Reader has no bulk-read method; the
// vectorized fast path (spec.md §4.2) is reached through a field's own
// BulkRead, e.g. on a field from Root().
type Reader struct {
	source  storage.PageSource
	root    field.Field
	desc    *Descriptor
	entries uint64
}

// NewReader connects root to source at on-disk field ID 0 (the root,
// matching Descriptor.Bind's convention) using desc to resolve child IDs,
// and returns a Reader bounded to numEntries.
func NewReader(source storage.PageSource, root field.Field, desc *Descriptor, numEntries uint64) (*Reader, error) {
	if err := root.ConnectSource(source, 0, desc); err != nil {
		return nil, err
	}
	return &Reader{source: source, root: root, desc: desc, entries: numEntries}, nil
}

// Read populates dst (a non-nil pointer to root's Go type) with the entry
// at index.
func (r *Reader) Read(index uint64, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errs.New(errs.KindInvalidArgument, "ntuple: Read requires a non-nil pointer")
	}
	if rv.Elem().Type() != r.root.GoType() {
		return errs.New(errs.KindInvalidArgument, "ntuple: Read type mismatch: have %s want %s", rv.Elem().Type(), r.root.GoType())
	}
	if index >= r.entries {
		return errs.New(errs.KindInvalidArgument, "ntuple: index %d out of range [0,%d)", index, r.entries)
	}
	return r.root.Read(index, rv.Elem())
}

// NumEntries reports the total entry count this Reader was opened with.
func (r *Reader) NumEntries() uint64 { return r.entries }

// Root exposes the connected field tree, e.g. for field.Walk-based schema
// introspection.
func (r *Reader) Root() field.Field { return r.root }

// Close releases the underlying source.
func (r *Reader) Close() error { return r.source.Close() }
