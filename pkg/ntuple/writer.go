package ntuple

import (
	"reflect"

	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/field"
	"github.com/fieldstore/ntuple/storage"
)

// Writer drives a field tree connected to a PageSink: Append hands it one
// entry at a time, CommitCluster flushes a cluster boundary (spec.md §5,
// "Cluster commit"), and Descriptor reports the on-disk field directory a
// Reader (or a persisted sidecar, see Descriptor.Save) needs later.
type Writer struct {
	sink    storage.PageSink
	root    field.Field
	desc    *Descriptor
	entries uint64
}

// NewWriter connects root to sink at entry 0, assigns on-disk field IDs via
// a fresh Descriptor, and returns a Writer ready for Append.
func NewWriter(sink storage.PageSink, root field.Field) (*Writer, error) {
	if err := root.ConnectSink(sink, 0); err != nil {
		return nil, err
	}
	desc := NewDescriptor()
	if err := desc.Bind(sink, root); err != nil {
		return nil, err
	}
	return &Writer{sink: sink, root: root, desc: desc}, nil
}

// Append writes one entry of root's Go type (spec.md §4.1 "Append"),
// returning the number of bytes written to the root field's columns.
func (w *Writer) Append(v any) (int, error) {
	rv := reflect.ValueOf(v)
	if rv.Type() != w.root.GoType() {
		return 0, errs.New(errs.KindInvalidArgument, "ntuple: Append type mismatch: have %s want %s", rv.Type(), w.root.GoType())
	}
	n, err := w.root.Append(rv)
	if err != nil {
		return n, err
	}
	w.entries++
	return n, nil
}

// CommitCluster flushes every field's per-cluster state (spec.md §5).
func (w *Writer) CommitCluster() error {
	return w.root.CommitCluster()
}

// Descriptor reports the on-disk field directory built at connect time.
func (w *Writer) Descriptor() *Descriptor { return w.desc }

// NumEntries reports how many entries have been appended so far.
func (w *Writer) NumEntries() uint64 { return w.entries }

// Root exposes the connected field tree, e.g. for AddReadCallback-style
// schema introspection via field.Walk.
func (w *Writer) Root() field.Field { return w.root }

// Close finalizes the underlying sink.
func (w *Writer) Close() error { return w.sink.Close() }
