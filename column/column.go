// Package column wraps a storage.PageSink/PageSource column handle with the
// element-packing and cluster-local bookkeeping spec.md §3's "Column" entity
// and §4.1's bulk-read fast path need, keeping field/ free of wire-format
// and storage-handle details.
package column

import (
	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
)

// Column is one physical column, bound either for writing (sink != nil) or
// reading (source != nil), never both — mirroring the field connect
// lifecycle's own unconnected/sink/source split.
type Column struct {
	Type   wire.ElementType
	handle storage.ColumnHandle

	sink   storage.PageSink
	source storage.PageSource

	nElems uint64 // elements appended since the column was created
}

// CreateForWrite allocates a new physical column on sink and returns the
// wrapper used to append to it.
func CreateForWrite(sink storage.PageSink, et wire.ElementType, firstEntry uint64) (*Column, error) {
	h, err := sink.CreateColumn(et, firstEntry)
	if err != nil {
		return nil, err
	}
	return &Column{Type: et, handle: h, sink: sink}, nil
}

// BindForRead wraps an already-resolved on-disk column (from
// PageSource.LookupColumns) for reading.
func BindForRead(source storage.PageSource, et wire.ElementType, h storage.ColumnHandle) *Column {
	return &Column{Type: et, handle: h, source: source}
}

// Handle exposes the underlying storage handle, e.g. for GetCollectionInfo.
func (c *Column) Handle() storage.ColumnHandle { return c.handle }

// NumElements reports how many elements have been appended (write side).
func (c *Column) NumElements() uint64 { return c.nElems }

// Append writes one packed element (or, for Bit columns, one 0/1 byte) and
// reports the number of bytes the sink actually wrote (spec.md §4.1
// "Append(ptr) → bytes written").
func (c *Column) Append(packed []byte) (int, error) {
	n, err := c.sink.Append(c.handle, packed)
	if err != nil {
		return 0, err
	}
	c.nElems++
	return n, nil
}

// AppendScalar packs v as the column's element type and appends it.
func (c *Column) AppendScalar(v uint64) (int, error) {
	if c.Type == wire.Bit {
		b := byte(0)
		if v != 0 {
			b = 1
		}
		return c.Append([]byte{b})
	}
	buf := make([]byte, c.Type.PackedSize())
	wire.PutScalar(c.Type, buf, v)
	return c.Append(buf)
}

// ReadInto populates out (sized et.PackedSize(), or 1 byte for Bit) with the
// element at globalIndex.
func (c *Column) ReadInto(globalIndex uint64, out []byte) error {
	return c.source.Read(c.handle, globalIndex, out)
}

// ReadScalar reads and unpacks the element at globalIndex.
func (c *Column) ReadScalar(globalIndex uint64) (uint64, error) {
	if c.Type == wire.Bit {
		out := make([]byte, 1)
		if err := c.ReadInto(globalIndex, out); err != nil {
			return 0, err
		}
		return uint64(out[0]), nil
	}
	out := make([]byte, c.Type.PackedSize())
	if err := c.ReadInto(globalIndex, out); err != nil {
		return 0, err
	}
	return wire.Scalar(c.Type, out), nil
}

// ReadV reads count consecutive elements starting at globalIndex in one call.
func (c *Column) ReadV(globalIndex uint64, count int, out []byte) error {
	return c.source.ReadV(c.handle, globalIndex, count, out)
}

// MapV returns a zero-copy view for the bulk-read fast path (spec.md §4.1).
func (c *Column) MapV(globalIndex uint64) ([]byte, int, error) {
	return c.source.MapV(c.handle, globalIndex)
}

// CommitCluster flushes per-cluster sink state at a cluster boundary.
func (c *Column) CommitCluster() error {
	if c.sink == nil {
		return nil
	}
	return c.sink.CommitCluster(c.handle)
}
