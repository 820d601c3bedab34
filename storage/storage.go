// Package storage defines the page sink/source boundary the field engine
// writes to and reads from (spec.md §6, "External Interfaces"). Fields
// never touch files or compression directly — they only ever see a
// ColumnHandle and packed bytes.
package storage

import "github.com/fieldstore/ntuple/internal/wire"

// ColumnHandle identifies one physical column within a sink or source.
// Opaque to fields; sinks/sources are free to encode it however they like.
type ColumnHandle uint64

// WriteOptions carries the representation-negotiation knobs spec.md §4.1
// step 2 and §6 require.
type WriteOptions struct {
	// CompressionEnabled, when false, causes connect-to-sink to swap every
	// split-encoded representation for its plain counterpart.
	CompressionEnabled bool
	// UseSplitEncoding additionally gates split encoding independent of
	// compression (some deployments want split layout without a codec).
	UseSplitEncoding bool
}

// DefaultWriteOptions matches the teacher's "reasonable defaults" pattern:
// compression and split encoding both enabled.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{CompressionEnabled: true, UseSplitEncoding: true}
}

// ColumnDescriptor is one entry of the on-disk column list a Descriptor
// reports for a given on-disk field ID (spec.md §6, "Descriptor").
type ColumnDescriptor struct {
	Type   wire.ElementType
	Handle ColumnHandle
}

// CollectionInfo answers "where does entry globalIndex's collection
// payload live" — the cluster it belongs to, the absolute index of its
// first item in the item column, and the item count (spec.md §6,
// GetCollectionInfo).
type CollectionInfo struct {
	Cluster        uint64
	FirstItemIndex uint64
	Size           uint64
}

// PageSink is the write-side page storage boundary (spec.md §6).
type PageSink interface {
	// CreateColumn allocates a new physical column of the given element
	// type, recording firstEntry as the entry index the column's data
	// starts at (nonzero when a field is added to an already-populated
	// tree, e.g. schema evolution on write).
	CreateColumn(et wire.ElementType, firstEntry uint64) (ColumnHandle, error)
	// Append writes one packed element (or, for Bit columns, one bit) to
	// the column and returns the number of bytes consumed from the
	// column's logical stream (spec.md §8 property 3).
	Append(h ColumnHandle, packed []byte) (int, error)
	// CommitCluster flushes per-cluster state for the column, the way
	// spec.md §5 "Cluster commit" requires at every cluster boundary.
	CommitCluster(h ColumnHandle) error
	// Options reports the write options the sink was opened with.
	Options() WriteOptions
	// Close finalizes the sink.
	Close() error
}

// PageSource is the read-side page storage boundary (spec.md §6).
type PageSource interface {
	// LookupColumns returns the on-disk column type sequence recorded for
	// onDiskID, in declaration order.
	LookupColumns(onDiskID uint64) ([]ColumnDescriptor, error)
	// LookupTypeVersion returns the on-disk type version recorded for a
	// class field's on-disk ID (used for schema evolution, spec.md §4.3).
	LookupTypeVersion(onDiskID uint64) (uint32, error)
	// Read populates out (which must be exactly et.PackedSize() bytes,
	// et being the column's element type) with the element at globalIndex.
	Read(h ColumnHandle, globalIndex uint64, out []byte) error
	// ReadV reads count consecutive elements starting at globalIndex into
	// out (which must be count*et.PackedSize() bytes) in one call.
	ReadV(h ColumnHandle, globalIndex uint64, count int, out []byte) error
	// GetCollectionInfo resolves an offset-column entry into cluster,
	// first-item-index, and size coordinates for collection fields.
	GetCollectionInfo(h ColumnHandle, globalIndex uint64) (CollectionInfo, error)
	// MapV returns a zero-copy view starting at globalIndex along with the
	// number of elements available before the underlying page ends, for
	// the bulk read fast path.
	MapV(h ColumnHandle, globalIndex uint64) (data []byte, nItemsUntilPageEnd int, err error)
	// Close releases any resources (mmaps, file handles) held by the source.
	Close() error
}
