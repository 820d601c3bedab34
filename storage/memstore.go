package storage

import (
	"fmt"
	"sort"

	"github.com/fieldstore/ntuple/internal/wire"
)

// memColumn is one physical column's storage. Bit columns pack 8 logical
// elements per byte; every other element type is stored at its plain
// (non-split) width — MemStore is an in-memory data structure, not a wire
// format, so it has no need to byte-transpose (see PageFile for a backend
// that actually exercises split encoding on the wire).
type memColumn struct {
	et         wire.ElementType
	firstEntry uint64
	data       []byte // concatenated packed bytes, or packed bits for Bit
	nElems     int
	onDiskID   uint64

	// clusterStarts/itemBaselines record, for an offset-typed column, the
	// entry index each cluster began at and the absolute item count already
	// written by that point — populated at CommitCluster so GetCollectionInfo
	// can resolve a cluster-local offset value back to an absolute item
	// index (spec.md §8 property 6: offsets are cluster-local).
	clusterStarts []uint64
	itemBaselines []uint64
}

func (c *memColumn) width() int {
	if c.et == wire.Bit {
		return 0
	}
	return c.et.PlainCounterpart().PackedSize()
}

// isOffsetType reports whether et is one of the index element types
// reserved for a collection field's offset column.
func isOffsetType(et wire.ElementType) bool {
	switch et.PlainCounterpart() {
	case wire.Index32, wire.Index64:
		return true
	}
	return false
}

// clusterFor resolves globalIndex to its cluster index, the entry index the
// cluster began at, and the absolute item count written before the cluster
// began. Columns with no recorded cluster boundary (CommitCluster never
// called, or not an offset column) are treated as one cluster starting at 0.
func (c *memColumn) clusterFor(globalIndex uint64) (idx, firstEntry, itemBaseline uint64) {
	if len(c.clusterStarts) == 0 {
		return 0, 0, 0
	}
	i := sort.Search(len(c.clusterStarts), func(i int) bool { return c.clusterStarts[i] > globalIndex }) - 1
	if i < 0 {
		i = 0
	}
	return uint64(i), c.clusterStarts[i], c.itemBaselines[i]
}

// MemStore is an in-memory PageSink and PageSource pair. It is the default
// backend used by pkg/ntuple's tests and by any caller that does not need
// durable storage.
type MemStore struct {
	opts    WriteOptions
	cols    map[ColumnHandle]*memColumn
	next    ColumnHandle
	byField map[uint64][]ColumnHandle // onDiskID -> column handles, in declaration order
	typeVer map[uint64]uint32
}

// NewMemStore creates an empty store usable first as a PageSink (to write)
// and then, as the same value, as a PageSource.
func NewMemStore(opts WriteOptions) *MemStore {
	return &MemStore{
		opts:    opts,
		cols:    make(map[ColumnHandle]*memColumn),
		byField: make(map[uint64][]ColumnHandle),
		typeVer: make(map[uint64]uint32),
	}
}

// BindField records which columns belong to onDiskID, in order, and the
// on-disk type version for the field — the bookkeeping a real Descriptor
// would persist. Called by the writer side after GenerateColumnsForWrite.
func (m *MemStore) BindField(onDiskID uint64, typeVersion uint32, handles ...ColumnHandle) {
	m.byField[onDiskID] = append([]ColumnHandle(nil), handles...)
	m.typeVer[onDiskID] = typeVersion
}

func (m *MemStore) CreateColumn(et wire.ElementType, firstEntry uint64) (ColumnHandle, error) {
	m.next++
	h := m.next
	m.cols[h] = &memColumn{et: et, firstEntry: firstEntry}
	return h, nil
}

func (m *MemStore) Append(h ColumnHandle, packed []byte) (int, error) {
	c, ok := m.cols[h]
	if !ok {
		return 0, fmt.Errorf("storage: unknown column %d", h)
	}
	if c.et == wire.Bit {
		bitIdx := c.nElems
		byteIdx := bitIdx / 8
		for len(c.data) <= byteIdx {
			c.data = append(c.data, 0)
		}
		if len(packed) > 0 && packed[0] != 0 {
			c.data[byteIdx] |= 1 << uint(bitIdx%8)
		}
		c.nElems++
		return 1, nil
	}
	w := c.width()
	if len(packed) != w {
		return 0, fmt.Errorf("storage: column %d wants %d bytes, got %d", h, w, len(packed))
	}
	c.data = append(c.data, packed...)
	c.nElems++
	return w, nil
}

func (m *MemStore) CommitCluster(h ColumnHandle) error {
	c, ok := m.cols[h]
	if !ok {
		return fmt.Errorf("storage: unknown column %d", h)
	}
	if !isOffsetType(c.et) {
		return nil
	}
	if len(c.clusterStarts) == 0 {
		c.clusterStarts = []uint64{0}
		c.itemBaselines = []uint64{0}
	}
	lastStart := c.clusterStarts[len(c.clusterStarts)-1]
	n := uint64(c.nElems)
	if n <= lastStart {
		return nil
	}
	buf := make([]byte, c.width())
	if err := m.Read(h, n-1, buf); err != nil {
		return err
	}
	lastVal := wire.Scalar(c.et.PlainCounterpart(), buf)
	lastBaseline := c.itemBaselines[len(c.itemBaselines)-1]
	c.clusterStarts = append(c.clusterStarts, n)
	c.itemBaselines = append(c.itemBaselines, lastBaseline+lastVal)
	return nil
}

func (m *MemStore) Options() WriteOptions { return m.opts }

func (m *MemStore) Close() error { return nil }

// LookupColumns implements PageSource.
func (m *MemStore) LookupColumns(onDiskID uint64) ([]ColumnDescriptor, error) {
	handles, ok := m.byField[onDiskID]
	if !ok {
		return nil, fmt.Errorf("storage: no columns bound for field %d", onDiskID)
	}
	out := make([]ColumnDescriptor, 0, len(handles))
	for _, h := range handles {
		c := m.cols[h]
		out = append(out, ColumnDescriptor{Type: c.et, Handle: h})
	}
	return out, nil
}

func (m *MemStore) LookupTypeVersion(onDiskID uint64) (uint32, error) {
	return m.typeVer[onDiskID], nil
}

func (m *MemStore) Read(h ColumnHandle, globalIndex uint64, out []byte) error {
	c, ok := m.cols[h]
	if !ok {
		return fmt.Errorf("storage: unknown column %d", h)
	}
	if c.et == wire.Bit {
		bitIdx := int(globalIndex)
		byteIdx := bitIdx / 8
		if byteIdx >= len(c.data) {
			return fmt.Errorf("storage: bit index %d out of range", bitIdx)
		}
		bit := (c.data[byteIdx] >> uint(bitIdx%8)) & 1
		out[0] = bit
		return nil
	}
	w := c.width()
	off := int(globalIndex) * w
	if off+w > len(c.data) {
		return fmt.Errorf("storage: index %d out of range for column %d", globalIndex, h)
	}
	copy(out, c.data[off:off+w])
	return nil
}

func (m *MemStore) ReadV(h ColumnHandle, globalIndex uint64, count int, out []byte) error {
	c, ok := m.cols[h]
	if !ok {
		return fmt.Errorf("storage: unknown column %d", h)
	}
	if c.et == wire.Bit {
		for i := 0; i < count; i++ {
			if err := m.Read(h, globalIndex+uint64(i), out[i:i+1]); err != nil {
				return err
			}
		}
		return nil
	}
	w := c.width()
	off := int(globalIndex) * w
	need := count * w
	if off+need > len(c.data) {
		return fmt.Errorf("storage: range [%d,%d) out of range for column %d", globalIndex, int(globalIndex)+count, h)
	}
	copy(out, c.data[off:off+need])
	return nil
}

func (m *MemStore) GetCollectionInfo(h ColumnHandle, globalIndex uint64) (CollectionInfo, error) {
	c, ok := m.cols[h]
	if !ok {
		return CollectionInfo{}, fmt.Errorf("storage: unknown column %d", h)
	}
	clusterIdx, clusterFirstEntry, itemBaseline := c.clusterFor(globalIndex)

	var prevRelative uint64
	if globalIndex > clusterFirstEntry {
		buf := make([]byte, c.width())
		if err := m.Read(h, globalIndex-1, buf); err != nil {
			return CollectionInfo{}, err
		}
		prevRelative = wire.Scalar(c.et.PlainCounterpart(), buf)
	}
	buf := make([]byte, c.width())
	if err := m.Read(h, globalIndex, buf); err != nil {
		return CollectionInfo{}, err
	}
	curRelative := wire.Scalar(c.et.PlainCounterpart(), buf)
	return CollectionInfo{
		Cluster:        clusterIdx,
		FirstItemIndex: itemBaseline + prevRelative,
		Size:           curRelative - prevRelative,
	}, nil
}

func (m *MemStore) MapV(h ColumnHandle, globalIndex uint64) ([]byte, int, error) {
	c, ok := m.cols[h]
	if !ok {
		return nil, 0, fmt.Errorf("storage: unknown column %d", h)
	}
	if c.et == wire.Bit {
		return nil, 0, fmt.Errorf("storage: MapV unsupported for bit columns")
	}
	w := c.width()
	off := int(globalIndex) * w
	if off > len(c.data) {
		return nil, 0, fmt.Errorf("storage: index %d out of range", globalIndex)
	}
	return c.data[off:], (len(c.data) - off) / w, nil
}

// FieldIDs returns field IDs bound so far, ascending — useful for
// deterministic schema dumps (cmd/ntuplectl, pkg/ntuple.Descriptor).
func (m *MemStore) FieldIDs() []uint64 {
	ids := make([]uint64, 0, len(m.byField))
	for id := range m.byField {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
