package storage

import (
	"fmt"
	"os"
	"sort"

	"github.com/fieldstore/ntuple/internal/wire"
)

const pageSize = 4096

// fileHandle is the subset of *os.File syncDirty needs, kept narrow so the
// unix/other builds can share pagefile.go without importing os themselves.
type fileHandle interface {
	WriteAt(b []byte, off int64) (int, error)
}

// pfColumn is one column's bump-allocated region within the mapped file.
type pfColumn struct {
	et         wire.ElementType
	firstEntry uint64
	off        int64 // byte offset within the mapped region
	len        int64 // bytes used so far
	nElems     int
	splitAtEnd bool  // whether the bytes currently on disk are split-encoded
	splitLen   int64 // leading bytes covered by the last split encoding

	// clusterStarts/itemBaselines mirror memColumn's: the entry index each
	// cluster began at and the absolute item count written by that point,
	// for an offset-typed column (spec.md §8 property 6).
	clusterStarts []uint64
	itemBaselines []uint64
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
// began. Columns with no recorded cluster boundary are treated as one
// cluster starting at 0.
func (c *pfColumn) clusterFor(globalIndex uint64) (idx, firstEntry, itemBaseline uint64) {
	if len(c.clusterStarts) == 0 {
		return 0, 0, 0
	}
	i := sort.Search(len(c.clusterStarts), func(i int) bool { return c.clusterStarts[i] > globalIndex }) - 1
	if i < 0 {
		i = 0
	}
	return uint64(i), c.clusterStarts[i], c.itemBaselines[i]
}

// PageFile is a PageSink/PageSource backed by a memory-mapped, page-aligned
// growable file (spec.md §6; adapted from the teacher's internal/mmfile +
// hive/dirty). Columns are bump-allocated append-only regions; the
// directory mapping field IDs to columns lives in memory for the lifetime
// of the process, since on-disk container formats are explicitly out of
// scope (spec.md §1).
type PageFile struct {
	f    *os.File
	data []byte
	size int64

	dirty dirtyTracker

	opts       WriteOptions
	cols       map[ColumnHandle]*pfColumn
	nextHandle ColumnHandle
	byField    map[uint64][]ColumnHandle
	typeVer    map[uint64]uint32
}

// CreatePageFile creates (or truncates) path and returns a PageFile ready
// to be used as a PageSink.
func CreatePageFile(path string, opts WriteOptions) (*PageFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	pf := &PageFile{
		f:       f,
		opts:    opts,
		cols:    make(map[ColumnHandle]*pfColumn),
		byField: make(map[uint64][]ColumnHandle),
		typeVer: make(map[uint64]uint32),
	}
	if err := pf.growTo(pageSize); err != nil {
		f.Close()
		return nil, err
	}
	return pf, nil
}

func (pf *PageFile) growTo(newSize int64) error {
	if newSize <= pf.size {
		return nil
	}
	aligned := ((newSize + pageSize - 1) / pageSize) * pageSize
	if err := pf.f.Truncate(aligned); err != nil {
		return err
	}
	if pf.data != nil {
		if err := munmapFile(pf.data); err != nil {
			return err
		}
	}
	data, err := mmapFile(int(pf.f.Fd()), aligned)
	if err != nil {
		return err
	}
	pf.data = data
	pf.size = aligned
	return nil
}

func (pf *PageFile) alloc(n int64) (int64, error) {
	// Bump-allocate at the current end of file, growing as needed.
	var end int64
	for _, c := range pf.cols {
		if e := c.off + c.len; e > end {
			end = e
		}
	}
	if end == 0 {
		end = pageSize // reserve page 0 for a future header
	}
	if err := pf.growTo(end + n); err != nil {
		return 0, err
	}
	return end, nil
}

func (pf *PageFile) BindField(onDiskID uint64, typeVersion uint32, handles ...ColumnHandle) {
	pf.byField[onDiskID] = append([]ColumnHandle(nil), handles...)
	pf.typeVer[onDiskID] = typeVersion
}

func (pf *PageFile) CreateColumn(et wire.ElementType, firstEntry uint64) (ColumnHandle, error) {
	pf.nextHandle++
	h := pf.nextHandle
	pf.cols[h] = &pfColumn{et: et, firstEntry: firstEntry}
	return h, nil
}

func (pf *PageFile) width(c *pfColumn) int {
	if c.et == wire.Bit {
		return 0
	}
	return c.et.PlainCounterpart().PackedSize()
}

func (pf *PageFile) Append(h ColumnHandle, packed []byte) (int, error) {
	c, ok := pf.cols[h]
	if !ok {
		return 0, fmt.Errorf("storage: unknown column %d", h)
	}
	if c.et == wire.Bit {
		bitIdx := c.nElems
		byteOff := int64(bitIdx / 8)
		if byteOff >= c.len {
			newOff, err := pf.reserveGrow(c, byteOff+1)
			if err != nil {
				return 0, err
			}
			_ = newOff
			c.len = byteOff + 1
		}
		if len(packed) > 0 && packed[0] != 0 {
			idx := c.off + byteOff
			pf.data[idx] |= 1 << uint(bitIdx%8)
			pf.dirty.add(idx, 1)
		}
		c.nElems++
		return 1, nil
	}
	w := pf.width(c)
	if len(packed) != w {
		return 0, fmt.Errorf("storage: column %d wants %d bytes, got %d", h, w, len(packed))
	}
	need := c.len + int64(w)
	if _, err := pf.reserveGrow(c, need); err != nil {
		return 0, err
	}
	copy(pf.data[c.off+c.len:c.off+need], packed)
	pf.dirty.add(c.off+c.len, int64(w))
	c.len = need
	c.nElems++
	return w, nil
}

// reserveGrow ensures c has at least need bytes reserved, relocating its
// region to the end of file if it must grow past what was bump-allocated
// contiguously after it.
func (pf *PageFile) reserveGrow(c *pfColumn, need int64) (int64, error) {
	if c.off == 0 && c.len == 0 {
		off, err := pf.alloc(need)
		if err != nil {
			return 0, err
		}
		c.off = off
		return off, nil
	}
	if need <= c.len {
		return c.off, nil
	}
	// Grow in place if this column is already the last allocation.
	isLast := true
	for _, other := range pf.cols {
		if other != c && other.off >= c.off+c.len {
			isLast = false
			break
		}
	}
	if isLast {
		if err := pf.growTo(c.off + need); err != nil {
			return 0, err
		}
		return c.off, nil
	}
	// Relocate.
	newOff, err := pf.alloc(need)
	if err != nil {
		return 0, err
	}
	copy(pf.data[newOff:newOff+c.len], pf.data[c.off:c.off+c.len])
	pf.dirty.add(newOff, c.len)
	c.off = newOff
	return newOff, nil
}

// CommitCluster applies split encoding (when the sink was opened with
// UseSplitEncoding and the column's element type is split) to the bytes
// written since the last commit, records the cluster boundary for
// offset-typed columns (spec.md §8 property 6), then flushes dirty ranges to
// disk.
func (pf *PageFile) CommitCluster(h ColumnHandle) error {
	c, ok := pf.cols[h]
	if !ok {
		return fmt.Errorf("storage: unknown column %d", h)
	}
	if pf.opts.UseSplitEncoding && c.et.IsSplit() && c.len > 0 {
		w := pf.width(c)
		if w > 0 {
			// Re-derive the plain bytes (undoing any prior split encoding) and
			// re-split the whole region, so bytes appended after an earlier
			// commit are encoded consistently with the rest of the column.
			var plain []byte
			if c.splitAtEnd {
				plain = wire.SplitDecode(w, pf.data[c.off:c.off+c.splitLen])
				plain = append(plain, pf.data[c.off+c.splitLen:c.off+c.len]...)
			} else {
				plain = append([]byte(nil), pf.data[c.off:c.off+c.len]...)
			}
			split := wire.SplitEncode(w, plain)
			copy(pf.data[c.off:c.off+c.len], split)
			pf.dirty.add(c.off, c.len)
			c.splitAtEnd = true
			c.splitLen = c.len
		}
	}
	if isOffsetType(c.et) {
		if len(c.clusterStarts) == 0 {
			c.clusterStarts = []uint64{0}
			c.itemBaselines = []uint64{0}
		}
		lastStart := c.clusterStarts[len(c.clusterStarts)-1]
		n := uint64(c.nElems)
		if n > lastStart {
			lastVal := wire.Scalar(c.et.PlainCounterpart(), pf.elemBytes(c, n-1))
			lastBaseline := c.itemBaselines[len(c.itemBaselines)-1]
			c.clusterStarts = append(c.clusterStarts, n)
			c.itemBaselines = append(c.itemBaselines, lastBaseline+lastVal)
		}
	}
	return syncDirty(pf.f, pf.data, &pf.dirty)
}

// Layout reports h's physical placement within the mapped file: its
// element type, byte offset/length, element count, and whether the bytes
// currently on disk are split-encoded. A Descriptor persists this
// alongside the field directory so a later process can RegisterColumn the
// same column back into a freshly opened PageFile (spec.md §6, "on-disk
// container formats are out of scope" — the layout sidecar is the
// Descriptor's job, not PageFile's).
func (pf *PageFile) Layout(h ColumnHandle) (et wire.ElementType, off, length int64, nElems int, split bool, ok bool) {
	c, ok := pf.cols[h]
	if !ok {
		return 0, 0, 0, 0, false, false
	}
	return c.et, c.off, c.len, c.nElems, c.splitAtEnd, true
}

// FieldIDs returns the on-disk field IDs currently bound, ascending.
func (pf *PageFile) FieldIDs() []uint64 {
	ids := make([]uint64, 0, len(pf.byField))
	for id := range pf.byField {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (pf *PageFile) Options() WriteOptions { return pf.opts }

func (pf *PageFile) Close() error {
	if pf.data != nil {
		munmapFile(pf.data)
	}
	return pf.f.Close()
}

// OpenPageFile reopens path as a PageSource. Column directory and field
// bindings must be supplied by the caller via BindField/RegisterColumn,
// matching that container formats are out of scope (spec.md §1): callers
// that need cross-process persistence store the directory themselves (the
// Descriptor's job, not PageFile's).
func OpenPageFile(path string, opts WriteOptions) (*PageFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	pf := &PageFile{
		f:       f,
		opts:    opts,
		cols:    make(map[ColumnHandle]*pfColumn),
		byField: make(map[uint64][]ColumnHandle),
		typeVer: make(map[uint64]uint32),
	}
	if err := pf.growTo(info.Size()); err != nil {
		f.Close()
		return nil, err
	}
	pf.size = info.Size()
	return pf, nil
}

// RegisterColumn re-declares a column (offset/length/type) on a source
// opened via OpenPageFile, mirroring what a real Descriptor lookup would
// supply.
func (pf *PageFile) RegisterColumn(h ColumnHandle, et wire.ElementType, off, length int64, nElems int, split bool) {
	c := &pfColumn{et: et, off: off, len: length, nElems: nElems, splitAtEnd: split}
	if split {
		c.splitLen = length
	}
	pf.cols[h] = c
}

func (pf *PageFile) LookupColumns(onDiskID uint64) ([]ColumnDescriptor, error) {
	handles, ok := pf.byField[onDiskID]
	if !ok {
		return nil, fmt.Errorf("storage: no columns bound for field %d", onDiskID)
	}
	out := make([]ColumnDescriptor, 0, len(handles))
	for _, h := range handles {
		out = append(out, ColumnDescriptor{Type: pf.cols[h].et, Handle: h})
	}
	return out, nil
}

func (pf *PageFile) LookupTypeVersion(onDiskID uint64) (uint32, error) {
	return pf.typeVer[onDiskID], nil
}

func (pf *PageFile) elemBytes(c *pfColumn, globalIndex uint64) []byte {
	w := pf.width(c)
	off := c.off + int64(globalIndex)*int64(w)
	if c.splitAtEnd {
		// Un-transpose lazily: decode the whole region once per read. A
		// production column would cache this; PageFile keeps it simple
		// since container persistence is out of scope.
		plain := wire.SplitDecode(w, pf.data[c.off:c.off+c.len])
		i := int(globalIndex)
		return plain[i*w : i*w+w : i*w+w]
	}
	return pf.data[off : off+int64(w)]
}

func (pf *PageFile) Read(h ColumnHandle, globalIndex uint64, out []byte) error {
	c, ok := pf.cols[h]
	if !ok {
		return fmt.Errorf("storage: unknown column %d", h)
	}
	if c.et == wire.Bit {
		bitIdx := int(globalIndex)
		idx := c.off + int64(bitIdx/8)
		out[0] = (pf.data[idx] >> uint(bitIdx%8)) & 1
		return nil
	}
	copy(out, pf.elemBytes(c, globalIndex))
	return nil
}

func (pf *PageFile) ReadV(h ColumnHandle, globalIndex uint64, count int, out []byte) error {
	c, ok := pf.cols[h]
	if !ok {
		return fmt.Errorf("storage: unknown column %d", h)
	}
	if c.et == wire.Bit {
		for i := 0; i < count; i++ {
			if err := pf.Read(h, globalIndex+uint64(i), out[i:i+1]); err != nil {
				return err
			}
		}
		return nil
	}
	w := pf.width(c)
	for i := 0; i < count; i++ {
		copy(out[i*w:i*w+w], pf.elemBytes(c, globalIndex+uint64(i)))
	}
	return nil
}

func (pf *PageFile) GetCollectionInfo(h ColumnHandle, globalIndex uint64) (CollectionInfo, error) {
	c, ok := pf.cols[h]
	if !ok {
		return CollectionInfo{}, fmt.Errorf("storage: unknown column %d", h)
	}
	clusterIdx, clusterFirstEntry, itemBaseline := c.clusterFor(globalIndex)

	var prevRelative uint64
	if globalIndex > clusterFirstEntry {
		prevRelative = wire.Scalar(c.et.PlainCounterpart(), pf.elemBytes(c, globalIndex-1))
	}
	curRelative := wire.Scalar(c.et.PlainCounterpart(), pf.elemBytes(c, globalIndex))
	return CollectionInfo{
		Cluster:        clusterIdx,
		FirstItemIndex: itemBaseline + prevRelative,
		Size:           curRelative - prevRelative,
	}, nil
}

func (pf *PageFile) MapV(h ColumnHandle, globalIndex uint64) ([]byte, int, error) {
	c, ok := pf.cols[h]
	if !ok {
		return nil, 0, fmt.Errorf("storage: unknown column %d", h)
	}
	if c.et == wire.Bit || c.splitAtEnd {
		return nil, 0, fmt.Errorf("storage: MapV unsupported for this column encoding")
	}
	w := pf.width(c)
	off := c.off + int64(globalIndex)*int64(w)
	end := c.off + c.len
	if off > end {
		return nil, 0, fmt.Errorf("storage: index %d out of range", globalIndex)
	}
	return pf.data[off:end], int(end-off) / w, nil
}
