package field

import (
	"encoding/binary"
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// VectorField maps a variable-length typed collection ([]T, spec.md §4.3
// "vector/RVec") onto an Index offset column plus one item child field. The
// item field's own index space resets conceptually at the collection
// boundary (spec.md §4.2 "collection children reset index to 0"); see
// column.OffsetColumn's doc comment for how this engine's flat storage
// backends simplify that to a running absolute index.
type VectorField struct {
	Base
	item   Field
	offset *column.OffsetColumn
	source storage.PageSource
	srcH   storage.ColumnHandle
}

func newVector(name, typeName string, item Field) *VectorField {
	goType := reflect.SliceOf(item.GoType())
	f := &VectorField{item: item}
	f.Base = newBase(name, typeName, goType, typesvc.Info{Kind: typesvc.KindSlice, ElemTypeName: item.TypeName()}, nil, f)
	f.Base.children = []Field{item}
	f.Base.resetsIndex = true
	setParent(item, f)
	return f
}

func (f *VectorField) structureKind() StructureKind { return StructureCollection }

func (f *VectorField) traits(b *Base) Traits {
	return Traits{TriviallyConstructible: true, TriviallyDestructible: true, Mappable: false}
}

func (f *VectorField) representations(b *Base) column.RepresentationSet {
	return column.RepresentationSet{
		Serialization:        []column.Representation{{wire.SplitIndex64}},
		DeserializeOnlyExtra: []column.Representation{{wire.Index64}, {wire.SplitIndex32}, {wire.Index32}},
	}
}

func (f *VectorField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
	et := wire.SplitIndex64
	if !sink.Options().UseSplitEncoding || !sink.Options().CompressionEnabled {
		et = wire.Index64
	}
	c, err := column.CreateForWrite(sink, et, firstEntry)
	if err != nil {
		return err
	}
	f.offset = column.NewOffsetColumn(c)
	return nil
}

func (f *VectorField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	if len(descs) != 1 {
		return errs.New(errs.KindSchemaMismatch, "vector field %q: expected one offset column, got %d", b.name, len(descs))
	}
	c := column.BindForRead(src, descs[0].Type, descs[0].Handle)
	f.offset = column.NewOffsetColumn(c)
	f.source = src
	f.srcH = descs[0].Handle
	return nil
}

func (f *VectorField) appendValue(b *Base, v reflect.Value) (int, error) {
	n := v.Len()
	total := 0
	for i := 0; i < n; i++ {
		w, err := f.item.Append(v.Index(i))
		if err != nil {
			return total, err
		}
		total += w
	}
	w, err := f.offset.AppendSize(uint64(n))
	return total + w, err
}

func (f *VectorField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	first, size, err := column.CollectionRange(f.source, f.srcH, localIndex)
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(b.goType, int(size), int(size))
	for i := uint64(0); i < size; i++ {
		if err := f.item.Read(first+i, out.Index(int(i))); err != nil {
			return err
		}
	}
	v.Set(out)
	return nil
}

func (f *VectorField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) { return nil, nil }

// BulkRead vectorizes the offset lookups for [FirstIndex, FirstIndex+Count)
// into AuxData — a flat (first uint64, size uint64) pair per slot — before
// filling each slot's item slice, so the offset column's per-entry cost is
// paid once up front rather than interleaved with item reads (spec.md §4.1
// "bulk read", §4.3 "vector/RVec"). Collections are never Simple, so every
// slot is always filled: the ALL sentinel still applies.
func (f *VectorField) BulkRead(h *BulkHandle) error {
	if f.State() != StateConnectedSource {
		return errs.New(errs.KindStateViolation, "field %q: BulkRead requires a source connection", f.Name())
	}
	const pairWidth = 16
	need := h.Count * pairWidth
	if cap(h.AuxData) < need {
		h.AuxData = make([]byte, need)
	}
	ranges := h.AuxData[:need]
	for i := 0; i < h.Count; i++ {
		first, size, err := column.CollectionRange(f.source, f.srcH, h.FirstIndex+uint64(i))
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(ranges[i*pairWidth:], first)
		binary.LittleEndian.PutUint64(ranges[i*pairWidth+8:], size)
	}
	for i := 0; i < h.Count; i++ {
		first := binary.LittleEndian.Uint64(ranges[i*pairWidth:])
		size := binary.LittleEndian.Uint64(ranges[i*pairWidth+8:])
		out := reflect.MakeSlice(f.GoType(), int(size), int(size))
		for j := uint64(0); j < size; j++ {
			if err := f.item.Read(first+j, out.Index(int(j))); err != nil {
				return err
			}
		}
		h.Values.Index(i).Set(out)
	}
	h.MarkAllFilled()
	return nil
}

// rangeAt implements sizedCollection for CardinalityField.
func (f *VectorField) rangeAt(localIndex uint64) (first, size uint64, err error) {
	return column.CollectionRange(f.source, f.srcH, localIndex)
}

func (f *VectorField) commitCluster(b *Base) error { return f.offset.CommitCluster() }

func (f *VectorField) ownColumns(b *Base) []storage.ColumnHandle {
	return []storage.ColumnHandle{f.offset.Handle()}
}

func (f *VectorField) zeroValue(b *Base) reflect.Value { return reflect.MakeSlice(b.goType, 0, 0) }

func (f *VectorField) Clone(newName string) Field {
	item := f.item.Clone(f.item.Name())
	nf := &VectorField{item: item}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	nf.Base.children = []Field{item}
	nf.Base.resetsIndex = true
	setParent(item, nf)
	return nf
}
