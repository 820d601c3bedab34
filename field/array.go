package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/storage"
)

// FixedArrayField maps a fixed-length homogeneous array onto a single item
// field repeated N times per entry (spec.md §4.3 "fixed array"): its
// principal index is the parent's, multiplied by the repetition count
// (spec.md §4.2 "fixed arrays multiply by repetition count").
type FixedArrayField struct {
	Base
	item Field
	n    int
}

func newFixedArray(name, typeName string, item Field, n int) *FixedArrayField {
	goType := reflect.ArrayOf(n, item.GoType())
	f := &FixedArrayField{item: item, n: n}
	f.Base = newBase(name, typeName, goType, typesvcArrayInfo(item, n), nil, f)
	f.Base.children = []Field{item}
	f.Base.repetition = n
	setParent(item, f)
	return f
}

func (f *FixedArrayField) structureKind() StructureKind { return StructureLeaf }

func (f *FixedArrayField) traits(b *Base) Traits { return f.item.Traits() }

func (f *FixedArrayField) representations(b *Base) column.RepresentationSet {
	return column.RepresentationSet{}
}

func (f *FixedArrayField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
	return nil
}

func (f *FixedArrayField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	return nil
}

func (f *FixedArrayField) appendValue(b *Base, v reflect.Value) (int, error) {
	total := 0
	for i := 0; i < f.n; i++ {
		n, err := f.item.Append(v.Index(i))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (f *FixedArrayField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	base := localIndex * uint64(f.n)
	for i := 0; i < f.n; i++ {
		if err := f.item.Read(base+uint64(i), v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (f *FixedArrayField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) { return nil, nil }

func (f *FixedArrayField) commitCluster(b *Base) error { return nil }

func (f *FixedArrayField) ownColumns(b *Base) []storage.ColumnHandle { return nil }

func (f *FixedArrayField) zeroValue(b *Base) reflect.Value { return reflect.New(b.goType).Elem() }

func (f *FixedArrayField) Clone(newName string) Field {
	item := f.item.Clone(f.item.Name())
	nf := &FixedArrayField{item: item, n: f.n}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	nf.Base.children = []Field{item}
	nf.Base.repetition = f.n
	setParent(item, nf)
	return nf
}
