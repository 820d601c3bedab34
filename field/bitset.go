package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// BitsetField maps a fixed-width bit vector (std::bitset<N>-like) onto one
// Bit column, N consecutive elements per entry (spec.md §4.3 "bitset").
type BitsetField struct {
	Base
	n   int
	col *column.Column
}

func newBitset(name, typeName string, n int) *BitsetField {
	goType := reflect.ArrayOf(n, reflect.TypeOf(false))
	f := &BitsetField{n: n}
	f.Base = newBase(name, typeName, goType, typesvc.Info{Kind: typesvc.KindFixedArray, FixedLen: n}, nil, f)
	return f
}

func (f *BitsetField) structureKind() StructureKind { return StructureLeaf }

func (f *BitsetField) traits(b *Base) Traits {
	return Traits{TriviallyConstructible: true, TriviallyDestructible: true, Mappable: false}
}

func (f *BitsetField) representations(b *Base) column.RepresentationSet {
	return column.RepresentationSet{Serialization: []column.Representation{{wire.Bit}}}
}

func (f *BitsetField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
	c, err := column.CreateForWrite(sink, wire.Bit, firstEntry)
	if err != nil {
		return err
	}
	f.col = c
	return nil
}

func (f *BitsetField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	if len(descs) != 1 {
		return errs.New(errs.KindSchemaMismatch, "bitset field %q: expected one column, got %d", b.name, len(descs))
	}
	f.col = column.BindForRead(src, descs[0].Type, descs[0].Handle)
	return nil
}

func (f *BitsetField) appendValue(b *Base, v reflect.Value) (int, error) {
	total := 0
	for i := 0; i < f.n; i++ {
		n, err := f.col.AppendScalar(boolBit(v.Index(i).Bool()))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (f *BitsetField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	base := localIndex * uint64(f.n)
	for i := 0; i < f.n; i++ {
		bit, err := f.col.ReadScalar(base + uint64(i))
		if err != nil {
			return err
		}
		v.Index(i).SetBool(bit != 0)
	}
	return nil
}

func (f *BitsetField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) { return nil, nil }

func (f *BitsetField) commitCluster(b *Base) error { return f.col.CommitCluster() }

func (f *BitsetField) ownColumns(b *Base) []storage.ColumnHandle {
	return []storage.ColumnHandle{f.col.Handle()}
}

func (f *BitsetField) zeroValue(b *Base) reflect.Value { return reflect.New(b.goType).Elem() }

func (f *BitsetField) Clone(newName string) Field {
	nf := &BitsetField{n: f.n}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	return nf
}

func boolBit(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
