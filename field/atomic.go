package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// AtomicField is a transparent single-field wrapper (spec.md §4.3
// "atomic"): same on-disk shape and Go type as its child, forwarded
// without a column of its own. Exists so a schema can attach its own name
// and read callbacks to a child without changing the wire layout.
type AtomicField struct {
	Base
	child Field
}

func newAtomic(name, typeName string, child Field) *AtomicField {
	f := &AtomicField{child: child}
	f.Base = newBase(name, typeName, child.GoType(), typesvc.Info{Kind: typesvc.KindAtomic, ElemTypeName: child.TypeName()}, nil, f)
	f.Base.children = []Field{child}
	setParent(child, f)
	return f
}

func (f *AtomicField) structureKind() StructureKind { return StructureLeaf }

func (f *AtomicField) traits(b *Base) Traits { return f.child.Traits() }

func (f *AtomicField) representations(b *Base) column.RepresentationSet {
	return column.RepresentationSet{}
}

func (f *AtomicField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
	return nil
}

func (f *AtomicField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	if len(descs) != 0 {
		return errs.New(errs.KindSchemaMismatch, "atomic field %q: unexpected own columns", b.name)
	}
	return nil
}

func (f *AtomicField) appendValue(b *Base, v reflect.Value) (int, error) { return f.child.Append(v) }

func (f *AtomicField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	return f.child.Read(localIndex, v)
}

func (f *AtomicField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) {
	return []ValueHandle{{Field: f.child, Value: v, Owns: false}}, nil
}

func (f *AtomicField) commitCluster(b *Base) error { return nil }

func (f *AtomicField) ownColumns(b *Base) []storage.ColumnHandle { return nil }

func (f *AtomicField) zeroValue(b *Base) reflect.Value { return reflect.New(b.goType).Elem() }

func (f *AtomicField) Clone(newName string) Field {
	child := f.child.Clone(f.child.Name())
	nf := &AtomicField{child: child}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	nf.Base.children = []Field{child}
	setParent(child, nf)
	return nf
}
