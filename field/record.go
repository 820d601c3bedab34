package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// RecordField groups named children under one Go struct (spec.md §4.3
// "class/struct field"): it owns no column of its own and simply forwards
// the parent's principal index to every child (spec.md §4.2).
type RecordField struct {
	Base
	fieldIndex []int // per-child: index into the Go struct
}

func newRecord(name, typeName string, goType reflect.Type, info typesvc.Info, svc typesvc.Service, children []Field, fieldIndex []int) *RecordField {
	f := &RecordField{fieldIndex: fieldIndex}
	f.Base = newBase(name, typeName, goType, info, svc, f)
	f.Base.children = children
	for _, c := range children {
		setParent(c, f)
	}
	return f
}

func (f *RecordField) structureKind() StructureKind { return StructureRecord }

func (f *RecordField) traits(b *Base) Traits {
	all := Traits{TriviallyConstructible: true, TriviallyDestructible: true, Mappable: true}
	for _, c := range b.children {
		ct := c.Traits()
		all.TriviallyConstructible = all.TriviallyConstructible && ct.TriviallyConstructible
		all.TriviallyDestructible = all.TriviallyDestructible && ct.TriviallyDestructible
		all.Mappable = all.Mappable && ct.Mappable
		all.HasReadCallbacks = all.HasReadCallbacks || ct.HasReadCallbacks
	}
	return all
}

func (f *RecordField) representations(b *Base) column.RepresentationSet { return column.RepresentationSet{} }

func (f *RecordField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
	return nil
}

func (f *RecordField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	if len(descs) != 0 {
		return errs.New(errs.KindSchemaMismatch, "record field %q: unexpected columns on disk", b.name)
	}
	return nil
}

func (f *RecordField) appendValue(b *Base, v reflect.Value) (int, error) {
	total := 0
	for i, c := range b.children {
		n, err := c.Append(v.Field(f.fieldIndex[i]))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (f *RecordField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	for i, c := range b.children {
		if err := c.Read(localIndex, v.Field(f.fieldIndex[i])); err != nil {
			return err
		}
	}
	return nil
}

// Split returns one handle per data member, pointing directly into v's
// storage (spec.md §4.4 "Split decomposes a composite value into its
// children without copying").
func (f *RecordField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) {
	out := make([]ValueHandle, len(b.children))
	for i, c := range b.children {
		out[i] = ValueHandle{Field: c, Value: v.Field(f.fieldIndex[i]), Owns: false}
	}
	return out, nil
}

func (f *RecordField) commitCluster(b *Base) error { return nil }

func (f *RecordField) ownColumns(b *Base) []storage.ColumnHandle { return nil }

func (f *RecordField) zeroValue(b *Base) reflect.Value { return reflect.New(b.goType).Elem() }

func (f *RecordField) Clone(newName string) Field {
	children := make([]Field, len(f.Base.children))
	for i, c := range f.Base.children {
		children[i] = c.Clone(c.Name())
	}
	nf := &RecordField{fieldIndex: append([]int(nil), f.fieldIndex...)}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	nf.Base.children = children
	for _, c := range children {
		setParent(c, nf)
	}
	return nf
}

// setParent is a small escape hatch into Base.parent for constructors that
// build a tree bottom-up (Create assembles children before their parent
// exists).
func setParent(child Field, parent Field) {
	if p, ok := child.(interface{ setParentField(Field) }); ok {
		p.setParentField(parent)
	}
}

func (b *Base) setParentField(p Field) { b.parent = p }
