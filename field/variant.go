package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// VariantField maps a tagged union onto a Switch column recording (tag,
// per-alternative local index) pairs, plus one child field per alternative
// (spec.md §4.3 "variant"). The Go-level value is `any`: nil means
// valueless (tag 0), any other value's concrete type must match exactly one
// alternative's Go type.
type VariantField struct {
	Base
	col           *column.Column
	childCount    []uint64 // per-alternative append count within the current cluster, write side
	childBaseline []uint64 // per-alternative absolute count carried over from prior clusters
}

func newVariant(name, typeName string, alts []Field) *VariantField {
	f := &VariantField{childCount: make([]uint64, len(alts)), childBaseline: make([]uint64, len(alts))}
	f.Base = newBase(name, typeName, reflect.TypeOf((*any)(nil)).Elem(),
		typesvc.Info{Kind: typesvc.KindVariant}, nil, f)
	f.Base.children = alts
	f.Base.resetsIndex = true
	for _, c := range alts {
		setParent(c, f)
	}
	return f
}

func (f *VariantField) structureKind() StructureKind { return StructureVariant }

func (f *VariantField) traits(b *Base) Traits {
	return Traits{TriviallyConstructible: true, TriviallyDestructible: true, Mappable: false}
}

func (f *VariantField) representations(b *Base) column.RepresentationSet {
	return column.RepresentationSet{Serialization: []column.Representation{{wire.Switch}}}
}

func (f *VariantField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
	c, err := column.CreateForWrite(sink, wire.Switch, firstEntry)
	if err != nil {
		return err
	}
	f.col = c
	return nil
}

func (f *VariantField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	if len(descs) != 1 {
		return errs.New(errs.KindSchemaMismatch, "variant field %q: expected one switch column, got %d", b.name, len(descs))
	}
	f.col = column.BindForRead(src, descs[0].Type, descs[0].Handle)
	return nil
}

func (f *VariantField) appendValue(b *Base, v reflect.Value) (int, error) {
	iface := v.Interface()
	if iface == nil {
		return f.col.AppendScalar(packSwitch(0, 0))
	}
	concrete := reflect.ValueOf(iface)
	for i, c := range b.children {
		if concrete.Type() != c.GoType() {
			continue
		}
		localIdx := f.childBaseline[i] + f.childCount[i]
		n, err := c.Append(concrete)
		if err != nil {
			return n, err
		}
		f.childCount[i]++
		w, err := f.col.AppendScalar(packSwitch(uint32(i+1), uint32(localIdx)))
		return n + w, err
	}
	return 0, errs.New(errs.KindInvalidArgument, "variant field %q: value of type %s matches no alternative", b.name, concrete.Type())
}

func (f *VariantField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	bits, err := f.col.ReadScalar(localIndex)
	if err != nil {
		return err
	}
	tag, localIdx := unpackSwitch(bits)
	if tag == 0 {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}
	child := b.children[tag-1]
	dst := reflect.New(child.GoType()).Elem()
	if err := child.Read(uint64(localIdx), dst); err != nil {
		return err
	}
	v.Set(dst)
	return nil
}

// Split returns a single handle for the currently active alternative, or
// none for a valueless variant (spec.md §4.4).
func (f *VariantField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) {
	iface := v.Interface()
	if iface == nil {
		return nil, nil
	}
	concrete := reflect.ValueOf(iface)
	for _, c := range b.children {
		if concrete.Type() == c.GoType() {
			return []ValueHandle{{Field: c, Value: concrete, Owns: false}}, nil
		}
	}
	return nil, errs.Wrap(errs.KindInvalidArgument, errs.ErrValuelessVariant, "variant field %q: Split found no matching alternative", b.name)
}

// commitCluster flushes the switch column and resets the per-alternative
// tag counters to 0 for the next cluster (spec.md §5 "variant tag
// counters"). The counters folded into childBaseline before resetting, so
// the local index packed into the next cluster's tags still continues from
// each alternative's true absolute append count.
func (f *VariantField) commitCluster(b *Base) error {
	if err := f.col.CommitCluster(); err != nil {
		return err
	}
	for i, n := range f.childCount {
		f.childBaseline[i] += n
		f.childCount[i] = 0
	}
	return nil
}

func (f *VariantField) ownColumns(b *Base) []storage.ColumnHandle {
	return []storage.ColumnHandle{f.col.Handle()}
}

func (f *VariantField) zeroValue(b *Base) reflect.Value { return reflect.New(b.goType).Elem() }

func (f *VariantField) Clone(newName string) Field {
	children := make([]Field, len(f.Base.children))
	for i, c := range f.Base.children {
		children[i] = c.Clone(c.Name())
	}
	nf := &VariantField{childCount: make([]uint64, len(children)), childBaseline: make([]uint64, len(children))}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	nf.Base.children = children
	nf.Base.resetsIndex = true
	for _, c := range children {
		setParent(c, nf)
	}
	return nf
}

func packSwitch(tag, localIndex uint32) uint64 {
	return uint64(tag)<<32 | uint64(localIndex)
}

func unpackSwitch(bits uint64) (tag uint32, localIndex uint32) {
	return uint32(bits >> 32), uint32(bits)
}
