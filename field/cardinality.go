package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// sizedCollection is implemented by every collection-shaped field kind
// (vector, set, proxied collection) so a CardinalityField can read its
// target's item count without depending on its concrete type.
type sizedCollection interface {
	rangeAt(localIndex uint64) (first, size uint64, err error)
}

// CardinalityField is a read-only projection of a sibling collection
// field's size (spec.md §4.3 "cardinality"): it owns no column, shares the
// target's offset column, and is rejected on the write path.
type CardinalityField struct {
	Base
	target sizedCollection
	wide   bool // true => uint64, false => uint32 (SPEC_FULL.md §4 resolution:
	// width follows the target's backing offset column element type)
}

// newCardinality builds a cardinality field over target, whose
// representation (Index32 vs Index64/split variants) decides the
// projected Go width.
func newCardinality(name string, target Field, wide bool) (*CardinalityField, error) {
	sc, ok := target.(sizedCollection)
	if !ok {
		return nil, errs.New(errs.KindInvalidArgument, "cardinality field %q: target %q is not a collection", name, target.Name())
	}
	goType := reflect.TypeOf(uint32(0))
	if wide {
		goType = reflect.TypeOf(uint64(0))
	}
	f := &CardinalityField{target: sc, wide: wide}
	f.Base = newBase(name, "cardinality", goType, typesvc.Info{Kind: typesvc.KindPrimitive, DefaultConstructible: true}, nil, f)
	return f, nil
}

func (f *CardinalityField) structureKind() StructureKind { return StructureLeaf }

func (f *CardinalityField) traits(b *Base) Traits {
	return Traits{TriviallyConstructible: true, TriviallyDestructible: true, Mappable: false}
}

func (f *CardinalityField) representations(b *Base) column.RepresentationSet {
	return column.RepresentationSet{}
}

func (f *CardinalityField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
	return errs.New(errs.KindUnsupported, "cardinality field %q is read-only and cannot connect to a sink", b.name)
}

func (f *CardinalityField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	return nil
}

func (f *CardinalityField) appendValue(b *Base, v reflect.Value) (int, error) {
	return 0, errs.New(errs.KindUnsupported, "cardinality field %q is read-only", b.name)
}

func (f *CardinalityField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	_, size, err := f.target.rangeAt(localIndex)
	if err != nil {
		return err
	}
	v.SetUint(size)
	return nil
}

func (f *CardinalityField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) { return nil, nil }

// BulkRead reads the target collection's offset differences for
// [FirstIndex, FirstIndex+Count) directly into Values, skipping the
// per-slot Read()/runCallbacks overhead of the default loop (spec.md §4.3
// "cardinality fields ... read the offset column, compute differences, and
// fill values in page-sized batches, returning ALL"). Cardinality has no
// column of its own to stage a raw buffer from, so it leaves AuxData alone.
func (f *CardinalityField) BulkRead(h *BulkHandle) error {
	if f.State() != StateConnectedSource {
		return errs.New(errs.KindStateViolation, "field %q: BulkRead requires a source connection", f.Name())
	}
	for i := 0; i < h.Count; i++ {
		_, size, err := f.target.rangeAt(h.FirstIndex + uint64(i))
		if err != nil {
			return err
		}
		h.Values.Index(i).SetUint(size)
	}
	h.MarkAllFilled()
	return nil
}

func (f *CardinalityField) commitCluster(b *Base) error { return nil }

func (f *CardinalityField) ownColumns(b *Base) []storage.ColumnHandle { return nil }

func (f *CardinalityField) zeroValue(b *Base) reflect.Value { return reflect.New(b.goType).Elem() }

func (f *CardinalityField) Clone(newName string) Field {
	nf := &CardinalityField{target: f.target, wide: f.wide}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	return nf
}
