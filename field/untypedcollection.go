package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// UntypedCollectionField is the write-only counterpart to vector/set/
// proxied collection (spec.md §4.3 "untyped write-only collection"): a
// caller commits collection sizes directly (AppendSize) rather than
// handing over a concrete Go slice, for secondary writers that mirror an
// already-materialized collection's shape without re-deriving it
// (spec.md §9 "secondary writer" scenario). ConnectSource is refused.
type UntypedCollectionField struct {
	Base
	offset *column.OffsetColumn
}

func newUntypedCollection(name, typeName string) *UntypedCollectionField {
	f := &UntypedCollectionField{}
	f.Base = newBase(name, typeName, reflect.TypeOf(uint64(0)), typesvc.Info{Kind: typesvc.KindSlice, DefaultConstructible: true}, nil, f)
	return f
}

// AppendSize is the write-only collection's actual entry point: a caller
// who already knows the entry's item count (e.g. mirroring a sibling
// collection field) calls this instead of Append.
func (f *UntypedCollectionField) AppendSize(n uint64) (int, error) {
	if f.State() != StateConnectedSink {
		return 0, errs.New(errs.KindStateViolation, "field %q: AppendSize requires a sink connection", f.Name())
	}
	return f.offset.AppendSize(n)
}

func (f *UntypedCollectionField) structureKind() StructureKind { return StructureUnsplitCollection }

func (f *UntypedCollectionField) traits(b *Base) Traits {
	return Traits{TriviallyConstructible: true, TriviallyDestructible: true, Mappable: false}
}

func (f *UntypedCollectionField) representations(b *Base) column.RepresentationSet {
	return column.RepresentationSet{Serialization: []column.Representation{{wire.SplitIndex64}}}
}

func (f *UntypedCollectionField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
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

func (f *UntypedCollectionField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	return errs.New(errs.KindUnsupported, "field %q: untyped collection fields are write-only", b.name)
}

func (f *UntypedCollectionField) appendValue(b *Base, v reflect.Value) (int, error) {
	return f.AppendSize(v.Uint())
}

func (f *UntypedCollectionField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	return errs.New(errs.KindUnsupported, "field %q: untyped collection fields are write-only", b.name)
}

func (f *UntypedCollectionField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) { return nil, nil }

func (f *UntypedCollectionField) commitCluster(b *Base) error { return f.offset.CommitCluster() }

func (f *UntypedCollectionField) ownColumns(b *Base) []storage.ColumnHandle {
	return []storage.ColumnHandle{f.offset.Handle()}
}

func (f *UntypedCollectionField) zeroValue(b *Base) reflect.Value { return reflect.New(b.goType).Elem() }

func (f *UntypedCollectionField) Clone(newName string) Field {
	nf := &UntypedCollectionField{}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	return nf
}
