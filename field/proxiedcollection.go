package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// ProxiedCollectionField is the untyped read-side counterpart to
// VectorField (spec.md §4.3 "proxied collection"): generic tooling that
// walks a schema without knowing concrete item Go types at compile time
// gets []any instead of a typed slice, boxing each item through the
// underlying item field's own Go type.
type ProxiedCollectionField struct {
	Base
	item   Field
	offset *column.OffsetColumn
	source storage.PageSource
	srcH   storage.ColumnHandle
}

var anySliceType = reflect.TypeOf([]any{})

func newProxiedCollection(name, typeName string, item Field) *ProxiedCollectionField {
	f := &ProxiedCollectionField{item: item}
	f.Base = newBase(name, typeName, anySliceType, typesvc.Info{Kind: typesvc.KindSlice, ElemTypeName: item.TypeName()}, nil, f)
	f.Base.children = []Field{item}
	f.Base.resetsIndex = true
	setParent(item, f)
	return f
}

func (f *ProxiedCollectionField) structureKind() StructureKind { return StructureCollection }

func (f *ProxiedCollectionField) traits(b *Base) Traits {
	return Traits{TriviallyConstructible: true, TriviallyDestructible: true, Mappable: false}
}

func (f *ProxiedCollectionField) representations(b *Base) column.RepresentationSet {
	return column.RepresentationSet{Serialization: []column.Representation{{wire.SplitIndex64}}}
}

func (f *ProxiedCollectionField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
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

func (f *ProxiedCollectionField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	if len(descs) != 1 {
		return errs.New(errs.KindSchemaMismatch, "proxied collection field %q: expected one offset column, got %d", b.name, len(descs))
	}
	c := column.BindForRead(src, descs[0].Type, descs[0].Handle)
	f.offset = column.NewOffsetColumn(c)
	f.source = src
	f.srcH = descs[0].Handle
	return nil
}

func (f *ProxiedCollectionField) appendValue(b *Base, v reflect.Value) (int, error) {
	n := v.Len()
	total := 0
	for i := 0; i < n; i++ {
		elem := v.Index(i).Elem() // v is []any; unwrap the boxed value
		converted := reflect.New(f.item.GoType()).Elem()
		converted.Set(elem.Convert(f.item.GoType()))
		w, err := f.item.Append(converted)
		if err != nil {
			return total, err
		}
		total += w
	}
	w, err := f.offset.AppendSize(uint64(n))
	return total + w, err
}

func (f *ProxiedCollectionField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	first, size, err := column.CollectionRange(f.source, f.srcH, localIndex)
	if err != nil {
		return err
	}
	out := make([]any, size)
	for i := uint64(0); i < size; i++ {
		item := reflect.New(f.item.GoType()).Elem()
		if err := f.item.Read(first+i, item); err != nil {
			return err
		}
		out[i] = item.Interface()
	}
	v.Set(reflect.ValueOf(out))
	return nil
}

func (f *ProxiedCollectionField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) {
	return nil, nil
}

func (f *ProxiedCollectionField) rangeAt(localIndex uint64) (first, size uint64, err error) {
	return column.CollectionRange(f.source, f.srcH, localIndex)
}

func (f *ProxiedCollectionField) commitCluster(b *Base) error { return f.offset.CommitCluster() }

func (f *ProxiedCollectionField) ownColumns(b *Base) []storage.ColumnHandle {
	return []storage.ColumnHandle{f.offset.Handle()}
}

func (f *ProxiedCollectionField) zeroValue(b *Base) reflect.Value {
	return reflect.MakeSlice(anySliceType, 0, 0)
}

func (f *ProxiedCollectionField) Clone(newName string) Field {
	item := f.item.Clone(f.item.Name())
	nf := &ProxiedCollectionField{item: item}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	nf.Base.children = []Field{item}
	nf.Base.resetsIndex = true
	setParent(item, nf)
	return nf
}
