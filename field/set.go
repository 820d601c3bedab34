package field

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// SetField shares VectorField's on-disk offset-column-plus-item layout but
// materializes into a Go map[T]struct{} (spec.md §4.3 "set": "same on-disk
// shape as vector, distinct in-memory container"). Write order is the
// elements' string form, sorted, so two runs of the same set produce
// identical bytes.
type SetField struct {
	Base
	item   Field
	offset *column.OffsetColumn
	source storage.PageSource
	srcH   storage.ColumnHandle
}

func newSet(name, typeName string, item Field) *SetField {
	goType := reflect.MapOf(item.GoType(), reflect.TypeOf(struct{}{}))
	f := &SetField{item: item}
	f.Base = newBase(name, typeName, goType, typesvc.Info{Kind: typesvc.KindSet, ElemTypeName: item.TypeName()}, nil, f)
	f.Base.children = []Field{item}
	f.Base.resetsIndex = true
	setParent(item, f)
	return f
}

func (f *SetField) structureKind() StructureKind { return StructureCollection }

func (f *SetField) traits(b *Base) Traits {
	return Traits{TriviallyConstructible: true, TriviallyDestructible: true, Mappable: false}
}

func (f *SetField) representations(b *Base) column.RepresentationSet {
	return column.RepresentationSet{
		Serialization:        []column.Representation{{wire.SplitIndex64}},
		DeserializeOnlyExtra: []column.Representation{{wire.Index64}},
	}
}

func (f *SetField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
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

func (f *SetField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	if len(descs) != 1 {
		return errs.New(errs.KindSchemaMismatch, "set field %q: expected one offset column, got %d", b.name, len(descs))
	}
	c := column.BindForRead(src, descs[0].Type, descs[0].Handle)
	f.offset = column.NewOffsetColumn(c)
	f.source = src
	f.srcH = descs[0].Handle
	return nil
}

func (f *SetField) appendValue(b *Base, v reflect.Value) (int, error) {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	total := 0
	for _, k := range keys {
		n, err := f.item.Append(k)
		if err != nil {
			return total, err
		}
		total += n
	}
	w, err := f.offset.AppendSize(uint64(len(keys)))
	return total + w, err
}

func (f *SetField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	first, size, err := column.CollectionRange(f.source, f.srcH, localIndex)
	if err != nil {
		return err
	}
	out := reflect.MakeMapWithSize(b.goType, int(size))
	zero := reflect.Zero(b.goType.Elem())
	for i := uint64(0); i < size; i++ {
		key := reflect.New(f.item.GoType()).Elem()
		if err := f.item.Read(first+i, key); err != nil {
			return err
		}
		out.SetMapIndex(key, zero)
	}
	v.Set(out)
	return nil
}

func (f *SetField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) { return nil, nil }

func (f *SetField) rangeAt(localIndex uint64) (first, size uint64, err error) {
	return column.CollectionRange(f.source, f.srcH, localIndex)
}

func (f *SetField) commitCluster(b *Base) error { return f.offset.CommitCluster() }

func (f *SetField) ownColumns(b *Base) []storage.ColumnHandle {
	return []storage.ColumnHandle{f.offset.Handle()}
}

func (f *SetField) zeroValue(b *Base) reflect.Value { return reflect.MakeMap(b.goType) }

func (f *SetField) Clone(newName string) Field {
	item := f.item.Clone(f.item.Name())
	nf := &SetField{item: item}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	nf.Base.children = []Field{item}
	nf.Base.resetsIndex = true
	setParent(item, nf)
	return nf
}
