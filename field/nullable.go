package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// NullableField maps a *T onto one of two on-disk encodings spec.md §4.3's
// "nullable family" distinguishes:
//   - dense: a presence Bit column plus the child written for every entry
//     (absent entries get the child's zero value; child index == parent index).
//   - sparse: an Index offset column exactly like a collection field of
//     size 0 or 1 — present entries compact the child array, absent ones
//     consume no child slot (reuses column.OffsetColumn's delta arithmetic).
type NullableField struct {
	Base
	child  Field
	sparse bool

	presence *column.Column     // dense
	offset   *column.OffsetColumn // sparse
	source   storage.PageSource
	srcH     storage.ColumnHandle
}

func newNullable(name, typeName string, child Field, sparse bool) *NullableField {
	goType := reflect.PtrTo(child.GoType())
	f := &NullableField{child: child, sparse: sparse}
	f.Base = newBase(name, typeName, goType, typesvc.Info{Kind: typesvc.KindNullable, ElemTypeName: child.TypeName()}, nil, f)
	f.Base.children = []Field{child}
	if sparse {
		f.Base.resetsIndex = true
	}
	setParent(child, f)
	return f
}

func (f *NullableField) structureKind() StructureKind {
	if f.sparse {
		return StructureCollection
	}
	return StructureLeaf
}

func (f *NullableField) traits(b *Base) Traits {
	return Traits{TriviallyConstructible: true, TriviallyDestructible: true, Mappable: false}
}

func (f *NullableField) representations(b *Base) column.RepresentationSet {
	if f.sparse {
		return column.RepresentationSet{Serialization: []column.Representation{{wire.SplitIndex64}}}
	}
	return column.RepresentationSet{Serialization: []column.Representation{{wire.Bit}}}
}

func (f *NullableField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
	if f.sparse {
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
	c, err := column.CreateForWrite(sink, wire.Bit, firstEntry)
	if err != nil {
		return err
	}
	f.presence = c
	return nil
}

func (f *NullableField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	if len(descs) != 1 {
		return errs.New(errs.KindSchemaMismatch, "nullable field %q: expected one column, got %d", b.name, len(descs))
	}
	if f.sparse {
		c := column.BindForRead(src, descs[0].Type, descs[0].Handle)
		f.offset = column.NewOffsetColumn(c)
		f.source = src
		f.srcH = descs[0].Handle
		return nil
	}
	f.presence = column.BindForRead(src, descs[0].Type, descs[0].Handle)
	return nil
}

func (f *NullableField) appendValue(b *Base, v reflect.Value) (int, error) {
	present := !v.IsNil()
	if f.sparse {
		total := 0
		if present {
			n, err := f.child.Append(v.Elem())
			if err != nil {
				return total, err
			}
			total += n
			n, err = f.offset.AppendSize(1)
			return total + n, err
		}
		return f.offset.AppendSize(0)
	}
	n, err := f.presence.AppendScalar(boolBit(present))
	if err != nil {
		return n, err
	}
	if present {
		m, err := f.child.Append(v.Elem())
		return n + m, err
	}
	m, err := f.child.Append(reflect.New(f.child.GoType()).Elem())
	return n + m, err
}

func (f *NullableField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	if f.sparse {
		first, size, err := column.CollectionRange(f.source, f.srcH, localIndex)
		if err != nil {
			return err
		}
		if size == 0 {
			v.Set(reflect.Zero(v.Type()))
			return nil
		}
		dst := reflect.New(f.child.GoType())
		if err := f.child.Read(first, dst.Elem()); err != nil {
			return err
		}
		v.Set(dst)
		return nil
	}
	bit, err := f.presence.ReadScalar(localIndex)
	if err != nil {
		return err
	}
	if bit == 0 {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}
	dst := reflect.New(f.child.GoType())
	if err := f.child.Read(localIndex, dst.Elem()); err != nil {
		return err
	}
	v.Set(dst)
	return nil
}

func (f *NullableField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) { return nil, nil }

func (f *NullableField) commitCluster(b *Base) error {
	if f.sparse {
		return f.offset.CommitCluster()
	}
	return f.presence.CommitCluster()
}

func (f *NullableField) ownColumns(b *Base) []storage.ColumnHandle {
	if f.sparse {
		return []storage.ColumnHandle{f.offset.Handle()}
	}
	return []storage.ColumnHandle{f.presence.Handle()}
}

func (f *NullableField) zeroValue(b *Base) reflect.Value { return reflect.Zero(b.goType) }

func (f *NullableField) Clone(newName string) Field {
	child := f.child.Clone(f.child.Name())
	nf := &NullableField{child: child, sparse: f.sparse}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	nf.Base.children = []Field{child}
	nf.Base.resetsIndex = f.Base.resetsIndex
	setParent(child, nf)
	return nf
}
