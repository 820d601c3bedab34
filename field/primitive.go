package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// primitiveDesc describes one built-in scalar kind: its Go type, its
// default on-disk representation (split-preferred, spec.md §6), and any
// additional representations it also accepts.
type primitiveDesc struct {
	goType  reflect.Type
	def     wire.ElementType
	extra   []wire.ElementType
}

var primitiveTable = map[string]primitiveDesc{
	"bool":    {reflect.TypeOf(false), wire.Bit, nil},
	"int8":    {reflect.TypeOf(int8(0)), wire.Int8, nil},
	"uint8":   {reflect.TypeOf(uint8(0)), wire.UInt8, nil},
	"byte":    {reflect.TypeOf(byte(0)), wire.UInt8, nil},
	"char":    {reflect.TypeOf(int8(0)), wire.Int8, nil},
	"int16":   {reflect.TypeOf(int16(0)), wire.SplitInt16, []wire.ElementType{wire.Int16}},
	"uint16":  {reflect.TypeOf(uint16(0)), wire.SplitUInt16, []wire.ElementType{wire.UInt16}},
	"int32":   {reflect.TypeOf(int32(0)), wire.SplitInt32, []wire.ElementType{wire.Int32}},
	"uint32":  {reflect.TypeOf(uint32(0)), wire.SplitUInt32, []wire.ElementType{wire.UInt32}},
	"int64":   {reflect.TypeOf(int64(0)), wire.SplitInt64, []wire.ElementType{wire.Int64}},
	"uint64":  {reflect.TypeOf(uint64(0)), wire.SplitUInt64, []wire.ElementType{wire.UInt64}},
	"float32": {reflect.TypeOf(float32(0)), wire.SplitReal32, []wire.ElementType{wire.Real32}},
	"float64": {reflect.TypeOf(float64(0)), wire.SplitReal64, []wire.ElementType{wire.Real64}},
}

// PrimitiveField maps a single leaf scalar onto one packed column
// (spec.md §4.3 primitive kinds): the canonical "Simple" field whose
// Append/Read/BulkRead never leave the fast path.
type PrimitiveField struct {
	Base
	et  wire.ElementType
	col *column.Column
}

func newPrimitive(name, typeName string, desc primitiveDesc) *PrimitiveField {
	f := &PrimitiveField{et: desc.def}
	f.Base = newBase(name, typeName, desc.goType, typesvcPrimitiveInfo(typeName), nil, f)
	return f
}

// newPrimitiveFromType builds a primitive field over an arbitrary Go
// integer/float/bool type (used by enum.go, whose Go representation is a
// named integer type rather than one of the builtin primitive names).
func newPrimitiveFromType(name, typeName string, goType reflect.Type, et wire.ElementType) *PrimitiveField {
	f := &PrimitiveField{et: et}
	f.Base = newBase(name, typeName, goType, typesvc.Info{Kind: typesvc.KindEnum, EnumUnderlying: goType.Kind().String(), DefaultConstructible: true}, nil, f)
	return f
}

func (f *PrimitiveField) structureKind() StructureKind { return StructureLeaf }

func (f *PrimitiveField) traits(b *Base) Traits {
	return Traits{TriviallyConstructible: true, TriviallyDestructible: true, Mappable: true}
}

func (f *PrimitiveField) representations(b *Base) column.RepresentationSet {
	set := column.RepresentationSet{Serialization: []column.Representation{{f.et}}}
	if desc, ok := primitiveTable[b.typeName]; ok {
		for _, e := range desc.extra {
			set.DeserializeOnlyExtra = append(set.DeserializeOnlyExtra, column.Representation{e})
		}
	}
	if f.et.IsSplit() {
		set.DeserializeOnlyExtra = append(set.DeserializeOnlyExtra, column.Representation{f.et.PlainCounterpart()})
	}
	return set
}

func (f *PrimitiveField) generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error {
	et := f.et
	if !sink.Options().UseSplitEncoding || !sink.Options().CompressionEnabled {
		et = column.ToPlain(column.Representation{f.et})[0]
	}
	c, err := column.CreateForWrite(sink, et, firstEntry)
	if err != nil {
		return err
	}
	f.col = c
	return nil
}

func (f *PrimitiveField) bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error {
	if len(descs) != 1 {
		return errs.New(errs.KindSchemaMismatch, "primitive field %q: expected exactly one column, got %d", b.name, len(descs))
	}
	f.col = column.BindForRead(src, descs[0].Type, descs[0].Handle)
	return nil
}

func (f *PrimitiveField) appendValue(b *Base, v reflect.Value) (int, error) {
	return f.col.AppendScalar(scalarBits(v))
}

func (f *PrimitiveField) readValue(b *Base, localIndex uint64, v reflect.Value) error {
	bits, err := f.col.ReadScalar(localIndex)
	if err != nil {
		return err
	}
	setScalarBits(v, bits)
	return nil
}

func (f *PrimitiveField) splitValue(b *Base, v reflect.Value) ([]ValueHandle, error) { return nil, nil }

func (f *PrimitiveField) commitCluster(b *Base) error { return f.col.CommitCluster() }

func (f *PrimitiveField) ownColumns(b *Base) []storage.ColumnHandle {
	return []storage.ColumnHandle{f.col.Handle()}
}

func (f *PrimitiveField) zeroValue(b *Base) reflect.Value { return reflect.New(b.goType).Elem() }

// BulkRead vectorizes through the column's ReadV/MapV path since Simple
// primitive fields need no per-slot masking (spec.md §4.1 "simple fields
// vectorize to one contiguous column read").
func (f *PrimitiveField) BulkRead(h *BulkHandle) error {
	if f.State() != StateConnectedSource {
		return errs.New(errs.KindStateViolation, "field %q: BulkRead requires a source connection", f.Name())
	}
	size := f.et.PackedSize()
	if f.et == wire.Bit || size == 0 || !f.Traits().Simple() {
		return f.Base.BulkRead(h)
	}
	raw := make([]byte, size*h.Count)
	if err := f.col.ReadV(h.FirstIndex, h.Count, raw); err != nil {
		return err
	}
	for i := 0; i < h.Count; i++ {
		setScalarBits(h.Values.Index(i), wire.Scalar(f.et, raw[i*size:(i+1)*size]))
	}
	h.MarkAllFilled()
	return nil
}

func (f *PrimitiveField) Clone(newName string) Field {
	nf := &PrimitiveField{et: f.et}
	nf.Base = f.defaultClone(newName)
	nf.Base.self = nf
	return nf
}

func scalarBits(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return uint64(v.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return v.Uint()
	case reflect.Float32:
		return wire.Float32ToBits(float32(v.Float()))
	case reflect.Float64:
		return wire.Float64ToBits(v.Float())
	default:
		return 0
	}
}

func setScalarBits(v reflect.Value, bits uint64) {
	switch v.Kind() {
	case reflect.Bool:
		v.SetBool(bits != 0)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		v.SetInt(signExtend(bits, v.Type().Bits()))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		v.SetUint(bits)
	case reflect.Float32:
		v.SetFloat(float64(wire.BitsToFloat32(uint32(bits))))
	case reflect.Float64:
		v.SetFloat(wire.BitsToFloat64(bits))
	}
}

func signExtend(bits uint64, width int) int64 {
	switch width {
	case 8:
		return int64(int8(bits))
	case 16:
		return int64(int16(bits))
	case 32:
		return int64(int32(bits))
	default:
		return int64(bits)
	}
}
