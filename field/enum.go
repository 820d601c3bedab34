package field

import (
	"reflect"

	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/internal/wire"
)

// enumElementType picks the split-preferred wire type for an enum's
// underlying integer width, mirroring primitiveTable's int* entries.
func enumElementType(underlying reflect.Kind) (wire.ElementType, error) {
	switch underlying {
	case reflect.Int8, reflect.Uint8:
		if underlying == reflect.Int8 {
			return wire.Int8, nil
		}
		return wire.UInt8, nil
	case reflect.Int16:
		return wire.SplitInt16, nil
	case reflect.Uint16:
		return wire.SplitUInt16, nil
	case reflect.Int32, reflect.Int:
		return wire.SplitInt32, nil
	case reflect.Uint32, reflect.Uint:
		return wire.SplitUInt32, nil
	case reflect.Int64:
		return wire.SplitInt64, nil
	case reflect.Uint64:
		return wire.SplitUInt64, nil
	default:
		return 0, errs.New(errs.KindUnsupported, "enum field: unsupported underlying kind %s", underlying)
	}
}

// newEnum builds a field for a named Go integer type (spec.md §4.3
// "enum"): on disk it is indistinguishable from a primitive of the same
// width; Go's own const-backed named-type idiom is how enumerators are
// represented, so no separate enumerator table is needed here.
func newEnum(name, typeName string, goType reflect.Type) (Field, error) {
	et, err := enumElementType(goType.Kind())
	if err != nil {
		return nil, err
	}
	return newPrimitiveFromType(name, typeName, goType, et), nil
}
