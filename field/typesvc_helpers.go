package field

import "github.com/fieldstore/ntuple/typesvc"

// typesvcArrayInfo builds descriptive Info for a fixed array field; the
// field engine itself never consults Size/Align for arrays (Go's own
// reflect.ArrayOf type carries that), but Info is kept populated so any
// caller inspecting schema metadata sees a consistent shape.
func typesvcArrayInfo(item Field, n int) typesvc.Info {
	return typesvc.Info{
		Kind:                 typesvc.KindFixedArray,
		ElemTypeName:         item.TypeName(),
		FixedLen:             n,
		DefaultConstructible: true,
	}
}

// typesvcPrimitiveInfo builds the typesvc.Info a primitive field carries
// without needing a registered typesvc.Service (primitives resolve the
// same way whether or not a Service is wired, per typesvc.Reflective.Resolve).
func typesvcPrimitiveInfo(typeName string) typesvc.Info {
	desc, ok := primitiveTable[typeName]
	if !ok {
		return typesvc.Info{Kind: typesvc.KindPrimitive, DefaultConstructible: true}
	}
	return typesvc.Info{
		Kind:                 typesvc.KindPrimitive,
		Size:                 int(desc.goType.Size()),
		Align:                int(desc.goType.Align()),
		DefaultConstructible: true,
	}
}
