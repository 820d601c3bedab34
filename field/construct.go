package field

import "github.com/fieldstore/ntuple/internal/wire"

// NewCardinality builds a read-only projection of target's per-entry item
// count (spec.md §4.3 "cardinality"). The projected width follows
// target's default representation's element type, the Open Question
// resolution SPEC_FULL.md §4 records (index32 → uint32, index64 → uint64).
func NewCardinality(name string, target Field) (Field, error) {
	wide := true
	if b, ok := target.(interface{ defaultElementType() wire.ElementType }); ok {
		et := b.defaultElementType()
		wide = et == wire.Index64 || et == wire.SplitIndex64
	}
	return newCardinality(name, target, wide)
}

func (f *VectorField) defaultElementType() wire.ElementType { return wire.SplitIndex64 }
func (f *SetField) defaultElementType() wire.ElementType    { return wire.SplitIndex64 }
func (f *ProxiedCollectionField) defaultElementType() wire.ElementType {
	return wire.SplitIndex64
}

// NewUntypedCollection builds a write-only collection field a caller
// drives with AppendSize directly (spec.md §4.3 "untyped write-only
// collection").
func NewUntypedCollection(name, typeName string) *UntypedCollectionField {
	return newUntypedCollection(name, typeName)
}
