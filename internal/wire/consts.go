// Package wire defines the fixed set of on-disk column element types and
// the packing/split-encoding routines fields use to map values onto them.
package wire

// ElementType enumerates the column-element type set from spec.md §6.
type ElementType int

const (
	Bit ElementType = iota + 1
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Real16
	Real32
	Real64
	Index32
	Index64
	SplitIndex32
	SplitIndex64
	Switch
	SplitInt16
	SplitUInt16
	SplitInt32
	SplitUInt32
	SplitInt64
	SplitUInt64
	SplitReal16
	SplitReal32
	SplitReal64
)

// packedSize is the number of bytes one element of this type occupies in
// a column, excluding bit-packed element types (Bit, whose size is
// reported separately since 8 elements share one byte).
var packedSize = map[ElementType]int{
	Bit:          0,
	Int8:         1,
	UInt8:        1,
	Int16:        2,
	UInt16:       2,
	Int32:        4,
	UInt32:       4,
	Int64:        8,
	UInt64:       8,
	Real16:       2,
	Real32:       4,
	Real64:       8,
	Index32:      4,
	Index64:      8,
	SplitIndex32: 4,
	SplitIndex64: 8,
	Switch:       4 + 4, // tag (uint32) + local index (uint32)
	SplitInt16:   2,
	SplitUInt16:  2,
	SplitInt32:   4,
	SplitUInt32:  4,
	SplitInt64:   8,
	SplitUInt64:  8,
	SplitReal16:  2,
	SplitReal32:  4,
	SplitReal64:  8,
}

// PackedSize returns the per-element byte size for non-bit types.
func (e ElementType) PackedSize() int { return packedSize[e] }

// IsSplit reports whether the element type uses byte-interleaved split
// encoding and therefore needs a plain fallback when compression is
// disabled (spec.md §4.1 step 2, GLOSSARY "Split encoding").
func (e ElementType) IsSplit() bool {
	switch e {
	case SplitIndex32, SplitIndex64, SplitInt16, SplitUInt16, SplitInt32,
		SplitUInt32, SplitInt64, SplitUInt64, SplitReal16, SplitReal32, SplitReal64:
		return true
	}
	return false
}

// PlainCounterpart returns the non-split element type that realizes the
// same logical value for a split type, or the type itself if it is
// already plain. This is the static table SPEC_FULL.md §4 calls for.
func (e ElementType) PlainCounterpart() ElementType {
	switch e {
	case SplitIndex32:
		return Index32
	case SplitIndex64:
		return Index64
	case SplitInt16:
		return Int16
	case SplitUInt16:
		return UInt16
	case SplitInt32:
		return Int32
	case SplitUInt32:
		return UInt32
	case SplitInt64:
		return Int64
	case SplitUInt64:
		return UInt64
	case SplitReal16:
		return Real16
	case SplitReal32:
		return Real32
	case SplitReal64:
		return Real64
	default:
		return e
	}
}

func (e ElementType) String() string {
	switch e {
	case Bit:
		return "bit"
	case Int8:
		return "int8"
	case UInt8:
		return "uint8"
	case Int16:
		return "int16"
	case UInt16:
		return "uint16"
	case Int32:
		return "int32"
	case UInt32:
		return "uint32"
	case Int64:
		return "int64"
	case UInt64:
		return "uint64"
	case Real16:
		return "real16"
	case Real32:
		return "real32"
	case Real64:
		return "real64"
	case Index32:
		return "index32"
	case Index64:
		return "index64"
	case SplitIndex32:
		return "splitIndex32"
	case SplitIndex64:
		return "splitIndex64"
	case Switch:
		return "switch"
	case SplitInt16:
		return "splitInt16"
	case SplitUInt16:
		return "splitUint16"
	case SplitInt32:
		return "splitInt32"
	case SplitUInt32:
		return "splitUint32"
	case SplitInt64:
		return "splitInt64"
	case SplitUInt64:
		return "splitUint64"
	case SplitReal16:
		return "splitReal16"
	case SplitReal32:
		return "splitReal32"
	case SplitReal64:
		return "splitReal64"
	default:
		return "unknown"
	}
}
