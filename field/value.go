package field

import "reflect"

// ValueHandle wraps an addressable reflect.Value together with the field it
// was generated from or bound to (spec.md §3 "Value handle"). Owns reports
// whether Generate allocated the backing value (Release is a no-op in Go
// either way — the garbage collector reclaims it). Owns is informational:
// no field operation reads it.
type ValueHandle struct {
	Field Field
	Value reflect.Value
	Owns  bool
}

// Release drops the handle. Go's GC makes an explicit free unnecessary;
// Release exists so callers written against the spec's acquire/release
// pairing compile unchanged.
func (ValueHandle) Release() {}

// BulkHandle is the reusable scratch buffer spec.md §4.1's bulk read API
// threads through repeated calls: Values is pre-sized, MaskAvail. is
// produced alongside a sentinel meaning "every requested slot was filled
// regardless of mask" (see AllFilled).
type BulkHandle struct {
	FirstIndex uint64
	Count      int

	MaskReq   []bool // input: which slots the caller actually wants, nil == all
	MaskAvail []bool // output: which slots were actually filled

	Values  reflect.Value // addressable slice of the field's Go type, len==cap==Count
	AuxData []byte        // scratch for representations needing a staging buffer

	allFilled bool
}

// NewBulkHandle allocates a handle sized for count elements of goType.
func NewBulkHandle(goType reflect.Type, count int) *BulkHandle {
	return &BulkHandle{
		Count:  count,
		Values: reflect.MakeSlice(reflect.SliceOf(goType), count, count),
	}
}

// Reset rebinds the handle to a new range without reallocating Values when
// the requested count still fits.
func (b *BulkHandle) Reset(firstIndex uint64, count int, goType reflect.Type) {
	b.FirstIndex = firstIndex
	b.Count = count
	b.allFilled = false
	if b.Values.Len() < count || b.Values.Type().Elem() != goType {
		b.Values = reflect.MakeSlice(reflect.SliceOf(goType), count, count)
	} else {
		b.Values = b.Values.Slice(0, count)
	}
	if b.MaskAvail == nil || len(b.MaskAvail) < count {
		b.MaskAvail = make([]bool, count)
	} else {
		b.MaskAvail = b.MaskAvail[:count]
	}
}

// MarkAllFilled sets the "ALL" sentinel: every slot in [0,Count) is valid
// regardless of what MaskAvail (or MaskReq) says (spec.md §4.1 "simple
// fields vectorize to one contiguous read and report ALL").
func (b *BulkHandle) MarkAllFilled() { b.allFilled = true }

// Filled reports whether slot i is populated, honoring the ALL sentinel.
func (b *BulkHandle) Filled(i int) bool {
	if b.allFilled {
		return true
	}
	return b.MaskAvail[i]
}
