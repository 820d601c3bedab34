package column

import "github.com/fieldstore/ntuple/internal/wire"

// Representation is one serialization column-type sequence a field can
// realize on disk, ordered element-per-column (spec.md §3 "Column
// representation set"). Most leaf kinds have a single-element sequence;
// composite on-disk layouts (e.g. a cardinality field backed by its
// target's offset column width) reuse the same type.
type Representation []wire.ElementType

// RepresentationSet is the ordered list of representations a field offers
// for writing (first is the default) plus extra sequences it additionally
// accepts when reading, without writing them itself.
type RepresentationSet struct {
	Serialization        []Representation
	DeserializeOnlyExtra []Representation
}

// All returns the union a connect-to-source match checks an on-disk
// descriptor against (spec.md §4.1 step 2).
func (r RepresentationSet) All() []Representation {
	out := make([]Representation, 0, len(r.Serialization)+len(r.DeserializeOnlyExtra))
	out = append(out, r.Serialization...)
	out = append(out, r.DeserializeOnlyExtra...)
	return out
}

// Default is the representation used unless write options force a swap.
func (r RepresentationSet) Default() Representation {
	if len(r.Serialization) == 0 {
		return nil
	}
	return r.Serialization[0]
}

// ToPlain swaps every split element type in rep for its plain counterpart,
// the static table SPEC_FULL.md §4 resolves in place of a deserialization
// round-trip through original_source/ (which contributed no files to this
// pack): connect-to-sink calls this when WriteOptions disables compression
// or split encoding, so a plain reader never needs to know split encoding
// existed (spec.md §4.1 step 2).
func ToPlain(rep Representation) Representation {
	out := make(Representation, len(rep))
	for i, et := range rep {
		out[i] = et.PlainCounterpart()
	}
	return out
}

// Match reports whether descriptor exactly matches rep element-by-element.
func Match(rep, descriptor Representation) bool {
	if len(rep) != len(descriptor) {
		return false
	}
	for i := range rep {
		if rep[i] != descriptor[i] {
			return false
		}
	}
	return true
}

// SelectForSource finds the index within set.All() matching descriptor,
// the representation-negotiation step connect-to-source runs before any
// column is bound (spec.md §4.1 step 2).
func SelectForSource(set RepresentationSet, descriptor Representation) (int, bool) {
	all := set.All()
	for i, rep := range all {
		if Match(rep, descriptor) {
			return i, true
		}
	}
	return 0, false
}
