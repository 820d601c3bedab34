// Package field implements the object↔columns mapper at the core of the
// ntuple storage engine: a tree of Field values that translates structured
// Go values into typed column streams and back (spec.md).
package field

import "github.com/fieldstore/ntuple/column"

// StructureKind is the coarse shape bucket spec.md §3 assigns every field.
type StructureKind int

const (
	StructureLeaf StructureKind = iota
	StructureRecord
	StructureCollection
	StructureVariant
	StructureUnsplitCollection
)

// State is a field's position in the connect lifecycle (spec.md §3 "Lifecycle").
type State int

const (
	StateUnconnected State = iota
	StateConnectedSink
	StateConnectedSource
)

// Traits is the bitset spec.md §3 defines. Simple is recomputed whenever
// read callbacks change (AddReadCallback/RemoveReadCallback).
type Traits struct {
	TriviallyConstructible bool
	TriviallyDestructible  bool
	Mappable               bool
	HasReadCallbacks       bool
}

// TrivialType reports the "both of the first two" combination spec.md §3 names.
func (t Traits) TrivialType() bool { return t.TriviallyConstructible && t.TriviallyDestructible }

// Simple reports whether the field maps 1:1 onto one packed column and has
// no post-read callbacks (GLOSSARY "Simple field").
func (t Traits) Simple() bool { return t.Mappable && !t.HasReadCallbacks }

// ReadCallback is a schema-evolution (or other) post-read transformation,
// invoked with the freshly populated object (spec.md §4.4, §9).
type ReadCallback func(v any)

// Representation and RepresentationSet live in package column (every
// concrete field kind declares its representation set in terms of
// column.ElementType sequences; see column/representation.go).
type Representation = column.Representation
type RepresentationSet = column.RepresentationSet
