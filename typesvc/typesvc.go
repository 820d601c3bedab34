// Package typesvc is the type reflection service the field engine
// consults to resolve a type name string into a structural description
// (spec.md §6). field.Create asks a typesvc.Service to describe any type
// name outside its built-in grammar (members, element type names,
// alternatives), and fields built with a Service ask it for
// schema-evolution rules at connect-source time; the field package itself also uses reflect
// directly to move values in and out of Go objects.
package typesvc

// Kind classifies a resolved type's structural shape.
type Kind int

const (
	KindPrimitive Kind = iota
	KindRecord         // struct / class / pair / tuple
	KindEnum
	KindFixedArray
	KindSlice    // variable-length typed collection (vector/RVec-like)
	KindSet      // same shape as KindSlice, distinct materialization
	KindVariant  // tagged union (sum type)
	KindNullable // pointer / optional
	KindAtomic   // transparent single-field wrapper
	KindUnsupported
)

// Member describes one data member of a record type.
type Member struct {
	Name       string
	TypeName   string
	Offset     uintptr
	IsBaseType bool // true when this "member" is actually a base-class subobject
}

// Rule is one schema-evolution read transformation: given the freshly read
// object pointer, mutate it in place (spec.md §9 "Schema-evolution callbacks").
type Rule func(obj any)

// Info is the structural description typesvc resolves a type name to.
type Info struct {
	Kind Kind

	// Size/Align mirror what a from-scratch constructor would allocate.
	Size  int
	Align int

	Members []Member // KindRecord

	ElemTypeName string // KindFixedArray, KindSlice, KindSet, KindNullable: element/pointee type
	FixedLen     int    // KindFixedArray: repetition count

	EnumUnderlying string // KindEnum: "int8".."int64" etc.

	Alternatives []string // KindVariant: alternative type names, in tag order

	// DefaultConstructible is false when the type needs an IO constructor
	// path (spec.md §7 "GenerateValue for a non-default-constructible
	// class attempts an IO-constructor path before failing").
	DefaultConstructible bool
}

// Service resolves type names to structural descriptions. The default
// implementation (Reflective) drives this off Go's reflect package, acting
// as the "build-time code generator" spec.md §9 describes as an
// alternative to a runtime reflection facility — except here it runs at
// field-construction time rather than build time, which is the idiomatic
// Go equivalent (no separate codegen step is needed to inspect a Go struct).
type Service interface {
	Resolve(typeName string) (Info, error)
	// EvolutionRules returns the read-transformation closures a class
	// field should install for the given on-disk type version, or nil if
	// none apply (spec.md §4.3, §8 scenario 6).
	EvolutionRules(typeName string, onDiskVersion uint32) ([]Rule, error)
}
