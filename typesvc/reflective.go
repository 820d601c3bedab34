package typesvc

import (
	"fmt"
	"reflect"
	"sync"
)

// VariantShape lets a registered Go type declare itself as a tagged union:
// the field engine maps one variant alternative per returned type name, in
// tag order (tag 1 == alternatives[0], spec.md §4.3).
type VariantShape interface {
	NTupleVariantAlternatives() []string
}

// Base-class subobjects: resolveType reports every anonymous (embedded)
// field of a registered struct with Member.IsBaseType set, marking it as
// a base-class subobject rather than a data member (spec.md §4.3).

var primitiveSizes = map[string]struct {
	size, align int
}{
	"bool": {1, 1}, "char": {1, 1}, "byte": {1, 1},
	"int8": {1, 1}, "uint8": {1, 1},
	"int16": {2, 2}, "uint16": {2, 2},
	"int32": {4, 4}, "uint32": {4, 4},
	"int64": {8, 8}, "uint64": {8, 8},
	"float32": {4, 4}, "float64": {8, 8},
	"clustersize": {8, 8}, "index": {8, 8},
}

// Reflective is the default Service, resolving type names against Go
// types registered with Register. Primitive type names are recognized
// without registration.
type Reflective struct {
	mu        sync.RWMutex
	types     map[string]reflect.Type
	names     map[reflect.Type]string
	evolution map[string]map[uint32][]Rule
}

func NewReflective() *Reflective {
	return &Reflective{
		types:     make(map[string]reflect.Type),
		names:     make(map[reflect.Type]string),
		evolution: make(map[string]map[uint32][]Rule),
	}
}

// Register associates typeName with the Go type of sample, so Resolve can
// later describe it structurally. Nested members of other registered types
// that hold a value of this Go type are then described using typeName too
// (see typeNameFor), rather than Go's own type string.
func (r *Reflective) Register(typeName string, sample any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := reflect.TypeOf(sample)
	r.types[typeName] = t
	r.names[t] = typeName
}

// RegisterEvolution attaches schema-evolution rules a class field should
// run after reading an object stored under an older on-disk type version.
func (r *Reflective) RegisterEvolution(typeName string, onDiskVersion uint32, rules ...Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.evolution[typeName] == nil {
		r.evolution[typeName] = make(map[uint32][]Rule)
	}
	r.evolution[typeName][onDiskVersion] = append(r.evolution[typeName][onDiskVersion], rules...)
}

func (r *Reflective) EvolutionRules(typeName string, onDiskVersion uint32) ([]Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.evolution[typeName][onDiskVersion], nil
}

func (r *Reflective) Resolve(typeName string) (Info, error) {
	if sz, ok := primitiveSizes[typeName]; ok {
		return Info{Kind: KindPrimitive, Size: sz.size, Align: sz.align, DefaultConstructible: true}, nil
	}

	r.mu.RLock()
	t, ok := r.types[typeName]
	r.mu.RUnlock()
	if !ok {
		return Info{}, fmt.Errorf("typesvc: unknown type %q", typeName)
	}
	return r.resolveType(t)
}

// typeNameFor derives the field-grammar spelling (field/typename.go's
// "vector<T>"/"set<T>"/"array<T,N>"/"T*" syntax) for t, so a struct member's
// TypeName round-trips through field.Create instead of Go's own type
// string. A type registered with Register is named the way it was
// registered; anything else is built up recursively from its Go shape.
func (r *Reflective) typeNameFor(t reflect.Type) string {
	r.mu.RLock()
	name, ok := r.names[t]
	r.mu.RUnlock()
	if ok {
		return name
	}
	switch t.Kind() {
	case reflect.Ptr:
		return r.typeNameFor(t.Elem()) + "*"
	case reflect.Slice:
		return "vector<" + r.typeNameFor(t.Elem()) + ">"
	case reflect.Map:
		return "set<" + r.typeNameFor(t.Key()) + ">"
	case reflect.Array:
		return fmt.Sprintf("array<%s,%d>", r.typeNameFor(t.Elem()), t.Len())
	case reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		return t.Kind().String()
	default:
		return t.String()
	}
}

func (r *Reflective) resolveType(t reflect.Type) (Info, error) {
	if t.Kind() == reflect.Ptr {
		return Info{
			Kind:                 KindNullable,
			Size:                 int(t.Elem().Size()),
			Align:                int(t.Elem().Align()),
			ElemTypeName:         r.typeNameFor(t.Elem()),
			DefaultConstructible: true,
		}, nil
	}
	if shape, ok := reflect.New(t).Interface().(VariantShape); ok {
		return Info{
			Kind:                 KindVariant,
			Size:                 int(t.Size()),
			Align:                int(t.Align()),
			Alternatives:         shape.NTupleVariantAlternatives(),
			DefaultConstructible: true,
		}, nil
	}
	switch t.Kind() {
	case reflect.Slice:
		return Info{
			Kind:                 KindSlice,
			Size:                 int(reflect.SliceOf(t.Elem()).Size()),
			Align:                8,
			ElemTypeName:         r.typeNameFor(t.Elem()),
			DefaultConstructible: true,
		}, nil
	case reflect.Map:
		return Info{
			Kind:                 KindSet,
			Size:                 int(t.Size()),
			Align:                8,
			ElemTypeName:         r.typeNameFor(t.Key()),
			DefaultConstructible: true,
		}, nil
	case reflect.Array:
		return Info{
			Kind:                 KindFixedArray,
			Size:                 int(t.Size()),
			Align:                int(t.Align()),
			ElemTypeName:         r.typeNameFor(t.Elem()),
			FixedLen:             t.Len(),
			DefaultConstructible: true,
		}, nil
	case reflect.Struct:
		members := make([]Member, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			members = append(members, Member{
				Name:       f.Name,
				TypeName:   r.typeNameFor(f.Type),
				Offset:     f.Offset,
				IsBaseType: f.Anonymous,
			})
		}
		return Info{
			Kind:                 KindRecord,
			Size:                 int(t.Size()),
			Align:                int(t.Align()),
			Members:              members,
			DefaultConstructible: true,
		}, nil
	case reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64:
		return Info{
			Kind:                 KindEnum,
			Size:                 int(t.Size()),
			Align:                int(t.Align()),
			EnumUnderlying:       t.Kind().String(),
			DefaultConstructible: true,
		}, nil
	default:
		return Info{}, fmt.Errorf("typesvc: unsupported kind %s for type %s", t.Kind(), t)
	}
}
