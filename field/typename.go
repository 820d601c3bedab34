package field

import (
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/typesvc"
)

// foldKeyword case-folds only the grammar keywords a type name is built
// from (vector, set, array, bitset, variant, pair, tuple, atomic,
// optional, the primitive names), never the bytes of a value itself — so
// "Vector<Int32>" and "vector<int32>" parse identically while two
// differently-cased values remain distinguishable data (SPEC_FULL.md §3).
var foldKeyword = cases.Fold().String

// Create parses typeName (spec.md §4.3's grammar: primitive names,
// "vector<T>", "set<T>", "array<T,N>", "bitset<N>", "variant<T,...>",
// "T*" for a dense-bitmask optional, "optional<T>" for a sparse-index
// optional, "atomic<T>", "pair<T,U>", "tuple<T,...>", or any type name svc
// resolves to a record, variant, pointer, slice, map or fixed array) into a
// Field tree rooted at name. A type name svc resolves to an enum is rejected
// with KindUnsupported.
func Create(name, typeName string, svc typesvc.Service) (Field, error) {
	if !validFieldName(name) {
		return nil, errs.New(errs.KindInvalidArgument, "field %q: invalid field name", name)
	}
	return createNamed(name, strings.TrimSpace(typeName), svc)
}

// validFieldName enforces spec.md §3's Field-name grammar at the Create
// boundary: non-empty unless root (the empty string names the tree root),
// no ASCII control characters, no '.', and no leading digit. Fields built
// up internally during recursive parsing (e.g. "v.item") use the engine's
// own qualified-path convention and are never routed back through this
// check.
func validFieldName(name string) bool {
	if name == "" {
		return true
	}
	for i, r := range name {
		if r < 0x20 || r == 0x7f {
			return false
		}
		if r == '.' {
			return false
		}
		if i == 0 && r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}

func createNamed(name, typeName string, svc typesvc.Service) (Field, error) {
	folded := foldKeyword(typeName)

	if desc, ok := primitiveTable[folded]; ok {
		return newPrimitive(name, folded, desc), nil
	}

	if strings.HasSuffix(typeName, "*") {
		inner := strings.TrimSpace(strings.TrimSuffix(typeName, "*"))
		child, err := createNamed(name+".val", inner, svc)
		if err != nil {
			return nil, err
		}
		return newNullable(name, typeName, child, false), nil
	}

	if args, ok := templateArgs(folded, "optional"); ok && len(args) == 1 {
		child, err := createNamed(name+".val", rawArg(typeName, "optional", 0), svc)
		if err != nil {
			return nil, err
		}
		return newNullable(name, typeName, child, true), nil
	}
	if args, ok := templateArgs(folded, "vector"); ok && len(args) == 1 {
		child, err := createNamed(name+".item", rawArg(typeName, "vector", 0), svc)
		if err != nil {
			return nil, err
		}
		return newVector(name, typeName, child), nil
	}
	if args, ok := templateArgs(folded, "rvec"); ok && len(args) == 1 {
		child, err := createNamed(name+".item", rawArg(typeName, "rvec", 0), svc)
		if err != nil {
			return nil, err
		}
		return newVector(name, typeName, child), nil
	}
	if args, ok := templateArgs(folded, "set"); ok && len(args) == 1 {
		child, err := createNamed(name+".item", rawArg(typeName, "set", 0), svc)
		if err != nil {
			return nil, err
		}
		return newSet(name, typeName, child), nil
	}
	if args, ok := templateArgs(folded, "atomic"); ok && len(args) == 1 {
		child, err := createNamed(name+".val", rawArg(typeName, "atomic", 0), svc)
		if err != nil {
			return nil, err
		}
		return newAtomic(name, typeName, child), nil
	}
	if args, ok := templateArgs(folded, "array"); ok && len(args) == 2 {
		n, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil {
			return nil, errs.New(errs.KindInvalidArgument, "field %q: array length %q is not an integer", name, args[1])
		}
		child, err := createNamed(name+".item", rawArg(typeName, "array", 0), svc)
		if err != nil {
			return nil, err
		}
		return newFixedArray(name, typeName, child, n), nil
	}
	if args, ok := templateArgs(folded, "bitset"); ok && len(args) == 1 {
		n, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return nil, errs.New(errs.KindInvalidArgument, "field %q: bitset length %q is not an integer", name, args[0])
		}
		return newBitset(name, typeName, n), nil
	}
	if args, ok := templateArgs(folded, "variant"); ok && len(args) >= 1 {
		alts := make([]Field, len(args))
		for i := range args {
			c, err := createNamed(name+".alt"+strconv.Itoa(i), rawArg(typeName, "variant", i), svc)
			if err != nil {
				return nil, err
			}
			alts[i] = c
		}
		return newVariant(name, typeName, alts), nil
	}
	if args, ok := templateArgs(folded, "pair"); ok && len(args) == 2 {
		first, err := createNamed(name+".first", rawArg(typeName, "pair", 0), svc)
		if err != nil {
			return nil, err
		}
		second, err := createNamed(name+".second", rawArg(typeName, "pair", 1), svc)
		if err != nil {
			return nil, err
		}
		return newPair(name, typeName, first, second), nil
	}
	if args, ok := templateArgs(folded, "tuple"); ok && len(args) >= 1 {
		items := make([]Field, len(args))
		for i := range args {
			c, err := createNamed(name+".item"+strconv.Itoa(i), rawArg(typeName, "tuple", i), svc)
			if err != nil {
				return nil, err
			}
			items[i] = c
		}
		return newTuple(name, typeName, items), nil
	}

	// Fall through to the type reflection service: registered records and
	// enums.
	if svc == nil {
		return nil, errs.New(errs.KindInvalidArgument, "field %q: unknown type %q (no type service registered)", name, typeName)
	}
	info, err := svc.Resolve(typeName)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, err, "field %q: resolving type %q", name, typeName)
	}
	return createFromInfo(name, typeName, info, svc)
}

func createFromInfo(name, typeName string, info typesvc.Info, svc typesvc.Service) (Field, error) {
	switch info.Kind {
	case typesvc.KindRecord:
		return createRecordFromInfo(name, typeName, info, svc)
	case typesvc.KindEnum:
		return nil, errs.New(errs.KindUnsupported, "field %q: enum type %q must be registered with its concrete Go type via a direct Create call, not resolved generically", name, typeName)
	case typesvc.KindVariant:
		alts := make([]Field, len(info.Alternatives))
		for i, a := range info.Alternatives {
			c, err := createNamed(name+".alt"+strconv.Itoa(i), a, svc)
			if err != nil {
				return nil, err
			}
			alts[i] = c
		}
		return newVariant(name, typeName, alts), nil
	case typesvc.KindNullable:
		child, err := createNamed(name+".val", info.ElemTypeName, svc)
		if err != nil {
			return nil, err
		}
		return newNullable(name, typeName, child, false), nil
	case typesvc.KindSlice:
		child, err := createNamed(name+".item", info.ElemTypeName, svc)
		if err != nil {
			return nil, err
		}
		return newVector(name, typeName, child), nil
	case typesvc.KindSet:
		child, err := createNamed(name+".item", info.ElemTypeName, svc)
		if err != nil {
			return nil, err
		}
		return newSet(name, typeName, child), nil
	case typesvc.KindFixedArray:
		child, err := createNamed(name+".item", info.ElemTypeName, svc)
		if err != nil {
			return nil, err
		}
		return newFixedArray(name, typeName, child, info.FixedLen), nil
	default:
		return nil, errs.New(errs.KindUnsupported, "field %q: unsupported type kind for %q", name, typeName)
	}
}

func createRecordFromInfo(name, typeName string, info typesvc.Info, svc typesvc.Service) (Field, error) {
	if !info.DefaultConstructible {
		return nil, errs.Wrap(errs.KindUnsupported, errs.ErrNotDefaultConstructible, "field %q: type %q", name, typeName)
	}
	children := make([]Field, len(info.Members))
	idx := make([]int, len(info.Members))
	goFields := make([]reflect.StructField, len(info.Members))
	for i, m := range info.Members {
		c, err := createNamed(name+"."+m.Name, m.TypeName, svc)
		if err != nil {
			return nil, err
		}
		children[i] = c
		idx[i] = i
		fname := m.Name
		if fname == "" {
			fname = "Field" + strconv.Itoa(i)
		}
		goFields[i] = reflect.StructField{Name: exportName(fname), Type: c.GoType()}
	}
	goType := reflect.StructOf(goFields)
	return newRecord(name, typeName, goType, info, svc, children, idx), nil
}

func exportName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// templateArgs splits "keyword<a,b,c>" into ["a","b","c"] iff folded starts
// with keyword<...>, respecting nested angle brackets/parens so e.g.
// "vector<pair<int32,int32>>" splits its outer args correctly.
func templateArgs(folded, keyword string) ([]string, bool) {
	prefix := keyword + "<"
	if !strings.HasPrefix(folded, prefix) || !strings.HasSuffix(folded, ">") {
		return nil, false
	}
	inner := folded[len(prefix) : len(folded)-1]
	return splitTopLevel(inner), true
}

func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// rawArg re-derives the Nth top-level template argument from the
// original (un-folded) type name, so nested argument case is preserved for
// recursive parsing (case folding is keyword-only, never value-bearing).
func rawArg(original, keyword string, n int) string {
	prefix := foldKeyword(keyword) + "<"
	folded := foldKeyword(original)
	start := strings.Index(folded, prefix)
	if start < 0 {
		return ""
	}
	// Map the folded offsets back onto the original string: keyword
	// casing never changes length under cases.Fold for ASCII keywords, so
	// byte offsets line up directly.
	innerOriginal := original[start+len(prefix) : len(original)-1]
	parts := splitTopLevel(innerOriginal)
	if n >= len(parts) {
		return ""
	}
	return strings.TrimSpace(parts[n])
}
