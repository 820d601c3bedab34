package field

import (
	"reflect"
	"testing"

	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
	"github.com/stretchr/testify/require"
)

// seqLookup assigns on-disk IDs by pre-order position, matching the order
// fields were connected to the sink — good enough for round-tripping a
// freshly built tree within one test.
type seqLookup struct {
	childIDs map[uint64][]uint64
	next     uint64
}

func newSeqLookup() *seqLookup { return &seqLookup{childIDs: make(map[uint64][]uint64)} }

func (s *seqLookup) assign(parent uint64, n int) []uint64 {
	ids := make([]uint64, n)
	for i := range ids {
		s.next++
		ids[i] = s.next
	}
	s.childIDs[parent] = ids
	return ids
}

func (s *seqLookup) OnDiskID(parentID uint64, childIndex int) (uint64, bool) {
	ids, ok := s.childIDs[parentID]
	if !ok || childIndex >= len(ids) {
		return 0, false
	}
	return ids[childIndex], true
}

// bindTree walks w's subtree (already connected to sink), assigning each
// field a sequential on-disk ID and binding its own columns into sink —
// the bookkeeping a real Descriptor builder performs after ConnectSink
// (spec.md §6).
func bindTree(lookup *seqLookup, sink *storage.MemStore, f Field, id uint64) {
	sink.BindField(id, 0, f.OwnColumns()...)
	children := f.Children()
	if len(children) == 0 {
		return
	}
	ids := lookup.assign(id, len(children))
	for i, c := range children {
		bindTree(lookup, sink, c, ids[i])
	}
}

func roundTrip(t *testing.T, w, r Field, values []any) {
	t.Helper()
	sink := storage.NewMemStore(storage.DefaultWriteOptions())
	require.NoError(t, w.ConnectSink(sink, 0))
	for _, v := range values {
		_, err := w.Append(reflect.ValueOf(v))
		require.NoError(t, err)
	}
	require.NoError(t, w.CommitCluster())

	lookup := newSeqLookup()
	bindTree(lookup, sink, w, 0)
	require.NoError(t, r.ConnectSource(sink, 0, lookup))

	for i, want := range values {
		out := reflect.New(r.GoType()).Elem()
		require.NoError(t, r.Read(uint64(i), out))
		require.Equal(t, want, out.Interface())
	}
}

func TestPrimitiveRoundTrip(t *testing.T) {
	w := newPrimitive("n", "int32", primitiveTable["int32"])
	r := newPrimitive("n", "int32", primitiveTable["int32"])
	roundTrip(t, w, r, []any{int32(1), int32(-7), int32(2147483647)})
}

func TestBoolRoundTrip(t *testing.T) {
	w := newPrimitive("flag", "bool", primitiveTable["bool"])
	r := newPrimitive("flag", "bool", primitiveTable["bool"])
	roundTrip(t, w, r, []any{true, false, true})
}

type point struct {
	X int32
	Y int32
}

func TestRecordRoundTrip(t *testing.T) {
	buildPoint := func() Field {
		x := newPrimitive("x", "int32", primitiveTable["int32"])
		y := newPrimitive("y", "int32", primitiveTable["int32"])
		goType := reflect.TypeOf(point{})
		return newRecord("pt", "point", goType, typesvc.Info{Kind: typesvc.KindRecord, DefaultConstructible: true}, nil, []Field{x, y}, []int{0, 1})
	}
	w := buildPoint()
	r := buildPoint()
	roundTrip(t, w, r, []any{point{X: 1, Y: 2}, point{X: -3, Y: 4}})
}

func TestVectorRoundTrip(t *testing.T) {
	buildVec := func() Field {
		item := newPrimitive("item", "int32", primitiveTable["int32"])
		return newVector("v", "vector<int32>", item)
	}
	w := buildVec()
	r := buildVec()
	roundTrip(t, w, r, []any{[]int32{1, 2, 3}, []int32{}, []int32{42}})
}

func TestFixedArrayRoundTrip(t *testing.T) {
	buildArr := func() Field {
		item := newPrimitive("item", "int32", primitiveTable["int32"])
		return newFixedArray("a", "array<int32,3>", item, 3)
	}
	w := buildArr()
	r := buildArr()
	want := [3]int32{1, 2, 3}
	roundTrip(t, w, r, []any{want})
}

func TestBitsetRoundTrip(t *testing.T) {
	w := newBitset("bs", "bitset<4>", 4)
	r := newBitset("bs", "bitset<4>", 4)
	want := [4]bool{true, false, true, true}
	roundTrip(t, w, r, []any{want})
}

func TestNullableDenseRoundTrip(t *testing.T) {
	build := func() Field {
		child := newPrimitive("v", "int32", primitiveTable["int32"])
		return newNullable("n", "int32*", child, false)
	}
	w := build()
	r := build()
	one := int32(5)
	roundTrip(t, w, r, []any{&one, (*int32)(nil), &one})
}

func TestNullableSparseRoundTrip(t *testing.T) {
	build := func() Field {
		child := newPrimitive("v", "int32", primitiveTable["int32"])
		return newNullable("n", "optional<int32>", child, true)
	}
	w := build()
	r := build()
	one := int32(9)
	roundTrip(t, w, r, []any{(*int32)(nil), &one})
}

func TestVariantRoundTrip(t *testing.T) {
	build := func() Field {
		a := newPrimitive("a", "int32", primitiveTable["int32"])
		b := newPrimitive("b", "float64", primitiveTable["float64"])
		return newVariant("v", "variant<int32,float64>", []Field{a, b})
	}
	w := build()
	r := build()
	roundTrip(t, w, r, []any{int32(7), float64(3.5), int32(-1)})
}

// TestVariantMultiClusterRoundTrip exercises CommitCluster more than once on
// a variant field, confirming the per-alternative tag counters reset at the
// cluster boundary (spec.md §5) while reads by global entry index still
// resolve each alternative's value correctly.
func TestVariantMultiClusterRoundTrip(t *testing.T) {
	build := func() Field {
		a := newPrimitive("a", "int32", primitiveTable["int32"])
		b := newPrimitive("b", "float64", primitiveTable["float64"])
		return newVariant("v", "variant<int32,float64>", []Field{a, b})
	}
	w := build()
	r := build()

	sink := storage.NewMemStore(storage.DefaultWriteOptions())
	require.NoError(t, w.ConnectSink(sink, 0))

	clusterA := []any{int32(7), float64(3.5), int32(-1)}
	clusterB := []any{float64(9.5), int32(42)}

	for _, v := range clusterA {
		_, err := w.Append(reflect.ValueOf(v))
		require.NoError(t, err)
	}
	require.NoError(t, w.CommitCluster())
	for _, v := range clusterB {
		_, err := w.Append(reflect.ValueOf(v))
		require.NoError(t, err)
	}
	require.NoError(t, w.CommitCluster())

	lookup := newSeqLookup()
	bindTree(lookup, sink, w, 0)
	require.NoError(t, r.ConnectSource(sink, 0, lookup))

	want := append(append([]any{}, clusterA...), clusterB...)
	for i, expect := range want {
		out := reflect.New(r.GoType()).Elem()
		require.NoError(t, r.Read(uint64(i), out))
		require.Equal(t, expect, out.Interface())
	}
}

func TestCreateParsesTypeNames(t *testing.T) {
	f, err := Create("v", "vector<int32>", nil)
	require.NoError(t, err)
	require.Equal(t, StructureCollection, f.StructureKind())

	f2, err := Create("p", "int32*", nil)
	require.NoError(t, err)
	require.Equal(t, StructureLeaf, f2.StructureKind())

	f3, err := Create("a", "array<int32,5>", nil)
	require.NoError(t, err)
	require.Equal(t, 5, f3.Repetition())

	f4, err := Create("var", "variant<int32,float32>", nil)
	require.NoError(t, err)
	require.Len(t, f4.Children(), 2)
}

// TestVectorMultiClusterRoundTrip exercises CommitCluster more than once,
// confirming collection offsets reset to 0 at each cluster boundary while
// reads by global entry index across clusters still resolve to the correct
// absolute items (spec.md §8 property 6).
func TestVectorMultiClusterRoundTrip(t *testing.T) {
	buildVec := func() Field {
		item := newPrimitive("item", "int32", primitiveTable["int32"])
		return newVector("v", "vector<int32>", item)
	}
	w := buildVec()
	r := buildVec()

	sink := storage.NewMemStore(storage.DefaultWriteOptions())
	require.NoError(t, w.ConnectSink(sink, 0))

	clusterA := [][]int32{{1, 2, 3}, {}}
	clusterB := [][]int32{{42}, {5, 6}}

	for _, v := range clusterA {
		_, err := w.Append(reflect.ValueOf(v))
		require.NoError(t, err)
	}
	require.NoError(t, w.CommitCluster())
	for _, v := range clusterB {
		_, err := w.Append(reflect.ValueOf(v))
		require.NoError(t, err)
	}
	require.NoError(t, w.CommitCluster())

	lookup := newSeqLookup()
	bindTree(lookup, sink, w, 0)
	require.NoError(t, r.ConnectSource(sink, 0, lookup))

	want := append(append([][]int32{}, clusterA...), clusterB...)
	for i, expect := range want {
		out := reflect.New(r.GoType()).Elem()
		require.NoError(t, r.Read(uint64(i), out))
		require.Equal(t, expect, out.Interface())
	}
}

// TestAppendReturnsPrincipalColumnPackedSize checks spec.md §8 property 3:
// Append on a mappable field returns exactly its principal column's
// packedSize, for both a primitive leaf and a record built entirely out of
// mappable children.
func TestAppendReturnsPrincipalColumnPackedSize(t *testing.T) {
	w := newPrimitive("n", "int32", primitiveTable["int32"])
	sink := storage.NewMemStore(storage.DefaultWriteOptions())
	require.NoError(t, w.ConnectSink(sink, 0))
	require.True(t, w.Traits().Mappable)

	n, err := w.Append(reflect.ValueOf(int32(7)))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	x := newPrimitive("x", "int32", primitiveTable["int32"])
	y := newPrimitive("y", "int32", primitiveTable["int32"])
	rec := newRecord("pt", "point", reflect.TypeOf(point{}),
		typesvc.Info{Kind: typesvc.KindRecord, DefaultConstructible: true}, nil, []Field{x, y}, []int{0, 1})
	recSink := storage.NewMemStore(storage.DefaultWriteOptions())
	require.NoError(t, rec.ConnectSink(recSink, 0))
	require.True(t, rec.Traits().Mappable)

	n, err = rec.Append(reflect.ValueOf(point{X: 1, Y: 2}))
	require.NoError(t, err)
	require.Equal(t, 8, n)
}

// TestVectorBulkRead exercises spec.md §8 property 5 and its worked
// scenario 5: BulkRead over a range of vector entries populates every slot
// and reports the ALL sentinel, matching entry-by-entry Read.
func TestVectorBulkRead(t *testing.T) {
	buildVec := func() Field {
		item := newPrimitive("item", "int32", primitiveTable["int32"])
		return newVector("v", "vector<int32>", item)
	}
	w := buildVec()
	r := buildVec()

	sink := storage.NewMemStore(storage.DefaultWriteOptions())
	require.NoError(t, w.ConnectSink(sink, 0))

	values := [][]int32{{1, 2, 3}, {}, {42}, {5, 6}}
	for _, v := range values {
		_, err := w.Append(reflect.ValueOf(v))
		require.NoError(t, err)
	}
	require.NoError(t, w.CommitCluster())

	lookup := newSeqLookup()
	bindTree(lookup, sink, w, 0)
	require.NoError(t, r.ConnectSource(sink, 0, lookup))

	h := NewBulkHandle(r.GoType(), len(values))
	require.NoError(t, r.BulkRead(h))
	for i, want := range values {
		require.True(t, h.Filled(i))
		got := h.Values.Index(i).Interface().([]int32)
		require.Equal(t, want, got)
	}
	require.NotEmpty(t, h.AuxData)

	h.Reset(1, 2, r.GoType())
	require.NoError(t, r.BulkRead(h))
	require.Equal(t, values[1], h.Values.Index(0).Interface().([]int32))
	require.Equal(t, values[2], h.Values.Index(1).Interface().([]int32))
}

// TestCardinalityBulkRead checks the cardinality projection's BulkRead
// override reports each target entry's item count across a bulk range.
func TestCardinalityBulkRead(t *testing.T) {
	item := newPrimitive("item", "int32", primitiveTable["int32"])
	vec := newVector("v", "vector<int32>", item)

	sink := storage.NewMemStore(storage.DefaultWriteOptions())
	require.NoError(t, vec.ConnectSink(sink, 0))

	values := [][]int32{{1, 2, 3}, {}, {42}}
	for _, v := range values {
		_, err := vec.Append(reflect.ValueOf(v))
		require.NoError(t, err)
	}
	require.NoError(t, vec.CommitCluster())

	readVec := newVector("v", "vector<int32>", newPrimitive("item", "int32", primitiveTable["int32"]))
	readCard, err := NewCardinality("n", readVec)
	require.NoError(t, err)

	lookup := newSeqLookup()
	bindTree(lookup, sink, vec, 0)
	require.NoError(t, readVec.ConnectSource(sink, 0, lookup))
	const cardID = 99
	sink.BindField(cardID, 0)
	require.NoError(t, readCard.ConnectSource(sink, cardID, lookup))

	h := NewBulkHandle(readCard.GoType(), len(values))
	require.NoError(t, readCard.BulkRead(h))
	for i, v := range values {
		require.True(t, h.Filled(i))
		require.Equal(t, uint64(len(v)), h.Values.Index(i).Uint())
	}
}

// TestSchemaEvolutionRuleApplied exercises the schema-evolution path end to
// end (spec.md §8 scenario 6): a "point" record stored under on-disk type
// version 1 gets read back through a Reflective service with a registered
// y = 2*x evolution rule, which must override the stored value.
func TestSchemaEvolutionRuleApplied(t *testing.T) {
	svc := typesvc.NewReflective()
	svc.RegisterEvolution("point", 1, func(obj any) {
		p := obj.(*point)
		p.Y = p.X * 2
	})

	buildPoint := func(s typesvc.Service) Field {
		x := newPrimitive("x", "int32", primitiveTable["int32"])
		y := newPrimitive("y", "int32", primitiveTable["int32"])
		goType := reflect.TypeOf(point{})
		return newRecord("pt", "point", goType, typesvc.Info{Kind: typesvc.KindRecord, DefaultConstructible: true}, s, []Field{x, y}, []int{0, 1})
	}
	w := buildPoint(nil)
	r := buildPoint(svc)

	sink := storage.NewMemStore(storage.DefaultWriteOptions())
	require.NoError(t, w.ConnectSink(sink, 0))
	_, err := w.Append(reflect.ValueOf(point{X: 5, Y: 999}))
	require.NoError(t, err)
	require.NoError(t, w.CommitCluster())

	lookup := newSeqLookup()
	sink.BindField(0, 1, w.OwnColumns()...)
	children := w.Children()
	ids := lookup.assign(0, len(children))
	for i, c := range children {
		bindTree(lookup, sink, c, ids[i])
	}

	require.NoError(t, r.ConnectSource(sink, 0, lookup))

	out := reflect.New(r.GoType()).Elem()
	require.NoError(t, r.Read(0, out))
	got := out.Interface().(point)
	require.Equal(t, int32(5), got.X)
	require.Equal(t, int32(10), got.Y)
}

// TestCreateRejectsInvalidFieldNames checks spec.md §3's field-name grammar
// is enforced at the Create boundary (§4.1 "invalid field name" error).
func TestCreateRejectsInvalidFieldNames(t *testing.T) {
	_, err := Create("a.b", "int32", nil)
	require.Error(t, err)

	_, err = Create("7x", "int32", nil)
	require.Error(t, err)

	_, err = Create("x\x01y", "int32", nil)
	require.Error(t, err)

	_, err = Create("", "int32", nil)
	require.NoError(t, err)

	_, err = Create("valid_name", "int32", nil)
	require.NoError(t, err)
}
