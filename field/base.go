package field

import (
	"fmt"
	"reflect"

	"github.com/fieldstore/ntuple/column"
	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/storage"
	"github.com/fieldstore/ntuple/typesvc"
)

// DescriptorLookup resolves a child field's on-disk field ID from its
// parent's; the field engine itself never parses a descriptor format — it
// only asks this interface to walk the on-disk field tree in step with its
// own schema tree (spec.md §6 "Descriptor").
type DescriptorLookup interface {
	OnDiskID(parentID uint64, childIndex int) (uint64, bool)
}

// behavior is the strategy every concrete field kind implements; Base
// dispatches every kind-independent operation (state machine, principal
// index translation, callback bookkeeping, default bulk read) and defers
// kind-specific work here, the same split the teacher's column/cell type
// hierarchy uses internally.
type behavior interface {
	structureKind() StructureKind
	representations(b *Base) column.RepresentationSet
	generateColumnsForWrite(b *Base, sink storage.PageSink, firstEntry uint64) error
	bindColumnsForRead(b *Base, src storage.PageSource, onDiskID uint64, rep column.Representation, descs []storage.ColumnDescriptor) error
	appendValue(b *Base, v reflect.Value) (int, error)
	readValue(b *Base, localIndex uint64, v reflect.Value) error
	splitValue(b *Base, v reflect.Value) ([]ValueHandle, error)
	commitCluster(b *Base) error
	zeroValue(b *Base) reflect.Value
	traits(b *Base) Traits
	// ownColumns reports the column handles this field itself created
	// during ConnectSink, in declaration order — the bookkeeping a
	// Descriptor builder needs to bind an on-disk field ID to its columns
	// (spec.md §6 "Descriptor"). Composite fields that own no column of
	// their own (record, atomic) return nil.
	ownColumns(b *Base) []storage.ColumnHandle
}

// Field is the public interface every concrete kind satisfies. Operation
// names follow spec.md §4 ("Create", "Clone", "Generate", "Bind", "Append",
// "Read", "Split", "CommitCluster", "AddReadCallback"/"RemoveReadCallback").
type Field interface {
	Name() string
	TypeName() string
	StructureKind() StructureKind
	Traits() Traits
	State() State
	Parent() Field
	Children() []Field
	Repetition() int // >1 only for fixed arrays (spec.md §4.3)
	ResetsIndex() bool

	GoType() reflect.Type

	ConnectSink(sink storage.PageSink, firstEntry uint64) error
	ConnectSource(src storage.PageSource, onDiskID uint64, lookup DescriptorLookup) error

	Generate() (ValueHandle, error)
	Bind(ptr any) (ValueHandle, error)
	Clone(newName string) Field

	Append(v reflect.Value) (int, error)
	Read(globalIndex uint64, v reflect.Value) error
	BulkRead(h *BulkHandle) error
	Split(v reflect.Value) ([]ValueHandle, error)
	CommitCluster() error

	AddReadCallback(cb ReadCallback) int
	RemoveReadCallback(id int)

	OwnColumns() []storage.ColumnHandle
}

// Base holds every piece of state common to all field kinds; concrete kinds
// embed it and supply a behavior.
type Base struct {
	name     string
	typeName string
	goType   reflect.Type
	info     typesvc.Info
	svc      typesvc.Service

	parent     Field
	children   []Field
	repetition int

	state State

	// resetsIndex marks a field whose children's index space restarts at 0
	// on every entry rather than inheriting the parent's principal index
	// directly: collection and variant children re-index through their own
	// offset/switch column (spec.md §4.2). Record and fixed-array children
	// forward or multiply the parent's index in place instead (array.go,
	// record.go) and leave this false.
	resetsIndex bool

	onDiskID uint64
	lookup   DescriptorLookup

	callbacks   map[int]ReadCallback
	nextCBID    int
	evolution   []typesvc.Rule

	self behavior
}

func newBase(name, typeName string, goType reflect.Type, info typesvc.Info, svc typesvc.Service, self behavior) Base {
	return Base{
		name:     name,
		typeName: typeName,
		goType:   goType,
		info:     info,
		svc:      svc,
		callbacks: make(map[int]ReadCallback),
		self:     self,
	}
}

func (b *Base) Name() string           { return b.name }
func (b *Base) TypeName() string       { return b.typeName }
func (b *Base) GoType() reflect.Type   { return b.goType }
func (b *Base) Parent() Field          { return b.parent }
func (b *Base) Children() []Field      { return b.children }
func (b *Base) Repetition() int {
	if b.repetition == 0 {
		return 1
	}
	return b.repetition
}
func (b *Base) State() State                  { return b.state }
func (b *Base) OwnColumns() []storage.ColumnHandle { return b.self.ownColumns(b) }
func (b *Base) ResetsIndex() bool             { return b.resetsIndex }
func (b *Base) StructureKind() StructureKind  { return b.self.structureKind() }
func (b *Base) Traits() Traits {
	t := b.self.traits(b)
	if len(b.callbacks) > 0 || len(b.evolution) > 0 {
		t.HasReadCallbacks = true
	}
	return t
}

func (b *Base) AddReadCallback(cb ReadCallback) int {
	id := b.nextCBID
	b.nextCBID++
	b.callbacks[id] = cb
	return id
}

func (b *Base) RemoveReadCallback(id int) {
	delete(b.callbacks, id)
}

func (b *Base) runCallbacks(v reflect.Value) {
	if len(b.callbacks) == 0 && len(b.evolution) == 0 {
		return
	}
	boxed := v
	if boxed.CanAddr() {
		boxed = boxed.Addr()
	}
	var iface any
	if boxed.CanInterface() {
		iface = boxed.Interface()
	}
	for _, rule := range b.evolution {
		rule(iface)
	}
	for _, cb := range b.callbacks {
		cb(iface)
	}
}

// ConnectSink walks the tree depth-first, giving every field a chance to
// create its columns before any child's CreateColumn call (spec.md §4.1
// step 1: "columns created in declaration order at connect time").
func (b *Base) ConnectSink(sink storage.PageSink, firstEntry uint64) error {
	if b.state != StateUnconnected {
		return errs.New(errs.KindStateViolation, "field %q already connected", b.name)
	}
	if err := b.self.generateColumnsForWrite(b, sink, firstEntry); err != nil {
		return err
	}
	for _, c := range b.children {
		if err := connectChildSink(c, sink, firstEntry); err != nil {
			return err
		}
	}
	b.state = StateConnectedSink
	return nil
}

func connectChildSink(f Field, sink storage.PageSink, firstEntry uint64) error {
	return f.ConnectSink(sink, firstEntry)
}

// ConnectSource resolves this field's on-disk representation against src,
// then recurses into children using lookup to find their on-disk IDs
// (spec.md §4.1 step 2: "representation negotiated before columns bound").
func (b *Base) ConnectSource(src storage.PageSource, onDiskID uint64, lookup DescriptorLookup) error {
	if b.state != StateUnconnected {
		return errs.New(errs.KindStateViolation, "field %q already connected", b.name)
	}
	descs, err := src.LookupColumns(onDiskID)
	if err != nil {
		return err
	}
	set := b.self.representations(b)
	var descRep column.Representation
	for _, d := range descs {
		descRep = append(descRep, d.Type)
	}
	idx, ok := column.SelectForSource(set, descRep)
	if !ok && len(descs) > 0 {
		return errs.New(errs.KindSchemaMismatch,
			"field %q: on-disk representation %v not offered by type %q", b.name, descRep, b.typeName)
	}
	_ = idx
	b.onDiskID = onDiskID
	b.lookup = lookup

	if err := b.installEvolution(src, onDiskID); err != nil {
		return err
	}

	if err := b.self.bindColumnsForRead(b, src, onDiskID, descRep, descs); err != nil {
		return err
	}

	for i, c := range b.children {
		childID, ok := lookup.OnDiskID(onDiskID, i)
		if !ok {
			return errs.New(errs.KindSchemaMismatch, "field %q: no on-disk child %d", b.name, i)
		}
		if err := c.ConnectSource(src, childID, lookup); err != nil {
			return err
		}
	}
	b.state = StateConnectedSource
	return nil
}

func (b *Base) installEvolution(src storage.PageSource, onDiskID uint64) error {
	if b.svc == nil {
		return nil
	}
	ver, err := src.LookupTypeVersion(onDiskID)
	if err != nil || ver == 0 {
		return nil
	}
	rules, err := b.svc.EvolutionRules(b.typeName, ver)
	if err != nil {
		return err
	}
	b.evolution = rules
	return nil
}

func (b *Base) Generate() (ValueHandle, error) {
	v := b.self.zeroValue(b)
	return ValueHandle{Field: b.publicSelf(), Value: v, Owns: true}, nil
}

func (b *Base) Bind(ptr any) (ValueHandle, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return ValueHandle{}, errs.New(errs.KindInvalidArgument, "field %q: Bind requires a non-nil pointer", b.name)
	}
	if rv.Elem().Type() != b.goType {
		return ValueHandle{}, errs.New(errs.KindSchemaMismatch, "field %q: Bind type mismatch: have %s want %s", b.name, rv.Elem().Type(), b.goType)
	}
	return ValueHandle{Field: b.publicSelf(), Value: rv.Elem(), Owns: false}, nil
}

// publicSelf recovers the embedding concrete Field from behavior, since
// Base itself only implements part of the Field interface.
func (b *Base) publicSelf() Field {
	if f, ok := b.self.(Field); ok {
		return f
	}
	return nil
}

// Append writes v into this field's columns and returns the number of bytes
// written — for a mappable field this is exactly its principal column's
// packedSize (spec.md §4.1, §8 property 3).
func (b *Base) Append(v reflect.Value) (int, error) {
	if b.state != StateConnectedSink {
		return 0, errs.New(errs.KindStateViolation, "field %q: Append requires a sink connection", b.name)
	}
	return b.self.appendValue(b, v)
}

func (b *Base) Read(globalIndex uint64, v reflect.Value) error {
	if b.state != StateConnectedSource {
		return errs.New(errs.KindStateViolation, "field %q: Read requires a source connection", b.name)
	}
	if err := b.self.readValue(b, globalIndex, v); err != nil {
		return err
	}
	b.runCallbacks(v)
	return nil
}

// BulkRead is the default implementation: a per-slot loop through Read.
// Fields whose traits are Simple (spec.md §4.1) override this with a
// vectorized single-column read and set the ALL sentinel; see
// primitive.go/vector.go for the fast path.
func (b *Base) BulkRead(h *BulkHandle) error {
	if b.state != StateConnectedSource {
		return errs.New(errs.KindStateViolation, "field %q: BulkRead requires a source connection", b.name)
	}
	for i := 0; i < h.Count; i++ {
		if h.MaskReq != nil && !h.MaskReq[i] {
			continue
		}
		if err := b.Read(h.FirstIndex+uint64(i), h.Values.Index(i)); err != nil {
			return err
		}
		h.MaskAvail[i] = true
	}
	return nil
}

func (b *Base) Split(v reflect.Value) ([]ValueHandle, error) {
	return b.self.splitValue(b, v)
}

func (b *Base) CommitCluster() error {
	if err := b.self.commitCluster(b); err != nil {
		return err
	}
	for _, c := range b.children {
		if err := c.CommitCluster(); err != nil {
			return err
		}
	}
	return nil
}

// defaultClone copies the Base's declarative state (not connect state) for
// use by each concrete kind's Clone (spec.md §4.1 "Clone resets to
// unconnected").
func (b *Base) defaultClone(newName string) Base {
	nb := newBase(newName, b.typeName, b.goType, b.info, b.svc, b.self)
	nb.repetition = b.repetition
	return nb
}

func structureKindString(k StructureKind) string {
	switch k {
	case StructureLeaf:
		return "leaf"
	case StructureRecord:
		return "record"
	case StructureCollection:
		return "collection"
	case StructureVariant:
		return "variant"
	case StructureUnsplitCollection:
		return "unsplit-collection"
	default:
		return fmt.Sprintf("structureKind(%d)", int(k))
	}
}
