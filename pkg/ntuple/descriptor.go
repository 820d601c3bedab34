package ntuple

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/fieldstore/ntuple/errs"
	"github.com/fieldstore/ntuple/field"
	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
)

// fieldBinder is the bookkeeping every concrete PageSink/PageSource backend
// in this module exposes: recording which columns belong to an on-disk
// field ID (spec.md §6, "Descriptor").
type fieldBinder interface {
	BindField(onDiskID uint64, typeVersion uint32, handles ...storage.ColumnHandle)
}

// layoutProvider is implemented by storage backends that can report a
// column's physical placement for persistence (storage.PageFile). MemStore
// does not implement it: an in-memory store never outlives the process
// that built it, so there is nothing to persist.
type layoutProvider interface {
	Layout(h storage.ColumnHandle) (et wire.ElementType, off, length int64, nElems int, split bool, ok bool)
}

// layoutReceiver is implemented by storage backends a Descriptor can
// replay a saved layout into (storage.PageFile).
type layoutReceiver interface {
	RegisterColumn(h storage.ColumnHandle, et wire.ElementType, off, length int64, nElems int, split bool)
}

type columnRecord struct {
	Handle      storage.ColumnHandle `yaml:"handle"`
	Type        wire.ElementType     `yaml:"type"`
	Offset      int64                `yaml:"offset"`
	Length      int64                `yaml:"length"`
	NumElements int                  `yaml:"num_elements"`
	Split       bool                 `yaml:"split"`
}

type fieldRecord struct {
	ID          uint64         `yaml:"id"`
	ParentID    uint64         `yaml:"parent_id"`
	HasParent   bool           `yaml:"has_parent"`
	ChildIndex  int            `yaml:"child_index"`
	Name        string         `yaml:"name"`
	TypeName    string         `yaml:"type_name"`
	TypeVersion uint32         `yaml:"type_version"`
	Columns     []columnRecord `yaml:"columns,omitempty"`

	handles []storage.ColumnHandle // write-side only, not serialized
}

// Descriptor assigns on-disk field IDs to a field tree in declaration
// order, records which columns belong to each, and implements
// field.DescriptorLookup so a reader can walk the same tree shape back
// (spec.md §6, "Descriptor": "iterated on connect-to-source to map on-disk
// field IDs to column type sequences"). The root is always ID 0.
type Descriptor struct {
	fields   map[uint64]*fieldRecord
	children map[uint64][]uint64
	order    []uint64 // IDs in the pre-order they were assigned
}

// NewDescriptor returns an empty Descriptor ready for Bind.
func NewDescriptor() *Descriptor {
	return &Descriptor{
		fields:   make(map[uint64]*fieldRecord),
		children: make(map[uint64][]uint64),
	}
}

// OnDiskID implements field.DescriptorLookup.
func (d *Descriptor) OnDiskID(parentID uint64, childIndex int) (uint64, bool) {
	ids, ok := d.children[parentID]
	if !ok || childIndex >= len(ids) {
		return 0, false
	}
	return ids[childIndex], true
}

// Bind walks root's subtree in the same pre-order field.Walk defines,
// assigns sequential on-disk IDs starting at 0 for the root, and records
// each field's own columns into sink's field directory — the bookkeeping
// a real Descriptor performs right after ConnectSink (spec.md §4.1 step 1;
// §6, "Descriptor").
func (d *Descriptor) Bind(sink storage.PageSink, root field.Field) error {
	binder, ok := sink.(fieldBinder)
	if !ok {
		return errs.New(errs.KindUnsupported, "descriptor: sink %T does not support field binding", sink)
	}
	entries := field.Walk(root)
	ids := make([]uint64, len(entries))
	for i, e := range entries {
		id := uint64(i)
		ids[i] = id
		rec := &fieldRecord{ID: id, Name: e.Field.Name(), TypeName: e.Field.TypeName()}
		if e.ParentIndex >= 0 {
			parentID := ids[e.ParentIndex]
			rec.ParentID = parentID
			rec.HasParent = true
			rec.ChildIndex = len(d.children[parentID])
			d.children[parentID] = append(d.children[parentID], id)
		}
		rec.handles = e.Field.OwnColumns()
		d.fields[id] = rec
		d.order = append(d.order, id)
		binder.BindField(id, 0, rec.handles...)
	}
	return nil
}

// Dump renders a human-readable pre-order listing of the bound field tree
// (cmd/ntuplectl's "schema" subcommand): one line per field, indented by
// depth, naming its on-disk ID, name, and type.
func (d *Descriptor) Dump(w io.Writer) error {
	depth := make(map[uint64]int)
	for _, id := range d.order {
		rec := d.fields[id]
		indent := 0
		if rec.HasParent {
			indent = depth[rec.ParentID] + 1
		}
		depth[id] = indent
		if _, err := fmt.Fprintf(w, "%*s#%d %s: %s\n", indent*2, "", rec.ID, rec.Name, rec.TypeName); err != nil {
			return err
		}
	}
	return nil
}

// descriptorFile is the YAML-serialized sidecar a Descriptor reads/writes
// around a storage.PageFile so a later process can reopen the same column
// layout (spec.md §6, "on-disk container formats are out of scope" —
// exactly the gap this sidecar fills, as a Descriptor's own job).
type descriptorFile struct {
	NumEntries uint64        `yaml:"num_entries"`
	Fields     []fieldRecord `yaml:"fields"`
}

// Save writes the field directory, plus every bound column's physical
// layout on sink, to w as YAML. sink must support layoutProvider (i.e. be
// a *storage.PageFile); MemStore-backed writers have nothing durable to
// save.
func (d *Descriptor) Save(w io.Writer, sink storage.PageSink, numEntries uint64) error {
	lp, ok := sink.(layoutProvider)
	if !ok {
		return errs.New(errs.KindUnsupported, "descriptor: sink %T exposes no durable column layout", sink)
	}
	out := descriptorFile{NumEntries: numEntries}
	for _, id := range d.order {
		rec := d.fields[id]
		fr := fieldRecord{
			ID: rec.ID, ParentID: rec.ParentID, HasParent: rec.HasParent,
			ChildIndex: rec.ChildIndex, Name: rec.Name, TypeName: rec.TypeName,
			TypeVersion: rec.TypeVersion,
		}
		for _, h := range rec.handles {
			et, off, length, nElems, split, ok := lp.Layout(h)
			if !ok {
				return errs.New(errs.KindSchemaMismatch, "descriptor: no layout recorded for column %d of field %q", h, rec.Name)
			}
			fr.Columns = append(fr.Columns, columnRecord{
				Handle: h, Type: et, Offset: off, Length: length, NumElements: nElems, Split: split,
			})
		}
		out.Fields = append(out.Fields, fr)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(out)
}

// LoadDescriptor reads a Descriptor previously written by Save, returning
// it along with the entry count recorded at write time.
func LoadDescriptor(r io.Reader) (*Descriptor, uint64, error) {
	var in descriptorFile
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		return nil, 0, err
	}
	d := NewDescriptor()
	for i := range in.Fields {
		fr := in.Fields[i]
		rec := &fieldRecord{
			ID: fr.ID, ParentID: fr.ParentID, HasParent: fr.HasParent,
			ChildIndex: fr.ChildIndex, Name: fr.Name, TypeName: fr.TypeName,
			TypeVersion: fr.TypeVersion, Columns: fr.Columns,
		}
		d.fields[rec.ID] = rec
		d.order = append(d.order, rec.ID)
		if rec.HasParent {
			d.children[rec.ParentID] = append(d.children[rec.ParentID], rec.ID)
		}
	}
	return d, in.NumEntries, nil
}

// Replay re-registers every saved column's physical layout into source and
// rebinds each field's on-disk ID to its columns, the step a freshly
// opened storage.PageFile needs before ConnectSource can succeed (spec.md
// §6, "Descriptor ... iterated on connect-to-source").
func (d *Descriptor) Replay(source storage.PageSource) error {
	recv, ok := source.(layoutReceiver)
	if !ok {
		return errs.New(errs.KindUnsupported, "descriptor: source %T cannot replay a saved column layout", source)
	}
	binder, ok := source.(fieldBinder)
	if !ok {
		return errs.New(errs.KindUnsupported, "descriptor: source %T does not support field binding", source)
	}
	for _, id := range d.order {
		rec := d.fields[id]
		handles := make([]storage.ColumnHandle, len(rec.Columns))
		for i, c := range rec.Columns {
			recv.RegisterColumn(c.Handle, c.Type, c.Offset, c.Length, c.NumElements, c.Split)
			handles[i] = c.Handle
		}
		binder.BindField(id, rec.TypeVersion, handles...)
	}
	return nil
}
