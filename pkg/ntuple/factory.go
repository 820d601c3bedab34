package ntuple

import (
	"io"
	"os"

	"github.com/fieldstore/ntuple/field"
	"github.com/fieldstore/ntuple/storage"
)

// CreateFile creates (or truncates) path and returns a Writer for root
// backed by a memory-mapped storage.PageFile.
//
// Example:
//
//	root, _ := field.Create("", "record<...>", svc)
//	w, err := ntuple.CreateFile("events.ntuple", root, ntuple.DefaultWriteOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
func CreateFile(path string, root field.Field, opts WriteOptions) (*Writer, error) {
	pf, err := storage.CreatePageFile(path, opts)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(pf, root)
	if err != nil {
		pf.Close()
		return nil, err
	}
	return w, nil
}

// SaveDescriptor persists w's Descriptor (the on-disk field directory plus
// every column's physical layout) to sidecarPath, so a later process can
// reopen the same ntuple file with OpenFile. Call after the last
// CommitCluster, before Close.
func SaveDescriptor(sidecarPath string, w *Writer) error {
	f, err := os.OpenFile(sidecarPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return w.Descriptor().Save(f, w.sink, w.NumEntries())
}

// OpenFile reopens path (previously created with CreateFile) and
// sidecarPath (previously written with SaveDescriptor) and returns a
// Reader for root. root must describe the same schema the writer used.
//
// Example:
//
//	root, _ := field.Create("", "record<...>", svc)
//	r, err := ntuple.OpenFile("events.ntuple", "events.ntuple.schema", root, ntuple.DefaultReadOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
func OpenFile(path, sidecarPath string, root field.Field, opts ReadOptions) (*Reader, error) {
	sf, err := os.Open(sidecarPath)
	if err != nil {
		return nil, err
	}
	desc, numEntries, err := LoadDescriptor(sf)
	sf.Close()
	if err != nil {
		return nil, err
	}

	pf, err := storage.OpenPageFile(path, opts.WriteOptions)
	if err != nil {
		return nil, err
	}
	if err := desc.Replay(pf); err != nil {
		pf.Close()
		return nil, err
	}
	r, err := NewReader(pf, root, desc, numEntries)
	if err != nil {
		pf.Close()
		return nil, err
	}
	return r, nil
}

// CreateInMemory returns a Writer for root backed by a storage.MemStore,
// for tests and short-lived in-process pipelines that never need a file
// on disk. The returned store can be handed directly to OpenInMemory once
// writing is done — no descriptor sidecar is needed since MemStore never
// outlives the process.
func CreateInMemory(root field.Field, opts WriteOptions) (*Writer, *storage.MemStore, error) {
	store := storage.NewMemStore(opts)
	w, err := NewWriter(store, root)
	if err != nil {
		return nil, nil, err
	}
	return w, store, nil
}

// OpenInMemory connects root to store (previously written to via
// CreateInMemory, in the same process) as a Reader.
func OpenInMemory(store *storage.MemStore, root field.Field, desc *Descriptor, numEntries uint64) (*Reader, error) {
	return NewReader(store, root, desc, numEntries)
}

// DumpSchema writes a human-readable field tree listing for the Descriptor
// persisted at sidecarPath (cmd/ntuplectl's "schema" subcommand).
func DumpSchema(w io.Writer, sidecarPath string) error {
	f, err := os.Open(sidecarPath)
	if err != nil {
		return err
	}
	defer f.Close()
	desc, _, err := LoadDescriptor(f)
	if err != nil {
		return err
	}
	return desc.Dump(w)
}
