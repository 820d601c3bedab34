package ntuple

import "github.com/fieldstore/ntuple/storage"

// WriteOptions is re-exported for convenience so callers need not import
// storage directly just to open a Writer.
type WriteOptions = storage.WriteOptions

// DefaultWriteOptions mirrors storage.DefaultWriteOptions: compression and
// split encoding both enabled.
func DefaultWriteOptions() WriteOptions { return storage.DefaultWriteOptions() }

// ReadOptions controls how a Reader attaches to on-disk storage. Most
// callers use DefaultReadOptions; WriteOptions must match the options the
// writer used, since split-vs-plain representation negotiation depends on
// them (spec.md §4.1 step 2).
type ReadOptions struct {
	WriteOptions storage.WriteOptions
}

// DefaultReadOptions matches DefaultWriteOptions.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{WriteOptions: storage.DefaultWriteOptions()}
}
