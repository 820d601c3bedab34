package column

import "github.com/fieldstore/ntuple/storage"

// OffsetColumn is the cumulative index column backing a collection field
// (vector, set, proxied collection): entry i's item count is the difference
// between offset[i] and offset[i-1], and the running total resets to 0 at
// every cluster boundary (spec.md §4.3, §8 property 6, GLOSSARY "Cluster").
type OffsetColumn struct {
	col        *Column
	cumulative uint64
}

func NewOffsetColumn(col *Column) *OffsetColumn {
	return &OffsetColumn{col: col}
}

// Handle exposes the backing column's storage handle.
func (o *OffsetColumn) Handle() storage.ColumnHandle { return o.col.Handle() }

// AppendSize records that the next entry holds n items, advancing the
// running cumulative total and writing it as the offset column's next
// element. Returns the number of bytes written to the offset column.
func (o *OffsetColumn) AppendSize(n uint64) (int, error) {
	o.cumulative += n
	return o.col.AppendScalar(o.cumulative)
}

// CommitCluster flushes the backing column and resets the running
// cumulative total to 0, so the next cluster's offsets start counting from
// 0 again (spec.md §5 "Cluster commit", §8 property 6). The storage
// backends in package storage (MemStore, PageFile) track each column's cluster
// boundaries internally so CollectionRange still resolves an absolute item
// index from these cluster-local offset values.
func (o *OffsetColumn) CommitCluster() error {
	if err := o.col.CommitCluster(); err != nil {
		return err
	}
	o.cumulative = 0
	return nil
}

// CollectionRange resolves the absolute [firstItemIndex, firstItemIndex+size)
// item range for the collection entry at globalIndex, delegating the offset-delta
// arithmetic to the source (spec.md §6 GetCollectionInfo).
func CollectionRange(source storage.PageSource, h storage.ColumnHandle, globalIndex uint64) (first, size uint64, err error) {
	info, err := source.GetCollectionInfo(h, globalIndex)
	if err != nil {
		return 0, 0, err
	}
	return info.FirstItemIndex, info.Size, nil
}
