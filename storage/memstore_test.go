package storage

import (
	"testing"

	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestMemStoreRoundTrip(t *testing.T) {
	m := NewMemStore(DefaultWriteOptions())

	h, err := m.CreateColumn(wire.Int32, 0)
	require.NoError(t, err)
	m.BindField(1, 0, h)

	vals := []int32{1, -1, 2147483647}
	for _, v := range vals {
		buf := make([]byte, 4)
		wire.PutScalar(wire.Int32, buf, uint64(uint32(v)))
		n, err := m.Append(h, buf)
		require.NoError(t, err)
		require.Equal(t, 4, n)
	}
	require.NoError(t, m.CommitCluster(h))

	for i, want := range vals {
		out := make([]byte, 4)
		require.NoError(t, m.Read(h, uint64(i), out))
		got := int32(wire.Scalar(wire.Int32, out))
		require.Equal(t, want, got)
	}

	descs, err := m.LookupColumns(1)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	require.Equal(t, wire.Int32, descs[0].Type)
}

func TestMemStoreBitColumn(t *testing.T) {
	m := NewMemStore(DefaultWriteOptions())
	h, err := m.CreateColumn(wire.Bit, 0)
	require.NoError(t, err)

	bits := []byte{1, 0, 0, 1, 1}
	for _, b := range bits {
		_, err := m.Append(h, []byte{b})
		require.NoError(t, err)
	}
	for i, want := range bits {
		out := make([]byte, 1)
		require.NoError(t, m.Read(h, uint64(i), out))
		require.Equal(t, want, out[0])
	}
}

func TestMemStoreCollectionInfo(t *testing.T) {
	m := NewMemStore(DefaultWriteOptions())
	h, err := m.CreateColumn(wire.Index32, 0)
	require.NoError(t, err)

	offsets := []uint32{3, 3, 4, 6}
	for _, o := range offsets {
		buf := make([]byte, 4)
		wire.PutScalar(wire.Index32, buf, uint64(o))
		_, err := m.Append(h, buf)
		require.NoError(t, err)
	}

	info, err := m.GetCollectionInfo(h, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.FirstItemIndex)
	require.Equal(t, uint64(3), info.Size)

	info, err = m.GetCollectionInfo(h, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(4), info.FirstItemIndex)
	require.Equal(t, uint64(2), info.Size)
}

// TestMemStoreCollectionInfoResetsAcrossClusters confirms offsets committed
// in a later cluster are cluster-local (start back at 0) while
// GetCollectionInfo still resolves the correct absolute FirstItemIndex
// (spec.md §8 property 6).
func TestMemStoreCollectionInfoResetsAcrossClusters(t *testing.T) {
	m := NewMemStore(DefaultWriteOptions())
	h, err := m.CreateColumn(wire.Index32, 0)
	require.NoError(t, err)

	appendOffset := func(o uint32) {
		buf := make([]byte, 4)
		wire.PutScalar(wire.Index32, buf, uint64(o))
		_, err := m.Append(h, buf)
		require.NoError(t, err)
	}

	// Cluster 0: two entries, sizes 3 and 0.
	appendOffset(3)
	appendOffset(3)
	require.NoError(t, m.CommitCluster(h))

	// Cluster 1: offsets restart from 0, entries of size 1 and 2.
	appendOffset(1)
	appendOffset(3)
	require.NoError(t, m.CommitCluster(h))

	info, err := m.GetCollectionInfo(h, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.Cluster)
	require.Equal(t, uint64(0), info.FirstItemIndex)
	require.Equal(t, uint64(3), info.Size)

	info, err = m.GetCollectionInfo(h, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.Cluster)
	require.Equal(t, uint64(3), info.FirstItemIndex)
	require.Equal(t, uint64(0), info.Size)

	info, err = m.GetCollectionInfo(h, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Cluster)
	require.Equal(t, uint64(3), info.FirstItemIndex)
	require.Equal(t, uint64(1), info.Size)

	info, err = m.GetCollectionInfo(h, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Cluster)
	require.Equal(t, uint64(4), info.FirstItemIndex)
	require.Equal(t, uint64(2), info.Size)
}
