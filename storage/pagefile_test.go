package storage

import (
	"path/filepath"
	"testing"

	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestPageFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.ntpl")

	pf, err := CreatePageFile(path, WriteOptions{CompressionEnabled: true, UseSplitEncoding: true})
	require.NoError(t, err)

	h, err := pf.CreateColumn(wire.SplitInt32, 0)
	require.NoError(t, err)

	vals := []int32{1, -1, 2147483647, 0}
	for _, v := range vals {
		buf := make([]byte, 4)
		wire.PutScalar(wire.Int32, buf, uint64(uint32(v)))
		_, err := pf.Append(h, buf)
		require.NoError(t, err)
	}
	require.NoError(t, pf.CommitCluster(h))

	for i, want := range vals {
		out := make([]byte, 4)
		require.NoError(t, pf.Read(h, uint64(i), out))
		require.Equal(t, want, int32(wire.Scalar(wire.Int32, out)))
	}

	require.NoError(t, pf.Close())
}

func TestPageFileGrowsAcrossPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.ntpl")
	pf, err := CreatePageFile(path, DefaultWriteOptions())
	require.NoError(t, err)
	defer pf.Close()

	h, err := pf.CreateColumn(wire.Int64, 0)
	require.NoError(t, err)

	const n = 2000 // forces growth past the initial 4KB page
	for i := 0; i < n; i++ {
		buf := make([]byte, 8)
		wire.PutScalar(wire.Int64, buf, uint64(i))
		_, err := pf.Append(h, buf)
		require.NoError(t, err)
	}
	require.NoError(t, pf.CommitCluster(h))

	out := make([]byte, 8)
	require.NoError(t, pf.Read(h, uint64(n-1), out))
	require.Equal(t, uint64(n-1), wire.Scalar(wire.Int64, out))
}

// TestPageFileCollectionInfoResetsAcrossClusters mirrors
// TestMemStoreCollectionInfoResetsAcrossClusters: collection offsets
// committed in a later cluster restart from 0, and split encoding (applied
// at every CommitCluster) stays consistent across the boundary (spec.md §8
// property 6).
func TestPageFileCollectionInfoResetsAcrossClusters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.ntpl")
	pf, err := CreatePageFile(path, WriteOptions{CompressionEnabled: true, UseSplitEncoding: true})
	require.NoError(t, err)
	defer pf.Close()

	h, err := pf.CreateColumn(wire.SplitIndex32, 0)
	require.NoError(t, err)

	appendOffset := func(o uint32) {
		buf := make([]byte, 4)
		wire.PutScalar(wire.Index32, buf, uint64(o))
		_, err := pf.Append(h, buf)
		require.NoError(t, err)
	}

	appendOffset(3)
	appendOffset(3)
	require.NoError(t, pf.CommitCluster(h))

	appendOffset(1)
	appendOffset(3)
	require.NoError(t, pf.CommitCluster(h))

	info, err := pf.GetCollectionInfo(h, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.Cluster)
	require.Equal(t, uint64(0), info.FirstItemIndex)
	require.Equal(t, uint64(3), info.Size)

	info, err = pf.GetCollectionInfo(h, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Cluster)
	require.Equal(t, uint64(3), info.FirstItemIndex)
	require.Equal(t, uint64(1), info.Size)

	info, err = pf.GetCollectionInfo(h, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Cluster)
	require.Equal(t, uint64(4), info.FirstItemIndex)
	require.Equal(t, uint64(2), info.Size)
}
