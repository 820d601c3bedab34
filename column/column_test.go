package column

import (
	"testing"

	"github.com/fieldstore/ntuple/internal/wire"
	"github.com/fieldstore/ntuple/storage"
	"github.com/stretchr/testify/require"
)

func TestColumnWriteReadRoundTrip(t *testing.T) {
	m := storage.NewMemStore(storage.DefaultWriteOptions())

	wc, err := CreateForWrite(m, wire.Int32, 0)
	require.NoError(t, err)
	n, err := wc.AppendScalar(uint64(uint32(-7)))
	require.NoError(t, err)
	require.Equal(t, 4, n)
	n, err = wc.AppendScalar(42)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.NoError(t, wc.CommitCluster())
	require.Equal(t, uint64(2), wc.NumElements())

	rc := BindForRead(m, wire.Int32, wc.Handle())
	v0, err := rc.ReadScalar(0)
	require.NoError(t, err)
	require.Equal(t, int32(-7), int32(uint32(v0)))
	v1, err := rc.ReadScalar(1)
	require.NoError(t, err)
	require.Equal(t, uint64(42), v1)
}

func TestOffsetColumnCumulative(t *testing.T) {
	m := storage.NewMemStore(storage.DefaultWriteOptions())
	wc, err := CreateForWrite(m, wire.Index32, 0)
	require.NoError(t, err)
	oc := NewOffsetColumn(wc)

	_, err = oc.AppendSize(3)
	require.NoError(t, err)
	_, err = oc.AppendSize(0)
	require.NoError(t, err)
	_, err = oc.AppendSize(2)
	require.NoError(t, err)

	first, size, err := CollectionRange(m, wc.Handle(), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), first)
	require.Equal(t, uint64(3), size)

	first, size, err = CollectionRange(m, wc.Handle(), 2)
	require.NoError(t, err)
	require.Equal(t, uint64(3), first)
	require.Equal(t, uint64(2), size)
}

func TestRepresentationToPlain(t *testing.T) {
	rep := Representation{wire.SplitInt32, wire.SplitReal64}
	plain := ToPlain(rep)
	require.Equal(t, Representation{wire.Int32, wire.Real64}, plain)

	set := RepresentationSet{Serialization: []Representation{rep}}
	idx, ok := SelectForSource(set, Representation{wire.SplitInt32, wire.SplitReal64})
	require.True(t, ok)
	require.Equal(t, 0, idx)
}
