package ntuple_test

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldstore/ntuple/field"
	"github.com/fieldstore/ntuple/pkg/ntuple"
	"github.com/fieldstore/ntuple/typesvc"
)

type hit struct {
	X    int32
	Tags []int32
}

func newSchema(t *testing.T) field.Field {
	t.Helper()
	svc := typesvc.NewReflective()
	svc.Register("hit", hit{})
	f, err := field.Create("", "hit", svc)
	require.NoError(t, err)
	return f
}

func buildValue(t *testing.T, goType reflect.Type, x int32, tags []int32) any {
	t.Helper()
	v := reflect.New(goType).Elem()
	v.FieldByName("X").SetInt(int64(x))
	tagsField := v.FieldByName("Tags")
	out := reflect.MakeSlice(tagsField.Type(), len(tags), len(tags))
	for i, tg := range tags {
		out.Index(i).SetInt(int64(tg))
	}
	tagsField.Set(out)
	return v.Interface()
}

func TestInMemoryRoundTrip(t *testing.T) {
	wRoot := newSchema(t)
	w, store, err := ntuple.CreateInMemory(wRoot, ntuple.DefaultWriteOptions())
	require.NoError(t, err)

	entries := []struct {
		x    int32
		tags []int32
	}{
		{1, []int32{10, 20}},
		{2, nil},
		{3, []int32{30}},
	}
	for _, e := range entries {
		_, err := w.Append(buildValue(t, wRoot.GoType(), e.x, e.tags))
		require.NoError(t, err)
	}
	require.NoError(t, w.CommitCluster())

	rRoot := newSchema(t)
	r, err := ntuple.OpenInMemory(store, rRoot, w.Descriptor(), w.NumEntries())
	require.NoError(t, err)

	for i, e := range entries {
		out := reflect.New(rRoot.GoType())
		require.NoError(t, r.Read(uint64(i), out.Interface()))
		got := out.Elem()
		require.Equal(t, e.x, int32(got.FieldByName("X").Int()))
		gotTags := got.FieldByName("Tags")
		require.Equal(t, len(e.tags), gotTags.Len())
		for j, tg := range e.tags {
			require.Equal(t, tg, int32(gotTags.Index(j).Int()))
		}
	}
}

func TestFileRoundTripWithDescriptorSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.ntuple")
	sidecar := filepath.Join(dir, "events.ntuple.schema")

	wRoot := newSchema(t)
	w, err := ntuple.CreateFile(path, wRoot, ntuple.DefaultWriteOptions())
	require.NoError(t, err)

	_, err = w.Append(buildValue(t, wRoot.GoType(), 7, []int32{1, 2, 3}))
	require.NoError(t, err)
	_, err = w.Append(buildValue(t, wRoot.GoType(), -1, nil))
	require.NoError(t, err)
	require.NoError(t, w.CommitCluster())
	require.NoError(t, ntuple.SaveDescriptor(sidecar, w))
	require.NoError(t, w.Close())

	rRoot := newSchema(t)
	r, err := ntuple.OpenFile(path, sidecar, rRoot, ntuple.DefaultReadOptions())
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, uint64(2), r.NumEntries())

	out0 := reflect.New(rRoot.GoType())
	require.NoError(t, r.Read(0, out0.Interface()))
	require.Equal(t, int32(7), int32(out0.Elem().FieldByName("X").Int()))
	require.Equal(t, 3, out0.Elem().FieldByName("Tags").Len())

	out1 := reflect.New(rRoot.GoType())
	require.NoError(t, r.Read(1, out1.Interface()))
	require.Equal(t, int32(-1), int32(out1.Elem().FieldByName("X").Int()))
	require.Equal(t, 0, out1.Elem().FieldByName("Tags").Len())

	var buf bytes.Buffer
	require.NoError(t, ntuple.DumpSchema(&buf, sidecar))
	require.True(t, strings.Contains(buf.String(), "hit"))
}
