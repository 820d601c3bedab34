package typesvc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldstore/ntuple/typesvc"
)

type innerPoint struct {
	X, Y float64
}

type outerHit struct {
	Point innerPoint
	Tags  []int32
	Grid  [3]uint8
	Next  *innerPoint
}

func TestReflectivePrimitive(t *testing.T) {
	svc := typesvc.NewReflective()
	info, err := svc.Resolve("int32")
	require.NoError(t, err)
	require.Equal(t, typesvc.KindPrimitive, info.Kind)
	require.Equal(t, 4, info.Size)
}

func TestReflectiveMemberTypeNamesMatchFieldGrammar(t *testing.T) {
	svc := typesvc.NewReflective()
	svc.Register("innerPoint", innerPoint{})
	svc.Register("outerHit", outerHit{})

	info, err := svc.Resolve("outerHit")
	require.NoError(t, err)
	require.Equal(t, typesvc.KindRecord, info.Kind)
	require.Len(t, info.Members, 4)

	byName := make(map[string]typesvc.Member, len(info.Members))
	for _, m := range info.Members {
		byName[m.Name] = m
	}

	// A nested member whose Go type was itself registered is named after
	// its registered name, not reflect's package-qualified type string.
	require.Equal(t, "innerPoint", byName["Point"].TypeName)
	// Slice/array/pointer members are spelled in the field.Create grammar
	// ("vector<T>", "array<T,N>", "T*"), built recursively from the Go
	// shape, never Go's own "[]int32"/"[3]uint8" syntax.
	require.Equal(t, "vector<int32>", byName["Tags"].TypeName)
	require.Equal(t, "array<uint8,3>", byName["Grid"].TypeName)
	require.Equal(t, "innerPoint*", byName["Next"].TypeName)
}

func TestReflectiveUnknownType(t *testing.T) {
	svc := typesvc.NewReflective()
	_, err := svc.Resolve("nonexistent")
	require.Error(t, err)
}
