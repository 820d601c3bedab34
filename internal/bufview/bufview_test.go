package bufview

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddOverflowSafe(t *testing.T) {
	sum, ok := AddOverflowSafe(10, 5)
	require.True(t, ok)
	require.Equal(t, 15, sum)

	_, ok = AddOverflowSafe(math.MaxInt, 1)
	require.False(t, ok)

	_, ok = AddOverflowSafe(math.MinInt, -1)
	require.False(t, ok)
}

func TestSliceAndHas(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}

	got, ok := Slice(data, 1, 3)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, got)

	_, ok = Slice(data, 4, 2)
	require.False(t, ok)

	require.False(t, Has(data, 2, 4))
	require.True(t, Has(data, 2, 1))

	_, ok = Slice(data, -1, 1)
	require.False(t, ok)
	_, ok = Slice(data, 1, -1)
	require.False(t, ok)
}

func TestLEReadWrite(t *testing.T) {
	b := make([]byte, 8)
	PutU16LE(b, 0xABCD)
	require.Equal(t, uint16(0xABCD), U16LE(b))

	PutU32LE(b, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), U32LE(b))

	PutU64LE(b, 0x0123456789ABCDEF)
	require.Equal(t, uint64(0x0123456789ABCDEF), U64LE(b))

	require.Equal(t, uint16(0), U16LE(nil))
	require.Equal(t, uint32(0), U32LE([]byte{1, 2}))
	require.Equal(t, uint64(0), U64LE([]byte{1, 2, 3}))
}
