package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateRoundsUpToPageSize(t *testing.T) {
	b, err := Create(1)
	require.NoError(t, err)
	defer b.Close()

	require.Equal(t, PageSize(), b.Len())
}

func TestMirrorIndexingLaw(t *testing.T) {
	b, err := Create(PageSize())
	require.NoError(t, err)
	defer b.Close()

	n := b.Len()
	for _, i := range []int{0, 1, n / 2, n - 1} {
		b.WriteAt(i, []byte{0x42})
		require.Equal(t, byte(0x42), b.At(i))
		require.Equal(t, byte(0x42), b.At(i+n))
		require.Equal(t, byte(0x42), b.At(i+2*n))
	}
}

func TestMirrorWriteThroughSecondWindowVisibleInFirst(t *testing.T) {
	b, err := Create(PageSize())
	require.NoError(t, err)
	defer b.Close()

	n := b.Len()
	b.WriteAt(n+3, []byte{0x7a})
	require.Equal(t, byte(0x7a), b.At(3))
}

func TestNoCopyTokenAcrossWrapBoundary(t *testing.T) {
	b, err := Create(PageSize())
	require.NoError(t, err)
	defer b.Close()

	n := b.Len()
	token := []byte{1, 2, 3, 4, 5}
	start := n - 2
	b.WriteAt(start, token)

	got := b.Slice(start, start+len(token))
	require.Equal(t, token, got)
}

func TestInRange(t *testing.T) {
	b, err := Create(PageSize())
	require.NoError(t, err)
	defer b.Close()

	n := b.Len()
	require.True(t, b.InRange(0))
	require.True(t, b.InRange(Mirrors*n-1))
	require.False(t, b.InRange(-1))
	require.False(t, b.InRange(Mirrors*n))
}

func TestAtPanicsOutOfRange(t *testing.T) {
	b, err := Create(PageSize())
	require.NoError(t, err)
	defer b.Close()

	require.Panics(t, func() {
		b.At(Mirrors * b.Len())
	})
}
