package workspace

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsAligned(t *testing.T) {
	for _, n := range []int{0, 1, 7, 64, 1000, 4096} {
		w := New(n, Config{})
		f := w.Floats()
		assert.Len(t, f, n)
		assert.True(t, IsAligned(f), "n=%d", n)
		assert.GreaterOrEqual(t, w.Allocated(), n)
		assert.Less(t, w.Offset(), floatsPerAlign)
		w.Release()
	}
}

func TestReinterpretViews(t *testing.T) {
	w := New(4, Config{})
	defer w.Release()
	f := w.Floats()
	f[0] = 1
	f[1] = -2
	assert.Equal(t, math.Float32bits(1), w.Uints()[0])
	assert.Equal(t, int32(math.Float32bits(-2)), w.Ints()[1])

	w.Ints()[2] = int32(math.Float32bits(0.5))
	assert.Equal(t, float32(0.5), f[2])
}

func TestShareViewsSameMemory(t *testing.T) {
	w := New(16, Config{})
	defer w.Release()
	v, err := w.Share(8)
	require.NoError(t, err)
	assert.False(t, v.Owned())
	v.Floats()[3] = 42
	assert.Equal(t, float32(42), w.Floats()[3])

	_, err = w.Share(17)
	assert.True(t, errors.Is(err, ErrShareTooLarge))
}

func TestDoubleReleasePanics(t *testing.T) {
	w := New(8, Config{})
	w.Release()
	assert.PanicsWithValue(t, ErrReleased, func() { w.Release() })
	assert.Panics(t, func() { w.Floats() })
	_, err := w.Share(1)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestArenaAllocations(t *testing.T) {
	a, err := NewArena(1024)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	x, err := a.Alloc(10)
	require.NoError(t, err)
	y, err := a.Alloc(100)
	require.NoError(t, err)
	assert.True(t, IsAligned(x.Floats()))
	assert.True(t, IsAligned(y.Floats()))

	x.Floats()[9] = 1
	for _, v := range y.Floats() {
		require.Zero(t, v)
	}

	_, err = a.Alloc(a.Cap())
	assert.ErrorIs(t, err, ErrArenaFull)

	a.Reset()
	z, err := a.Alloc(10)
	require.NoError(t, err)
	assert.Zero(t, z.Floats()[9], "arena allocations are zeroed")
}

func TestScratchReentryPanics(t *testing.T) {
	s := NewScratch(32, Config{})
	defer s.Release()

	ws := s.Acquire(16)
	for _, b := range ws {
		assert.Len(t, b, 16)
	}
	ws[0][0] = 5
	assert.PanicsWithValue(t, ErrScratchBusy, func() { s.Acquire(16) })
	s.Done()

	ws = s.Acquire(32)
	assert.Zero(t, ws[0][0])
	s.Done()
}

func TestArenaScratch(t *testing.T) {
	a, err := NewArena(4 * 64)
	require.NoError(t, err)
	defer a.Close()
	s, err := a.NewScratch(64)
	require.NoError(t, err)
	assert.Equal(t, 64, s.Frames())
	ws := s.Acquire(64)
	ws[1][0] = 1
	assert.Zero(t, ws[0][0])
	assert.Zero(t, ws[2][0])
	s.Done()
	s.Release()
}
