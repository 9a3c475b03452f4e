package offsetarray

import (
	"testing"

	"github.com/stretchr/testify/require"

	"klinechart/internal/model"
)

func fill(offset, n int) *OffsetArray[float64] {
	a := New[float64](offset)
	for i := 0; i < n; i++ {
		a.Append(float64(offset + i))
	}
	return a
}

func TestValueAt_OutsideWindow(t *testing.T) {
	a := fill(3, 4) // values at 3..6

	for _, i := range []int{-1, 0, 2, 7, 100} {
		_, ok := a.ValueAt(i)
		require.False(t, ok, "index %d should have no value", i)
	}
	for i := 3; i < 7; i++ {
		v, ok := a.ValueAt(i)
		require.True(t, ok)
		require.Equal(t, float64(i), v)
	}
}

func TestSliceAndRange_PartialOverlap(t *testing.T) {
	// Ten quotes, indicator offset 7: visible [5,10) → effective [7,10).
	a := fill(7, 3)

	slice, eff := a.SliceAndRange(model.Range{Lo: 5, Hi: 10})
	require.Equal(t, model.Range{Lo: 7, Hi: 10}, eff)
	require.Equal(t, []float64{7, 8, 9}, slice)
}

func TestSliceAndRange_NoOverlap(t *testing.T) {
	a := fill(7, 3)

	cases := []model.Range{
		{Lo: 0, Hi: 7},
		{Lo: 10, Hi: 20},
		{Lo: 4, Hi: 4},
	}
	for _, r := range cases {
		slice, eff := a.SliceAndRange(r)
		require.Empty(t, slice)
		require.True(t, eff.Empty(), "range %v", r)
	}

	slice, eff := Empty[float64]().SliceAndRange(model.Range{Lo: 0, Hi: 10})
	require.Empty(t, slice)
	require.True(t, eff.Empty())
}

func TestSliceAndRange_SubsetProperty(t *testing.T) {
	a := fill(4, 6) // [4,10)
	for lo := 0; lo <= 12; lo++ {
		for hi := lo; hi <= 12; hi++ {
			r := model.Range{Lo: lo, Hi: hi}
			slice, eff := a.SliceAndRange(r)
			require.Equal(t, eff.Len(), len(slice))
			if eff.Empty() {
				continue
			}
			require.GreaterOrEqual(t, eff.Lo, r.Lo)
			require.LessOrEqual(t, eff.Hi, r.Hi)
			require.GreaterOrEqual(t, eff.Lo, a.Offset())
			require.LessOrEqual(t, eff.Hi, a.End())
			require.Equal(t, float64(eff.Lo), slice[0])
		}
	}
}

func TestSnapshot_UnaffectedByAppend(t *testing.T) {
	a := fill(2, 3)
	a.Grow(10)
	snap := *a

	a.Append(99)
	a.Append(100)

	require.Equal(t, 3, snap.Len())
	_, ok := snap.ValueAt(5)
	require.False(t, ok)
	last, ok := snap.Last()
	require.True(t, ok)
	require.Equal(t, 4.0, last)

	require.Equal(t, 5, a.Len())
	v, ok := a.ValueAt(6)
	require.True(t, ok)
	require.Equal(t, 100.0, v)
}

func TestNew_NegativeOffset(t *testing.T) {
	a := New[int](-3)
	require.Equal(t, 0, a.Offset())
	_, ok := a.Last()
	require.False(t, ok)
}
