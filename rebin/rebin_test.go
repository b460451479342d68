package rebin_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TuSKan/zarr-roi/ndarray"
	"github.com/TuSKan/zarr-roi/rebin"
)

func TestRebin_Sum(t *testing.T) {
	// 0  1  2  3  4
	// 5  6  7  8  9
	// 10 11 12 13 14
	// 15 16 17 18 19
	a := ndarray.Arange[int64]([]int{4, 5})
	got, err := rebin.Rebin(a, 2, rebin.Sum)
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, got.Shape())
	require.Equal(t, []int64{0 + 1 + 5 + 6, 2 + 3 + 7 + 8, 10 + 11 + 15 + 16, 12 + 13 + 17 + 18}, got.Data())
}

func TestRebin_Identity(t *testing.T) {
	a := ndarray.Arange[float32]([]int{3, 4, 2})
	got, err := rebin.Rebin(a, 1, rebin.Sum)
	require.NoError(t, err)
	require.True(t, a.Equal(got))

	got.Data()[0] = 99
	require.Equal(t, float32(0), a.Data()[0])
}

func TestRebin_ShortAxis(t *testing.T) {
	a := ndarray.Arange[int32]([]int{2, 7})
	got, err := rebin.Rebin(a, 3, rebin.Sum)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, got.Shape())
	// rows 0..1, cols 0..2 and 3..5; col 6 dropped
	require.Equal(t, []int32{0 + 1 + 2 + 7 + 8 + 9, 3 + 4 + 5 + 10 + 11 + 12}, got.Data())

	empty := ndarray.Zeros[int32]([]int{0, 4})
	got, err = rebin.Rebin(empty, 2, rebin.Sum)
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, got.Shape())
}

func TestRebin_Reductions(t *testing.T) {
	a, err := ndarray.New([]int{2, 4}, []float64{
		1, 7, -2, 4,
		3, 5, 6, 0,
	})
	require.NoError(t, err)

	tests := []struct {
		red  rebin.Reduction
		want []float64
	}{
		{rebin.Sum, []float64{16, 8}},
		{rebin.Mean, []float64{4, 2}},
		{rebin.Max, []float64{7, 6}},
		{rebin.Min, []float64{1, -2}},
	}
	for _, tt := range tests {
		t.Run(tt.red.String(), func(t *testing.T) {
			got, err := rebin.Rebin(a, 2, tt.red)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Data())
		})
	}
}

func TestRebin_SumNarrowIntegers(t *testing.T) {
	a, err := ndarray.New([]int{2, 2}, []uint8{60, 60, 60, 60})
	require.NoError(t, err)
	got, err := rebin.Rebin(a, 2, rebin.Sum)
	require.NoError(t, err)
	assert.Equal(t, []uint8{240}, got.Data())

	// Partial sums leave the int8 range but the total fits.
	b, err := ndarray.New([]int{4}, []int8{127, 127, -128, -128})
	require.NoError(t, err)
	gotB, err := rebin.Rebin(b, 4, rebin.Sum)
	require.NoError(t, err)
	assert.Equal(t, []int8{-2}, gotB.Data())

	mean, err := ndarray.New([]int{2, 2}, []uint8{200, 200, 200, 200})
	require.NoError(t, err)
	gotMean, err := rebin.Rebin(mean, 2, rebin.Mean)
	require.NoError(t, err)
	assert.Equal(t, []uint8{200}, gotMean.Data())
}

func TestRebin_SumOverflow(t *testing.T) {
	a, err := ndarray.New([]int{2, 2}, []uint8{200, 200, 200, 200})
	require.NoError(t, err)
	_, err = rebin.Rebin(a, 2, rebin.Sum)
	require.ErrorIs(t, err, rebin.ErrOverflow)

	b, err := ndarray.New([]int{4}, []int16{-20000, -20000, 5, 5})
	require.NoError(t, err)
	_, err = rebin.Rebin(b, 2, rebin.Sum)
	require.ErrorIs(t, err, rebin.ErrOverflow)

	c, err := ndarray.New([]int{2}, []float32{3e38, 3e38})
	require.NoError(t, err)
	_, err = rebin.Rebin(c, 2, rebin.Sum)
	require.ErrorIs(t, err, rebin.ErrOverflow)
}

func TestRebin_InvalidFactor(t *testing.T) {
	_, err := rebin.Rebin(ndarray.Arange[uint8]([]int{4}), 0, rebin.Sum)
	require.ErrorIs(t, err, rebin.ErrInvalidFactor)
}

func TestRebin_Associative(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 200; iter++ {
		shape := make([]int, 1+rng.IntN(3))
		for i := range shape {
			shape[i] = rng.IntN(13)
		}
		x := ndarray.Zeros[int64](shape)
		for i := range x.Data() {
			x.Data()[i] = rng.Int64N(100) - 50
		}
		fa, fb := 1+rng.IntN(4), 1+rng.IntN(4)
		if !composable(shape, fa, fb) {
			continue
		}

		for _, red := range []rebin.Reduction{rebin.Sum, rebin.Max, rebin.Min} {
			step, err := rebin.Rebin(x, fa, red)
			require.NoError(t, err)
			step, err = rebin.Rebin(step, fb, red)
			require.NoError(t, err)

			once, err := rebin.Rebin(x, fa*fb, red)
			require.NoError(t, err)
			require.Truef(t, step.Equal(once), "%v: shape %v factors %d,%d", red, shape, fa, fb)
		}
	}
}

func TestParseReduction(t *testing.T) {
	tests := map[string]rebin.Reduction{
		"":     rebin.Sum,
		"sum":  rebin.Sum,
		"MEAN": rebin.Mean,
		"max":  rebin.Max,
		"Min":  rebin.Min,
	}
	for name, want := range tests {
		got, err := rebin.ParseReduction(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := rebin.ParseReduction("median")
	require.Error(t, err)
	assert.Equal(t, "mean", rebin.Mean.String())
}

// composable reports whether binning by a then b matches binning by a*b on
// every axis of shape.
func composable(shape []int, a, b int) bool {
	for _, n := range shape {
		if n >= a && n < a*b && n%a != 0 {
			return false
		}
	}
	return true
}
