package region_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TuSKan/zarr-roi/region"
)

func TestMerge(t *testing.T) {
	outer := region.Range{Start: 3, Stop: 7, Step: 1}
	inner := region.Range{Start: 1, Stop: 3, Step: 1}

	got, err := region.Merge(outer, inner)
	require.NoError(t, err)
	assert.Equal(t, region.Range{Start: 4, Stop: 6, Step: 1}, got)

	swapped, err := region.Merge(inner, outer)
	require.NoError(t, err)
	assert.NotEqual(t, got, swapped)
	assert.Equal(t, 0, swapped.Len())
}

func TestMerge_ClampsToOuter(t *testing.T) {
	got, err := region.Merge(region.Range{Start: 2, Stop: 6, Step: 1}, region.Range{Start: 1, Stop: 10, Step: 1})
	require.NoError(t, err)
	assert.Equal(t, region.Range{Start: 3, Stop: 6, Step: 1}, got)
}

func TestMerge_Stepped(t *testing.T) {
	// 0, 2, 4, 6, 8 then positions 1 and 2 of that -> 2, 4
	got, err := region.Merge(region.Range{Start: 0, Stop: 10, Step: 2}, region.Range{Start: 1, Stop: 3, Step: 1})
	require.NoError(t, err)
	assert.Equal(t, region.Range{Start: 2, Stop: 6, Step: 2}, got)
	assert.Equal(t, 2, got.Len())

	got, err = region.Merge(region.Range{Start: 1, Stop: 20, Step: 3}, region.Range{Start: 0, Stop: 7, Step: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 7, 13, 19}, indices(got))
}

func TestMerge_RelativeBound(t *testing.T) {
	_, err := region.Merge(region.Range{Start: 0, Stop: 10, Step: 1}, region.Range{Start: 0, Stop: -1, Step: 1})
	require.ErrorIs(t, err, region.ErrCannotMergeRelativeBound)

	_, err = region.Merge(region.Range{Start: 0, Stop: -3, Step: 1}, region.Range{Start: 0, Stop: 1, Step: 1})
	require.ErrorIs(t, err, region.ErrCannotMergeRelativeBound)
}

func TestMergeAll_PadsInner(t *testing.T) {
	outer := []region.Range{{Start: 2, Stop: 8, Step: 1}, {Start: 1, Stop: 9, Step: 2}}
	got, err := region.MergeAll(outer, []region.Range{{Start: 1, Stop: 2, Step: 1}})
	require.NoError(t, err)
	assert.Equal(t, []region.Range{{Start: 3, Stop: 4, Step: 1}, {Start: 1, Stop: 9, Step: 2}}, got)

	_, err = region.MergeAll(outer[:1], outer)
	require.ErrorIs(t, err, region.ErrInvalidRegionSpec)
}

func TestCrop_ResolvesAgainstCroppedShape(t *testing.T) {
	outer := []region.Range{{Start: 3, Stop: 9, Step: 1}}
	got, err := region.Crop(outer, region.MustParse("slice(1, -1)"))
	require.NoError(t, err)
	assert.Equal(t, []region.Range{{Start: 4, Stop: 8, Step: 1}}, got)
}

// Composing random crops must select exactly the indices obtained by cropping
// step by step.
func TestCompose_MatchesStepwise(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for iter := 0; iter < 500; iter++ {
		extent := 1 + rng.IntN(40)
		idx := make([]int, extent)
		for i := range idx {
			idx[i] = i
		}

		var regions [][]region.Range
		for n := 1 + rng.IntN(4); n > 0 && len(idx) > 0; n-- {
			r := randomRange(rng, len(idx))
			regions = append(regions, []region.Range{r})
			idx = pick(idx, r)
		}
		if len(regions) == 0 {
			continue
		}

		got, err := region.Compose(regions...)
		require.NoError(t, err)
		require.Equal(t, idx, indices(got[0]), "regions %v", regions)
	}
}

func randomRange(rng *rand.Rand, extent int) region.Range {
	start := rng.IntN(extent)
	stop := start + rng.IntN(extent-start+1)
	return region.Range{Start: start, Stop: stop, Step: 1 + rng.IntN(3)}
}

func pick(idx []int, r region.Range) []int {
	out := []int{}
	for i := r.Start; i < r.Stop; i += r.Step {
		out = append(out, idx[i])
	}
	return out
}

func indices(r region.Range) []int {
	out := []int{}
	for i := r.Start; i < r.Stop; i += r.Step {
		out = append(out, i)
	}
	return out
}

func TestRange_Bounds(t *testing.T) {
	assert.Equal(t, region.Range{Start: 1, Stop: 8, Step: 1}, region.Range{Start: 1, Stop: 9, Step: 3}.Bounds())
	assert.Equal(t, region.Range{Start: 2, Stop: 5, Step: 1}, region.Range{Start: 2, Stop: 5, Step: 1}.Bounds())
	assert.Equal(t, region.Range{Start: 4, Stop: 4, Step: 1}, region.Range{Start: 4, Stop: 4, Step: 2}.Bounds())
}
