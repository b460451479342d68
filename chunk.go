package zarr

import (
	"strconv"
	"strings"

	"github.com/TuSKan/zarr-roi/region"
)

// GridShape calculates the number of chunks in each dimension.
// For each dimension i, the number of chunks is ceil(shape[i] / chunks[i]).
func GridShape(shape, chunks []int) []int {
	grid := make([]int, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return grid
}

// ChunkKey generates the key for a chunk given its indices and a separator.
// Example: indices=[1, 4], separator="." -> "1.4".
// 0-d arrays have a single chunk keyed "0".
func ChunkKey(indices []int, separator string) string {
	if len(indices) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteString(separator)
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// chunkOf returns the grid coordinates of the chunk holding block, and false if
// block spans more than one chunk or selects nothing.
func chunkOf(block []region.Range, chunks []int) ([]int, bool) {
	coords := make([]int, len(block))
	for i, r := range block {
		if r.Stop <= r.Start {
			return nil, false
		}
		first, last := r.Start/chunks[i], (r.Stop-1)/chunks[i]
		if first != last {
			return nil, false
		}
		coords[i] = first
	}
	return coords, true
}

// chunkOrigin returns the dataset coordinates of the first element of a chunk.
func chunkOrigin(coords, chunks []int) []int {
	origin := make([]int, len(coords))
	for i, c := range coords {
		origin[i] = c * chunks[i]
	}
	return origin
}

// eachIndex calls fn for every index in the box [0, end), last dimension varying
// fastest. fn must not retain indices.
func eachIndex(end []int, fn func(indices []int) error) error {
	for _, n := range end {
		if n == 0 {
			return nil
		}
	}
	indices := make([]int, len(end))
	for {
		if err := fn(indices); err != nil {
			return err
		}
		i := len(end) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < end[i] {
				break
			}
			indices[i] = 0
		}
		if i < 0 {
			return nil
		}
	}
}
