package chunked

import (
	"context"
	"fmt"

	"github.com/TuSKan/zarr-roi/ndarray"
	"github.com/TuSKan/zarr-roi/region"
)

// Store is a dataset that can return any hyper-rectangular block of itself as
// C-order bytes.
type Store interface {
	// Shape returns the dataset's full shape.
	Shape() []int

	// ChunkShape returns the chunk extent per axis, or false for unchunked data.
	ChunkShape() ([]int, bool)

	// ItemSize returns the size in bytes of one element.
	ItemSize() int

	// ReadBlock returns the elements selected by block, which has unit steps.
	ReadBlock(ctx context.Context, block []region.Range) ([]byte, error)
}

// Read returns the elements of s selected by target, in C order. Only chunks
// intersecting target are requested from s; unchunked stores get a single
// request for the whole target.
//
// If a block read fails part way through, the error wraps ErrBackendRead and
// nothing is returned.
func Read(ctx context.Context, s Store, target []region.Range) ([]byte, error) {
	shape := s.Shape()
	itemSize := s.ItemSize()
	outShape := region.Shape(target)

	chunks, ok := s.ChunkShape()
	if !ok {
		if err := checkTarget(shape, target); err != nil {
			return nil, err
		}
		return readBlock(ctx, s, target, outShape, itemSize)
	}

	plan, err := NewPlan(shape, chunks, target)
	if err != nil {
		return nil, err
	}
	n, err := ndarray.Size(outShape)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n*itemSize)
	zero := make([]int, len(shape))
	at := make([]int, len(shape))

	for c := range plan.Copies() {
		blockShape := region.Shape(c.Source)
		block, err := readBlock(ctx, s, c.Source, blockShape, itemSize)
		if err != nil {
			return nil, err
		}
		for axis, d := range c.Dest {
			at[axis] = d.Start
		}
		CopyBlock(out, outShape, at, block, blockShape, zero, blockShape, itemSize)
	}
	return out, nil
}

func readBlock(ctx context.Context, s Store, block []region.Range, shape []int, itemSize int) ([]byte, error) {
	data, err := s.ReadBlock(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("%w: block %s: %w", ErrBackendRead, region.Format(block), err)
	}
	n, err := ndarray.Size(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n*itemSize {
		return nil, fmt.Errorf("%w: block %s: got %d bytes, want %d", ErrBackendRead, region.Format(block), len(data), n*itemSize)
	}
	return data, nil
}

// CopyBlock copies the hyper-rectangle of extent count found at srcAt in src
// (shape srcShape) to dstAt in dst (shape dstShape). Both buffers are C order
// with elements of itemSize bytes.
func CopyBlock(dst []byte, dstShape, dstAt []int, src []byte, srcShape, srcAt []int, count []int, itemSize int) {
	if len(count) == 0 {
		copy(dst[:itemSize], src[:itemSize])
		return
	}
	for _, n := range count {
		if n == 0 {
			return
		}
	}
	dstStrides := ndarray.Strides(dstShape)
	srcStrides := ndarray.Strides(srcShape)

	startSrc, startDst := 0, 0
	for i := range count {
		startSrc += srcAt[i] * srcStrides[i]
		startDst += dstAt[i] * dstStrides[i]
	}

	last := len(count) - 1
	rowBytes := count[last] * itemSize
	var iterate func(dim, s, d int)
	iterate = func(dim, s, d int) {
		// The last axis is contiguous in C order: copy a whole row at once.
		if dim == last {
			copy(dst[d*itemSize:d*itemSize+rowBytes], src[s*itemSize:s*itemSize+rowBytes])
			return
		}
		for i := 0; i < count[dim]; i++ {
			iterate(dim+1, s+i*srcStrides[dim], d+i*dstStrides[dim])
		}
	}
	iterate(0, startSrc, startDst)
}
