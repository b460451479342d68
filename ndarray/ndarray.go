// Package ndarray holds a minimal row-major N-dimensional array used as the
// in-memory side of region reads.
package ndarray

import (
	"fmt"
	"slices"

	"golang.org/x/exp/constraints"

	"github.com/TuSKan/zarr-roi/region"
)

// Number is the element constraint for arrays that can be binned.
type Number interface {
	constraints.Integer | constraints.Float
}

// Array is a C-order array. Build one with New, Zeros or Arange.
type Array[T Number] struct {
	shape []int
	data  []T
}

// New wraps data with the given shape. len(data) must equal the product of shape.
func New[T Number](shape []int, data []T) (Array[T], error) {
	n, err := Size(shape)
	if err != nil {
		return Array[T]{}, err
	}
	if len(data) != n {
		return Array[T]{}, fmt.Errorf("data of length %d does not fill shape %v (%d elements)", len(data), shape, n)
	}
	return Array[T]{shape: slices.Clone(shape), data: data}, nil
}

// Zeros returns a zero-filled array of the given shape.
func Zeros[T Number](shape []int) Array[T] {
	n, err := Size(shape)
	if err != nil {
		panic(err)
	}
	return Array[T]{shape: slices.Clone(shape), data: make([]T, n)}
}

// Arange returns an array of the given shape filled with 0, 1, 2, ... in C order.
func Arange[T Number](shape []int) Array[T] {
	a := Zeros[T](shape)
	for i := range a.data {
		a.data[i] = T(i)
	}
	return a
}

// Shape returns a copy of the array's shape.
func (a Array[T]) Shape() []int { return slices.Clone(a.shape) }

// Rank returns the number of axes.
func (a Array[T]) Rank() int { return len(a.shape) }

// Data returns the flat C-order data. It is shared with the array.
func (a Array[T]) Data() []T { return a.data }

// At returns the element at the given index.
func (a Array[T]) At(index ...int) T {
	off := 0
	for i, s := range Strides(a.shape) {
		off += index[i] * s
	}
	return a.data[off]
}

// Clone returns a deep copy.
func (a Array[T]) Clone() Array[T] {
	return Array[T]{shape: slices.Clone(a.shape), data: slices.Clone(a.data)}
}

// Equal reports whether a and b have the same shape and elements.
func (a Array[T]) Equal(b Array[T]) bool {
	return slices.Equal(a.shape, b.shape) && slices.Equal(a.data, b.data)
}

// Crop returns a new array holding the selection rs of a.
func (a Array[T]) Crop(rs []region.Range) (Array[T], error) {
	if err := region.Check(rs, a.shape); err != nil {
		return Array[T]{}, err
	}
	out := Zeros[T](region.Shape(rs))
	if len(out.data) == 0 {
		return out, nil
	}
	srcStrides := Strides(a.shape)

	var walk func(dim, src int, dst *int)
	walk = func(dim, src int, dst *int) {
		r := rs[dim]
		if dim == len(rs)-1 {
			for i := r.Start; i < r.Stop; i += r.Step {
				out.data[*dst] = a.data[src+i*srcStrides[dim]]
				*dst++
			}
			return
		}
		for i := r.Start; i < r.Stop; i += r.Step {
			walk(dim+1, src+i*srcStrides[dim], dst)
		}
	}
	if len(rs) == 0 {
		out.data[0] = a.data[0]
		return out, nil
	}
	dst := 0
	walk(0, 0, &dst)
	return out, nil
}

// Strides computes the C-order strides, in elements, of a shape.
func Strides(shape []int) []int {
	s := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= shape[i]
	}
	return s
}

// Size returns the number of elements of a shape.
func Size(shape []int) (int, error) {
	n := 1
	for axis, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative extent %d on axis %d", d, axis)
		}
		n *= d
	}
	return n, nil
}
