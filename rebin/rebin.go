// Package rebin downsamples arrays by an integer factor, reducing each
// factor^N block of the input to one output cell.
//
// Along an axis of extent n the output extent is n/factor; the n%factor trailing
// elements are dropped. An axis shorter than the factor still yields one cell,
// reduced over the whole axis. Under this policy Sum, Max and Min satisfy
// Rebin(Rebin(x, a), b) == Rebin(x, a*b) unless some axis has a <= n < a*b with
// n%a != 0: there the first pass drops a remainder that the single pass keeps.
package rebin

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/TuSKan/zarr-roi/ndarray"
)

var (
	// ErrInvalidFactor reports a binning factor below 1.
	ErrInvalidFactor = errors.New("invalid binning factor")
	// ErrOverflow reports a block sum that the element type cannot hold.
	ErrOverflow = errors.New("block sum overflows element type")
)

// Reduction selects how a block is reduced to one cell.
type Reduction int

const (
	// Sum adds the block in int64, uint64 or float64 and fails with
	// ErrOverflow if a total does not fit the element type.
	Sum Reduction = iota
	// Mean averages the block in float64 and converts back to the element type.
	Mean
	Max
	Min
)

var reductionNames = [...]string{Sum: "sum", Mean: "mean", Max: "max", Min: "min"}

func (r Reduction) String() string {
	if r < 0 || int(r) >= len(reductionNames) {
		return fmt.Sprintf("Reduction(%d)", int(r))
	}
	return reductionNames[r]
}

// ParseReduction maps a name such as "sum" to its Reduction. The empty string is Sum.
func ParseReduction(name string) (Reduction, error) {
	if name == "" {
		return Sum, nil
	}
	for r, n := range reductionNames {
		if strings.EqualFold(n, name) {
			return Reduction(r), nil
		}
	}
	return 0, fmt.Errorf("unknown reduction %q", name)
}

// Extent returns the binned extent of an axis of length n.
func Extent(n, factor int) int {
	switch {
	case n == 0:
		return 0
	case n < factor:
		return 1
	default:
		return n / factor
	}
}

// Span returns how many input elements along an axis of length n feed the output.
func Span(n, factor int) int {
	if n < factor {
		return n
	}
	return n / factor * factor
}

// Shape returns the binned shape.
func Shape(shape []int, factor int) []int {
	out := make([]int, len(shape))
	for i, n := range shape {
		out[i] = Extent(n, factor)
	}
	return out
}

// Rebin reduces a by factor along every axis and returns a new array.
func Rebin[T ndarray.Number](a ndarray.Array[T], factor int, red Reduction) (ndarray.Array[T], error) {
	if factor < 1 {
		return ndarray.Array[T]{}, fmt.Errorf("%w: %d", ErrInvalidFactor, factor)
	}
	if red < Sum || red > Min {
		return ndarray.Array[T]{}, fmt.Errorf("unknown reduction %v", red)
	}
	if factor == 1 || a.Rank() == 0 {
		return a.Clone(), nil
	}

	inShape := a.Shape()
	out := ndarray.Zeros[T](Shape(inShape, factor))
	dst := out.Data()
	if len(dst) == 0 {
		return out, nil
	}

	src := a.Data()
	inStrides := ndarray.Strides(inShape)
	outStrides := ndarray.Strides(out.Shape())
	span := make([]int, len(inShape))
	count := 1
	for i, n := range inShape {
		span[i] = Span(n, factor)
		count *= min(n, factor)
	}

	var (
		acc    []float64
		isum   []int64
		usum   []uint64
		seen   []bool
		wraps  bool
		floats = isFloat[T]()
		signed = isSigned[T]()
	)
	switch {
	case red == Mean, red == Sum && floats:
		acc = make([]float64, len(dst))
	case red == Sum && signed:
		isum = make([]int64, len(dst))
	case red == Sum:
		usum = make([]uint64, len(dst))
	default:
		seen = make([]bool, len(dst))
	}

	last := len(inShape) - 1
	var walk func(dim, s, d int)
	walk = func(dim, s, d int) {
		for j := 0; j < span[dim]; j++ {
			si, di := s+j*inStrides[dim], d+(j/factor)*outStrides[dim]
			if dim < last {
				walk(dim+1, si, di)
				continue
			}
			v := src[si]
			switch red {
			case Sum:
				var ok bool
				switch {
				case floats:
					acc[di] += float64(v)
					ok = true
				case signed:
					isum[di], ok = addInt64(isum[di], int64(v))
				default:
					usum[di], ok = addUint64(usum[di], uint64(v))
				}
				wraps = wraps || !ok
			case Mean:
				acc[di] += float64(v)
			case Max:
				if !seen[di] || v > dst[di] {
					dst[di], seen[di] = v, true
				}
			case Min:
				if !seen[di] || v < dst[di] {
					dst[di], seen[di] = v, true
				}
			}
		}
	}
	walk(0, 0, 0)

	switch red {
	case Mean:
		for i := range dst {
			dst[i] = T(acc[i] / float64(count))
		}
	case Sum:
		if wraps {
			return ndarray.Array[T]{}, fmt.Errorf("%w: %T", ErrOverflow, dst[0])
		}
		for i := range dst {
			switch {
			case floats:
				dst[i] = T(acc[i])
				wraps = !math.IsInf(acc[i], 0) && math.IsInf(float64(dst[i]), 0)
			case signed:
				dst[i] = T(isum[i])
				wraps = int64(dst[i]) != isum[i]
			default:
				dst[i] = T(usum[i])
				wraps = uint64(dst[i]) != usum[i]
			}
			if wraps {
				return ndarray.Array[T]{}, fmt.Errorf("%w: %T block %d", ErrOverflow, dst[i], i)
			}
		}
	}
	return out, nil
}

func isFloat[T ndarray.Number]() bool {
	one := T(1)
	return one/2 != 0
}

func isSigned[T ndarray.Number]() bool {
	var zero T
	return zero-1 < zero
}

func addInt64(a, b int64) (int64, bool) {
	s := a + b
	return s, (b >= 0) == (s >= a)
}

func addUint64(a, b uint64) (uint64, bool) {
	s := a + b
	return s, s >= a
}
