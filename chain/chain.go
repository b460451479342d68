// Package chain records the crop and bin operations a pipeline applies to an
// array and collapses them into one crop followed by one bin.
package chain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/TuSKan/zarr-roi/ndarray"
	"github.com/TuSKan/zarr-roi/rebin"
	"github.com/TuSKan/zarr-roi/region"
)

// Kind tells a crop from a bin.
type Kind uint8

const (
	KindCrop Kind = iota
	KindBin
)

// Operation is a single Crop or Bin step.
type Operation struct {
	kind   Kind
	spec   region.Spec
	factor int
}

// Crop returns an operation selecting spec from its input.
func Crop(spec region.Spec) Operation {
	return Operation{kind: KindCrop, spec: slices.Clone(spec)}
}

// Bin returns an operation binning its input by factor.
func Bin(factor int) Operation {
	return Operation{kind: KindBin, factor: factor}
}

// Kind returns the operation kind.
func (o Operation) Kind() Kind { return o.kind }

// Spec returns the region of a crop.
func (o Operation) Spec() region.Spec { return o.spec }

// Factor returns the factor of a bin.
func (o Operation) Factor() int { return o.factor }

func (o Operation) String() string {
	if o.kind == KindBin {
		return fmt.Sprintf("bin(%d)", o.factor)
	}
	return fmt.Sprintf("crop(%s)", o.spec)
}

// Chain lists operations in the order they apply.
type Chain []Operation

func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, op := range c {
		parts[i] = op.String()
	}
	return strings.Join(parts, " -> ")
}

// Plan is a chain collapsed against an original shape: crop Region, then bin by Bin.
type Plan struct {
	Shape  []int
	Region []region.Range
	Bin    int
}

// Identity returns the plan that leaves an array of the given shape untouched.
func Identity(shape []int) Plan {
	return Plan{Shape: slices.Clone(shape), Region: region.FullRegion(shape), Bin: 1}
}

// CropShape returns the shape selected by the plan's region, before binning.
func (p Plan) CropShape() []int {
	return region.Shape(p.Region)
}

// OutputShape returns the shape the plan produces.
func (p Plan) OutputShape() []int {
	return rebin.Shape(p.CropShape(), p.Bin)
}

// IsIdentity reports whether the plan leaves its input untouched.
func (p Plan) IsIdentity() bool {
	return p.Bin == 1 && slices.Equal(p.Region, region.FullRegion(p.Shape))
}

func (p Plan) String() string {
	return fmt.Sprintf("crop(%s) -> bin(%d)", region.Format(p.Region), p.Bin)
}

// Collapse folds ops, applied in order to an array of the given shape, into a
// single Plan. Applying the plan's crop and then its bin in one pass gives the
// same array as applying every operation of ops in turn.
//
// Each crop is resolved against the shape the array has at that point of the
// chain, scaled back by the bin accumulated so far, and merged into the running
// region. Each bin multiplies the running factor and trims the region to the
// elements the binning actually consumes, so that remainders dropped by an early
// bin are not picked up again by the single combined bin.
//
// An empty chain yields the identity plan.
func Collapse(ops Chain, shape []int) (Plan, error) {
	plan := Identity(shape)
	for i, op := range ops {
		var err error
		switch op.kind {
		case KindBin:
			err = plan.bin(op.factor)
		case KindCrop:
			err = plan.crop(op.spec)
		default:
			err = fmt.Errorf("unknown operation kind %d", op.kind)
		}
		if err != nil {
			return Plan{}, fmt.Errorf("operation %d (%s): %w", i, op, err)
		}
	}
	return plan, nil
}

func (p *Plan) bin(factor int) error {
	if factor < 1 {
		return fmt.Errorf("%w: %d", rebin.ErrInvalidFactor, factor)
	}
	for axis, r := range p.Region {
		n := r.Len()
		m := rebin.Extent(n, p.Bin)
		used := min(rebin.Span(m, factor)*p.Bin, n)
		p.Region[axis] = truncate(r, used)
	}
	p.Bin *= factor
	return nil
}

func (p *Plan) crop(spec region.Spec) error {
	rs, err := region.Resolve(spec, p.OutputShape())
	if err != nil {
		return err
	}
	if p.Bin > 1 {
		for axis, r := range rs {
			if r.Step != 1 {
				return fmt.Errorf("%w: axis %d: step %d after binning by %d cannot be collapsed",
					region.ErrInvalidRegionSpec, axis, r.Step, p.Bin)
			}
			rs[axis] = region.Range{Start: r.Start * p.Bin, Stop: r.Stop * p.Bin, Step: 1}
		}
	}
	merged, err := region.MergeAll(p.Region, rs)
	if err != nil {
		return err
	}
	p.Region = merged
	return nil
}

// truncate keeps the first n elements selected by r.
func truncate(r region.Range, n int) region.Range {
	if n <= 0 {
		return region.Range{Start: r.Start, Stop: r.Start, Step: r.Step}
	}
	return region.Range{Start: r.Start, Stop: min(r.Stop, r.Start+(n-1)*r.Step+1), Step: r.Step}
}

// Apply runs ops on a one at a time, reducing bins with red.
func Apply[T ndarray.Number](a ndarray.Array[T], ops Chain, red rebin.Reduction) (ndarray.Array[T], error) {
	out := a.Clone()
	for i, op := range ops {
		var err error
		switch op.kind {
		case KindCrop:
			var rs []region.Range
			if rs, err = region.Resolve(op.spec, out.Shape()); err == nil {
				out, err = out.Crop(rs)
			}
		case KindBin:
			out, err = rebin.Rebin(out, op.factor, red)
		}
		if err != nil {
			return ndarray.Array[T]{}, fmt.Errorf("operation %d (%s): %w", i, op, err)
		}
	}
	return out, nil
}

// ApplyPlan crops a to p.Region and bins the result by p.Bin.
func ApplyPlan[T ndarray.Number](a ndarray.Array[T], p Plan, red rebin.Reduction) (ndarray.Array[T], error) {
	if !slices.Equal(a.Shape(), p.Shape) {
		return ndarray.Array[T]{}, fmt.Errorf("plan for shape %v applied to array of shape %v", p.Shape, a.Shape())
	}
	cropped, err := a.Crop(p.Region)
	if err != nil {
		return ndarray.Array[T]{}, err
	}
	return rebin.Rebin(cropped, p.Bin, red)
}
