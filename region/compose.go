package region

import "fmt"

// Merge returns the single range equivalent to selecting outer from an axis and
// then inner from the result. inner is expressed in the coordinates of outer's
// output; the merged range is in the coordinates of the original axis.
//
// Merge is not commutative. If inner starts past the end of outer the result is
// the empty range at outer's stop.
func Merge(outer, inner Range) (Range, error) {
	if outer.Start < 0 || outer.Stop < 0 || inner.Start < 0 || inner.Stop < 0 {
		return Range{}, fmt.Errorf("%w: merging %s into %s", ErrCannotMergeRelativeBound, inner, outer)
	}
	if outer.Step <= 0 || inner.Step <= 0 {
		return Range{}, fmt.Errorf("%w: merging %s into %s", ErrInvalidRegionSpec, inner, outer)
	}
	merged := Range{
		Start: outer.Start + outer.Step*inner.Start,
		Stop:  min(outer.Start+inner.Stop*outer.Step, outer.Stop),
		Step:  outer.Step * inner.Step,
	}
	if merged.Start > merged.Stop {
		merged.Start = merged.Stop
	}
	return merged, nil
}

// MergeAll merges inner into outer axis by axis. inner may address fewer axes
// than outer; the missing axes keep outer unchanged.
func MergeAll(outer, inner []Range) ([]Range, error) {
	if len(inner) > len(outer) {
		return nil, fmt.Errorf("%w: inner region of rank %d exceeds outer rank %d",
			ErrInvalidRegionSpec, len(inner), len(outer))
	}
	out := make([]Range, len(outer))
	for axis, o := range outer {
		in := Full(o.Len())
		if axis < len(inner) {
			in = inner[axis]
		}
		m, err := Merge(o, in)
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", axis, err)
		}
		out[axis] = m
	}
	return out, nil
}

// Compose folds regions applied one after another, each relative to the output
// of the previous ones, into a single region. Order matters.
func Compose(regions ...[]Range) ([]Range, error) {
	if len(regions) == 0 {
		return nil, nil
	}
	acc := regions[0]
	for _, next := range regions[1:] {
		var err error
		if acc, err = MergeAll(acc, next); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// Crop applies spec to the output of outer. spec is resolved against the cropped
// shape first, so it may use negative and None bounds.
func Crop(outer []Range, spec Spec) ([]Range, error) {
	inner, err := Resolve(spec, Shape(outer))
	if err != nil {
		return nil, err
	}
	return MergeAll(outer, inner)
}
