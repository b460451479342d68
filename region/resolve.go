package region

import "fmt"

// Resolve normalizes spec against shape. Axes the spec does not address select
// their full extent, so the result always has len(shape) entries.
func Resolve(spec Spec, shape []int) ([]Range, error) {
	slices, err := spec.Slices()
	if err != nil {
		return nil, err
	}
	return ResolveSlices(slices, shape)
}

// ResolveSlices resolves each slice against the matching axis of shape.
func ResolveSlices(slices []Slice, shape []int) ([]Range, error) {
	if shape == nil && len(slices) > 0 {
		return Absolute(slices)
	}
	if len(slices) > len(shape) {
		return nil, fmt.Errorf("%w: %d axes given for a shape of rank %d",
			ErrInvalidRegionSpec, len(slices), len(shape))
	}
	out := make([]Range, len(shape))
	for axis, extent := range shape {
		var s Slice
		if axis < len(slices) {
			s = slices[axis]
		}
		r, err := s.Resolve(extent)
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", axis, err)
		}
		out[axis] = r
	}
	return out, nil
}

// Resolve resolves s against an axis of the given extent. An Unresolved start is
// 0, an Unresolved stop is extent, an Unresolved step is 1, and a negative bound
// is taken modulo extent.
func (s Slice) Resolve(extent int) (Range, error) {
	if extent < 0 {
		return Range{}, fmt.Errorf("%w: negative extent %d", ErrInvalidRegionSpec, extent)
	}
	step, err := resolveStep(s.Step)
	if err != nil {
		return Range{}, err
	}
	start := 0
	if v, ok := s.Start.Value(); ok {
		start = wrap(v, extent)
	}
	stop := extent
	if v, ok := s.Stop.Value(); ok {
		stop = wrap(v, extent)
	}
	return checked(Range{Start: start, Stop: stop, Step: step}, extent)
}

// Absolute converts slices to ranges without an axis extent. It fails with
// ErrMissingShapeForResolution when a start or stop is Unresolved or negative.
func Absolute(slices []Slice) ([]Range, error) {
	out := make([]Range, len(slices))
	for axis, s := range slices {
		step, err := resolveStep(s.Step)
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", axis, err)
		}
		start, okStart := s.Start.Value()
		stop, okStop := s.Stop.Value()
		if !okStart || !okStop || start < 0 || stop < 0 {
			return nil, fmt.Errorf("axis %d: %w: %s", axis, ErrMissingShapeForResolution, s)
		}
		if start > stop {
			return nil, fmt.Errorf("axis %d: %w: start %d after stop %d", axis, ErrInvalidRegionSpec, start, stop)
		}
		out[axis] = Range{Start: start, Stop: stop, Step: step}
	}
	return out, nil
}

// Check verifies that every range of rs is a valid selection of shape.
func Check(rs []Range, shape []int) error {
	if len(rs) != len(shape) {
		return fmt.Errorf("%w: region of rank %d for a shape of rank %d", ErrInvalidRegionSpec, len(rs), len(shape))
	}
	for axis, r := range rs {
		if r.Step <= 0 {
			return fmt.Errorf("axis %d: %w: step %d", axis, ErrInvalidRegionSpec, r.Step)
		}
		if _, err := checked(r, shape[axis]); err != nil {
			return fmt.Errorf("axis %d: %w", axis, err)
		}
	}
	return nil
}

func resolveStep(b Bound) (int, error) {
	step, ok := b.Value()
	if !ok {
		return 1, nil
	}
	if step <= 0 {
		return 0, fmt.Errorf("%w: step must be positive, got %d", ErrInvalidRegionSpec, step)
	}
	return step, nil
}

func wrap(v, extent int) int {
	if v >= 0 {
		return v
	}
	if extent == 0 {
		return 0
	}
	return ((v % extent) + extent) % extent
}

func checked(r Range, extent int) (Range, error) {
	if r.Start < 0 || r.Stop > extent || r.Start > extent {
		return Range{}, fmt.Errorf("%w: [%d, %d) on an axis of extent %d", ErrRangeOutOfBounds, r.Start, r.Stop, extent)
	}
	if r.Start > r.Stop {
		return Range{}, fmt.Errorf("%w: start %d after stop %d", ErrInvalidRegionSpec, r.Start, r.Stop)
	}
	return r, nil
}
