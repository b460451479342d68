package region

import (
	"fmt"
	"strconv"
)

// Range is a resolved selection along one axis: every Step-th index in [Start, Stop).
type Range struct {
	Start int
	Stop  int
	Step  int
}

// Full returns the range covering an entire axis of the given extent.
func Full(extent int) Range {
	return Range{Start: 0, Stop: extent, Step: 1}
}

// Len returns the number of indices the range selects.
func (r Range) Len() int {
	if r.Step <= 0 || r.Stop <= r.Start {
		return 0
	}
	return (r.Stop - r.Start + r.Step - 1) / r.Step
}

// Slice returns r as a Slice with every bound set.
func (r Range) Slice() Slice {
	return Slice{Start: At(r.Start), Stop: At(r.Stop), Step: At(r.Step)}
}

func (r Range) String() string {
	return fmt.Sprintf("slice(%d, %d, %d)", r.Start, r.Stop, r.Step)
}

// Shape returns the extent selected along each axis.
func Shape(rs []Range) []int {
	shape := make([]int, len(rs))
	for i, r := range rs {
		shape[i] = r.Len()
	}
	return shape
}

// FullRegion returns the region selecting all of shape.
func FullRegion(shape []int) []Range {
	rs := make([]Range, len(shape))
	for i, n := range shape {
		rs[i] = Full(n)
	}
	return rs
}

// Format renders a region in the textual grammar accepted by Parse.
func Format(rs []Range) string {
	return FromRanges(rs).String()
}

// Bound is one end, or the step, of a Slice. The zero value is Unresolved.
type Bound struct {
	v  int
	ok bool
}

// Unresolved is a bound that was not given and takes its default on resolution.
var Unresolved = Bound{}

// At returns a bound with an explicit value, which may be negative.
func At(v int) Bound {
	return Bound{v: v, ok: true}
}

// Value returns the bound's value and whether it is set.
func (b Bound) Value() (int, bool) {
	return b.v, b.ok
}

// IsSet reports whether the bound has an explicit value.
func (b Bound) IsSet() bool {
	return b.ok
}

func (b Bound) String() string {
	if !b.ok {
		return "None"
	}
	return strconv.Itoa(b.v)
}

// Slice is an unresolved selection along one axis. Bounds may be Unresolved or
// negative until resolved against an axis extent.
type Slice struct {
	Start Bound
	Stop  Bound
	Step  Bound
}

func (s Slice) String() string {
	return fmt.Sprintf("slice(%s, %s, %s)", s.Start, s.Stop, s.Step)
}

// Bounds returns the unit-step range spanning every index r selects.
func (r Range) Bounds() Range {
	stop := r.Start
	if n := r.Len(); n > 0 {
		stop = r.Start + (n-1)*r.Step + 1
	}
	return Range{Start: r.Start, Stop: stop, Step: 1}
}
