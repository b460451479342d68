// Package chunked reads axis-aligned regions out of chunked N-dimensional
// stores, touching only the chunks that intersect the region.
package chunked

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/TuSKan/zarr-roi/region"
)

var (
	// ErrInvalidChunkSpec reports a chunk extent below 1 or a chunk shape of the
	// wrong rank.
	ErrInvalidChunkSpec = errors.New("invalid chunk spec")

	// ErrBackendRead wraps failures reported by a Store.
	ErrBackendRead = errors.New("backend read error")
)

// AxisPlan pairs, for one axis, the slices to read from each intersecting chunk
// with the slices they fill in the destination.
type AxisPlan struct {
	Source []region.Range
	Dest   []region.Range
}

// PlanAxis splits [lo, hi) along chunks of extent chunk. Source slices are in
// dataset coordinates, destination slices are relative to lo.
func PlanAxis(lo, hi, chunk int) (AxisPlan, error) {
	if chunk <= 0 {
		return AxisPlan{}, fmt.Errorf("%w: chunk extent %d", ErrInvalidChunkSpec, chunk)
	}
	if hi <= lo {
		return AxisPlan{}, nil
	}
	first := lo / chunk
	n := (hi+chunk-1)/chunk - first
	p := AxisPlan{
		Source: make([]region.Range, 0, n),
		Dest:   make([]region.Range, 0, n),
	}
	for j := 0; j < n; j++ {
		srcLo := max((j+first)*chunk, lo)
		srcHi := min((j+1+first)*chunk, hi)
		p.Source = append(p.Source, region.Range{Start: srcLo, Stop: srcHi, Step: 1})
		p.Dest = append(p.Dest, region.Range{Start: srcLo - lo, Stop: srcHi - lo, Step: 1})
	}
	return p, nil
}

// Plan holds one AxisPlan per axis. Its copies are the Cartesian product of the
// per-axis slice pairs.
type Plan []AxisPlan

// NewPlan validates target against shape and chunks and plans every axis.
func NewPlan(shape, chunks []int, target []region.Range) (Plan, error) {
	if len(chunks) != len(shape) {
		return nil, fmt.Errorf("%w: chunk rank %d for a shape of rank %d", ErrInvalidChunkSpec, len(chunks), len(shape))
	}
	if err := checkTarget(shape, target); err != nil {
		return nil, err
	}
	plan := make(Plan, len(shape))
	for axis, r := range target {
		ap, err := PlanAxis(r.Start, r.Stop, chunks[axis])
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", axis, err)
		}
		plan[axis] = ap
	}
	return plan, nil
}

func checkTarget(shape []int, target []region.Range) error {
	if len(target) != len(shape) {
		return fmt.Errorf("%w: region of rank %d for a shape of rank %d", region.ErrInvalidRegionSpec, len(target), len(shape))
	}
	for axis, r := range target {
		if r.Step != 1 {
			return fmt.Errorf("%w: axis %d: chunked reads need step 1, got %d", region.ErrInvalidRegionSpec, axis, r.Step)
		}
		if r.Start < 0 || r.Stop > shape[axis] || r.Start > r.Stop {
			return fmt.Errorf("%w: axis %d: [%d, %d) on an axis of extent %d",
				region.ErrRangeOutOfBounds, axis, r.Start, r.Stop, shape[axis])
		}
	}
	return nil
}

// Copy is one chunk-to-destination transfer.
type Copy struct {
	Source []region.Range
	Dest   []region.Range
}

func (c Copy) String() string {
	return fmt.Sprintf("%s -> %s", region.Format(c.Source), region.Format(c.Dest))
}

// Len returns the number of copies in the plan.
func (p Plan) Len() int {
	n := 1
	for _, ap := range p {
		n *= len(ap.Source)
	}
	return n
}

// Copies yields every copy of the plan, last axis varying fastest. The yielded
// slices are owned by the iterator and reused between iterations.
func (p Plan) Copies() iter.Seq[Copy] {
	return func(yield func(Copy) bool) {
		if p.Len() == 0 {
			return
		}
		idx := make([]int, len(p))
		c := Copy{Source: make([]region.Range, len(p)), Dest: make([]region.Range, len(p))}
		for {
			for axis, j := range idx {
				c.Source[axis] = p[axis].Source[j]
				c.Dest[axis] = p[axis].Dest[j]
			}
			if !yield(c) {
				return
			}
			axis := len(p) - 1
			for ; axis >= 0; axis-- {
				idx[axis]++
				if idx[axis] < len(p[axis].Source) {
					break
				}
				idx[axis] = 0
			}
			if axis < 0 {
				return
			}
		}
	}
}

func (p Plan) String() string {
	var sb strings.Builder
	for c := range p.Copies() {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
