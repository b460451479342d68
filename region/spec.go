// Package region normalizes region-of-interest specifications into per-axis ranges
// and composes successive crops into one equivalent region.
//
// A Spec is parsed once at the boundary (see Parse) into a closed set of tokens.
// Slices groups the tokens into one Slice per axis, Resolve turns those into
// Ranges against a concrete shape, and Merge/Compose fold crops expressed in
// cropped coordinates back into original-array coordinates.
package region

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind uint8

const (
	tokInt tokenKind = iota
	tokNone
	tokPair
	tokSlice
	tokFullAxis
)

// Token is one entry of a Spec.
type Token struct {
	kind  tokenKind
	value int
	slice Slice
}

// Int is a bare integer. On its own it selects a single index; between other
// selectors it must appear as one half of a (low, high) pair.
func Int(v int) Token {
	return Token{kind: tokInt, value: v}
}

// None is a bare None. Inside a pair it is an Unresolved bound; on its own it
// selects the full axis.
func None() Token {
	return Token{kind: tokNone}
}

// Pair selects [lo, hi) on one axis.
func Pair(lo, hi int) Token {
	return Token{kind: tokPair, slice: Slice{Start: At(lo), Stop: At(hi)}}
}

// Sel wraps an explicit Slice.
func Sel(s Slice) Token {
	return Token{kind: tokSlice, slice: s}
}

// FullAxis selects an entire axis.
func FullAxis() Token {
	return Token{kind: tokFullAxis}
}

func (t Token) scalar() bool {
	return t.kind == tokInt || t.kind == tokNone
}

func (t Token) bound() Bound {
	if t.kind == tokInt {
		return At(t.value)
	}
	return Unresolved
}

func (t Token) String() string {
	switch t.kind {
	case tokInt:
		return strconv.Itoa(t.value)
	case tokNone:
		return "None"
	case tokPair:
		return fmt.Sprintf("(%s, %s)", t.slice.Start, t.slice.Stop)
	case tokSlice:
		return t.slice.String()
	default:
		return "slice(None, None, None)"
	}
}

// Spec is an ordered list of per-axis selectors. Axes past the end of the list
// select their full extent.
type Spec []Token

// FromRanges returns the Spec equivalent to an already resolved region.
func FromRanges(rs []Range) Spec {
	spec := make(Spec, len(rs))
	for i, r := range rs {
		spec[i] = Sel(r.Slice())
	}
	return spec
}

func (s Spec) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// Slices groups the tokens into one Slice per addressed axis, leaving bounds
// unresolved.
//
// A spec made only of bare scalars is read pairwise as (low, high) per axis,
// except that a lone integer v selects [v, v+1) and a lone None the full axis.
// Once a Pair, Slice or FullAxis token is present, every run of bare scalars
// between them must hold exactly two entries, or be a single None.
func (s Spec) Slices() ([]Slice, error) {
	if len(s) == 1 && s[0].kind == tokInt {
		return []Slice{single(s[0].value)}, nil
	}

	mixed := false
	for _, t := range s {
		if !t.scalar() {
			mixed = true
			break
		}
	}

	var out []Slice
	var run []Token
	flush := func() error {
		switch {
		case len(run) == 0:
		case len(run) == 1 && run[0].kind == tokNone:
			out = append(out, Slice{})
		case mixed && len(run) != 2, len(run)%2 != 0:
			return fmt.Errorf("%w: %d bare values cannot be grouped into (low, high) pairs in %q",
				ErrInvalidRegionSpec, len(run), s.String())
		default:
			for i := 0; i < len(run); i += 2 {
				out = append(out, Slice{Start: run[i].bound(), Stop: run[i+1].bound()})
			}
		}
		run = run[:0]
		return nil
	}

	for _, t := range s {
		if t.scalar() {
			run = append(run, t)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		if t.kind == tokFullAxis {
			out = append(out, Slice{})
		} else {
			out = append(out, t.slice)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// single selects index v alone. A negative v counts from the end of the axis, so
// -1 must keep an open stop rather than stop at 0.
func single(v int) Slice {
	if v == -1 {
		return Slice{Start: At(v)}
	}
	return Slice{Start: At(v), Stop: At(v + 1)}
}
