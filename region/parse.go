package region

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a region in its textual form, a comma separated list whose entries are
// signed integers, None, slice(start, stop[, step]) or parenthesized (low, high)
// pairs. The whole list may be wrapped in () or []; a lone leading or trailing
// bracket is tolerated and dropped.
//
//	Parse("(slice(1,4,1), slice(0,4))")
//	Parse("1, 4, 0, 4")
//	Parse("[slice(None, 7), None]")
//
// An empty string selects every axis in full.
func Parse(text string) (Spec, error) {
	s := stripBrackets(strings.TrimSpace(text))
	if s == "" {
		return Spec{}, nil
	}

	parts, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}
	// A single trailing comma, as in "(3,)", is allowed.
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	spec := make(Spec, 0, len(parts))
	for _, p := range parts {
		tok, err := parseToken(p)
		if err != nil {
			return nil, err
		}
		spec = append(spec, tok)
	}
	return spec, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Spec {
	spec, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return spec
}

func isOpen(c byte) bool  { return c == '(' || c == '[' }
func isClose(c byte) bool { return c == ')' || c == ']' }

// stripBrackets removes one enclosing pair of brackets, or a single unmatched
// leading or trailing bracket.
func stripBrackets(s string) string {
	if s == "" {
		return s
	}
	if isOpen(s[0]) {
		switch closing(s) {
		case len(s) - 1:
			return strings.TrimSpace(s[1 : len(s)-1])
		case -1:
			return strings.TrimSpace(s[1:])
		}
		return s
	}
	if isClose(s[len(s)-1]) {
		depth := 0
		for i := 0; i < len(s); i++ {
			switch {
			case isOpen(s[i]):
				depth++
			case isClose(s[i]):
				depth--
			}
			if depth < 0 {
				if i == len(s)-1 {
					return strings.TrimSpace(s[:i])
				}
				return s
			}
		}
	}
	return s
}

// closing returns the index of the bracket closing s[0], or -1 if it never closes.
func closing(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch {
		case isOpen(s[i]):
			depth++
		case isClose(s[i]):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on commas that are not nested in brackets.
func splitTopLevel(s string) ([]string, error) {
	var (
		parts []string
		stack []byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isOpen(c):
			stack = append(stack, c)
		case isClose(c):
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unbalanced %q at offset %d in %q", ErrInvalidRegionSpec, c, i, s)
			}
			open := stack[len(stack)-1]
			if (open == '(') != (c == ')') {
				return nil, fmt.Errorf("%w: mismatched %q at offset %d in %q", ErrInvalidRegionSpec, c, i, s)
			}
			stack = stack[:len(stack)-1]
		case c == ',' && len(stack) == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: unclosed %q in %q", ErrInvalidRegionSpec, stack[len(stack)-1], s)
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts, nil
}

func parseToken(p string) (Token, error) {
	switch {
	case p == "":
		return Token{}, fmt.Errorf("%w: empty entry", ErrInvalidRegionSpec)
	case p == "None":
		return None(), nil
	case strings.HasPrefix(p, "slice(") && strings.HasSuffix(p, ")"):
		return parseSlice(p[len("slice(") : len(p)-1])
	case isOpen(p[0]) && closing(p) == len(p)-1:
		return parsePair(p[1 : len(p)-1])
	}
	v, err := strconv.Atoi(p)
	if err != nil {
		return Token{}, fmt.Errorf("%w: unexpected entry %q", ErrInvalidRegionSpec, p)
	}
	return Int(v), nil
}

func parseSlice(args string) (Token, error) {
	parts, err := splitTopLevel(args)
	if err != nil {
		return Token{}, err
	}
	if len(parts) > 3 || strings.TrimSpace(args) == "" {
		return Token{}, fmt.Errorf("%w: slice takes 1 to 3 arguments, got %q", ErrInvalidRegionSpec, args)
	}
	bounds := make([]Bound, len(parts))
	for i, p := range parts {
		if bounds[i], err = parseBound(p); err != nil {
			return Token{}, err
		}
	}
	switch len(bounds) {
	case 1:
		return Sel(Slice{Stop: bounds[0]}), nil
	case 2:
		return Sel(Slice{Start: bounds[0], Stop: bounds[1]}), nil
	default:
		return Sel(Slice{Start: bounds[0], Stop: bounds[1], Step: bounds[2]}), nil
	}
}

func parsePair(inner string) (Token, error) {
	parts, err := splitTopLevel(inner)
	if err != nil {
		return Token{}, err
	}
	if len(parts) != 2 {
		return Token{}, fmt.Errorf("%w: pair needs 2 entries, got %q", ErrInvalidRegionSpec, inner)
	}
	lo, err := parseBound(parts[0])
	if err != nil {
		return Token{}, err
	}
	hi, err := parseBound(parts[1])
	if err != nil {
		return Token{}, err
	}
	return Token{kind: tokPair, slice: Slice{Start: lo, Stop: hi}}, nil
}

func parseBound(p string) (Bound, error) {
	if p == "None" {
		return Unresolved, nil
	}
	v, err := strconv.Atoi(p)
	if err != nil {
		return Bound{}, fmt.Errorf("%w: bound %q is neither an integer nor None", ErrInvalidRegionSpec, p)
	}
	return At(v), nil
}
