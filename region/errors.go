package region

import "errors"

var (
	// ErrInvalidRegionSpec reports malformed region syntax or an entry count that does
	// not reduce to one selector per axis.
	ErrInvalidRegionSpec = errors.New("invalid region spec")

	// ErrMissingShapeForResolution reports an unresolved or negative bound that needs an
	// axis extent to resolve, with no shape available.
	ErrMissingShapeForResolution = errors.New("missing shape for resolution")

	// ErrCannotMergeRelativeBound reports a merge whose operands still carry negative bounds.
	ErrCannotMergeRelativeBound = errors.New("cannot merge relative bound")

	// ErrRangeOutOfBounds reports a resolved range that exceeds its axis extent.
	ErrRangeOutOfBounds = errors.New("range out of bounds")
)
