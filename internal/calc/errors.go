package calc

import "errors"

var (
	// ErrInsufficientData reports too few rows for the requested
	// partial-correlation degrees of freedom.
	ErrInsufficientData = errors.New("calc: insufficient rows for partial correlation")

	// ErrConstantColumn reports a zero-variance covariate or region column.
	ErrConstantColumn = errors.New("calc: constant column")

	// ErrNumericalInstability reports a degenerate denominator (baseline
	// correlation at ±1, or a zero-spread permutation null) that would
	// otherwise turn into Inf/NaN inside significance testing.
	ErrNumericalInstability = errors.New("calc: numerical instability")
)
