package brep

import "errors"

var (
	// ErrExtrapolated indicates an evaluation outside the surface's
	// parameter range. Callers typically treat this as a silent
	// rejection of the candidate query.
	ErrExtrapolated = errors.New("brep: evaluation outside parameter range")

	// ErrDegenerate indicates the surface could not produce a finite
	// point or derivative at the query.
	ErrDegenerate = errors.New("brep: degenerate surface evaluation")
)
