package tess2d

import "errors"

var (
	// ErrDegenerate marks a zero-area or zero-normal configuration
	// that a local operation could not resolve. The operation is
	// rejected and the mesh left unchanged.
	ErrDegenerate = errors.New("tess2d: degenerate configuration")

	// ErrRange marks a split that would create a segment shorter
	// than an eighth of the side being split, or shorter than Minlen.
	ErrRange = errors.New("tess2d: split below minimum edge fraction")

	// ErrIndex marks an inconsistency between a triangle and its
	// neighbor's vertex indices. The operation is rejected without
	// mutating the mesh.
	ErrIndex = errors.New("tess2d: inconsistent neighbor indices")

	// ErrNotFound reports that no frame triangle contains a vertex
	// during barycentric mapping.
	ErrNotFound = errors.New("tess2d: no containing frame triangle")
)
