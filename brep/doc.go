// Package brep holds the geometry-side collaborators of the surface
// tessellator: the parametric surface interface, face handles, and a
// set of analytic surfaces used by tests and examples.
//
// The tessellation engine in package tess2d only ever talks to a
// surface through the Surface interface, so any geometry kernel that
// can evaluate a parametric patch and invert points onto it can drive
// the engine.
package brep
