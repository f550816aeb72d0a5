// Package tess2d refines the triangulation of one parametric face.
//
// The caller supplies a frame triangulation — boundary vertices,
// triangles and segments produced from the face's edge discretization
// — plus a surface evaluator, and the engine refines the mesh through
// edge swaps, vertex insertions and edge collapses until it meets the
// configured geometric criteria: facet-normal deviation, chord
// height, and maximum/minimum edge length.
//
// The engine is single-threaded per face. Distinct faces may be
// tessellated concurrently as long as each uses its own Tessellation.
package tess2d
