package tess2d

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"
)

// A BaryVertex locates one refined vertex inside the frame: the
// 1-based frame triangle index and the barycentric weights of the
// vertex's UV in that triangle.
//
// Sensitivity code inverts this map to transport a UV displacement
// of a frame vertex onto every refined vertex.
type BaryVertex struct {
	Tri int
	W   [3]float64
}

// BaryFrame assigns every vertex a frame triangle and barycentric
// weights, filling ts.Bary. Frame vertices map to a corner of a
// frame triangle that uses them; refined vertices map to the first
// frame triangle containing their UV. A vertex contained by no frame
// triangle falls back to the triangle whose least barycentric weight
// is greatest, with a warning at outLevel >= 1; only triangles whose
// least weight is above -1 are candidates, and when there is none
// BaryFrame returns ErrNotFound.
//
// Tessellate must have captured the frame first.
func (ts *Tessellation) BaryFrame() error {
	if ts.NFrame == 0 {
		return ErrNotFound
	}
	ts.Bary = make([]BaryVertex, len(ts.Verts))

	corner := make(map[int]BaryVertex, ts.NFrameVerts)
	for fi, f := range ts.Frame {
		for k, idx := range f {
			if _, ok := corner[idx]; !ok {
				var w [3]float64
				w[k] = 1
				corner[idx] = BaryVertex{Tri: fi + 1, W: w}
			}
		}
	}

	for vi := 1; vi <= len(ts.Verts); vi++ {
		if vi <= ts.NFrameVerts {
			bv, ok := corner[vi]
			if !ok {
				return ErrNotFound
			}
			ts.Bary[vi-1] = bv
			continue
		}
		uv := ts.uv(vi)
		found := 0
		var w [3]float64
		bestTri, bestLeast := 0, -1.0
		var bestW [3]float64
		for fi, f := range ts.Frame {
			u0 := ts.FrameUV[f[0]-1]
			u1 := ts.FrameUV[f[1]-1]
			u2 := ts.FrameUV[f[2]-1]
			state := inTriExact(u0, u1, u2, uv, &w)
			if state == triInside {
				found = fi + 1
				break
			}
			if state == triDegenerate {
				continue
			}
			least := w[0]
			if w[1] < least {
				least = w[1]
			}
			if w[2] < least {
				least = w[2]
			}
			if least > bestLeast {
				bestTri, bestLeast, bestW = fi+1, least, w
			}
		}
		if found == 0 {
			if bestTri == 0 {
				return ErrNotFound
			}
			if ts.outLevel >= 1 {
				log.Printf("tess2d: face %d: vertex %d outside frame, nearest triangle %d (least weight %g)",
					ts.FIndex, vi, bestTri, bestLeast)
			}
			found, w = bestTri, bestW
		}
		ts.Bary[vi-1] = BaryVertex{Tri: found, W: w}
	}
	return nil
}

// BaryTess point-queries the refined mesh: it returns the 1-based
// index of a triangle containing uv along with barycentric weights,
// or 0 when no triangle contains the point.
func (ts *Tessellation) BaryTess(uv mgl64.Vec2) (int, [3]float64) {
	var w [3]float64
	for ti := 1; ti <= len(ts.Tris); ti++ {
		t := ts.tri(ti)
		if inTriExact(ts.uv(t.Indices[0]), ts.uv(t.Indices[1]), ts.uv(t.Indices[2]),
			uv, &w) == triInside {
			return ti, w
		}
	}
	return 0, [3]float64{}
}
