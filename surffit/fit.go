// Package surffit reconstructs a tensor-product control grid from a
// refined, unstructured face triangulation. It is a consumer of the
// tessellator's barycentric frame map, not part of the refiner core.
package surffit

import (
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/mat"

	"github.com/meshprim/surftri/tess2d"
)

const (
	// DefaultSmoothIters relaxes interior UVs before fitting.
	DefaultSmoothIters = 10

	// smoothRate is the Laplacian step toward the neighbor average.
	smoothRate = 0.5

	// regWeight ties ungoverned control points to their neighbors so
	// the normal system stays full rank on sparse data.
	regWeight = 1e-3
)

// ErrTooFewPoints reports a triangulation too small to constrain the
// requested grid.
var ErrTooFewPoints = errors.New("surffit: too few vertices for grid")

// A Grid is the fitted (NU x NV) control net, row-major in U.
type Grid struct {
	NU, NV int
	Points []mgl64.Vec3
}

// At returns control point (i, j).
func (g *Grid) At(i, j int) mgl64.Vec3 {
	return g.Points[j*g.NU+i]
}

// Eval bilinearly interpolates the net at (u, v) in the unit square.
func (g *Grid) Eval(u, v float64) mgl64.Vec3 {
	u = math.Max(0, math.Min(1, u)) * float64(g.NU-1)
	v = math.Max(0, math.Min(1, v)) * float64(g.NV-1)
	i := essentials.MinInt(int(u), g.NU-2)
	j := essentials.MinInt(int(v), g.NV-2)
	fu, fv := u-float64(i), v-float64(j)
	p00 := g.At(i, j).Mul((1 - fu) * (1 - fv))
	p10 := g.At(i+1, j).Mul(fu * (1 - fv))
	p01 := g.At(i, j+1).Mul((1 - fu) * fv)
	p11 := g.At(i+1, j+1).Mul(fu * fv)
	return p00.Add(p10).Add(p01).Add(p11)
}

// FitTriangles rebuilds a tensor-product control grid from the
// tessellation. BaryFrame must have been run. Passing nu or nv as 0
// lets bestGrid pick dimensions from the sample density.
func FitTriangles(ts *tess2d.Tessellation, nu, nv int) (*Grid, error) {
	if len(ts.Bary) != len(ts.Verts) {
		return nil, errors.New("surffit: tessellation has no barycentric frame map")
	}
	uvs := createUV(ts)
	smoothUV(ts, uvs, DefaultSmoothIters)
	normalizeUV(uvs)
	if nu == 0 || nv == 0 {
		nu, nv = bestGrid(uvs, nu, nv)
	}
	if nu < 2 || nv < 2 || len(uvs) < nu*nv/2 {
		return nil, ErrTooFewPoints
	}
	return solveGrid(ts, uvs, nu, nv)
}

// createUV rebuilds every vertex's UV from its frame triangle's UVs
// and its barycentric weights. BaryFrame derives the weights from the
// same UVs, so the result reproduces the stored UVs.
func createUV(ts *tess2d.Tessellation) []mgl64.Vec2 {
	uvs := make([]mgl64.Vec2, len(ts.Verts))
	for i, bv := range ts.Bary {
		f := ts.Frame[bv.Tri-1]
		var uv mgl64.Vec2
		for k := 0; k < 3; k++ {
			uv = uv.Add(ts.FrameUV[f[k]-1].Mul(bv.W[k]))
		}
		uvs[i] = uv
	}
	return uvs
}

// smoothUV relaxes interior vertices toward the average of their
// ring neighbors, keeping boundary vertices pinned.
func smoothUV(ts *tess2d.Tessellation, uvs []mgl64.Vec2, iters int) {
	type ring struct {
		sum mgl64.Vec2
		n   int
	}
	for iter := 0; iter < iters; iter++ {
		rings := make([]ring, len(uvs))
		for i := range ts.Tris {
			idx := ts.Tris[i].Indices
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					if a == b {
						continue
					}
					r := &rings[idx[a]-1]
					r.sum = r.sum.Add(uvs[idx[b]-1])
					r.n++
				}
			}
		}
		for i := range uvs {
			if ts.Verts[i].Type != tess2d.VertexFace || rings[i].n == 0 {
				continue
			}
			avg := rings[i].sum.Mul(1 / float64(rings[i].n))
			uvs[i] = uvs[i].Add(avg.Sub(uvs[i]).Mul(smoothRate))
		}
	}
}

// normalizeUV maps the UV bounding box onto the unit square.
func normalizeUV(uvs []mgl64.Vec2) {
	if len(uvs) == 0 {
		return
	}
	min, max := uvs[0], uvs[0]
	for _, uv := range uvs {
		for k := 0; k < 2; k++ {
			min[k] = math.Min(min[k], uv[k])
			max[k] = math.Max(max[k], uv[k])
		}
	}
	for i := range uvs {
		for k := 0; k < 2; k++ {
			if d := max[k] - min[k]; d > 0 {
				uvs[i][k] = (uvs[i][k] - min[k]) / d
			} else {
				uvs[i][k] = 0
			}
		}
	}
}

// bestGrid picks grid dimensions from the sample count and the
// median spacing along each axis.
func bestGrid(uvs []mgl64.Vec2, nu, nv int) (int, int) {
	n := len(uvs)
	if n < 4 {
		return 2, 2
	}
	us := make([]float64, n)
	vs := make([]float64, n)
	for i, uv := range uvs {
		us[i] = uv[0]
		vs[i] = uv[1]
	}
	// Sort U carrying V along; V is then sorted on its own, so each
	// axis ends up in ascending order for the spacing measure.
	essentials.VoodooSort(us, func(i, j int) bool {
		return us[i] < us[j]
	}, vs)
	sort.Float64s(vs)

	spacing := func(xs []float64) float64 {
		gaps := make([]float64, 0, len(xs)-1)
		for i := 1; i < len(xs); i++ {
			if g := xs[i] - xs[i-1]; g > 0 {
				gaps = append(gaps, g)
			}
		}
		if len(gaps) == 0 {
			return 1
		}
		sort.Float64s(gaps)
		return gaps[len(gaps)/2]
	}
	side := int(math.Sqrt(float64(n)))
	if nu == 0 {
		nu = essentials.MaxInt(2, essentials.MinInt(side, int(0.5/spacing(us))+2))
	}
	if nv == 0 {
		nv = essentials.MaxInt(2, essentials.MinInt(side, int(0.5/spacing(vs))+2))
	}
	return nu, nv
}

// solveGrid assembles the bilinear least-squares system and solves
// the three coordinate columns at once.
func solveGrid(ts *tess2d.Tessellation, uvs []mgl64.Vec2, nu, nv int) (*Grid, error) {
	unknowns := nu * nv
	rows := len(uvs)
	reg := 0
	// One smoothing row per interior grid node along each axis.
	reg += (nu - 2) * nv
	reg += nu * (nv - 2)

	a := mat.NewDense(rows+reg, unknowns, nil)
	b := mat.NewDense(rows+reg, 3, nil)

	for r, uv := range uvs {
		u := uv[0] * float64(nu-1)
		v := uv[1] * float64(nv-1)
		i := essentials.MinInt(int(u), nu-2)
		j := essentials.MinInt(int(v), nv-2)
		fu, fv := u-float64(i), v-float64(j)
		a.Set(r, j*nu+i, (1-fu)*(1-fv))
		a.Set(r, j*nu+i+1, fu*(1-fv))
		a.Set(r, (j+1)*nu+i, (1-fu)*fv)
		a.Set(r, (j+1)*nu+i+1, fu*fv)
		xyz := ts.Verts[r].XYZ
		for k := 0; k < 3; k++ {
			b.Set(r, k, xyz[k])
		}
	}

	r := rows
	for j := 0; j < nv; j++ {
		for i := 1; i < nu-1; i++ {
			a.Set(r, j*nu+i, 2*regWeight)
			a.Set(r, j*nu+i-1, -regWeight)
			a.Set(r, j*nu+i+1, -regWeight)
			r++
		}
	}
	for j := 1; j < nv-1; j++ {
		for i := 0; i < nu; i++ {
			a.Set(r, j*nu+i, 2*regWeight)
			a.Set(r, (j-1)*nu+i, -regWeight)
			a.Set(r, (j+1)*nu+i, -regWeight)
			r++
		}
	}

	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		return nil, err
	}
	grid := &Grid{NU: nu, NV: nv, Points: make([]mgl64.Vec3, unknowns)}
	for p := 0; p < unknowns; p++ {
		grid.Points[p] = mgl64.Vec3{x.At(p, 0), x.At(p, 1), x.At(p, 2)}
	}
	return grid, nil
}
