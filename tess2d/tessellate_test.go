package tess2d

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/meshprim/surftri/brep"
)

// newSquareTess builds the unit-square frame on a planar face with
// no refinement configuration set; callers set it.
func newSquareTess(t *testing.T) *Tessellation {
	t.Helper()
	ts := NewTessellation(&brep.Face{Surface: brep.NewUnitPlane()})
	ts.Planar = true
	uvs := []mgl64.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for i, uv := range uvs {
		ts.AddVert(VertexNode, i, 0, mgl64.Vec3{uv[0], uv[1], 0}, uv)
	}
	ts.AddTri(1, 2, 3)
	ts.AddTri(1, 3, 4)
	ts.AddSeg(1, 2)
	ts.AddSeg(2, 3)
	ts.AddSeg(3, 4)
	ts.AddSeg(4, 1)
	return ts
}

// maxSideLen2 is the longest squared edge in the mesh.
func maxSideLen2(ts *Tessellation) float64 {
	worst := 0.0
	for ti := 1; ti <= len(ts.Tris); ti++ {
		for s := 0; s < 3; s++ {
			worst = math.Max(worst, ts.sideLen2(ti, s))
		}
	}
	return worst
}

// minSideLen2 is the shortest squared edge in the mesh.
func minSideLen2(ts *Tessellation) float64 {
	worst := math.Inf(1)
	for ti := 1; ti <= len(ts.Tris); ti++ {
		for s := 0; s < 3; s++ {
			worst = math.Min(worst, ts.sideLen2(ti, s))
		}
	}
	return worst
}

// minDihedral is the smallest dihedral dot across interior edges.
func minDihedral(ts *Tessellation) float64 {
	worst := 1.0
	for ti := 1; ti <= len(ts.Tris); ti++ {
		for s := 0; s < 3; s++ {
			if ts.tri(ti).Neighbors[s] <= ti {
				continue
			}
			i0, i1, i2, i3, ok := ts.quad(ti, s)
			if !ok {
				continue
			}
			worst = math.Min(worst,
				dotNorm(ts.xyz(i0), ts.xyz(i1), ts.xyz(i2), ts.xyz(i3)))
		}
	}
	return worst
}

func TestTessellateFlatSquareMaxlen(t *testing.T) {
	ts := newSquareTess(t)
	ts.Maxlen = 0.5
	ts.Dotnrm = 0.25
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	if ts.Stats.Splits < 1 {
		t.Error("expected at least one side split on the long diagonal")
	}
	if worst := maxSideLen2(ts); worst > 0.25+1e-9 {
		t.Errorf("longest squared side %g exceeds 0.25", worst)
	}
	for ti := 1; ti <= len(ts.Tris); ti++ {
		if ts.uvArea(ti) <= 0 {
			t.Fatalf("triangle %d has non-positive UV area", ti)
		}
	}
	if ts.NFrame != 2 || ts.NFrameVerts != 4 {
		t.Errorf("frame should capture the initial mesh, got %d tris %d verts",
			ts.NFrame, ts.NFrameVerts)
	}
}

func TestTessellateIdempotent(t *testing.T) {
	ts := newSquareTess(t)
	ts.Maxlen = 0.5
	ts.Dotnrm = 0.25
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatal(err)
	}
	nv, nt := len(ts.Verts), len(ts.Tris)
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatal(err)
	}
	if ts.Stats.Splits != 0 {
		t.Errorf("second run should perform no splits, got %d", ts.Stats.Splits)
	}
	if len(ts.Verts) != nv || len(ts.Tris) != nt {
		t.Error("second run should leave the mesh unchanged")
	}
}

func TestTessellateBalancedNoSwaps(t *testing.T) {
	ts := newSquareTess(t)
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatal(err)
	}
	if ts.Stats.Swaps != 0 {
		t.Errorf("balanced mesh should swap nothing, got %d", ts.Stats.Swaps)
	}
	if len(ts.Verts) != 4 || len(ts.Tris) != 2 {
		t.Error("mesh should be unchanged")
	}
}

func TestTessellateFlippedOrientation(t *testing.T) {
	ts := NewTessellation(&brep.Face{Surface: brep.NewUnitPlane()})
	ts.Planar = true
	ts.OrUV = -1
	uvs := []mgl64.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for i, uv := range uvs {
		ts.AddVert(VertexNode, i, 0, mgl64.Vec3{uv[0], uv[1], 0}, uv)
	}
	ts.AddTri(1, 3, 2)
	ts.AddTri(1, 4, 3)
	ts.AddSeg(1, 2)
	ts.AddSeg(2, 3)
	ts.AddSeg(3, 4)
	ts.AddSeg(4, 1)
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	if len(ts.Verts) != 4 || len(ts.Tris) != 2 {
		t.Error("flipped quad should be returned unchanged")
	}
}

// newCapTess builds a hemispherical cap: an octagon of boundary
// vertices at the equator fanned to the pole, with the seam split so
// the parameter rectangle does not wrap.
func newCapTess(t testing.TB) *Tessellation {
	t.Helper()
	sphere := &brep.Sphere{Radius: 1}
	ts := NewTessellation(&brep.Face{Surface: sphere})
	apexUV := mgl64.Vec2{0, math.Pi / 2}
	ev, err := sphere.Evaluate(apexUV)
	if err != nil {
		t.Fatal(err)
	}
	apex := ts.AddVert(VertexNode, -1, 0, ev.Point, apexUV)
	ring := make([]int, 9)
	for k := 0; k <= 8; k++ {
		uv := mgl64.Vec2{-math.Pi + float64(k)*math.Pi/4, 0}
		ev, err := sphere.Evaluate(uv)
		if err != nil {
			t.Fatal(err)
		}
		ring[k] = ts.AddVert(VertexEdge, 0, k, ev.Point, uv)
	}
	for k := 0; k < 8; k++ {
		ts.AddTri(apex, ring[k], ring[k+1])
		ts.AddSeg(ring[k], ring[k+1])
	}
	ts.AddSeg(ring[8], apex)
	ts.AddSeg(apex, ring[0])
	return ts
}

func TestTessellateHemisphereCap(t *testing.T) {
	ts := newCapTess(t)
	ts.Chord = 0.05
	ts.Dotnrm = 0.9
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	if len(ts.Verts) <= ts.NFrameVerts {
		t.Error("refinement should insert interior vertices")
	}
	if d := minDihedral(ts); d < 0.9-1e-3 {
		t.Errorf("worst dihedral dot %g below the 0.9 criterion", d)
	}
	interior := 0
	for i := ts.NFrameVerts; i < len(ts.Verts); i++ {
		if ts.Verts[i].Type == VertexFace {
			interior++
		}
	}
	if interior == 0 {
		t.Error("expected face-interior insertions")
	}
}

func TestTessellateMaxPtsCap(t *testing.T) {
	ts := newCapTess(t)
	ts.Chord = 0.01
	ts.Dotnrm = 0.99
	ts.MaxPts = 12
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatal(err)
	}
	if len(ts.Verts) > 12 {
		t.Errorf("vertex cap exceeded: %d > 12", len(ts.Verts))
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
}

// newDegenerateTess builds a mesh whose degenerate node appears as
// two coincident vertices joined by a zero-length interior side, the
// shape a collapsed axis leaves in a cone-like face.
func newDegenerateTess(t *testing.T) *Tessellation {
	t.Helper()
	plane := &brep.Plane{
		XAxis:  mgl64.Vec3{1, 0, 0},
		YAxis:  mgl64.Vec3{0, 1, 0},
		Bounds: brep.Range{UMin: -1, UMax: 2, VMin: -2, VMax: 2},
	}
	ts := NewTessellation(&brep.Face{Surface: plane})
	apex := mgl64.Vec3{0, 0, 0}
	ts.AddVert(VertexNode, -1, 0, apex, mgl64.Vec2{0, 0})                       // 1
	ts.AddVert(VertexNode, -1, 1, apex, mgl64.Vec2{0.5, 0})                     // 2, coincident
	ts.AddVert(VertexEdge, 1, 0, mgl64.Vec3{0.25, 1, 0}, mgl64.Vec2{0.25, 1})   // 3
	ts.AddVert(VertexEdge, 2, 0, mgl64.Vec3{0.25, -1, 0}, mgl64.Vec2{0.25, -1}) // 4
	ts.AddVert(VertexEdge, 3, 0, mgl64.Vec3{1, 1, 0}, mgl64.Vec2{1, 1})         // 5
	ts.AddVert(VertexEdge, 4, 0, mgl64.Vec3{1, -1, 0}, mgl64.Vec2{1, -1})       // 6
	ts.AddTri(1, 2, 3)
	ts.AddTri(2, 1, 4)
	ts.AddTri(2, 5, 3)
	ts.AddTri(2, 6, 5)
	ts.AddTri(2, 4, 6)
	ts.AddSeg(3, 1)
	ts.AddSeg(1, 4)
	ts.AddSeg(4, 6)
	ts.AddSeg(6, 5)
	ts.AddSeg(5, 3)
	return ts
}

func TestTessellateDegenerateCollapse(t *testing.T) {
	ts := newDegenerateTess(t)
	ts.Dotnrm = 0.5
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	if len(ts.Tris) != 3 || len(ts.Verts) != 5 {
		t.Errorf("sweep should remove the degenerate pair: got %d tris %d verts",
			len(ts.Tris), len(ts.Verts))
	}
	if ts.Stats.Collapses != 1 {
		t.Errorf("expected 1 collapse, got %d", ts.Stats.Collapses)
	}
}

// newGridTess triangulates an n x n vertex grid on the unit square.
func newGridTess(t *testing.T, n int) *Tessellation {
	t.Helper()
	ts := NewTessellation(&brep.Face{Surface: brep.NewUnitPlane()})
	ts.Planar = true
	idx := func(i, j int) int { return 1 + j*n + i }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			uv := mgl64.Vec2{float64(i) / float64(n-1), float64(j) / float64(n-1)}
			typ := VertexFace
			if i == 0 || j == 0 || i == n-1 || j == n-1 {
				typ = VertexEdge
			}
			ts.AddVert(typ, 0, j*n+i, mgl64.Vec3{uv[0], uv[1], 0}, uv)
		}
	}
	for j := 0; j < n-1; j++ {
		for i := 0; i < n-1; i++ {
			a, b := idx(i, j), idx(i+1, j)
			c, d := idx(i+1, j+1), idx(i, j+1)
			ts.AddTri(a, b, c)
			ts.AddTri(a, c, d)
		}
	}
	for i := 0; i < n-1; i++ {
		ts.AddSeg(idx(i, 0), idx(i+1, 0))
		ts.AddSeg(idx(n-1, i), idx(n-1, i+1))
		ts.AddSeg(idx(i+1, n-1), idx(i, n-1))
		ts.AddSeg(idx(0, i+1), idx(0, i))
	}
	return ts
}

func TestTessellateBadStartPlanar(t *testing.T) {
	ts := newGridTess(t, 4)
	// Invert the corner triangle.
	ts.Tris[0].Indices[1], ts.Tris[0].Indices[2] =
		ts.Tris[0].Indices[2], ts.Tris[0].Indices[1]
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if !ts.BadStart {
		t.Error("inverted frame triangle should set BadStart")
	}
	if len(ts.Verts) != 16 || len(ts.Tris) != 18 {
		t.Error("bad-start planar face should come back unmodified")
	}
	if ts.Stats.Splits != 0 {
		t.Errorf("no splits expected, got %d", ts.Stats.Splits)
	}
}

func TestTessellateMinlenFloor(t *testing.T) {
	ts := NewTessellation(&brep.Face{Surface: &brep.Plane{
		XAxis:  mgl64.Vec3{1, 0, 0},
		YAxis:  mgl64.Vec3{0, 1, 0},
		Bounds: brep.Range{UMin: 0, UMax: 1, VMin: 0, VMax: 0.2},
	}})
	ts.Planar = true
	ts.Maxlen = 0.1
	ts.Minlen = 0.05
	uvs := []mgl64.Vec2{{0, 0}, {1, 0}, {1, 0.2}, {0, 0.2}}
	for i, uv := range uvs {
		ts.AddVert(VertexNode, i, 0, mgl64.Vec3{uv[0], uv[1], 0}, uv)
	}
	ts.AddTri(1, 2, 3)
	ts.AddTri(1, 3, 4)
	ts.AddSeg(1, 2)
	ts.AddSeg(2, 3)
	ts.AddSeg(3, 4)
	ts.AddSeg(4, 1)
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	if ts.Stats.Splits == 0 {
		t.Error("expected length-driven splits")
	}
	if short := minSideLen2(ts); short < 0.05*0.05-1e-9 {
		t.Errorf("edge shorter than minlen: sqrt(%g)", short)
	}
}

func TestTessellateQuadPath(t *testing.T) {
	ts := newSquareTess(t)
	ts.Maxlen = 0.5
	ts.UVs = []mgl64.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	ts.Lens = [4]int{1, 1, 1, 1}
	ts.Quadder = func(ts *Tessellation) ([]Vertex, [][3]int, error) {
		verts := append([]Vertex(nil), ts.Verts...)
		tris := make([][3]int, len(ts.Tris))
		for i := range ts.Tris {
			tris[i] = ts.Tris[i].Indices
		}
		return verts, tris, nil
	}
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatal(err)
	}
	// The quadder result short-circuits refinement entirely.
	if len(ts.Verts) != 4 || len(ts.Tris) != 2 {
		t.Errorf("quad path should return the quadder mesh, got %d verts %d tris",
			len(ts.Verts), len(ts.Tris))
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
}

func BenchmarkTessellateHemisphere(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		ts := newCapTess(b)
		ts.Chord = 0.05
		ts.Dotnrm = 0.9
		b.StartTimer()
		if err := ts.Tessellate(0, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSwapLoop(b *testing.B) {
	ts := newCapTess(b)
	ts.Chord = 0.05
	ts.Dotnrm = 0.9
	if err := ts.Tessellate(0, 0); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ts.swapTris(diagTest, 1.0)
	}
}

func TestTessellateOrCntBudget(t *testing.T) {
	// A long refinement that runs up orientation faults must still
	// return without error and leave a valid mesh: the fault counter
	// is the phase breaker, not an error.
	ts := newCapTess(t)
	ts.Chord = 0.02
	ts.Dotnrm = 0.95
	if err := ts.Tessellate(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
}
