package tess2d

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/meshprim/surftri/brep"
)

// newQuadTess builds the two-triangle unit square used by most
// topology-op tests: vertices 1..4 counter-clockwise from the
// origin, the diagonal (1, 3) shared.
func newQuadTess(t *testing.T) *Tessellation {
	t.Helper()
	ts := NewTessellation(&brep.Face{Surface: brep.NewUnitPlane()})
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
	if err := ts.makeNeighbors(); err != nil {
		t.Fatalf("makeNeighbors: %v", err)
	}
	return ts
}

func triSet(tr *Triangle) map[int]bool {
	s := map[int]bool{}
	for _, idx := range tr.Indices {
		s[idx] = true
	}
	return s
}

func TestMakeNeighbors(t *testing.T) {
	ts := newQuadTess(t)
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	// The diagonal is the only interior side.
	interior := 0
	for ti := 1; ti <= 2; ti++ {
		for s := 0; s < 3; s++ {
			if ts.tri(ti).Neighbors[s] > 0 {
				interior++
			}
		}
	}
	if interior != 2 {
		t.Errorf("expected 2 interior side records, got %d", interior)
	}
	for si := 1; si <= 4; si++ {
		if ts.seg(si).Neighbor <= 0 {
			t.Errorf("segment %d has no owner", si)
		}
	}
}

func TestMakeNeighborsRejectsTripleSide(t *testing.T) {
	ts := newQuadTess(t)
	ts.AddTri(1, 3, 2)
	if err := ts.makeNeighbors(); err == nil {
		t.Fatal("a side shared by three triangles must be rejected")
	}
}

func TestSwapEdge(t *testing.T) {
	ts := newQuadTess(t)
	// Side 1 of triangle 1 is the diagonal (3, 1).
	if ts.tri(1).Neighbors[1] != 2 {
		t.Fatal("expected the diagonal on side 1")
	}
	if !ts.checkOr(1, 1) {
		t.Fatal("swap should be orientation-safe")
	}
	if err := ts.swapEdge(1, 1); err != nil {
		t.Fatalf("swapEdge: %v", err)
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	// The diagonal is now (2, 4): one triangle holds {3, 4, 2}, the
	// other {1, 2, 4}.
	s1 := triSet(ts.tri(1))
	s2 := triSet(ts.tri(2))
	if !(s1[2] && s1[3] && s1[4]) || !(s2[1] && s2[2] && s2[4]) {
		t.Errorf("unexpected triangles after swap: %v %v",
			ts.tri(1).Indices, ts.tri(2).Indices)
	}
	if ts.Stats.Swaps != 1 {
		t.Errorf("expected 1 swap recorded, got %d", ts.Stats.Swaps)
	}
}

func TestSwapEdgeBoundaryRejected(t *testing.T) {
	ts := newQuadTess(t)
	before := ts.tri(1).Indices
	if err := ts.swapEdge(1, 2); err == nil {
		t.Fatal("swapping a boundary side must fail")
	}
	if ts.tri(1).Indices != before {
		t.Error("failed swap must leave the mesh unchanged")
	}
}

func TestSplitTri(t *testing.T) {
	ts := newQuadTess(t)
	uv := mgl64.Vec2{0.6, 0.3}
	n, err := ts.splitTri(1, uv, mgl64.Vec3{0.6, 0.3, 0})
	if err != nil {
		t.Fatalf("splitTri: %v", err)
	}
	if n != 5 || len(ts.Verts) != 5 || len(ts.Tris) != 4 {
		t.Fatalf("expected vertex 5 and 4 triangles, got %d, %d verts, %d tris",
			n, len(ts.Verts), len(ts.Tris))
	}
	if ts.vert(n).Type != VertexFace {
		t.Error("inserted vertex should be face-interior")
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	// All three split triangles contain the new apex.
	for _, ti := range []int{1, 3, 4} {
		if !triSet(ts.tri(ti))[n] {
			t.Errorf("triangle %d should contain vertex %d", ti, n)
		}
	}
}

func TestSplitTriOutsideRejected(t *testing.T) {
	ts := newQuadTess(t)
	if _, err := ts.splitTri(1, mgl64.Vec2{0.1, 0.9}, mgl64.Vec3{0.1, 0.9, 0}); err == nil {
		t.Fatal("point outside the triangle must be rejected")
	}
	if len(ts.Tris) != 2 || len(ts.Verts) != 4 {
		t.Error("failed split must leave the mesh unchanged")
	}
}

func TestSplitSideInterior(t *testing.T) {
	ts := newQuadTess(t)
	n, err := ts.splitSide(1, 1)
	if err != nil {
		t.Fatalf("splitSide: %v", err)
	}
	if len(ts.Verts) != 5 || len(ts.Tris) != 4 {
		t.Fatalf("expected 5 verts and 4 tris, got %d and %d",
			len(ts.Verts), len(ts.Tris))
	}
	mid := ts.uv(n)
	if mid != (mgl64.Vec2{0.5, 0.5}) {
		t.Errorf("midpoint should be the parameter middle, got %v", mid)
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	// Every triangle now contains the midpoint vertex.
	for ti := 1; ti <= 4; ti++ {
		if !triSet(ts.tri(ti))[n] {
			t.Errorf("triangle %d should contain the midpoint", ti)
		}
	}
}

func TestSplitSideBoundary(t *testing.T) {
	ts := newQuadTess(t)
	// Side 2 of triangle 1 is the bottom boundary (1, 2).
	n, err := ts.splitSide(1, 2)
	if err != nil {
		t.Fatalf("splitSide: %v", err)
	}
	if len(ts.Tris) != 3 || len(ts.Segs) != 5 {
		t.Fatalf("expected 3 tris and 5 segs, got %d and %d",
			len(ts.Tris), len(ts.Segs))
	}
	if ts.vert(n).Type != VertexEdge {
		t.Error("boundary midpoint should be edge-typed")
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	// The two halves of the old segment both end at the new vertex.
	halves := 0
	for si := 1; si <= len(ts.Segs); si++ {
		sg := ts.seg(si)
		if sg.Indices[0] == n || sg.Indices[1] == n {
			halves++
			owner := sg.Neighbor
			if owner <= 0 || ts.sideFor(owner, sg.Indices[0], sg.Indices[1]) < 0 {
				t.Errorf("segment %d owner %d does not hold the side", si, owner)
			}
		}
	}
	if halves != 2 {
		t.Errorf("expected 2 half segments, got %d", halves)
	}
}

func TestSplitSideMinlenRejected(t *testing.T) {
	ts := newQuadTess(t)
	ts.Minlen = 2.0 // longer than any possible half
	if _, err := ts.splitSide(1, 1); err == nil {
		t.Fatal("split creating short halves must be rejected")
	}
	if len(ts.Tris) != 2 || len(ts.Verts) != 4 {
		t.Error("failed split must leave the mesh unchanged")
	}
}

func TestCollapseEdge(t *testing.T) {
	ts := newQuadTess(t)
	n, err := ts.splitTri(1, mgl64.Vec2{2.0 / 3, 1.0 / 3}, mgl64.Vec3{2.0 / 3, 1.0 / 3, 0})
	if err != nil {
		t.Fatalf("splitTri: %v", err)
	}
	if err := ts.collapseEdge(n, 1, false); err != nil {
		t.Fatalf("collapseEdge: %v", err)
	}
	if len(ts.Verts) != 4 || len(ts.Tris) != 2 {
		t.Fatalf("expected the original counts back, got %d verts %d tris",
			len(ts.Verts), len(ts.Tris))
	}
	if err := ts.Check(); err != nil {
		t.Fatal(err)
	}
	if ts.Stats.Collapses != 1 {
		t.Errorf("expected 1 collapse recorded, got %d", ts.Stats.Collapses)
	}
}

func TestCollapseEdgeBoundaryVertexRejected(t *testing.T) {
	ts := newQuadTess(t)
	if err := ts.collapseEdge(1, 2, false); err == nil {
		t.Fatal("collapsing a boundary vertex without the flag must fail")
	}
	if len(ts.Verts) != 4 || len(ts.Tris) != 2 {
		t.Error("failed collapse must leave the mesh unchanged")
	}
}

func TestFloodHit(t *testing.T) {
	ts := newQuadTess(t)
	if _, err := ts.splitTri(1, mgl64.Vec2{0.6, 0.3}, mgl64.Vec3{0.6, 0.3, 0}); err != nil {
		t.Fatal(err)
	}
	for i := range ts.Tris {
		ts.Tris[i].Hit = 0
	}
	ts.floodHit(1, 1)
	hit := 0
	for i := range ts.Tris {
		if ts.Tris[i].Hit != 0 {
			hit++
		}
	}
	if hit < 3 {
		t.Errorf("expected the split fan hit-marked, got %d", hit)
	}
}

func TestCloseToEdge(t *testing.T) {
	ts := newQuadTess(t)
	if !ts.closeToEdge(1, mgl64.Vec3{0.5, 0.01, 0}, closeDepth) {
		t.Error("point hugging the bottom boundary should be close")
	}
	if ts.closeToEdge(1, mgl64.Vec3{0.5, 0.4, 0}, 0) {
		t.Error("center point should not be close at depth 0")
	}
}
