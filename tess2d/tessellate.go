package tess2d

import (
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/unixpickle/splaytree"
)

const (
	// oppositeDot flags per-vertex surface normals pointing in
	// opposing directions across a side.
	oppositeDot = -0.00001

	// breakDot is the facet-dot ceiling below which a triangle
	// qualifies for centroid insertion in the big-triangle phase.
	breakDot = -0.9

	// flipAreaRatio qualifies a triangle for centroid insertion
	// when an adjacent UV-flipped triangle is not negligibly small.
	flipAreaRatio = 0.001

	// sideDotFloor rejects centroid insertions that would fold a
	// new facet almost completely against an existing neighbor.
	sideDotFloor = -0.98

	// diagDone stops the big-triangle phase once the worst dihedral
	// dot climbs past it (30 degrees).
	diagDone = 0.866

	// stagnantRounds stops facet-normal refinement when neither the
	// accumulator nor the split count improves this many rounds.
	stagnantRounds = 6
)

// Tessellate refines the face's triangulation in place until it
// meets the configured quality criteria. The frame triangulation
// must already be stored: vertices, triangles, and the bounding
// segment loop; neighbor links are derived here.
//
// outLevel controls diagnostics (1: warnings, 2: phase progress)
// and tID tags log lines with the caller's face ordinal.
//
// Reaching MaxPts or the orientation fault cap terminates the
// schedule gracefully and is not an error: the mesh is left in the
// best valid state found.
func (ts *Tessellation) Tessellate(outLevel, tID int) error {
	if ts.OrUV != 1 && ts.OrUV != -1 {
		panic("OrUV must be +1 or -1")
	}
	if ts.Face == nil {
		panic("Tessellation requires a Face")
	}
	if len(ts.Verts) < 3 || len(ts.Tris) < 1 || len(ts.Segs) < 3 {
		panic("frame triangulation is incomplete")
	}
	ts.outLevel = outLevel
	ts.tID = tID
	ts.Stats = Stats{}

	if err := ts.makeNeighbors(); err != nil {
		return err
	}
	ts.deriveMetrics()
	ts.zeroAreaSweep()

	ts.markAllInterior()
	ts.swapTris(areaTest, 0.0)

	ts.captureFrame()

	if ts.UVs != nil && ts.Quadder != nil && ts.quadPath() {
		return nil
	}

	ts.seedMarks()
	or := float64(ts.OrUV)
	bad := 0
	for ti := 1; ti <= len(ts.Tris); ti++ {
		if or*ts.uvArea(ti) <= 0 {
			bad++
		}
	}
	ts.BadStart = bad > 0
	if ts.BadStart && outLevel >= 1 {
		log.Printf("tess2d: face %d (%d): %d frame triangles against orientation",
			ts.FIndex, tID, bad)
	}
	if ts.BadStart && !ts.Planar && len(ts.Tris) < 16 {
		return nil
	}

	if ts.Planar {
		ts.swapTris(angXYZTest, 0.0)
		if ts.Maxlen > 0 && !ts.BadStart {
			ts.splitLong(math.Max(ts.Maxlen*ts.Maxlen, math.Max(ts.devia2, ts.eps2)))
		}
		ts.report("planar")
		return nil
	}
	if ts.BadStart {
		ts.cleanup()
		ts.report("bad start")
		return nil
	}

	ts.splitOpposing()
	ts.report("phase X")
	if ts.Maxlen > 0 {
		ts.splitLong(math.Max(4*ts.Maxlen*ts.Maxlen, math.Max(ts.devia2, ts.eps2)))
		ts.report("phase 0")
	}
	ts.breakTri(-1)
	ts.report("phase A")
	ts.splitInter()
	ts.report("phase B")
	ts.midcache = newMidHash(2*len(ts.Tris) + 1)
	ts.breakTri(0)
	ts.midcache = nil
	ts.report("phase C")
	if ts.Maxlen > 0 {
		ts.splitLong(math.Max(ts.Maxlen*ts.Maxlen, math.Max(ts.devia2, ts.eps2)))
		ts.report("phase D")
	}
	ts.addFacetNorm()
	ts.report("phase 1")
	ts.addFacetDist()
	ts.report("phase 2")
	ts.cleanup()
	ts.report("phase 3")
	return nil
}

func (ts *Tessellation) report(phase string) {
	if ts.outLevel < 2 {
		return
	}
	log.Printf("tess2d: face %d (%d) %s: %d verts %d tris, %d splits %d swaps, accum %g",
		ts.FIndex, ts.tID, phase, len(ts.Verts), len(ts.Tris),
		ts.Stats.Splits, ts.Stats.Swaps, ts.Stats.Accum)
}

// atCap reports whether vertex growth reached the configured cap.
func (ts *Tessellation) atCap() bool {
	if ts.MaxPts > 0 {
		return len(ts.Verts) >= ts.MaxPts
	}
	if ts.MaxPts < 0 {
		return len(ts.Verts)-ts.NFrameVerts >= -ts.MaxPts
	}
	return false
}

// deriveMetrics sets the face's UV aspect ratio and the tolerances
// derived from the frame: devia2 the worst squared deviation of
// stored positions from the surface, eps2 a quarter of the smallest
// squared segment length, edist2 the squared mean segment length.
func (ts *Tessellation) deriveMetrics() {
	var sumDu, sumDv float64
	ts.devia2 = 0
	for i := range ts.Verts {
		v := &ts.Verts[i]
		ev, err := ts.Face.Evaluate(v.UV)
		ts.Stats.EvalCalls++
		if err != nil {
			continue
		}
		sumDu += ev.Du.Len()
		sumDv += ev.Dv.Len()
		d := ev.Point.Sub(v.XYZ)
		ts.devia2 = math.Max(ts.devia2, d.Dot(d))
	}
	ts.vOverU = 1
	if sumDu > 0 && sumDv > 0 {
		ts.vOverU = sumDv / sumDu
	}

	minLen2 := math.Inf(1)
	var sumLen float64
	for i := range ts.Segs {
		a := ts.xyz(ts.Segs[i].Indices[0])
		b := ts.xyz(ts.Segs[i].Indices[1])
		d := b.Sub(a)
		l2 := d.Dot(d)
		minLen2 = math.Min(minLen2, l2)
		sumLen += math.Sqrt(l2)
	}
	ts.eps2 = 0
	ts.edist2 = 0
	if len(ts.Segs) > 0 {
		ts.eps2 = minLen2 / 4
		mean := sumLen / float64(len(ts.Segs))
		ts.edist2 = mean * mean
	}
	if ts.Minlen > 0 {
		ts.eps2 = math.Max(ts.eps2, ts.Minlen*ts.Minlen)
	}
}

// zeroAreaSweep collapses frame triangles whose 3-space area is zero
// along a side joining two boundary vertices of the same origin,
// the shape left behind by degenerate edges such as a cone apex.
func (ts *Tessellation) zeroAreaSweep() {
	for ti := 1; ti <= len(ts.Tris); {
		n := ts.triNormal(ti)
		if n.Dot(n) > 0 {
			ti++
			continue
		}
		t := ts.tri(ti)
		collapsed := false
		for s := 0; s < 3; s++ {
			a := t.Indices[(s+1)%3]
			b := t.Indices[(s+2)%3]
			va, vb := ts.vert(a), ts.vert(b)
			if va.Type == VertexFace || vb.Type == VertexFace {
				continue
			}
			if va.Type != vb.Type || va.Edge != vb.Edge {
				continue
			}
			from, onto := a, b
			if vb.Type == VertexNode && va.Type != VertexNode {
				from, onto = a, b
			} else if va.Type == VertexNode && vb.Type != VertexNode {
				from, onto = b, a
			} else if a < b {
				from, onto = b, a
			}
			if ts.collapseEdge(from, onto, true) == nil {
				collapsed = true
				break
			}
		}
		if collapsed {
			ti = 1
		} else {
			ti++
		}
	}
}

func (ts *Tessellation) markAllInterior() {
	for ti := 1; ti <= len(ts.Tris); ti++ {
		t := ts.tri(ti)
		t.Mark = 0
		for s := 0; s < 3; s++ {
			if t.Neighbors[s] > 0 {
				t.Mark |= 1 << uint(s)
			}
		}
	}
}

func (ts *Tessellation) seedMarks() {
	for ti := 1; ti <= len(ts.Tris); ti++ {
		ts.setMark(ti)
	}
}

// quadPath offers the frame to the configured quadder and keeps its
// output when every resulting triangle's facet normal agrees with
// the surface normal at its centroid. Reports whether the quadder
// result was adopted.
func (ts *Tessellation) quadPath() bool {
	verts, tris, err := ts.Quadder(ts)
	if err != nil {
		return false
	}
	savedVerts, savedTris := ts.Verts, ts.Tris
	savedSegs := append([]Segment(nil), ts.Segs...)

	ts.Verts = verts
	ts.Tris = make([]Triangle, 0, len(tris))
	for _, idx := range tris {
		ts.addTri(Triangle{Indices: idx})
	}
	restore := func() bool {
		ts.Verts, ts.Tris, ts.Segs = savedVerts, savedTris, savedSegs
		return false
	}
	if ts.makeNeighbors() != nil {
		return restore()
	}
	for ti := 1; ti <= len(ts.Tris); ti++ {
		t := ts.tri(ti)
		uvc := ts.uv(t.Indices[0]).Add(ts.uv(t.Indices[1])).Add(ts.uv(t.Indices[2])).Mul(1.0 / 3)
		ev, err := ts.Face.Evaluate(uvc)
		ts.Stats.EvalCalls++
		if err != nil {
			return restore()
		}
		surf := ev.Du.Cross(ev.Dv).Mul(float64(ts.OrUV))
		if ts.triNormal(ti).Dot(surf) <= 0 {
			return restore()
		}
	}
	ts.seedMarks()
	return true
}

// vertNormal returns the unit surface normal at vertex i, extending
// the per-vertex scratch array on demand.
func (ts *Tessellation) vertNormal(i int) mgl64.Vec3 {
	for len(ts.normals) < len(ts.Verts) {
		j := len(ts.normals)
		ev, err := ts.Face.Evaluate(ts.Verts[j].UV)
		ts.Stats.EvalCalls++
		var n mgl64.Vec3
		if err == nil {
			n = ev.Du.Cross(ev.Dv)
			if l := n.Len(); l > 0 {
				n = n.Mul(1 / l)
			}
		}
		ts.normals = append(ts.normals, n)
	}
	return ts.normals[i-1]
}

// splitOpposing is the inter-edge phase: any triangle's longest
// interior side whose endpoint surface normals point opposite ways
// gets split, then angle and diagonal swaps rebalance the area.
func (ts *Tessellation) splitOpposing() {
	ts.normals = ts.normals[:0]
	for pass := 0; pass < swapRounds; pass++ {
		splits := 0
		n := len(ts.Tris)
		for ti := 1; ti <= n && !ts.atCap(); ti++ {
			t := ts.tri(ti)
			best, bl := -1, 0.0
			for s := 0; s < 3; s++ {
				if t.Neighbors[s] <= 0 {
					continue
				}
				i1 := t.Indices[(s+1)%3]
				i2 := t.Indices[(s+2)%3]
				if ts.vertNormal(i1).Dot(ts.vertNormal(i2)) >= oppositeDot {
					continue
				}
				if l2 := ts.sideLen2(ti, s); l2 > bl {
					best, bl = s, l2
				}
			}
			if best < 0 {
				continue
			}
			if _, err := ts.splitSide(ti, best); err == nil {
				splits++
			}
		}
		if splits == 0 {
			break
		}
		ts.swapTris(angUVTest, 0.0)
		ts.swapTris(diagTest, 1.0)
		if ts.atCap() || ts.Stats.OrCnt >= maxOrCnt {
			break
		}
	}
	ts.normals = nil
}

// splitLong repeatedly splits the longest side whose squared length
// exceeds limit2, swapping between iterations. It stops when no
// splittable side remains, growth is capped, or the swap passes
// report runaway angles.
func (ts *Tessellation) splitLong(limit2 float64) {
	rejected := map[sideKey]bool{}
	for !ts.atCap() && ts.Stats.OrCnt < maxOrCnt {
		best, bestSide, bl := 0, -1, limit2
		for ti := 1; ti <= len(ts.Tris); ti++ {
			t := ts.tri(ti)
			for s := 0; s < 3; s++ {
				if t.Neighbors[s] > 0 && t.Neighbors[s] < ti {
					continue
				}
				i1 := t.Indices[(s+1)%3]
				i2 := t.Indices[(s+2)%3]
				if rejected[newSideKey(i1, i2)] {
					continue
				}
				if l2 := ts.sideLen2(ti, s); l2 > bl {
					best, bestSide, bl = ti, s, l2
				}
			}
		}
		if best == 0 {
			break
		}
		t := ts.tri(best)
		key := newSideKey(t.Indices[(bestSide+1)%3], t.Indices[(bestSide+2)%3])
		if _, err := ts.splitSide(best, bestSide); err != nil {
			rejected[key] = true
			continue
		}
		ts.swapTris(angUVTest, 0.0)
		worstUV := ts.Stats.Accum
		ts.swapTris(diagTest, 1.0)
		if worstUV > maxAng && ts.Stats.Accum < 0 {
			break
		}
	}
}

// breakNode orders centroid-insertion candidates by 3-space area so
// the splay tree pops the largest eligible triangle first.
type breakNode struct {
	Area float64

	// UID breaks ties for equal areas.
	UID int

	Tri int
}

func (b *breakNode) Compare(other *breakNode) int {
	if b.Area < other.Area {
		return -1
	} else if b.Area > other.Area {
		return 1
	}
	if b.UID < other.UID {
		return -1
	} else if b.UID == other.UID {
		return 0
	}
	return 1
}

// breakEligible applies the shared candidate filter of the centroid
// insertion phases.
func (ts *Tessellation) breakEligible(ti int, mode int) (float64, bool) {
	t := ts.tri(ti)
	if t.Hit != 0 {
		return 0, false
	}
	r := ts.vOverU
	if maxUVangle(ts.uv(t.Indices[0]), ts.uv(t.Indices[1]), ts.uv(t.Indices[2]), r) > cutAng {
		return 0, false
	}
	n := ts.triNormal(ti)
	area2 := n.Dot(n)
	t.Area = area2
	if area2 <= 0 {
		return 0, false
	}
	interior := 0
	for s := 0; s < 3; s++ {
		if t.Neighbors[s] > 0 {
			interior++
		}
		if ts.sideLen2(ti, s) <= ts.eps2 {
			return 0, false
		}
	}
	if interior <= 1 {
		return 0, false
	}
	if mode == 0 {
		if _, _, ok := ts.midcache.find(t.Indices[0], t.Indices[1], t.Indices[2]); ok {
			return 0, false
		}
		return area2, true
	}
	minDot := 1.0
	flipped := false
	or := float64(ts.OrUV)
	myArea := math.Abs(ts.uvArea(ti))
	for s := 0; s < 3; s++ {
		nb := t.Neighbors[s]
		if nb <= 0 {
			continue
		}
		i0, i1, i2, i3, ok := ts.quad(ti, s)
		if !ok {
			continue
		}
		minDot = math.Min(minDot,
			dotNorm(ts.xyz(i0), ts.xyz(i1), ts.xyz(i2), ts.xyz(i3)))
		if or*ts.uvArea(nb) <= 0 && myArea > 0 &&
			math.Abs(ts.uvArea(nb))/myArea > flipAreaRatio {
			flipped = true
		}
	}
	if minDot > breakDot && !flipped {
		return 0, false
	}
	return area2, true
}

// breakTri inserts surface-evaluated centroids into the worst
// triangles. Mode -1 targets big folded triangles; mode 0 targets
// triangles whose centroid is not yet memoized in the midpoint
// cache. The split budget is local to one call.
func (ts *Tessellation) breakTri(mode int) {
	budget := len(ts.Tris)
	fuzz := 0.0001
	if mode == 0 {
		fuzz = 0.1
	}
	for budget > 0 {
		if ts.atCap() || ts.Stats.OrCnt >= maxOrCnt {
			return
		}
		for i := range ts.Tris {
			ts.Tris[i].Hit = 0
		}
		var uid int
		queue := &splaytree.Tree[*breakNode]{}
		for ti := 1; ti <= len(ts.Tris); ti++ {
			if area2, ok := ts.breakEligible(ti, mode); ok {
				uid++
				queue.Insert(&breakNode{Area: area2, UID: uid, Tri: ti})
			}
		}
		queued := uid
		splits := 0
		for budget > 0 && !ts.atCap() && queued > 0 {
			node := queue.Max()
			queue.Delete(node)
			queued--
			ti := node.Tri
			t := ts.tri(ti)
			if t.Hit != 0 {
				continue
			}
			i0, i1, i2 := t.Indices[0], t.Indices[1], t.Indices[2]
			uvc := ts.uv(i0).Add(ts.uv(i1)).Add(ts.uv(i2)).Mul(1.0 / 3)
			ev, err := ts.Face.Evaluate(uvc)
			ts.Stats.EvalCalls++
			if err != nil {
				continue
			}
			close := ts.closeToEdge(ti, ev.Point, closeDepth)
			if ts.midcache != nil {
				ts.midcache.add(i0, i1, i2, close, ev.Point)
			}
			t.Mid = ev.Point
			t.Close = close
			if close {
				continue
			}
			if !inTri(ts.xyz(i0), ts.xyz(i1), ts.xyz(i2), ev.Point, fuzz) {
				continue
			}
			fold := false
			for s := 0; s < 3 && !fold; s++ {
				nb := t.Neighbors[s]
				if nb <= 0 {
					continue
				}
				a := t.Indices[(s+1)%3]
				b := t.Indices[(s+2)%3]
				opp := ts.tri(nb).Indices[0] + ts.tri(nb).Indices[1] +
					ts.tri(nb).Indices[2] - a - b
				if opp < 1 || opp > len(ts.Verts) {
					continue
				}
				if dotNorm(ev.Point, ts.xyz(a), ts.xyz(b), ts.xyz(opp)) <= sideDotFloor {
					fold = true
				}
			}
			if fold {
				continue
			}
			if _, err := ts.splitTri(ti, uvc, ev.Point); err != nil {
				continue
			}
			splits++
			budget--
			ts.floodHit(ti, floodDepth)
		}
		if splits == 0 {
			return
		}
		ts.swapTris(angUVTest, 0.0)
		ts.swapTris(diagTest, 1.0)
		if ts.Stats.Accum > diagDone || ts.Stats.Accum <= -1.0 {
			return
		}
	}
}

// splitInter makes one pass splitting each triangle's longest
// interior side whose endpoints both lie in the face interior or
// carry opposing surface normals, then collapses away the vertices
// the pass left in locally flat spots.
func (ts *Tessellation) splitInter() {
	nv0 := len(ts.Verts)
	cap3 := 3 * len(ts.Tris)
	count := 0
	n := len(ts.Tris)
	for ti := 1; ti <= n && count < cap3 && !ts.atCap(); ti++ {
		t := ts.tri(ti)
		best, bl := -1, 0.0
		for s := 0; s < 3; s++ {
			if t.Neighbors[s] <= 0 {
				continue
			}
			i1 := t.Indices[(s+1)%3]
			i2 := t.Indices[(s+2)%3]
			inner := ts.vert(i1).Type == VertexFace && ts.vert(i2).Type == VertexFace
			if !inner && ts.vertNormal(i1).Dot(ts.vertNormal(i2)) >= oppositeDot {
				continue
			}
			// Sides already well under the boundary spacing carry
			// no curvature worth resolving here.
			if l2 := ts.sideLen2(ti, s); l2 > bl && l2 > ts.edist2/4 {
				best, bl = s, l2
			}
		}
		if best < 0 {
			continue
		}
		if _, err := ts.splitSide(ti, best); err == nil {
			count++
		}
	}
	ts.swapTris(angUVTest, 0.0)
	ts.swapTris(diagTest, 1.0)

	// Removal: a split vertex whose surrounding facets ended up
	// coplanar adds nothing; fold it back onto its closest ring
	// neighbor. Collapses compact the arrays, so walk downward.
	for v := len(ts.Verts); v > nv0; v-- {
		if ts.vert(v).Type != VertexFace {
			continue
		}
		flat := true
		nearest, bestD := 0, math.Inf(1)
		for ti := 1; ti <= len(ts.Tris) && flat; ti++ {
			t := ts.tri(ti)
			own := -1
			for k, idx := range t.Indices {
				if idx == v {
					own = k
				}
			}
			if own < 0 {
				continue
			}
			for s := 0; s < 3; s++ {
				nb := t.Neighbors[s]
				if nb <= 0 || nb < ti {
					continue
				}
				i0, i1, i2, i3, ok := ts.quad(ti, s)
				if !ok {
					continue
				}
				if i0 == v || i1 == v || i2 == v || i3 == v {
					if dotNorm(ts.xyz(i0), ts.xyz(i1), ts.xyz(i2), ts.xyz(i3)) < 0.999 {
						flat = false
						break
					}
				}
			}
			for _, idx := range t.Indices {
				if idx == v {
					continue
				}
				if d := ts.xyz(idx).Sub(ts.xyz(v)).Len(); d < bestD {
					nearest, bestD = idx, d
				}
			}
		}
		if flat && nearest > 0 {
			ts.normals = nil
			_ = ts.collapseEdge(v, nearest, false)
		}
	}
	ts.normals = nil
}

// addFacetNorm splits every triangle whose dihedral dot to a
// neighbor falls below the configured threshold, inserting at its
// cached UV centroid. The midpoint cache carries centroids across
// the interleaved swap passes.
func (ts *Tessellation) addFacetNorm() {
	if ts.Dotnrm <= 0 {
		return
	}
	ts.midcache = newMidHash(2*len(ts.Tris) + 1)
	defer func() { ts.midcache = nil }()

	prevAccum := -2.0
	prevSplits := 0
	stagnant := 0
	for round := 0; round < swapRounds; round++ {
		if ts.atCap() || ts.Stats.OrCnt >= maxOrCnt {
			return
		}
		splits := 0
		n := len(ts.Tris)
		for ti := 1; ti <= n && !ts.atCap(); ti++ {
			t := ts.tri(ti)
			minDot := 1.0
			for s := 0; s < 3; s++ {
				if t.Neighbors[s] <= 0 {
					continue
				}
				i0, i1, i2, i3, ok := ts.quad(ti, s)
				if !ok {
					continue
				}
				minDot = math.Min(minDot,
					dotNorm(ts.xyz(i0), ts.xyz(i1), ts.xyz(i2), ts.xyz(i3)))
			}
			if minDot >= ts.Dotnrm-angTol {
				continue
			}
			i0, i1, i2 := t.Indices[0], t.Indices[1], t.Indices[2]
			uvc := ts.uv(i0).Add(ts.uv(i1)).Add(ts.uv(i2)).Mul(1.0 / 3)
			_, mid, ok := ts.midcache.find(i0, i1, i2)
			if !ok {
				ev, err := ts.Face.Evaluate(uvc)
				ts.Stats.EvalCalls++
				if err != nil {
					continue
				}
				mid = ev.Point
				ts.midcache.add(i0, i1, i2,
					ts.closeToEdge(ti, mid, closeDepth), mid)
			}
			if !inTri(ts.xyz(i0), ts.xyz(i1), ts.xyz(i2), mid, 0.0001) {
				continue
			}
			if _, err := ts.splitTri(ti, uvc, mid); err == nil {
				splits++
			}
		}
		ts.swapTris(angUVTest, 0.0)
		ts.swapTris(diagTest, 1.0)
		if splits == 0 {
			return
		}
		if ts.Stats.Accum >= ts.Dotnrm-angTol {
			return
		}
		if ts.Stats.Accum <= prevAccum && splits <= prevSplits {
			stagnant++
			if stagnant >= stagnantRounds {
				return
			}
		} else {
			stagnant = 0
		}
		prevAccum, prevSplits = ts.Stats.Accum, splits
	}
}

// addFacetDist splits triangles whose 3-space centroid strays from
// the surface by more than the chord tolerance.
func (ts *Tessellation) addFacetDist() {
	thresh := math.Max(ts.Chord*ts.Chord, ts.devia2)
	if ts.Chord <= 0 || thresh <= 0 {
		return
	}
	for round := 0; round < swapRounds; round++ {
		if ts.atCap() || ts.Stats.OrCnt >= maxOrCnt {
			return
		}
		splits := 0
		n := len(ts.Tris)
		for ti := 1; ti <= n && !ts.atCap(); ti++ {
			t := ts.tri(ti)
			i0, i1, i2 := t.Indices[0], t.Indices[1], t.Indices[2]
			if maxUVangle(ts.uv(i0), ts.uv(i1), ts.uv(i2), ts.vOverU) > devAng {
				continue
			}
			short := false
			for s := 0; s < 3; s++ {
				if ts.sideLen2(ti, s) < thresh {
					short = true
				}
			}
			if short {
				continue
			}
			mid3 := ts.xyz(i0).Add(ts.xyz(i1)).Add(ts.xyz(i2)).Mul(1.0 / 3)
			uvc := ts.uv(i0).Add(ts.uv(i1)).Add(ts.uv(i2)).Mul(1.0 / 3)
			ev, err := ts.Face.Evaluate(uvc)
			ts.Stats.EvalCalls++
			if err != nil {
				continue
			}
			d := ev.Point.Sub(mid3)
			if d.Dot(d) <= thresh {
				continue
			}
			if !inTri(ts.xyz(i0), ts.xyz(i1), ts.xyz(i2), ev.Point, 0.1) {
				continue
			}
			fold := false
			for s := 0; s < 3 && !fold; s++ {
				q0, q1, q2, q3, ok := ts.quad(ti, s)
				if !ok {
					continue
				}
				if dotNorm(ts.xyz(q0), ts.xyz(q1), ts.xyz(q2), ts.xyz(q3)) < 0 {
					fold = true
				}
			}
			if fold {
				continue
			}
			if _, err := ts.splitTri(ti, uvc, ev.Point); err == nil {
				splits++
			}
		}
		if splits == 0 {
			return
		}
		ts.swapTris(angUVTest, 0.0)
		ts.swapTris(diagTest, 1.0)
	}
}

// cleanup runs the final swap passes.
func (ts *Tessellation) cleanup() {
	ts.swapTris(angUVTest, 0.0)
	ts.swapTris(diagTest, 1.0)
	if ts.Planar {
		ts.swapTris(angXYZTest, 0.0)
	}
}
