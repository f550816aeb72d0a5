package tess2d

import (
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// maxOrCnt bounds the orientation faults tolerated before the
	// scheduler abandons its current phase.
	maxOrCnt = 500

	// closeRatio is the normalized ray distance under which a
	// centroid counts as close to a boundary segment.
	closeRatio = 0.25

	// floodDepth is the neighborhood radius hit-marked around a
	// fresh split so nearby triangles are skipped within a pass.
	floodDepth = 6

	// closeDepth is the neighbor-hop radius searched for boundary
	// segments near a candidate centroid.
	closeDepth = 4
)

// checkOr reports whether swapping side s of triangle t1 yields two
// triangles whose signed UV areas both match the face orientation.
// A mismatch increments the orientation fault counter.
func (ts *Tessellation) checkOr(t1i, s int) bool {
	t1 := ts.tri(t1i)
	t2i := t1.Neighbors[s]
	if t2i <= 0 {
		return false
	}
	t2 := ts.tri(t2i)
	i0 := t1.Indices[s]
	i1 := t1.Indices[(s+1)%3]
	i2 := t1.Indices[(s+2)%3]
	i3 := t2.Indices[0] + t2.Indices[1] + t2.Indices[2] - i1 - i2
	if i3 < 1 || i3 > len(ts.Verts) {
		return false
	}
	or := float64(ts.OrUV)
	a1 := area2d(ts.uv(i1), ts.uv(i3), ts.uv(i0))
	a2 := area2d(ts.uv(i2), ts.uv(i0), ts.uv(i3))
	if or*a1 > 0 && or*a2 > 0 {
		return true
	}
	ts.Stats.OrCnt++
	return false
}

// setMark recomputes the swap-candidate bits for triangle t.
func (ts *Tessellation) setMark(ti int) {
	t := ts.tri(ti)
	t.Mark = 0
	for s := 0; s < 3; s++ {
		if t.Neighbors[s] <= 0 {
			continue
		}
		if ts.checkOr(ti, s) {
			t.Mark |= 1 << uint(s)
		}
	}
}

// patchOuter redirects the link that n holds across side {a, b}
// toward owner. A non-positive n names a boundary segment.
func (ts *Tessellation) patchOuter(n, a, b, owner int) {
	if n > 0 {
		if s := ts.sideFor(n, a, b); s >= 0 {
			ts.tri(n).Neighbors[s] = owner
		}
	} else if n < 0 {
		ts.seg(-n).Neighbor = owner
	}
}

// swapEdge replaces the shared side s of t1 and its neighbor with
// the opposite diagonal of their quad, rewiring all six outer links
// and refreshing swap marks on the touched triangles.
func (ts *Tessellation) swapEdge(t1i, s int) error {
	t1 := ts.tri(t1i)
	t2i := t1.Neighbors[s]
	if t2i <= 0 {
		return ErrDegenerate
	}
	t2 := ts.tri(t2i)

	i0 := t1.Indices[s]
	i1 := t1.Indices[(s+1)%3]
	i2 := t1.Indices[(s+2)%3]
	i3 := t2.Indices[0] + t2.Indices[1] + t2.Indices[2] - i1 - i2
	if i3 < 1 || i3 > len(ts.Verts) {
		return ErrIndex
	}
	s2 := -1
	for k := 0; k < 3; k++ {
		if t2.Indices[k] == i3 {
			s2 = k
		}
	}
	if s2 < 0 || t2.Neighbors[s2] != t1i {
		return ErrIndex
	}

	nA := t1.Neighbors[(s+2)%3] // across (i0, i1)
	nB := t1.Neighbors[(s+1)%3] // across (i0, i2)
	sD := ts.sideFor(t2i, i1, i3)
	sC := ts.sideFor(t2i, i2, i3)
	if sC < 0 || sD < 0 {
		return ErrIndex
	}
	nD := t2.Neighbors[sD]
	nC := t2.Neighbors[sC]

	t1.Indices = [3]int{i1, i3, i0}
	t1.Neighbors = [3]int{t2i, nA, nD}
	t2.Indices = [3]int{i2, i0, i3}
	t2.Neighbors = [3]int{t1i, nC, nB}

	ts.patchOuter(nD, i1, i3, t1i)
	ts.patchOuter(nB, i0, i2, t2i)

	ts.Stats.Swaps++
	t1.Count++
	t2.Count++
	ts.setMark(t1i)
	ts.setMark(t2i)
	for _, n := range [4]int{nA, nB, nC, nD} {
		if n > 0 {
			ts.setMark(n)
		}
	}
	return nil
}

// splitTri inserts a new face-interior vertex at (uv, xyz) and
// replaces triangle t with three triangles sharing the new apex.
func (ts *Tessellation) splitTri(ti int, uv mgl64.Vec2, xyz mgl64.Vec3) (int, error) {
	t := ts.tri(ti)
	v0, v1, v2 := t.Indices[0], t.Indices[1], t.Indices[2]
	m0, m1, m2 := t.Neighbors[0], t.Neighbors[1], t.Neighbors[2]

	or := float64(ts.OrUV)
	u0, u1, u2 := ts.uv(v0), ts.uv(v1), ts.uv(v2)
	if or*area2d(u0, u1, uv) <= 0 ||
		or*area2d(u1, u2, uv) <= 0 ||
		or*area2d(u2, u0, uv) <= 0 {
		return 0, ErrDegenerate
	}

	n := ts.AddVert(VertexFace, 0, 0, xyz, uv)
	tb := ts.addTri(Triangle{Indices: [3]int{v1, v2, n}})
	tc := ts.addTri(Triangle{Indices: [3]int{v2, v0, n}})
	t = ts.tri(ti) // addTri may have re-allocated

	t.Indices = [3]int{v0, v1, n}
	t.Neighbors = [3]int{tb, tc, m2}
	ts.tri(tb).Neighbors = [3]int{tc, ti, m0}
	ts.tri(tc).Neighbors = [3]int{ti, tb, m1}

	ts.patchOuter(m0, v1, v2, tb)
	ts.patchOuter(m1, v2, v0, tc)

	ts.Stats.Splits++
	ts.setMark(ti)
	ts.setMark(tb)
	ts.setMark(tc)
	for _, m := range [3]int{m0, m1, m2} {
		if m > 0 {
			ts.setMark(m)
		}
	}
	return n, nil
}

// sideMidVertex computes the split point for the side (i1, i2). The
// parameter midpoint is evaluated unless either endpoint is a
// degenerate node, in which case the Euclidean midpoint is inverted
// onto the surface with a parameter-midpoint fallback.
func (ts *Tessellation) sideMidVertex(i1, i2 int) (mgl64.Vec2, mgl64.Vec3, error) {
	v1, v2 := ts.vert(i1), ts.vert(i2)
	degen := (v1.Type == VertexNode && v1.Edge < 0) ||
		(v2.Type == VertexNode && v2.Edge < 0)
	if degen {
		mid3 := v1.XYZ.Add(v2.XYZ).Mul(0.5)
		uv, p, err := ts.Face.InvEvaluate(mid3)
		ts.Stats.EvalCalls++
		if err == nil {
			return uv, p, nil
		}
	}
	uv := v1.UV.Add(v2.UV).Mul(0.5)
	ev, err := ts.Face.Evaluate(uv)
	ts.Stats.EvalCalls++
	if err != nil {
		return mgl64.Vec2{}, mgl64.Vec3{}, err
	}
	return uv, ev.Point, nil
}

// splitOK applies the minimum-edge rules to a proposed midpoint.
func (ts *Tessellation) splitOK(i1, i2 int, mid mgl64.Vec3) bool {
	x1, x2 := ts.xyz(i1), ts.xyz(i2)
	orig := x2.Sub(x1).Len()
	l1 := mid.Sub(x1).Len()
	l2 := mid.Sub(x2).Len()
	if l1 < orig/8 || l2 < orig/8 {
		return false
	}
	if ts.Minlen > 0 && (l1 < ts.Minlen || l2 < ts.Minlen) {
		return false
	}
	return true
}

// splitSide inserts a vertex at the midpoint of side s of t1. An
// interior side produces four triangles, a boundary side two (and
// splits the underlying segment). Returns the new vertex index.
func (ts *Tessellation) splitSide(t1i, s int) (int, error) {
	t1 := ts.tri(t1i)
	i0 := t1.Indices[s]
	i1 := t1.Indices[(s+1)%3]
	i2 := t1.Indices[(s+2)%3]
	t2i := t1.Neighbors[s]

	uv, xyz, err := ts.sideMidVertex(i1, i2)
	if err != nil {
		return 0, err
	}
	if !ts.splitOK(i1, i2, xyz) {
		return 0, ErrRange
	}

	or := float64(ts.OrUV)
	ok := func(mid mgl64.Vec2) bool {
		if or*area2d(ts.uv(i0), ts.uv(i1), mid) <= 0 ||
			or*area2d(ts.uv(i0), mid, ts.uv(i2)) <= 0 {
			return false
		}
		if t2i <= 0 {
			return true
		}
		t2 := ts.tri(t2i)
		i3 := t2.Indices[0] + t2.Indices[1] + t2.Indices[2] - i1 - i2
		return or*area2d(ts.uv(i3), ts.uv(i2), mid) > 0 &&
			or*area2d(ts.uv(i3), mid, ts.uv(i1)) > 0
	}
	if !ok(uv) {
		// The inverse-evaluated midpoint of a degenerate side can
		// land outside the quad; retry at the parameter midpoint.
		uv = ts.uv(i1).Add(ts.uv(i2)).Mul(0.5)
		ev, err := ts.Face.Evaluate(uv)
		ts.Stats.EvalCalls++
		if err != nil {
			return 0, err
		}
		xyz = ev.Point
		if !ok(uv) || !ts.splitOK(i1, i2, xyz) {
			return 0, ErrDegenerate
		}
	}

	if ts.Minlen > 0 && xyz.Sub(ts.xyz(i0)).Len() < ts.Minlen {
		return 0, ErrRange
	}
	if t2i <= 0 {
		return ts.splitBoundarySide(t1i, s, uv, xyz)
	}

	t2 := ts.tri(t2i)
	i3 := t2.Indices[0] + t2.Indices[1] + t2.Indices[2] - i1 - i2
	if i3 < 1 || i3 > len(ts.Verts) {
		return 0, ErrIndex
	}
	if ts.Minlen > 0 && xyz.Sub(ts.xyz(i3)).Len() < ts.Minlen {
		return 0, ErrRange
	}
	sD := ts.sideFor(t2i, i1, i3)
	sC := ts.sideFor(t2i, i2, i3)
	if sC < 0 || sD < 0 {
		return 0, ErrIndex
	}
	nA := t1.Neighbors[(s+2)%3] // across (i0, i1)
	nB := t1.Neighbors[(s+1)%3] // across (i0, i2)
	nD := t2.Neighbors[sD]      // across (i1, i3)
	nC := t2.Neighbors[sC]      // across (i2, i3)

	m := ts.AddVert(VertexFace, 0, 0, xyz, uv)
	t3 := ts.addTri(Triangle{Indices: [3]int{i0, m, i2}})
	t4 := ts.addTri(Triangle{Indices: [3]int{i3, m, i1}})
	t1 = ts.tri(t1i)
	t2 = ts.tri(t2i)

	t1.Indices = [3]int{i0, i1, m}
	t1.Neighbors = [3]int{t4, t3, nA}
	t2.Indices = [3]int{i3, i2, m}
	t2.Neighbors = [3]int{t3, t4, nC}
	ts.tri(t3).Neighbors = [3]int{t2i, nB, t1i}
	ts.tri(t4).Neighbors = [3]int{t1i, nD, t2i}

	ts.patchOuter(nB, i0, i2, t3)
	ts.patchOuter(nD, i1, i3, t4)

	ts.Stats.Splits++
	for _, t := range [4]int{t1i, t2i, t3, t4} {
		ts.setMark(t)
	}
	for _, n := range [4]int{nA, nB, nC, nD} {
		if n > 0 {
			ts.setMark(n)
		}
	}
	return m, nil
}

// splitBoundarySide splits side s of t1 lying on a segment, cutting
// both the triangle and the segment in two.
func (ts *Tessellation) splitBoundarySide(t1i, s int, uv mgl64.Vec2, xyz mgl64.Vec3) (int, error) {
	t1 := ts.tri(t1i)
	i0 := t1.Indices[s]
	i1 := t1.Indices[(s+1)%3]
	i2 := t1.Indices[(s+2)%3]
	si := -t1.Neighbors[s]
	if si <= 0 || si > len(ts.Segs) {
		return 0, ErrIndex
	}
	nA := t1.Neighbors[(s+2)%3] // across (i0, i1)
	nB := t1.Neighbors[(s+1)%3] // across (i0, i2)

	m := ts.AddVert(VertexEdge, si, -1, xyz, uv)
	t3 := ts.addTri(Triangle{Indices: [3]int{i0, m, i2}})
	t1 = ts.tri(t1i)

	// Split the segment, preserving its stored orientation.
	sg := ts.seg(si)
	var snew int
	if sg.Indices[0] == i1 {
		sg.Indices = [2]int{i1, m}
		snew = ts.AddSeg(m, i2)
	} else {
		sg.Indices = [2]int{m, i1}
		snew = ts.AddSeg(i2, m)
	}
	sg = ts.seg(si)
	sg.Neighbor = t1i
	ts.seg(snew).Neighbor = t3

	t1.Indices = [3]int{i0, i1, m}
	t1.Neighbors = [3]int{-si, t3, nA}
	ts.tri(t3).Neighbors = [3]int{-snew, nB, t1i}

	ts.patchOuter(nB, i0, i2, t3)

	ts.Stats.Splits++
	ts.setMark(t1i)
	ts.setMark(t3)
	for _, n := range [2]int{nA, nB} {
		if n > 0 {
			ts.setMark(n)
		}
	}
	return m, nil
}

// collapseEdge merges vertex from into onto along their shared edge,
// removing the one or two triangles that contain the edge. With
// boundary false the vertex must be face-interior; true also allows
// boundary collapses (used by the zero-area sweep).
//
// On success the arrays are compacted: removed triangles and the
// removed vertex are swapped to the end and the slices shrunk, with
// every surviving link rewritten in the same step.
func (ts *Tessellation) collapseEdge(from, onto int, boundary bool) error {
	if from == onto {
		return ErrDegenerate
	}
	if !boundary && ts.vert(from).Type != VertexFace {
		return ErrDegenerate
	}

	var star, shared []int
	for ti := 1; ti <= len(ts.Tris); ti++ {
		t := ts.tri(ti)
		hasFrom, hasOnto := false, false
		for _, idx := range t.Indices {
			if idx == from {
				hasFrom = true
			} else if idx == onto {
				hasOnto = true
			}
		}
		if !hasFrom {
			continue
		}
		if hasOnto {
			shared = append(shared, ti)
		} else {
			star = append(star, ti)
		}
	}
	if len(shared) == 0 || len(shared) > 2 {
		return ErrDegenerate
	}

	// The retargeted star must keep a consistent orientation, unless
	// the collapse removes an exactly degenerate side (from and onto
	// coincident in UV), where zero areas are tolerated.
	or := float64(ts.OrUV)
	coincident := ts.uv(from) == ts.uv(onto)
	for _, ti := range star {
		t := ts.tri(ti)
		var uvs [3]mgl64.Vec2
		for k, idx := range t.Indices {
			if idx == from {
				idx = onto
			}
			uvs[k] = ts.uv(idx)
		}
		a := area2d(uvs[0], uvs[1], uvs[2])
		if or*a < 0 || (or*a == 0 && !coincident) {
			return ErrDegenerate
		}
	}

	// Splice each removed triangle's two outer neighbors together.
	type splice struct{ nIn, nOut int }
	splices := make([]splice, 0, 2)
	for _, ti := range shared {
		t := ts.tri(ti)
		w := t.Indices[0] + t.Indices[1] + t.Indices[2] - from - onto
		sIn := ts.sideFor(ti, from, w)
		sOut := ts.sideFor(ti, onto, w)
		if sIn < 0 || sOut < 0 {
			return ErrIndex
		}
		nIn, nOut := t.Neighbors[sIn], t.Neighbors[sOut]
		if nIn <= 0 && nOut <= 0 {
			return ErrDegenerate
		}
		splices = append(splices, splice{nIn, nOut})
	}
	for i, ti := range shared {
		t := ts.tri(ti)
		w := t.Indices[0] + t.Indices[1] + t.Indices[2] - from - onto
		nIn, nOut := splices[i].nIn, splices[i].nOut
		if nIn > 0 {
			if sn := ts.sideFor(nIn, from, w); sn >= 0 {
				ts.tri(nIn).Neighbors[sn] = nOut
			}
		} else if nIn < 0 {
			ts.seg(-nIn).Neighbor = nOut
		}
		if nOut > 0 {
			if sn := ts.sideFor(nOut, onto, w); sn >= 0 {
				ts.tri(nOut).Neighbors[sn] = nIn
			}
		} else if nOut < 0 {
			ts.seg(-nOut).Neighbor = nIn
		}
	}

	// Retarget surviving triangles and segments onto the kept vertex.
	for _, ti := range star {
		t := ts.tri(ti)
		for k := range t.Indices {
			if t.Indices[k] == from {
				t.Indices[k] = onto
			}
		}
	}
	for i := range ts.Segs {
		for k := range ts.Segs[i].Indices {
			if ts.Segs[i].Indices[k] == from {
				ts.Segs[i].Indices[k] = onto
			}
		}
	}

	// Compact the triangle array, largest slot first.
	if len(shared) == 2 && shared[0] < shared[1] {
		shared[0], shared[1] = shared[1], shared[0]
	}
	for _, ti := range shared {
		last := len(ts.Tris)
		if ti != last {
			ts.Tris[ti-1] = ts.Tris[last-1]
			ts.relink(ti)
		}
		ts.Tris = ts.Tris[:last-1]
	}

	// Compact the vertex array.
	last := len(ts.Verts)
	if from != last {
		ts.Verts[from-1] = ts.Verts[last-1]
		for i := range ts.Tris {
			for k := range ts.Tris[i].Indices {
				if ts.Tris[i].Indices[k] == last {
					ts.Tris[i].Indices[k] = from
				}
			}
		}
		for i := range ts.Segs {
			for k := range ts.Segs[i].Indices {
				if ts.Segs[i].Indices[k] == last {
					ts.Segs[i].Indices[k] = from
				}
			}
		}
	}
	ts.Verts = ts.Verts[:last-1]

	ts.Stats.Collapses++
	target := onto
	if target == last {
		target = from
	}
	for ti := 1; ti <= len(ts.Tris); ti++ {
		for _, idx := range ts.tri(ti).Indices {
			if idx == target {
				ts.setMark(ti)
				break
			}
		}
	}
	return nil
}

// floodHit marks t and its neighborhood out to the given depth so a
// pass does not immediately revisit the area around a fresh edit.
func (ts *Tessellation) floodHit(ti, depth int) {
	ts.tri(ti).Hit = 1
	if depth == 0 {
		return
	}
	for _, n := range ts.tri(ti).Neighbors {
		if n > 0 {
			ts.floodHit(n, depth-1)
		}
	}
}

// closeToEdge reports whether p lies within closeRatio of a boundary
// segment reachable from t in at most depth neighbor hops.
func (ts *Tessellation) closeToEdge(ti int, p mgl64.Vec3, depth int) bool {
	t := ts.tri(ti)
	for s := 0; s < 3; s++ {
		n := t.Neighbors[s]
		if n <= 0 {
			a := ts.xyz(t.Indices[(s+1)%3])
			b := ts.xyz(t.Indices[(s+2)%3])
			if rayIntersect(a, b, p) < closeRatio {
				return true
			}
		}
	}
	if depth == 0 {
		return false
	}
	for _, n := range t.Neighbors {
		if n > 0 && ts.closeToEdge(n, p, depth-1) {
			return true
		}
	}
	return false
}
