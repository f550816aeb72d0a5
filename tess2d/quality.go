package tess2d

import (
	"log"
	"math"
)

const (
	// angTol is the minimum metric improvement a swap must deliver.
	angTol = 1e-6

	// maxAng rejects swaps that would leave a UV angle close to pi.
	maxAng = 3.13

	// cutAng is the UV-angle eligibility ceiling for centroid
	// insertion candidates.
	cutAng = 3.10

	// devAng is the UV-angle ceiling for chord-height splits.
	devAng = 2.65

	// swapRounds caps the iterations of one swap pass.
	swapRounds = 200
)

// quad resolves the four corners of the quadrilateral around side s
// of triangle t1: i0 the apex in t1, (i1, i2) the shared side in
// t1's order, i3 the apex in the neighbor.
func (ts *Tessellation) quad(t1i, s int) (i0, i1, i2, i3 int, ok bool) {
	t1 := ts.tri(t1i)
	t2i := t1.Neighbors[s]
	if t2i <= 0 {
		return 0, 0, 0, 0, false
	}
	t2 := ts.tri(t2i)
	i0 = t1.Indices[s]
	i1 = t1.Indices[(s+1)%3]
	i2 = t1.Indices[(s+2)%3]
	i3 = t2.Indices[0] + t2.Indices[1] + t2.Indices[2] - i1 - i2
	if i3 < 1 || i3 > len(ts.Verts) {
		return 0, 0, 0, 0, false
	}
	found := false
	for _, idx := range t2.Indices {
		if idx == i3 {
			found = true
		}
	}
	return i0, i1, i2, i3, found
}

// swapAreasOK verifies both post-swap UV areas against the face
// orientation without charging the fault counter.
func (ts *Tessellation) swapAreasOK(i0, i1, i2, i3 int) bool {
	or := float64(ts.OrUV)
	return or*area2d(ts.uv(i1), ts.uv(i3), ts.uv(i0)) > 0 &&
		or*area2d(ts.uv(i2), ts.uv(i0), ts.uv(i3)) > 0
}

// dihedralOK rejects swaps that would drop the dihedral dot across
// the new diagonal below the configured threshold. Planar faces are
// exempt.
func (ts *Tessellation) dihedralOK(i0, i1, i2, i3 int) bool {
	if ts.Planar {
		return true
	}
	newDot := dotNorm(ts.xyz(i1), ts.xyz(i3), ts.xyz(i0), ts.xyz(i2))
	return newDot >= ts.Dotnrm
}

// A swapTest decides whether swapping one interior side improves a
// quality metric, and can measure that metric over the whole mesh
// for the scheduler's accumulator.
type swapTest struct {
	name    string
	apply   func(ts *Tessellation, t1i, s int) bool
	measure func(ts *Tessellation) float64
}

// areaTest accepts a swap when the current quad has at least one
// UV-inverted half and the swap orients both halves correctly.
var areaTest = &swapTest{
	name: "area",
	apply: func(ts *Tessellation, t1i, s int) bool {
		i0, i1, i2, i3, ok := ts.quad(t1i, s)
		if !ok {
			return false
		}
		or := float64(ts.OrUV)
		a1 := area2d(ts.uv(i0), ts.uv(i1), ts.uv(i2))
		a2 := area2d(ts.uv(i3), ts.uv(i2), ts.uv(i1))
		if or*a1 > 0 && or*a2 > 0 {
			return false
		}
		return ts.swapAreasOK(i0, i1, i2, i3)
	},
	measure: func(ts *Tessellation) float64 {
		or := float64(ts.OrUV)
		worst := math.Inf(1)
		for ti := 1; ti <= len(ts.Tris); ti++ {
			worst = math.Min(worst, or*ts.uvArea(ti))
		}
		return worst
	},
}

// angUVTest accepts a swap that reduces the worst UV angle of the
// pair by more than angTol.
var angUVTest = &swapTest{
	name: "angUV",
	apply: func(ts *Tessellation, t1i, s int) bool {
		i0, i1, i2, i3, ok := ts.quad(t1i, s)
		if !ok || !ts.swapAreasOK(i0, i1, i2, i3) {
			return false
		}
		r := ts.vOverU
		cur := math.Max(
			maxUVangle(ts.uv(i0), ts.uv(i1), ts.uv(i2), r),
			maxUVangle(ts.uv(i3), ts.uv(i2), ts.uv(i1), r))
		next := math.Max(
			maxUVangle(ts.uv(i1), ts.uv(i3), ts.uv(i0), r),
			maxUVangle(ts.uv(i2), ts.uv(i0), ts.uv(i3), r))
		if next >= cur-angTol {
			return false
		}
		if !ts.dihedralOK(i0, i1, i2, i3) {
			return false
		}
		ts.Stats.Accum = math.Max(ts.Stats.Accum, next)
		return true
	},
	measure: func(ts *Tessellation) float64 {
		worst := 0.0
		for ti := 1; ti <= len(ts.Tris); ti++ {
			t := ts.tri(ti)
			worst = math.Max(worst, maxUVangle(
				ts.uv(t.Indices[0]), ts.uv(t.Indices[1]), ts.uv(t.Indices[2]),
				ts.vOverU))
		}
		return worst
	},
}

// angXYZTest accepts a swap that reduces the worst 3-space angle of
// the pair by more than angTol.
var angXYZTest = &swapTest{
	name: "angXYZ",
	apply: func(ts *Tessellation, t1i, s int) bool {
		i0, i1, i2, i3, ok := ts.quad(t1i, s)
		if !ok || !ts.swapAreasOK(i0, i1, i2, i3) {
			return false
		}
		cur := math.Max(
			maxXYZangle(ts.xyz(i0), ts.xyz(i1), ts.xyz(i2)),
			maxXYZangle(ts.xyz(i3), ts.xyz(i2), ts.xyz(i1)))
		next := math.Max(
			maxXYZangle(ts.xyz(i1), ts.xyz(i3), ts.xyz(i0)),
			maxXYZangle(ts.xyz(i2), ts.xyz(i0), ts.xyz(i3)))
		if next >= cur-angTol {
			return false
		}
		if !ts.dihedralOK(i0, i1, i2, i3) {
			return false
		}
		ts.Stats.Accum = math.Max(ts.Stats.Accum, next)
		return true
	},
	measure: func(ts *Tessellation) float64 {
		worst := 0.0
		for ti := 1; ti <= len(ts.Tris); ti++ {
			t := ts.tri(ti)
			worst = math.Max(worst, maxXYZangle(
				ts.xyz(t.Indices[0]), ts.xyz(t.Indices[1]), ts.xyz(t.Indices[2])))
		}
		return worst
	},
}

// diagTest accepts a swap that increases the dihedral dot across the
// diagonal, provided the swap leaves no UV angle above maxAng. It is
// a maximization: the accumulator tracks the minimum dot produced.
var diagTest = &swapTest{
	name: "diag",
	apply: func(ts *Tessellation, t1i, s int) bool {
		i0, i1, i2, i3, ok := ts.quad(t1i, s)
		if !ok || !ts.swapAreasOK(i0, i1, i2, i3) {
			return false
		}
		cur := dotNorm(ts.xyz(i0), ts.xyz(i1), ts.xyz(i2), ts.xyz(i3))
		next := dotNorm(ts.xyz(i1), ts.xyz(i3), ts.xyz(i0), ts.xyz(i2))
		if next <= cur+angTol {
			return false
		}
		r := ts.vOverU
		worstUV := math.Max(
			maxUVangle(ts.uv(i1), ts.uv(i3), ts.uv(i0), r),
			maxUVangle(ts.uv(i2), ts.uv(i0), ts.uv(i3), r))
		if worstUV > maxAng {
			return false
		}
		ts.Stats.Accum = math.Min(ts.Stats.Accum, next)
		return true
	},
	measure: func(ts *Tessellation) float64 {
		worst := 1.0
		for ti := 1; ti <= len(ts.Tris); ti++ {
			t := ts.tri(ti)
			for s := 0; s < 3; s++ {
				n := t.Neighbors[s]
				if n <= ti {
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
	},
}

// swapTris runs rounds of marked-side scans, swapping every side the
// test accepts, until a round performs no swaps or the round cap
// trips. Triangles untouched in a round are hit-marked clean and
// skipped until a nearby swap dirties them again. The final no-op
// scan leaves the test's metric in Stats.Accum.
func (ts *Tessellation) swapTris(test *swapTest, start float64) {
	ts.Stats.Accum = start
	// The fault counter gauges thrashing within one pass; each pass
	// starts clean so routine mark recomputation cannot starve a
	// later phase.
	ts.Stats.OrCnt = 0
	for i := range ts.Tris {
		ts.Tris[i].Hit = 0
	}
	n := len(ts.Tris)
	for round := 0; round < swapRounds; round++ {
		swaps := 0
		touched := make([]bool, n+1)
		for ti := 1; ti <= n; ti++ {
			t := ts.tri(ti)
			if t.Hit == 1 {
				continue
			}
			for s := 0; s < 3; s++ {
				if t.Mark&(1<<uint(s)) == 0 || t.Neighbors[s] <= 0 {
					continue
				}
				t2i := t.Neighbors[s]
				if !test.apply(ts, ti, s) {
					continue
				}
				if ts.swapEdge(ti, s) != nil {
					continue
				}
				swaps++
				for _, near := range [2]int{ti, t2i} {
					touched[near] = true
					for _, nb := range ts.tri(near).Neighbors {
						if nb > 0 && nb <= n {
							touched[nb] = true
						}
					}
				}
				break
			}
		}
		for ti := 1; ti <= n; ti++ {
			if touched[ti] {
				ts.tri(ti).Hit = 0
			} else {
				ts.tri(ti).Hit = 1
			}
		}
		if swaps == 0 || ts.Stats.OrCnt >= maxOrCnt {
			break
		}
	}
	ts.Stats.Accum = test.measure(ts)
	if ts.outLevel >= 2 {
		log.Printf("tess2d: face %d (%d) %s swap pass: %d swaps so far, accum %g",
			ts.FIndex, ts.tID, test.name, ts.Stats.Swaps, ts.Stats.Accum)
	}
}
