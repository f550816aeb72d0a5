package tess2d

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/iceisfun/gomesh/algorithm/robust"
	"github.com/iceisfun/gomesh/types"
)

// Containment states returned by inTriExact.
const (
	triInside = iota
	triOutside
	triDegenerate
)

// area2d is the signed parallelogram area of (a-c) x (b-c).
func area2d(a, b, c mgl64.Vec2) float64 {
	return (a[0]-c[0])*(b[1]-c[1]) - (a[1]-c[1])*(b[0]-c[0])
}

// orienTri is the sign of the robust 2-D orientation of (a, b, c):
// +1 counter-clockwise, -1 clockwise, 0 collinear.
func orienTri(a, b, c mgl64.Vec2) int {
	s := robust.Orient2D(
		types.Point{X: a[0], Y: a[1]},
		types.Point{X: b[0], Y: b[1]},
		types.Point{X: c[0], Y: c[1]},
	)
	if s > 0 {
		return 1
	} else if s < 0 {
		return -1
	}
	return 0
}

// inTriExact classifies p against triangle (t1, t2, t3) using robust
// orientation signs and fills w with normalized barycentric weights.
//
// Coincident sub-triangle signs mean inside; mixed signs outside; all
// three zero is degenerate. A point on an edge (one zero sign, others
// matching) counts as inside.
func inTriExact(t1, t2, t3, p mgl64.Vec2, w *[3]float64) int {
	s1 := orienTri(t2, t3, p)
	s2 := orienTri(t3, t1, p)
	s3 := orienTri(t1, t2, p)

	w[0] = area2d(t2, t3, p)
	w[1] = area2d(t3, t1, p)
	w[2] = area2d(t1, t2, p)
	sum := w[0] + w[1] + w[2]
	if sum != 0 {
		w[0] /= sum
		w[1] /= sum
		w[2] /= sum
	}

	if s1 == 0 && s2 == 0 && s3 == 0 {
		return triDegenerate
	}
	var pos, neg int
	for _, s := range [3]int{s1, s2, s3} {
		if s > 0 {
			pos++
		} else if s < 0 {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return triInside
	}
	return triOutside
}

// inTri projects q into the plane of the 3-space triangle
// (p0, p1, p2) using a Gram-Schmidt frame from two edges, computes
// barycentric weights there, and accepts only when every weight
// exceeds fuzz.
func inTri(p0, p1, p2, q mgl64.Vec3, fuzz float64) bool {
	e1 := p1.Sub(p0)
	l1 := e1.Len()
	if l1 == 0 {
		return false
	}
	e1 = e1.Mul(1 / l1)
	e2 := p2.Sub(p0)
	e2 = e2.Sub(e1.Mul(e1.Dot(e2)))
	l2 := e2.Len()
	if l2 == 0 {
		return false
	}
	e2 = e2.Mul(1 / l2)

	project := func(p mgl64.Vec3) mgl64.Vec2 {
		d := p.Sub(p0)
		return mgl64.Vec2{d.Dot(e1), d.Dot(e2)}
	}
	a := mgl64.Vec2{}
	b := project(p1)
	c := project(p2)
	x := project(q)

	total := area2d(a, b, c)
	if total == 0 {
		return false
	}
	w0 := area2d(b, c, x) / total
	w1 := area2d(c, a, x) / total
	w2 := area2d(a, b, x) / total
	return w0 > fuzz && w1 > fuzz && w2 > fuzz
}

// getIntersect is the squared distance from p2 to the infinite line
// through p0 and p1. It reports 1e40 when the foot of the
// perpendicular falls outside [-0.01, 1.01] of the segment and 1e20
// on degenerate input.
func getIntersect(p0, p1, p2 mgl64.Vec3) float64 {
	d := p1.Sub(p0)
	l2 := d.Dot(d)
	if l2 == 0 {
		return 1e20
	}
	t := p2.Sub(p0).Dot(d) / l2
	if t < -0.01 || t > 1.01 {
		return 1e40
	}
	foot := p0.Add(d.Mul(t))
	diff := p2.Sub(foot)
	return diff.Dot(diff)
}

// rayIntersect is the perpendicular distance from p2 to the segment
// p0-p1, normalized by the segment length; 100.0 for a zero-length
// segment.
func rayIntersect(p0, p1, p2 mgl64.Vec3) float64 {
	d := p1.Sub(p0)
	l2 := d.Dot(d)
	if l2 == 0 {
		return 100.0
	}
	return d.Cross(p2.Sub(p0)).Len() / l2
}

// dotNorm is the dot product of the unit face normals of triangles
// (p0, p1, p2) and (p3, p2, p1); 1.0 when either is degenerate.
func dotNorm(p0, p1, p2, p3 mgl64.Vec3) float64 {
	n1 := p1.Sub(p0).Cross(p2.Sub(p0))
	l1 := n1.Len()
	if l1 == 0 {
		return 1.0
	}
	n2 := p2.Sub(p3).Cross(p1.Sub(p3))
	l2 := n2.Len()
	if l2 == 0 {
		return 1.0
	}
	return n1.Dot(n2) / (l1 * l2)
}

// maxXYZangle is the maximum interior angle, in radians, of the
// 3-space triangle (p0, p1, p2).
func maxXYZangle(p0, p1, p2 mgl64.Vec3) float64 {
	worst := 0.0
	pts := [3]mgl64.Vec3{p0, p1, p2}
	for i := 0; i < 3; i++ {
		a := pts[(i+1)%3].Sub(pts[i])
		b := pts[(i+2)%3].Sub(pts[i])
		la, lb := a.Len(), b.Len()
		if la == 0 || lb == 0 {
			return math.Pi
		}
		ang := math.Acos(math.Max(-1, math.Min(1, a.Dot(b)/(la*lb))))
		if ang > worst {
			worst = ang
		}
	}
	return worst
}

// maxUVangle is the maximum interior angle of the parameter-space
// triangle (p0, p1, p2) with the V coordinate scaled by vOverU to
// account for the face's average metric.
func maxUVangle(p0, p1, p2 mgl64.Vec2, vOverU float64) float64 {
	worst := 0.0
	pts := [3]mgl64.Vec2{p0, p1, p2}
	for i := range pts {
		pts[i][1] *= vOverU
	}
	for i := 0; i < 3; i++ {
		a := pts[(i+1)%3].Sub(pts[i])
		b := pts[(i+2)%3].Sub(pts[i])
		la, lb := a.Len(), b.Len()
		if la == 0 || lb == 0 {
			return math.Pi
		}
		ang := math.Acos(math.Max(-1, math.Min(1, a.Dot(b)/(la*lb))))
		if ang > worst {
			worst = ang
		}
	}
	return worst
}
