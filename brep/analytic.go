package brep

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const rangeFuzz = 1e-7

// A Plane is the flat patch Origin + u*XAxis + v*YAxis over the UV
// rectangle given by Bounds.
type Plane struct {
	Origin mgl64.Vec3
	XAxis  mgl64.Vec3
	YAxis  mgl64.Vec3
	Bounds Range
}

// NewUnitPlane returns the unit square in the XY plane.
func NewUnitPlane() *Plane {
	return &Plane{
		XAxis:  mgl64.Vec3{1, 0, 0},
		YAxis:  mgl64.Vec3{0, 1, 0},
		Bounds: Range{UMin: 0, UMax: 1, VMin: 0, VMax: 1},
	}
}

func (p *Plane) Evaluate(uv mgl64.Vec2) (Eval, error) {
	if !p.Bounds.Contains(uv, rangeFuzz) {
		return Eval{}, ErrExtrapolated
	}
	return Eval{
		Point: p.Origin.Add(p.XAxis.Mul(uv[0])).Add(p.YAxis.Mul(uv[1])),
		Du:    p.XAxis,
		Dv:    p.YAxis,
	}, nil
}

func (p *Plane) InvEvaluate(xyz mgl64.Vec3) (mgl64.Vec2, mgl64.Vec3, error) {
	d := xyz.Sub(p.Origin)
	u := d.Dot(p.XAxis) / p.XAxis.Dot(p.XAxis)
	v := d.Dot(p.YAxis) / p.YAxis.Dot(p.YAxis)
	uv := mgl64.Vec2{u, v}
	ev, err := p.Evaluate(uv)
	if err != nil {
		return mgl64.Vec2{}, mgl64.Vec3{}, err
	}
	return uv, ev.Point, nil
}

func (p *Plane) Range() Range {
	return p.Bounds
}

// A Sphere is parameterized by longitude u in [-pi, pi] and latitude
// v in [-pi/2, pi/2].
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

func (s *Sphere) Evaluate(uv mgl64.Vec2) (Eval, error) {
	if !s.Range().Contains(uv, rangeFuzz) {
		return Eval{}, ErrExtrapolated
	}
	cu, su := math.Cos(uv[0]), math.Sin(uv[0])
	cv, sv := math.Cos(uv[1]), math.Sin(uv[1])
	r := s.Radius
	return Eval{
		Point: s.Center.Add(mgl64.Vec3{r * cv * cu, r * cv * su, r * sv}),
		Du:    mgl64.Vec3{-r * cv * su, r * cv * cu, 0},
		Dv:    mgl64.Vec3{-r * sv * cu, -r * sv * su, r * cv},
		Duu:   mgl64.Vec3{-r * cv * cu, -r * cv * su, 0},
		Duv:   mgl64.Vec3{r * sv * su, -r * sv * cu, 0},
		Dvv:   mgl64.Vec3{-r * cv * cu, -r * cv * su, -r * sv},
	}, nil
}

func (s *Sphere) InvEvaluate(xyz mgl64.Vec3) (mgl64.Vec2, mgl64.Vec3, error) {
	d := xyz.Sub(s.Center)
	if d.Len() == 0 {
		return mgl64.Vec2{}, mgl64.Vec3{}, ErrDegenerate
	}
	d = d.Normalize()
	v := math.Asin(math.Max(-1, math.Min(1, d[2])))
	u := math.Atan2(d[1], d[0])
	uv := mgl64.Vec2{u, v}
	return uv, s.Center.Add(d.Mul(s.Radius)), nil
}

func (s *Sphere) Range() Range {
	return Range{
		UMin: -math.Pi, UMax: math.Pi,
		VMin: -math.Pi / 2, VMax: math.Pi / 2,
		Periodic: true,
	}
}

// A Cylinder is the open tube of the given radius around the Z axis
// through Center: u is the angle, v the height along the axis.
type Cylinder struct {
	Center mgl64.Vec3
	Radius float64
	VMin   float64
	VMax   float64
}

func (c *Cylinder) Evaluate(uv mgl64.Vec2) (Eval, error) {
	if !c.Range().Contains(uv, rangeFuzz) {
		return Eval{}, ErrExtrapolated
	}
	cu, su := math.Cos(uv[0]), math.Sin(uv[0])
	r := c.Radius
	return Eval{
		Point: c.Center.Add(mgl64.Vec3{r * cu, r * su, uv[1]}),
		Du:    mgl64.Vec3{-r * su, r * cu, 0},
		Dv:    mgl64.Vec3{0, 0, 1},
		Duu:   mgl64.Vec3{-r * cu, -r * su, 0},
	}, nil
}

func (c *Cylinder) InvEvaluate(xyz mgl64.Vec3) (mgl64.Vec2, mgl64.Vec3, error) {
	d := xyz.Sub(c.Center)
	if d[0] == 0 && d[1] == 0 {
		return mgl64.Vec2{}, mgl64.Vec3{}, ErrDegenerate
	}
	u := math.Atan2(d[1], d[0])
	v := math.Max(c.VMin, math.Min(c.VMax, d[2]))
	uv := mgl64.Vec2{u, v}
	ev, err := c.Evaluate(uv)
	if err != nil {
		return mgl64.Vec2{}, mgl64.Vec3{}, err
	}
	return uv, ev.Point, nil
}

func (c *Cylinder) Range() Range {
	return Range{
		UMin: -math.Pi, UMax: math.Pi,
		VMin: c.VMin, VMax: c.VMax,
		Periodic: true,
	}
}

// A Cone has its apex at Apex and opens along +Z with the given
// half-angle slope: at height v the radius is v*Slope. The apex row
// v=0 is a degenerate isoline, which makes the cone the standard
// exercise for degenerate-node handling in the tessellator.
type Cone struct {
	Apex  mgl64.Vec3
	Slope float64
	VMax  float64
}

func (c *Cone) Evaluate(uv mgl64.Vec2) (Eval, error) {
	if !c.Range().Contains(uv, rangeFuzz) {
		return Eval{}, ErrExtrapolated
	}
	cu, su := math.Cos(uv[0]), math.Sin(uv[0])
	r := uv[1] * c.Slope
	return Eval{
		Point: c.Apex.Add(mgl64.Vec3{r * cu, r * su, uv[1]}),
		Du:    mgl64.Vec3{-r * su, r * cu, 0},
		Dv:    mgl64.Vec3{c.Slope * cu, c.Slope * su, 1},
		Duu:   mgl64.Vec3{-r * cu, -r * su, 0},
		Duv:   mgl64.Vec3{-c.Slope * su, c.Slope * cu, 0},
	}, nil
}

func (c *Cone) InvEvaluate(xyz mgl64.Vec3) (mgl64.Vec2, mgl64.Vec3, error) {
	d := xyz.Sub(c.Apex)
	v := math.Max(0, math.Min(c.VMax, d[2]))
	var u float64
	if d[0] != 0 || d[1] != 0 {
		u = math.Atan2(d[1], d[0])
	}
	uv := mgl64.Vec2{u, v}
	ev, err := c.Evaluate(uv)
	if err != nil {
		return mgl64.Vec2{}, mgl64.Vec3{}, err
	}
	return uv, ev.Point, nil
}

func (c *Cone) Range() Range {
	return Range{
		UMin: -math.Pi, UMax: math.Pi,
		VMin: 0, VMax: c.VMax,
		Periodic: true,
	}
}
