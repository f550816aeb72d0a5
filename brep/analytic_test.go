package brep

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

// finite-difference check of the first derivatives.
func checkDerivs(t *testing.T, s Surface, uv mgl64.Vec2) {
	t.Helper()
	const h = 1e-6
	ev, err := s.Evaluate(uv)
	require.NoError(t, err)
	up, err := s.Evaluate(mgl64.Vec2{uv[0] + h, uv[1]})
	require.NoError(t, err)
	vp, err := s.Evaluate(mgl64.Vec2{uv[0], uv[1] + h})
	require.NoError(t, err)
	du := up.Point.Sub(ev.Point).Mul(1 / h)
	dv := vp.Point.Sub(ev.Point).Mul(1 / h)
	require.InDelta(t, 0, du.Sub(ev.Du).Len(), 1e-4, "Du mismatch at %v", uv)
	require.InDelta(t, 0, dv.Sub(ev.Dv).Len(), 1e-4, "Dv mismatch at %v", uv)
}

func TestPlane(t *testing.T) {
	p := NewUnitPlane()
	ev, err := p.Evaluate(mgl64.Vec2{0.25, 0.75})
	require.NoError(t, err)
	require.Equal(t, mgl64.Vec3{0.25, 0.75, 0}, ev.Point)
	checkDerivs(t, p, mgl64.Vec2{0.5, 0.5})

	uv, on, err := p.InvEvaluate(mgl64.Vec3{0.3, 0.4, 0})
	require.NoError(t, err)
	require.InDelta(t, 0.3, uv[0], 1e-12)
	require.InDelta(t, 0.4, uv[1], 1e-12)
	require.InDelta(t, 0, on.Sub(mgl64.Vec3{0.3, 0.4, 0}).Len(), 1e-12)

	_, err = p.Evaluate(mgl64.Vec2{2, 0})
	require.ErrorIs(t, err, ErrExtrapolated)
}

func TestSphere(t *testing.T) {
	s := &Sphere{Center: mgl64.Vec3{1, 2, 3}, Radius: 2}
	for _, uv := range []mgl64.Vec2{{0, 0}, {1, 0.5}, {-2, -0.7}} {
		ev, err := s.Evaluate(uv)
		require.NoError(t, err)
		require.InDelta(t, 2, ev.Point.Sub(s.Center).Len(), 1e-12)
		checkDerivs(t, s, uv)
	}
	uv, on, err := s.InvEvaluate(mgl64.Vec3{5, 2, 3})
	require.NoError(t, err)
	require.InDelta(t, 0, uv[0], 1e-12)
	require.InDelta(t, 0, uv[1], 1e-12)
	require.InDelta(t, 0, on.Sub(mgl64.Vec3{3, 2, 3}).Len(), 1e-12)

	_, _, err = s.InvEvaluate(s.Center)
	require.ErrorIs(t, err, ErrDegenerate)
}

func TestCylinder(t *testing.T) {
	c := &Cylinder{Radius: 1.5, VMin: -1, VMax: 1}
	ev, err := c.Evaluate(mgl64.Vec2{math.Pi / 2, 0.5})
	require.NoError(t, err)
	require.InDelta(t, 0, ev.Point.Sub(mgl64.Vec3{0, 1.5, 0.5}).Len(), 1e-12)
	checkDerivs(t, c, mgl64.Vec2{0.3, 0.1})

	uv, _, err := c.InvEvaluate(mgl64.Vec3{1.5, 0, 0.25})
	require.NoError(t, err)
	require.InDelta(t, 0, uv[0], 1e-12)
	require.InDelta(t, 0.25, uv[1], 1e-12)

	_, _, err = c.InvEvaluate(mgl64.Vec3{0, 0, 0.5})
	require.ErrorIs(t, err, ErrDegenerate)
}

func TestCone(t *testing.T) {
	c := &Cone{Slope: 0.5, VMax: 2}
	// The apex isoline: every u maps to the apex point.
	for _, u := range []float64{-3, 0, 2} {
		ev, err := c.Evaluate(mgl64.Vec2{u, 0})
		require.NoError(t, err)
		require.InDelta(t, 0, ev.Point.Sub(c.Apex).Len(), 1e-12)
	}
	checkDerivs(t, c, mgl64.Vec2{0.4, 1.0})

	uv, on, err := c.InvEvaluate(mgl64.Vec3{0.5, 0, 1})
	require.NoError(t, err)
	require.InDelta(t, 0, uv[0], 1e-12)
	require.InDelta(t, 1, uv[1], 1e-12)
	require.InDelta(t, 0, on.Sub(mgl64.Vec3{0.5, 0, 1}).Len(), 1e-12)
}

func TestRangeContains(t *testing.T) {
	r := Range{UMin: 0, UMax: 1, VMin: 0, VMax: 1}
	require.True(t, r.Contains(mgl64.Vec2{0.5, 0.5}, 1e-7))
	require.False(t, r.Contains(mgl64.Vec2{1.5, 0.5}, 1e-7))
	periodic := Range{UMin: -math.Pi, UMax: math.Pi, VMin: 0, VMax: 1, Periodic: true}
	require.True(t, periodic.Contains(mgl64.Vec2{10, 0.5}, 1e-7))
	require.False(t, periodic.Contains(mgl64.Vec2{0, 2}, 1e-7))
}
