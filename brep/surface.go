package brep

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Eval is the result of evaluating a parametric surface at a UV
// coordinate. The point and first derivatives are always filled in;
// second derivatives may be zero for surfaces that do not provide
// them, and consumers must not rely on their presence.
type Eval struct {
	Point mgl64.Vec3
	Du    mgl64.Vec3
	Dv    mgl64.Vec3
	Duu   mgl64.Vec3
	Duv   mgl64.Vec3
	Dvv   mgl64.Vec3
}

// Range describes the parameter rectangle of a surface patch.
type Range struct {
	UMin, UMax float64
	VMin, VMax float64

	// Periodic is true when the U direction wraps around,
	// e.g. for cylinders and spheres.
	Periodic bool
}

// Contains reports whether uv lies inside the rectangle, allowing a
// relative tolerance tol on each side. Periodic ranges never reject
// in U.
func (r Range) Contains(uv mgl64.Vec2, tol float64) bool {
	du := (r.UMax - r.UMin) * tol
	dv := (r.VMax - r.VMin) * tol
	if !r.Periodic {
		if uv[0] < r.UMin-du || uv[0] > r.UMax+du {
			return false
		}
	}
	return uv[1] >= r.VMin-dv && uv[1] <= r.VMax+dv
}

// A Surface is one parametric 2-manifold patch.
//
// Evaluate maps a UV coordinate to a point and derivatives. It
// returns ErrExtrapolated when the query lies outside the patch
// range, and ErrDegenerate when the surface cannot produce a finite
// result at the query.
//
// InvEvaluate maps a 3-space point to the closest UV coordinate and
// the corresponding on-surface point.
type Surface interface {
	Evaluate(uv mgl64.Vec2) (Eval, error)
	InvEvaluate(xyz mgl64.Vec3) (mgl64.Vec2, mgl64.Vec3, error)
	Range() Range
}

// A Face couples a surface with its index in the owning body.
// The tessellator treats the index as opaque.
type Face struct {
	Surface

	Index int
}
