package types

import "github.com/chewxy/math32"

// A ray with a valid parametric interval [TMin, TMax]. Rays are values;
// operations that change a ray return a new one.
type Ray struct {
	Origin Vec3
	Dir    Vec3

	// Component-wise reciprocal of Dir; used by the slab test.
	InvDir Vec3

	TMin float32
	TMax float32
}

// Create a new ray. The direction is normalized.
func NewRay(origin, dir Vec3, tMin, tMax float32) Ray {
	return newRay(origin, dir.Normalize(), tMin, tMax)
}

func newRay(origin, dir Vec3, tMin, tMax float32) Ray {
	return Ray{
		Origin: origin,
		Dir:    dir,
		InvDir: Vec3{1 / dir[0], 1 / dir[1], 1 / dir[2]},
		TMin:   tMin,
		TMax:   tMax,
	}
}

// Return the point at distance t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Return a copy of the ray with its interval set to [tMin, tMax].
func (r Ray) WithInterval(tMin, tMax float32) Ray {
	r.TMin = tMin
	r.TMax = tMax
	return r
}

// Map the ray through an affine transformation. The direction is not
// renormalized so a parametric distance t refers to the same point in both
// spaces.
func (r Ray) Transform(m Mat4) Ray {
	return newRay(m.MulPoint(r.Origin), m.MulDir(r.Dir), r.TMin, r.TMax)
}

// Returns true if both the origin and direction are finite and the
// direction is non-zero.
func (r Ray) Valid() bool {
	return r.Origin.IsFinite() && r.Dir.IsFinite() && !r.Dir.IsZero() && !math32.IsNaN(r.TMax)
}
