package geometry

import (
	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/types"
)

// Triangle determinants whose magnitude falls below this threshold indicate
// a ray parallel to the triangle plane.
const parallelEpsilon float32 = 1e-9

// Describes a ray-surface intersection.
type HitRecord struct {
	// Intersection point.
	Point types.Vec3

	// Unit surface normal, oriented against the incoming ray.
	Normal types.Vec3

	// Parametric distance along the ray.
	T float32

	// Interpolated texture coordinates.
	UV types.Vec2

	// Index into the scene material list.
	MaterialIndex uint32

	// True if the ray hit the side the geometric normal points to.
	FrontFace bool
}

// Orient the hit normal against the ray direction.
func (h *HitRecord) SetFaceNormal(dir, outwardNormal types.Vec3) {
	h.FrontFace = dir.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Neg()
	}
}

// Intersect ray with the primitive, accepting hits in (tMin, tMax). Degenerate
// primitives and non-finite results are reported as a miss.
func (p *Primitive) Intersect(r types.Ray, tMin, tMax float32, hit *HitRecord) bool {
	if p.degenerate {
		return false
	}

	switch p.Type {
	case TrianglePrimitive:
		return p.intersectTriangle(r, tMin, tMax, hit)
	case SpherePrimitive:
		return p.intersectSphere(r, tMin, tMax, hit)
	}
	return false
}

// Möller-Trumbore ray/triangle intersection.
func (p *Primitive) intersectTriangle(r types.Ray, tMin, tMax float32, hit *HitRecord) bool {
	pvec := r.Dir.Cross(p.Edges[1])
	det := p.Edges[0].Dot(pvec)
	if math32.Abs(det) < parallelEpsilon || math32.IsNaN(det) {
		return false
	}
	invDet := 1 / det

	tvec := r.Origin.Sub(p.Vertices[0])
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return false
	}

	qvec := tvec.Cross(p.Edges[0])
	v := r.Dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return false
	}

	t := p.Edges[1].Dot(qvec) * invDet
	// NaN fails both comparisons and is rejected here as well
	if !(t > tMin && t < tMax) {
		return false
	}

	hit.T = t
	hit.Point = r.At(t)
	hit.SetFaceNormal(r.Dir, p.Normal)
	hit.UV = p.UV[0].Mul(1 - u - v).Add(p.UV[1].Mul(u)).Add(p.UV[2].Mul(v))
	hit.MaterialIndex = p.MaterialIndex
	return true
}

func (p *Primitive) intersectSphere(r types.Ray, tMin, tMax float32, hit *HitRecord) bool {
	center := p.Vertices[0]
	oc := r.Origin.Sub(center)
	a := r.Dir.LenSq()
	halfB := oc.Dot(r.Dir)
	c := oc.LenSq() - p.Radius*p.Radius
	disc := halfB*halfB - a*c
	if !(disc >= 0) {
		return false
	}

	sqrtD := math32.Sqrt(disc)
	t := (-halfB - sqrtD) / a
	if !(t > tMin && t < tMax) {
		t = (-halfB + sqrtD) / a
		if !(t > tMin && t < tMax) {
			return false
		}
	}

	point := r.At(t)
	outward := point.Sub(center).Mul(1 / p.Radius)
	if !outward.IsFinite() {
		return false
	}

	hit.T = t
	hit.Point = point
	hit.SetFaceNormal(r.Dir, outward)
	hit.UV = sphereUV(outward)
	hit.MaterialIndex = p.MaterialIndex
	return true
}

// Spherical (u, v) coordinates for a point on the unit sphere.
func sphereUV(n types.Vec3) types.Vec2 {
	theta := math32.Acos(math32.Max(-1, math32.Min(1, -n[1])))
	phi := math32.Atan2(-n[2], n[0]) + math32.Pi
	return types.Vec2{phi / (2 * math32.Pi), theta / math32.Pi}
}
