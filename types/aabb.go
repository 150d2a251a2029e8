package types

import "github.com/chewxy/math32"

// An axis-aligned bounding box stored as a (min, max) corner pair.
type AABB [2]Vec3

// Create an empty (inverted) bounding box. Growing an empty box with any
// point or box yields that point or box.
func EmptyAABB() AABB {
	return AABB{
		Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32},
		Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32},
	}
}

// Returns true if the box does not enclose any point.
func (b AABB) Empty() bool {
	return b[0][0] > b[1][0] || b[0][1] > b[1][1] || b[0][2] > b[1][2]
}

// Return the union of two boxes.
func (b AABB) Union(b2 AABB) AABB {
	return AABB{MinVec3(b[0], b2[0]), MaxVec3(b[1], b2[1])}
}

// Grow box so that it includes point p.
func (b AABB) Grow(p Vec3) AABB {
	return AABB{MinVec3(b[0], p), MaxVec3(b[1], p)}
}

// Return the box center.
func (b AABB) Center() Vec3 {
	return b[0].Add(b[1]).Mul(0.5)
}

// Return the box extents.
func (b AABB) Size() Vec3 {
	if b.Empty() {
		return Vec3{}
	}
	return b[1].Sub(b[0])
}

// Return the box surface area.
func (b AABB) SurfaceArea() float32 {
	s := b.Size()
	return 2 * (s[0]*s[1] + s[1]*s[2] + s[0]*s[2])
}

// Return the index of the axis with the greatest extent.
func (b AABB) LongestAxis() int {
	s := b.Size()
	if s[0] >= s[1] && s[0] >= s[2] {
		return 0
	} else if s[1] >= s[2] {
		return 1
	}
	return 2
}

// Returns true if b fully contains b2 (within the given tolerance).
func (b AABB) Contains(b2 AABB, tolerance float32) bool {
	if b2.Empty() {
		return true
	}
	for axis := 0; axis < 3; axis++ {
		if b2[0][axis] < b[0][axis]-tolerance || b2[1][axis] > b[1][axis]+tolerance {
			return false
		}
	}
	return true
}

// Return the 8 box corners.
func (b AABB) Corners() [8]Vec3 {
	var corners [8]Vec3
	for i := 0; i < 8; i++ {
		corners[i] = Vec3{b[i&1][0], b[(i>>1)&1][1], b[(i>>2)&1][2]}
	}
	return corners
}

// Slab test against ray r restricted to [tMin, tMax]. Returns the entry
// distance or +Inf if the ray misses the box. Empty boxes are never hit.
//
// Comparisons are written so that NaNs produced by 0 * Inf (ray parallel to
// and exactly on a slab plane) are ignored instead of poisoning the result.
func (b AABB) Intersect(r Ray, tMin, tMax float32) float32 {
	for axis := 0; axis < 3; axis++ {
		invD := r.InvDir[axis]
		t0 := (b[0][axis] - r.Origin[axis]) * invD
		t1 := (b[1][axis] - r.Origin[axis]) * invD
		if invD < 0 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMax < tMin {
			return math32.Inf(1)
		}
	}
	return tMin
}
