package accel

import (
	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/accel/bvh"
	"github.com/polaris-rt/pathtracer/geometry"
	"github.com/polaris-rt/pathtracer/types"
)

// The Object interface is implemented by anything that can be intersected
// with a ray: mesh hierarchies, model instances, instance hierarchies and
// flat lists thereof.
type Object interface {
	// Find the closest intersection within the ray's [TMin, TMax] interval.
	Intersect(ray types.Ray) (geometry.HitRecord, bool)

	// Get the world-space bounding box.
	BBox() types.AABB
}

// An ordered list of objects that is intersected by testing every entry.
// Serves as a reference for the hierarchy-backed scene representation.
type ObjectList []Object

// Find the closest intersection among all list entries.
func (l ObjectList) Intersect(ray types.Ray) (geometry.HitRecord, bool) {
	var closest geometry.HitRecord
	found := false
	for _, obj := range l {
		if hit, ok := obj.Intersect(ray); ok {
			closest = hit
			found = true
			ray = ray.WithInterval(ray.TMin, hit.T)
		}
	}
	return closest, found
}

// Get the union of all entry bounding boxes.
func (l ObjectList) BBox() types.AABB {
	bbox := types.EmptyAABB()
	for _, obj := range l {
		bbox = bbox.Union(obj.BBox())
	}
	return bbox
}

// Invoked for each leaf reached during traversal. Implementations test the
// leaf items against [tMin, tMax] and return true if hit was updated with a
// closer intersection.
type leafVisitor func(first, count uint32, tMin, tMax float32, hit *geometry.HitRecord) bool

type stackEntry struct {
	node  uint32
	tNear float32
}

// Stack-based closest-hit traversal shared by both hierarchy levels. The
// nearer child is always visited first and the search interval shrinks
// every time a closer hit is found so farther subtrees get culled.
func traverse(nodes []bvh.Node, ray types.Ray, hit *geometry.HitRecord, visitLeaf leafVisitor) bool {
	if len(nodes) == 0 {
		return false
	}

	tMin, tMax := ray.TMin, ray.TMax
	tRoot := nodes[0].BBox.Intersect(ray, tMin, tMax)
	if math32.IsInf(tRoot, 1) {
		return false
	}

	var stackBuf [64]stackEntry
	stack := append(stackBuf[:0], stackEntry{0, tRoot})

	found := false
	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// A closer hit may have been found after this node was pushed
		if entry.tNear > tMax {
			continue
		}

		node := &nodes[entry.node]
		if node.IsLeaf() {
			first, count := node.GetItems()
			if visitLeaf(first, count, tMin, tMax, hit) {
				found = true
				tMax = hit.T
			}
			continue
		}

		left, right := node.GetChildNodes()
		tLeft := nodes[left].BBox.Intersect(ray, tMin, tMax)
		tRight := nodes[right].BBox.Intersect(ray, tMin, tMax)

		// Push the farther child first so that the nearer one is popped
		// next. On ties the left child is visited first.
		near, far := stackEntry{left, tLeft}, stackEntry{right, tRight}
		if tRight < tLeft {
			near, far = far, near
		}
		if !math32.IsInf(far.tNear, 1) {
			stack = append(stack, far)
		}
		if !math32.IsInf(near.tNear, 1) {
			stack = append(stack, near)
		}
	}

	return found
}
