package accel

import (
	"unsafe"

	"github.com/polaris-rt/pathtracer/accel/bvh"
	"github.com/polaris-rt/pathtracer/geometry"
	"github.com/polaris-rt/pathtracer/types"
)

// The builder stops partitioning mesh primitives once a node holds this many
// primitives or fewer.
const MinPrimitivesPerLeaf = 4

// Mesh statistics.
type BLASStats struct {
	bvh.Stats

	// Primitives that were dropped because they can never be hit.
	DegeneratePrimitives int
}

// A bottom-level acceleration structure: a BVH over the primitives of a
// single mesh. A BLAS is immutable once built and may be shared by any
// number of model instances.
type BLAS struct {
	nodes []bvh.Node

	// Primitives sorted so that each leaf references a contiguous range.
	prims []geometry.Primitive

	stats BLASStats
}

// Build a BLAS over the given primitives. Degenerate primitives are dropped.
// The only error condition is running out of memory.
func NewBLAS(prims []geometry.Primitive) (*BLAS, error) {
	if err := checkMemory(len(prims), unsafe.Sizeof(geometry.Primitive{})); err != nil {
		return nil, err
	}

	blas := &BLAS{}
	source := make([]geometry.Primitive, 0, len(prims))
	for _, prim := range prims {
		if prim.Degenerate() {
			blas.stats.DegeneratePrimitives++
			continue
		}
		source = append(source, prim)
	}
	if blas.stats.DegeneratePrimitives > 0 {
		logger.Infof("dropped %d degenerate primitive(s) while building mesh BVH", blas.stats.DegeneratePrimitives)
	}

	workList := make([]bvh.BoundedVolume, len(source))
	for idx := range source {
		workList[idx] = &source[idx]
	}

	blas.prims = make([]geometry.Primitive, 0, len(source))
	blas.nodes, blas.stats.Stats = bvh.Build(
		workList,
		MinPrimitivesPerLeaf,
		func(leaf *bvh.Node, items []bvh.BoundedVolume) {
			leaf.SetItems(uint32(len(blas.prims)), uint32(len(items)))
			for _, item := range items {
				blas.prims = append(blas.prims, *item.(*geometry.Primitive))
			}
		},
		bvh.SurfaceAreaHeuristic,
	)

	return blas, nil
}

// Find the closest primitive hit within the ray interval. An empty BLAS
// never reports a hit.
func (b *BLAS) Intersect(ray types.Ray) (geometry.HitRecord, bool) {
	var hit geometry.HitRecord
	found := traverse(b.nodes, ray, &hit, func(first, count uint32, tMin, tMax float32, hit *geometry.HitRecord) bool {
		updated := false
		for idx := first; idx < first+count; idx++ {
			if b.prims[idx].Intersect(ray, tMin, tMax, hit) {
				updated = true
				tMax = hit.T
			}
		}
		return updated
	})
	return hit, found
}

// Get the mesh bounding box in local space.
func (b *BLAS) BBox() types.AABB {
	if len(b.nodes) == 0 {
		return types.EmptyAABB()
	}
	return b.nodes[0].BBox
}

// Get the BLAS primitives in BVH leaf order. The returned slice must be
// treated as read-only.
func (b *BLAS) Primitives() []geometry.Primitive {
	return b.prims
}

// Get the BVH nodes. The returned slice must be treated as read-only.
func (b *BLAS) Nodes() []bvh.Node {
	return b.nodes
}

// Get build statistics.
func (b *BLAS) Stats() BLASStats {
	return b.stats
}
