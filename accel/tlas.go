package accel

import (
	"time"
	"unsafe"

	"github.com/polaris-rt/pathtracer/accel/bvh"
	"github.com/polaris-rt/pathtracer/geometry"
	"github.com/polaris-rt/pathtracer/types"
)

// Each TLAS leaf references a single instance.
const minInstancesPerLeaf = 1

// A top-level acceleration structure: a BVH over a dynamic set of model
// instances.
//
// Insert and Remove mark the structure as dirty. A dirty TLAS must be
// rebuilt before it is queried again; Intersect does not check this. When
// only instance transforms have changed, Refit restores a valid hierarchy
// without rebuilding it.
type TLAS struct {
	instances []*Instance

	nodes []bvh.Node

	// Instances in BVH leaf order.
	leafInstances []*Instance

	// Instance versions captured by the last build or refit, indexed like
	// instances.
	versions []uint64

	dirty bool
	stats bvh.Stats
}

// Create an empty TLAS.
func NewTLAS() *TLAS {
	return &TLAS{}
}

// Replace the instance set and rebuild the hierarchy.
func (t *TLAS) Build(instances []*Instance) error {
	t.instances = append(make([]*Instance, 0, len(instances)), instances...)
	return t.Rebuild()
}

// Rebuild the hierarchy from scratch using the current instance set.
func (t *TLAS) Rebuild() error {
	if err := checkMemory(len(t.instances), unsafe.Sizeof(&Instance{})); err != nil {
		return err
	}

	workList := make([]bvh.BoundedVolume, len(t.instances))
	for idx, inst := range t.instances {
		workList[idx] = inst
	}

	leafInstances := make([]*Instance, 0, len(t.instances))
	t.nodes, t.stats = bvh.Build(
		workList,
		minInstancesPerLeaf,
		func(leaf *bvh.Node, items []bvh.BoundedVolume) {
			leaf.SetItems(uint32(len(leafInstances)), uint32(len(items)))
			for _, item := range items {
				leafInstances = append(leafInstances, item.(*Instance))
			}
		},
		bvh.SurfaceAreaHeuristic,
	)
	t.leafInstances = leafInstances
	t.snapshotVersions()
	t.dirty = false
	return nil
}

// Recompute node bounding boxes bottom-up from the current instance
// bounding boxes while keeping the tree topology. Refit can only be used
// when the instance set has not changed since the last build.
func (t *TLAS) Refit() error {
	if t.dirty {
		return ErrRefitAfterMutation
	}

	start := time.Now()

	// Children are always stored after their parents
	for idx := len(t.nodes) - 1; idx >= 0; idx-- {
		node := &t.nodes[idx]
		bbox := types.EmptyAABB()
		if node.IsLeaf() {
			first, count := node.GetItems()
			for _, inst := range t.leafInstances[first : first+count] {
				bbox = bbox.Union(inst.BBox())
			}
		} else {
			left, right := node.GetChildNodes()
			bbox = t.nodes[left].BBox.Union(t.nodes[right].BBox)
		}
		node.BBox = bbox
	}

	t.snapshotVersions()
	logger.Debugf("refitted TLAS with %d nodes in %d us", len(t.nodes), time.Since(start).Nanoseconds()/1e3)
	return nil
}

// Add an instance. The TLAS must be rebuilt before it is queried again.
func (t *TLAS) Insert(inst *Instance) {
	t.instances = append(t.instances, inst)
	t.dirty = true
}

// Remove an instance. Returns false if the instance is not part of the
// instance set. The TLAS must be rebuilt before it is queried again.
func (t *TLAS) Remove(inst *Instance) bool {
	for idx, candidate := range t.instances {
		if candidate == inst {
			t.instances = append(t.instances[:idx], t.instances[idx+1:]...)
			t.dirty = true
			return true
		}
	}
	return false
}

// Returns true if the instance set changed since the last build.
func (t *TLAS) Dirty() bool {
	return t.dirty
}

// Returns true if the TLAS is dirty or any instance transform changed since
// the last build or refit.
func (t *TLAS) Stale() bool {
	if t.dirty {
		return true
	}
	for idx, inst := range t.instances {
		if inst.Version() != t.versions[idx] {
			return true
		}
	}
	return false
}

// Find the closest instance hit within the ray interval.
func (t *TLAS) Intersect(ray types.Ray) (geometry.HitRecord, bool) {
	var hit geometry.HitRecord
	found := traverse(t.nodes, ray, &hit, func(first, count uint32, tMin, tMax float32, hit *geometry.HitRecord) bool {
		updated := false
		for _, inst := range t.leafInstances[first : first+count] {
			if instHit, ok := inst.Intersect(ray.WithInterval(tMin, tMax)); ok {
				*hit = instHit
				tMax = instHit.T
				updated = true
			}
		}
		return updated
	})
	return hit, found
}

// Get the world-space bounding box.
func (t *TLAS) BBox() types.AABB {
	if len(t.nodes) == 0 {
		return types.EmptyAABB()
	}
	return t.nodes[0].BBox
}

// Get the current instance set. The returned slice must be treated as
// read-only.
func (t *TLAS) Instances() []*Instance {
	return t.instances
}

// Get the hierarchy nodes and the instances in leaf order. The returned
// slices must be treated as read-only.
func (t *TLAS) Nodes() ([]bvh.Node, []*Instance) {
	return t.nodes, t.leafInstances
}

// Get statistics for the last build.
func (t *TLAS) Stats() bvh.Stats {
	return t.stats
}

func (t *TLAS) snapshotVersions() {
	t.versions = t.versions[:0]
	for _, inst := range t.instances {
		t.versions = append(t.versions, inst.Version())
	}
}
