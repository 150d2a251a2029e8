package accel

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/types"
)

func instanceGrid(blas *BLAS, n int, spacing float32) []*Instance {
	instances := make([]*Instance, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			inst := NewInstance(blas)
			inst.SetTransform(
				types.Vec3{float32(x) * spacing, float32(y) * spacing, float32((x+y)%3) - 1},
				types.Vec3{float32(x * 17 % 90), float32(y * 29 % 90), 0},
				types.Splat(0.5+float32((x*y)%3)*0.25),
			)
			instances = append(instances, inst)
		}
	}
	return instances
}

func mustTLAS(t *testing.T, instances []*Instance) *TLAS {
	tlas := NewTLAS()
	if err := tlas.Build(instances); err != nil {
		t.Fatal(err)
	}
	return tlas
}

func gridRays(n int, spacing float32) []types.Ray {
	rays := make([]types.Ray, 0)
	extent := float32(n) * spacing
	for y := float32(-1); y < extent; y += 0.37 {
		for x := float32(-1); x < extent; x += 0.41 {
			origin := types.Vec3{x, y, 10}
			target := types.Vec3{x + 0.1, y - 0.05, 0}
			rays = append(rays, types.NewRay(origin, target.Sub(origin), 0, inf))
		}
	}
	return rays
}

func assertSameHits(t *testing.T, rays []types.Ray, expected, actual Object) int {
	hits := 0
	for index, ray := range rays {
		expHit, expOk := expected.Intersect(ray)
		hit, ok := actual.Intersect(ray)
		if ok != expOk {
			t.Fatalf("[ray %d] expected hit=%t; got %t", index, expOk, ok)
		}
		if !ok {
			continue
		}
		hits++
		if math32.Abs(hit.T-expHit.T) > tolerance {
			t.Fatalf("[ray %d] expected t %f; got %f", index, expHit.T, hit.T)
		}
		if hit.Point.Sub(expHit.Point).Len() > tolerance {
			t.Fatalf("[ray %d] expected hit point %v; got %v", index, expHit.Point, hit.Point)
		}
	}
	return hits
}

func TestTLASMatchesObjectList(t *testing.T) {
	blas := mustBLAS(t, triangleSoup(64, 0.8, 5))
	instances := instanceGrid(blas, 6, 2)
	tlas := mustTLAS(t, instances)

	flat := make(ObjectList, len(instances))
	for idx, inst := range instances {
		flat[idx] = inst
	}

	if hits := assertSameHits(t, gridRays(6, 2), flat, tlas); hits == 0 {
		t.Fatal("expected at least one ray to hit the instance grid")
	}
}

func TestTLASContainment(t *testing.T) {
	tlas := mustTLAS(t, instanceGrid(unitCube(t), 5, 1.5))
	nodes, leafInstances := tlas.Nodes()

	if len(leafInstances) != 25 {
		t.Fatalf("expected 25 instances in leaf order; got %d", len(leafInstances))
	}

	referenced := 0
	for idx, node := range nodes {
		if node.IsLeaf() {
			first, count := node.GetItems()
			if count == 0 {
				t.Fatalf("leaf %d is empty", idx)
			}
			referenced += int(count)
			for _, inst := range leafInstances[first : first+count] {
				if !node.BBox.Contains(inst.BBox(), 0) {
					t.Fatalf("leaf %d does not contain its instance bbox", idx)
				}
			}
			continue
		}
		left, right := node.GetChildNodes()
		if int(left) <= idx || int(right) <= idx {
			t.Fatalf("expected children of node %d to be stored after it; got %d, %d", idx, left, right)
		}
		if !node.BBox.Contains(nodes[left].BBox, 0) || !node.BBox.Contains(nodes[right].BBox, 0) {
			t.Fatalf("node %d does not contain its children", idx)
		}
	}

	if referenced != len(leafInstances) {
		t.Fatalf("expected leafs to reference %d instances; got %d", len(leafInstances), referenced)
	}
}

func TestTLASRebuildIsDeterministic(t *testing.T) {
	instances := instanceGrid(unitCube(t), 4, 2)
	a := mustTLAS(t, instances)
	b := mustTLAS(t, instances)

	nodesA, leafA := a.Nodes()
	nodesB, leafB := b.Nodes()
	if len(nodesA) != len(nodesB) {
		t.Fatalf("expected identical node counts; got %d and %d", len(nodesA), len(nodesB))
	}
	for idx := range nodesA {
		if nodesA[idx] != nodesB[idx] {
			t.Fatalf("node %d differs between builds", idx)
		}
	}
	for idx := range leafA {
		if leafA[idx] != leafB[idx] {
			t.Fatalf("leaf instance %d differs between builds", idx)
		}
	}
}

func TestTLASInsertRemove(t *testing.T) {
	blas := unitCube(t)
	tlas := mustTLAS(t, nil)

	ray := types.NewRay(types.Vec3{0.1, -0.2, 10}, types.Vec3{0, 0, -1}, 0, inf)
	if _, ok := tlas.Intersect(ray); ok {
		t.Fatal("expected empty TLAS to never report a hit")
	}
	if !tlas.BBox().Empty() {
		t.Fatal("expected empty TLAS to have an empty bbox")
	}

	inst := NewInstance(blas)
	tlas.Insert(inst)
	if !tlas.Dirty() || !tlas.Stale() {
		t.Fatal("expected TLAS to be dirty after Insert")
	}
	if err := tlas.Rebuild(); err != nil {
		t.Fatal(err)
	}
	if tlas.Dirty() || tlas.Stale() {
		t.Fatal("expected Rebuild to clear the dirty flag")
	}
	if hit, ok := tlas.Intersect(ray); !ok || math32.Abs(hit.T-9.5) > tolerance {
		t.Fatalf("expected hit at t=9.5; got ok=%t t=%f", ok, hit.T)
	}

	if tlas.Remove(NewInstance(blas)) {
		t.Fatal("expected Remove to report unknown instances")
	}
	if !tlas.Remove(inst) || !tlas.Dirty() {
		t.Fatal("expected Remove to drop the instance and mark the TLAS dirty")
	}
	if err := tlas.Refit(); !errors.Is(err, ErrRefitAfterMutation) {
		t.Fatalf("expected ErrRefitAfterMutation; got %v", err)
	}
	if err := tlas.Rebuild(); err != nil {
		t.Fatal(err)
	}
	if _, ok := tlas.Intersect(ray); ok {
		t.Fatal("expected miss after removing the only instance")
	}
}

func TestTLASRefitAfterTransformChange(t *testing.T) {
	blas := unitCube(t)
	instances := instanceGrid(blas, 3, 2)
	tlas := mustTLAS(t, instances)

	moved := instances[4]
	moved.SetTranslation(types.Vec3{20, 20, 0})
	if !tlas.Stale() {
		t.Fatal("expected TLAS to be stale after an instance transform changed")
	}
	if tlas.Dirty() {
		t.Fatal("expected transform changes not to mark the TLAS dirty")
	}

	if err := tlas.Refit(); err != nil {
		t.Fatal(err)
	}
	if tlas.Stale() {
		t.Fatal("expected Refit to clear the stale state")
	}
	if !tlas.BBox().Contains(moved.BBox(), 0) {
		t.Fatal("expected refitted root to contain the moved instance")
	}

	ray := types.NewRay(types.Vec3{20.1, 19.8, 10}, types.Vec3{0, 0, -1}, 0, inf)
	hit, ok := tlas.Intersect(ray)
	if !ok {
		t.Fatal("expected refitted TLAS to find the moved instance")
	}
	exp, _ := moved.Intersect(ray)
	if math32.Abs(hit.T-exp.T) > tolerance {
		t.Fatalf("expected t %f; got %f", exp.T, hit.T)
	}
}

func TestTLASRebuildAfterTranslationKeepsLocality(t *testing.T) {
	blas := unitCube(t)
	instances := instanceGrid(blas, 4, 2)
	tlas := mustTLAS(t, instances)

	// Move the instances far apart; a rebuild must place distant instances
	// in different subtrees.
	for idx, inst := range instances {
		offset := float32(0)
		if idx%2 == 1 {
			offset = 1000
		}
		inst.SetTranslation(inst.Translation().Add(types.Vec3{offset, 0, 0}))
	}
	if err := tlas.Rebuild(); err != nil {
		t.Fatal(err)
	}

	nodes, _ := tlas.Nodes()
	left, right := nodes[0].GetChildNodes()
	lb, rb := nodes[left].BBox, nodes[right].BBox
	if lb[1][0] > 500 && lb[0][0] < 500 || rb[1][0] > 500 && rb[0][0] < 500 {
		t.Fatalf("expected root children to separate the two clusters; got %v and %v", lb, rb)
	}

	flat := make(ObjectList, len(instances))
	for idx, inst := range instances {
		flat[idx] = inst
	}
	for _, dx := range []float32{0, 1000} {
		ray := types.NewRay(types.Vec3{dx + 2.1, 0.1, 10}, types.Vec3{0, 0, -1}, 0, inf)
		assertSameHits(t, []types.Ray{ray}, flat, tlas)
	}
}

func TestTLASSharedBLAS(t *testing.T) {
	blas := unitCube(t)
	a := NewInstance(blas)
	b := a.Clone()
	b.SetTranslation(types.Vec3{5, 0, 0})
	tlas := mustTLAS(t, []*Instance{a, b})

	for _, x := range []float32{0.1, 5.1} {
		ray := types.NewRay(types.Vec3{x, -0.2, 10}, types.Vec3{0, 0, -1}, 0, inf)
		if hit, ok := tlas.Intersect(ray); !ok || math32.Abs(hit.T-9.5) > tolerance {
			t.Fatalf("expected hit at t=9.5 for x=%f; got ok=%t t=%f", x, ok, hit.T)
		}
	}
}
