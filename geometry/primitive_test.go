package geometry

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/types"
)

const tolerance float32 = 1e-4

var inf = math32.Inf(1)

func unitTriangle() Primitive {
	return NewTriangle(
		[3]types.Vec3{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}},
		[3]types.Vec2{{0, 0}, {1, 0}, {0.5, 1}},
		7,
	)
}

func TestTriangleAnalyticHit(t *testing.T) {
	tri := unitTriangle()

	type spec struct {
		origin types.Vec3
		dir    types.Vec3
		expT   float32
	}
	specs := []spec{
		{types.Vec3{0, 0, 5}, types.Vec3{0, 0, -1}, 5},
		{types.Vec3{0, 0, -3}, types.Vec3{0, 0, 1}, 3},
		{types.Vec3{0.2, -0.5, 2}, types.Vec3{0, 0, -1}, 2},
		// Oblique ray through (0, 0, 0)
		{types.Vec3{3, 0, 4}, types.Vec3{-3, 0, -4}, 5},
	}

	for index, s := range specs {
		var hit HitRecord
		r := types.NewRay(s.origin, s.dir, 0, inf)
		if !tri.Intersect(r, r.TMin, r.TMax, &hit) {
			t.Fatalf("[spec %d] expected ray to hit triangle", index)
		}
		if math32.Abs(hit.T-s.expT) > tolerance {
			t.Errorf("[spec %d] expected t %f; got %f", index, s.expT, hit.T)
		}
		if hit.MaterialIndex != 7 {
			t.Errorf("[spec %d] expected material index 7; got %d", index, hit.MaterialIndex)
		}
		if hit.Normal.Dot(r.Dir) >= 0 {
			t.Errorf("[spec %d] expected normal %v to face against ray dir %v", index, hit.Normal, r.Dir)
		}
	}
}

func TestTriangleFrontFace(t *testing.T) {
	tri := unitTriangle()

	var hit HitRecord
	r := types.NewRay(types.Vec3{0, 0, 5}, types.Vec3{0, 0, -1}, 0, inf)
	tri.Intersect(r, r.TMin, r.TMax, &hit)
	if !hit.FrontFace {
		t.Fatal("expected ray travelling against the geometric normal to hit the front face")
	}

	r = types.NewRay(types.Vec3{0, 0, -5}, types.Vec3{0, 0, 1}, 0, inf)
	tri.Intersect(r, r.TMin, r.TMax, &hit)
	if hit.FrontFace {
		t.Fatal("expected ray travelling along the geometric normal to hit the back face")
	}
}

func TestTriangleMisses(t *testing.T) {
	tri := unitTriangle()

	type spec struct {
		origin     types.Vec3
		dir        types.Vec3
		tMin, tMax float32
	}
	specs := []spec{
		// Outside the triangle
		{types.Vec3{2, 2, 5}, types.Vec3{0, 0, -1}, 0, inf},
		// Parallel to the triangle plane
		{types.Vec3{-5, 0, 0}, types.Vec3{1, 0, 0}, 0, inf},
		// Behind the origin
		{types.Vec3{0, 0, 5}, types.Vec3{0, 0, 1}, 0, inf},
		// Beyond tMax
		{types.Vec3{0, 0, 5}, types.Vec3{0, 0, -1}, 0, 4},
		// Before tMin
		{types.Vec3{0, 0, 5}, types.Vec3{0, 0, -1}, 6, inf},
	}

	for index, s := range specs {
		var hit HitRecord
		r := types.NewRay(s.origin, s.dir, s.tMin, s.tMax)
		if tri.Intersect(r, r.TMin, r.TMax, &hit) {
			t.Errorf("[spec %d] expected miss; got hit at t %f", index, hit.T)
		}
	}
}

func TestDegenerateTriangle(t *testing.T) {
	specs := [][3]types.Vec3{
		// Zero area
		{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
		// Collinear
		{{-1, 0, 0}, {0, 0, 0}, {1, 0, 0}},
		// NaN vertex
		{{0, math32.NaN(), 0}, {1, 0, 0}, {0, 1, 0}},
	}

	for index, verts := range specs {
		tri := NewTriangle(verts, [3]types.Vec2{}, 0)
		if !tri.Degenerate() {
			t.Errorf("[spec %d] expected triangle to be flagged as degenerate", index)
		}

		var hit HitRecord
		r := types.NewRay(types.Vec3{0, 0, 1}, types.Vec3{0, 0, -1}, 0, inf)
		if tri.Intersect(r, r.TMin, r.TMax, &hit) {
			t.Errorf("[spec %d] expected degenerate triangle to be reported as a miss", index)
		}
		if tri.Area() != 0 {
			t.Errorf("[spec %d] expected zero area; got %f", index, tri.Area())
		}
	}
}

func TestSphereAnalyticHit(t *testing.T) {
	sphere := NewSphere(types.Vec3{0, 0, -5}, 2, 3)

	type spec struct {
		origin types.Vec3
		dir    types.Vec3
		expT   float32
		expN   types.Vec3
	}
	specs := []spec{
		{types.Vec3{0, 0, 0}, types.Vec3{0, 0, -1}, 3, types.Vec3{0, 0, 1}},
		// From inside the sphere; the normal must still face the ray
		{types.Vec3{0, 0, -5}, types.Vec3{1, 0, 0}, 2, types.Vec3{-1, 0, 0}},
		{types.Vec3{5, 0, -5}, types.Vec3{-1, 0, 0}, 3, types.Vec3{1, 0, 0}},
	}

	for index, s := range specs {
		var hit HitRecord
		r := types.NewRay(s.origin, s.dir, 0, inf)
		if !sphere.Intersect(r, r.TMin, r.TMax, &hit) {
			t.Fatalf("[spec %d] expected ray to hit sphere", index)
		}
		if math32.Abs(hit.T-s.expT) > tolerance {
			t.Errorf("[spec %d] expected t %f; got %f", index, s.expT, hit.T)
		}
		if hit.Normal.Sub(s.expN).Len() > tolerance {
			t.Errorf("[spec %d] expected normal %v; got %v", index, s.expN, hit.Normal)
		}
	}
}

func TestDegenerateSphere(t *testing.T) {
	for index, radius := range []float32{0, -1, math32.NaN()} {
		sphere := NewSphere(types.Vec3{}, radius, 0)
		var hit HitRecord
		r := types.NewRay(types.Vec3{0, 0, 5}, types.Vec3{0, 0, -1}, 0, inf)
		if sphere.Intersect(r, r.TMin, r.TMax, &hit) {
			t.Errorf("[spec %d] expected sphere with radius %f to be a miss", index, radius)
		}
	}
}

func TestSampleArea(t *testing.T) {
	tri := unitTriangle()
	sphere := NewSphere(types.Vec3{1, 2, 3}, 0.5, 0)

	for i := 0; i < 64; i++ {
		u1 := float32(i%8) / 8
		u2 := float32(i/8) / 8

		p, n := tri.SampleArea(u1, u2)
		if !tri.BBox().Contains(types.AABB{p, p}, tolerance) {
			t.Fatalf("expected triangle sample %v to lie inside the triangle bbox", p)
		}
		if n != tri.Normal {
			t.Fatalf("expected triangle sample normal %v; got %v", tri.Normal, n)
		}

		p, n = sphere.SampleArea(u1, u2)
		if d := p.Sub(sphere.Center()).Len(); math32.Abs(d-0.5) > tolerance {
			t.Fatalf("expected sphere sample at distance 0.5 from center; got %f", d)
		}
		if math32.Abs(n.Len()-1) > tolerance {
			t.Fatalf("expected unit normal; got %v", n)
		}
	}
}

func TestMeshGenerators(t *testing.T) {
	if got := len(Box(types.Vec3{-1, -1, -1}, types.Vec3{1, 1, 1}, 0)); got != 12 {
		t.Fatalf("expected box to contain 12 triangles; got %d", got)
	}

	prims := UVSphere(types.Vec3{}, 1, 8, 4, 0)
	if exp := 8 * (4*2 - 2); len(prims) != exp {
		t.Fatalf("expected uv sphere to contain %d triangles; got %d", exp, len(prims))
	}
	for index, p := range prims {
		if p.Degenerate() {
			t.Fatalf("[prim %d] expected uv sphere not to contain degenerate triangles", index)
		}
	}
}
