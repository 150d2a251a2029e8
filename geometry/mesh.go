package geometry

import (
	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/types"
)

// Generate a planar quad from 4 corners specified in counter-clockwise order.
func Quad(v0, v1, v2, v3 types.Vec3, materialIndex uint32) []Primitive {
	return []Primitive{
		NewTriangle([3]types.Vec3{v0, v1, v2}, [3]types.Vec2{{0, 0}, {1, 0}, {1, 1}}, materialIndex),
		NewTriangle([3]types.Vec3{v0, v2, v3}, [3]types.Vec2{{0, 0}, {1, 1}, {0, 1}}, materialIndex),
	}
}

// Generate an axis-aligned box with outward facing triangles.
func Box(min, max types.Vec3, materialIndex uint32) []Primitive {
	p := func(x, y, z int) types.Vec3 {
		return types.Vec3{[2]float32{min[0], max[0]}[x], [2]float32{min[1], max[1]}[y], [2]float32{min[2], max[2]}[z]}
	}

	prims := make([]Primitive, 0, 12)
	prims = append(prims, Quad(p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1), materialIndex)...) // +z
	prims = append(prims, Quad(p(1, 0, 0), p(0, 0, 0), p(0, 1, 0), p(1, 1, 0), materialIndex)...) // -z
	prims = append(prims, Quad(p(1, 0, 1), p(1, 0, 0), p(1, 1, 0), p(1, 1, 1), materialIndex)...) // +x
	prims = append(prims, Quad(p(0, 0, 0), p(0, 0, 1), p(0, 1, 1), p(0, 1, 0), materialIndex)...) // -x
	prims = append(prims, Quad(p(0, 1, 1), p(1, 1, 1), p(1, 1, 0), p(0, 1, 0), materialIndex)...) // +y
	prims = append(prims, Quad(p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1), materialIndex)...) // -y
	return prims
}

// Tessellate a sphere into triangles using latitude/longitude segments.
func UVSphere(center types.Vec3, radius float32, segments, rings int, materialIndex uint32) []Primitive {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	vertex := func(seg, ring int) (types.Vec3, types.Vec2) {
		u := float32(seg) / float32(segments)
		v := float32(ring) / float32(rings)
		theta := v * math32.Pi
		phi := u * 2 * math32.Pi
		n := types.Vec3{math32.Sin(theta) * math32.Cos(phi), math32.Cos(theta), -math32.Sin(theta) * math32.Sin(phi)}
		return center.Add(n.Mul(radius)), types.Vec2{u, v}
	}

	prims := make([]Primitive, 0, segments*rings*2)
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			p00, uv00 := vertex(seg, ring)
			p10, uv10 := vertex(seg+1, ring)
			p01, uv01 := vertex(seg, ring+1)
			p11, uv11 := vertex(seg+1, ring+1)

			// Pole rows collapse one of the two triangles; skip it.
			if ring != 0 {
				prims = append(prims, NewTriangle([3]types.Vec3{p00, p01, p10}, [3]types.Vec2{uv00, uv01, uv10}, materialIndex))
			}
			if ring != rings-1 {
				prims = append(prims, NewTriangle([3]types.Vec3{p10, p01, p11}, [3]types.Vec2{uv10, uv01, uv11}, materialIndex))
			}
		}
	}
	return prims
}
