package geometry

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/types"
)

type PrimitiveType uint8

const (
	TrianglePrimitive PrimitiveType = iota
	SpherePrimitive
)

func (t PrimitiveType) String() string {
	switch t {
	case TrianglePrimitive:
		return "triangle"
	case SpherePrimitive:
		return "sphere"
	}
	return fmt.Sprintf("PrimitiveType(%d)", t)
}

// Triangles with a doubled area below this threshold are degenerate and
// never report a hit.
const degenerateAreaEpsilon float32 = 1e-12

// Defines a scene primitive. The set of primitive types is closed; all
// type-specific behavior is dispatched by switching on Type.
type Primitive struct {
	// The primitive type.
	Type PrimitiveType

	// Triangle vertices. For spheres Vertices[0] holds the center.
	Vertices [3]types.Vec3

	// Sphere radius.
	Radius float32

	// Per-vertex texture coordinates (triangles only).
	UV [3]types.Vec2

	// Precomputed triangle edges (v1-v0, v2-v0) and unit geometric normal.
	Edges  [2]types.Vec3
	Normal types.Vec3

	// Index into the scene material list.
	MaterialIndex uint32

	degenerate bool
	bbox       types.AABB
	center     types.Vec3
}

// Create new triangle primitive. Vertices are specified in counter-clockwise
// order when looking at the front face.
func NewTriangle(vertices [3]types.Vec3, uv [3]types.Vec2, materialIndex uint32) Primitive {
	prim := Primitive{
		Type:          TrianglePrimitive,
		Vertices:      vertices,
		UV:            uv,
		MaterialIndex: materialIndex,
	}

	prim.Edges[0] = vertices[1].Sub(vertices[0])
	prim.Edges[1] = vertices[2].Sub(vertices[0])
	n := prim.Edges[0].Cross(prim.Edges[1])
	if !n.IsFinite() || n.Len() < degenerateAreaEpsilon {
		prim.degenerate = true
	} else {
		prim.Normal = n.Normalize()
	}

	bbox := types.EmptyAABB()
	for _, v := range vertices {
		bbox = bbox.Grow(v)
	}
	prim.bbox = padFlatAxes(bbox)
	prim.center = vertices[0].Add(vertices[1]).Add(vertices[2]).Mul(1.0 / 3.0)
	return prim
}

// Create new sphere primitive.
func NewSphere(center types.Vec3, radius float32, materialIndex uint32) Primitive {
	prim := Primitive{
		Type:          SpherePrimitive,
		Radius:        radius,
		MaterialIndex: materialIndex,
		center:        center,
	}
	prim.Vertices[0] = center

	if !(radius > 0) || !center.IsFinite() {
		prim.degenerate = true
		prim.bbox = types.EmptyAABB()
		return prim
	}

	r := types.Splat(radius)
	prim.bbox = types.AABB{center.Sub(r), center.Add(r)}
	return prim
}

// Returns true if the primitive can never be hit.
func (p *Primitive) Degenerate() bool {
	return p.degenerate
}

// Get primitive bounding box.
func (p *Primitive) BBox() types.AABB {
	return p.bbox
}

// Get primitive center.
func (p *Primitive) Center() types.Vec3 {
	return p.center
}

// Get primitive surface area.
func (p *Primitive) Area() float32 {
	if p.degenerate {
		return 0
	}
	switch p.Type {
	case TrianglePrimitive:
		return 0.5 * p.Edges[0].Cross(p.Edges[1]).Len()
	case SpherePrimitive:
		return 4 * math32.Pi * p.Radius * p.Radius
	}
	return 0
}

// Map two uniform random numbers in [0, 1) to a point distributed uniformly
// over the primitive surface. Returns the point and the unit surface normal
// at that point.
func (p *Primitive) SampleArea(u1, u2 float32) (types.Vec3, types.Vec3) {
	switch p.Type {
	case TrianglePrimitive:
		su := math32.Sqrt(u1)
		b0 := 1 - su
		b1 := u2 * su
		point := p.Vertices[0].Add(p.Edges[0].Mul(b1)).Add(p.Edges[1].Mul(1 - b0 - b1))
		return point, p.Normal
	case SpherePrimitive:
		z := 1 - 2*u1
		r := math32.Sqrt(math32.Max(0, 1-z*z))
		phi := 2 * math32.Pi * u2
		n := types.Vec3{r * math32.Cos(phi), r * math32.Sin(phi), z}
		return p.Vertices[0].Add(n.Mul(p.Radius)), n
	}
	return types.Vec3{}, types.Vec3{}
}

// Apply an affine transformation to the primitive and return the result.
func (p *Primitive) Transform(m types.Mat4) Primitive {
	switch p.Type {
	case SpherePrimitive:
		// Spheres only support uniform scaling.
		scale := m.MulDir(types.Vec3{1, 0, 0}).Len()
		return NewSphere(m.MulPoint(p.Vertices[0]), p.Radius*scale, p.MaterialIndex)
	default:
		return NewTriangle(
			[3]types.Vec3{m.MulPoint(p.Vertices[0]), m.MulPoint(p.Vertices[1]), m.MulPoint(p.Vertices[2])},
			p.UV,
			p.MaterialIndex,
		)
	}
}

// Axis-aligned triangles produce boxes with zero thickness along one axis.
// Pad those axes so that the box has a non-zero volume.
func padFlatAxes(b types.AABB) types.AABB {
	const pad float32 = 1e-5
	for axis := 0; axis < 3; axis++ {
		if b[1][axis]-b[0][axis] < pad {
			b[0][axis] -= pad
			b[1][axis] += pad
		}
	}
	return b
}
