package accel

import (
	"github.com/polaris-rt/pathtracer/geometry"
	"github.com/polaris-rt/pathtracer/types"
)

// A model instance places a shared BLAS in the world using a
// translation/rotation/scale transform. Instances never copy the BLAS.
//
// The world-space bounding box and the transform matrices are recomputed
// by every setter so they can never go stale. Setters must not be called
// while a render is in progress.
type Instance struct {
	blas *BLAS

	translation types.Vec3
	// Euler angles in degrees.
	rotation types.Vec3
	scale    types.Vec3

	transform    types.Mat4
	invTransform types.Mat4
	normalMat    types.Mat3
	invertible   bool

	bbox types.AABB

	// Incremented each time the transform changes.
	version uint64
}

// Create a new instance with an identity transform.
func NewInstance(blas *BLAS) *Instance {
	inst := &Instance{
		blas:  blas,
		scale: types.Vec3{1, 1, 1},
	}
	inst.update()
	return inst
}

// Create a new instance that shares the BLAS and copies the transform of
// this instance.
func (in *Instance) Clone() *Instance {
	clone := *in
	clone.version = 0
	return &clone
}

// Get the referenced BLAS.
func (in *Instance) BLAS() *BLAS {
	return in.blas
}

// Set instance translation.
func (in *Instance) SetTranslation(t types.Vec3) {
	in.translation = t
	in.update()
}

// Set instance rotation as Euler angles in degrees.
func (in *Instance) SetRotation(deg types.Vec3) {
	in.rotation = deg
	in.update()
}

// Set instance scale.
func (in *Instance) SetScale(s types.Vec3) {
	in.scale = s
	in.update()
}

// Set translation, rotation and scale in one go.
func (in *Instance) SetTransform(translation, rotationDeg, scale types.Vec3) {
	in.translation = translation
	in.rotation = rotationDeg
	in.scale = scale
	in.update()
}

func (in *Instance) Translation() types.Vec3 { return in.translation }
func (in *Instance) Rotation() types.Vec3    { return in.rotation }
func (in *Instance) Scale() types.Vec3       { return in.scale }

// Get the local to world transformation matrix.
func (in *Instance) Transform() types.Mat4 {
	return in.transform
}

// Get the transform version. The version changes whenever the instance
// bounding box may have changed.
func (in *Instance) Version() uint64 {
	return in.version
}

// Get the world-space bounding box. Instances with a non-invertible
// transform or an empty BLAS return an empty box.
func (in *Instance) BBox() types.AABB {
	return in.bbox
}

// Get the world-space bounding box center.
func (in *Instance) Center() types.Vec3 {
	return in.bbox.Center()
}

// Intersect a world-space ray with the instance. The ray is mapped into the
// BLAS space, so the returned t is directly comparable with other world-space
// hits.
func (in *Instance) Intersect(ray types.Ray) (geometry.HitRecord, bool) {
	if !in.invertible || in.blas == nil {
		return geometry.HitRecord{}, false
	}

	hit, ok := in.blas.Intersect(ray.Transform(in.invTransform))
	if !ok {
		return hit, false
	}

	n := in.normalMat.Mul3x1(hit.Normal).Normalize()
	if n.IsZero() || !n.IsFinite() {
		return geometry.HitRecord{}, false
	}
	if n.Dot(ray.Dir) > 0 {
		n = n.Neg()
	}

	hit.Point = in.transform.MulPoint(hit.Point)
	hit.Normal = n
	return hit, true
}

func (in *Instance) update() {
	in.transform = types.Translate4(in.translation).
		Mul4(types.RotateEuler4(in.rotation)).
		Mul4(types.Scale4(in.scale))
	in.invertible = in.transform.Invertible()
	in.version++

	if !in.invertible || in.blas == nil {
		in.bbox = types.EmptyAABB()
		return
	}

	in.invTransform = in.transform.Inv()
	// Normals transform by the inverse transpose of the linear part
	in.normalMat = in.invTransform.Transpose().Mat3()

	bbox := types.EmptyAABB()
	localBBox := in.blas.BBox()
	if !localBBox.Empty() {
		for _, corner := range localBBox.Corners() {
			bbox = bbox.Grow(in.transform.MulPoint(corner))
		}
	}
	in.bbox = bbox
}
