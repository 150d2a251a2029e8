package scene

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/polaris-rt/pathtracer/types"
)

// Stores the ray directions for the four corners of the camera frustum in
// TL, TR, BL, BR order. Per pixel rays are generated by interpolating the
// corner rays. Each corner ray ends on the plane at unit distance in front
// of the camera.
type Frustum [4]types.Vec3

func (fr Frustum) String() string {
	return fmt.Sprintf(
		"Frustum Rays:\nTL : (%3.3f, %3.3f, %3.3f)\nTR : (%3.3f, %3.3f, %3.3f)\nBL : (%3.3f, %3.3f, %3.3f)\nBR : (%3.3f, %3.3f, %3.3f)",
		fr[0][0], fr[0][1], fr[0][2],
		fr[1][0], fr[1][1], fr[1][2],
		fr[2][0], fr[2][1], fr[2][2],
		fr[3][0], fr[3][1], fr[3][2],
	)
}

// The camera type controls the scene camera. Cameras may be modified
// between frames; Update must be called after changing any field.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Vertical field of view in degrees.
	FOV float32

	// Lens diameter. A zero aperture yields a pinhole camera.
	Aperture float32

	// Distance to the plane of perfect focus. If zero, the distance to
	// LookAt is used instead.
	FocusDist float32

	ViewMat  types.Mat4
	ProjMat  types.Mat4
	Frustum  Frustum
	aspect   float32
	right    types.Vec3
	trueUp   types.Vec3
	focusLen float32
}

// Create a pinhole camera at the origin looking down the -Z axis.
func NewCamera(fov float32) *Camera {
	c := &Camera{
		ViewMat:  types.Ident4(),
		ProjMat:  types.Ident4(),
		Position: types.Vec3{0, 0, 0},
		LookAt:   types.Vec3{0, 0, -1},
		Up:       types.Vec3{0, 1, 0},
		FOV:      fov,
		aspect:   1,
	}
	c.SetupProjection(1)
	return c
}

// Setup camera projection matrix.
func (c *Camera) SetupProjection(aspect float32) {
	if !(aspect > 0) {
		aspect = 1
	}
	c.aspect = aspect
	c.ProjMat = types.Perspective4(c.FOV, aspect, 1, 1000)
	c.Update()
}

// Get the aspect ratio used by the projection matrix.
func (c *Camera) Aspect() float32 {
	return c.aspect
}

// Orbit the view direction around the camera position. Pitch rotates
// around the camera right axis and yaw around the up axis; both angles are
// specified in degrees.
func (c *Camera) Rotate(pitch, yaw float32) {
	dir := mgl32.Vec3(c.LookAt.Sub(c.Position))
	right := dir.Cross(mgl32.Vec3(c.Up))

	pitchQuat := mgl32.QuatRotate(mgl32.DegToRad(pitch), right.Normalize())
	yawQuat := mgl32.QuatRotate(mgl32.DegToRad(yaw), mgl32.Vec3(c.Up).Normalize())
	orientQuat := pitchQuat.Mul(yawQuat).Normalize()

	c.LookAt = c.Position.Add(types.Vec3(orientQuat.Rotate(dir)))
	c.Update()
}

// Recalculate the view matrix and frustum corners.
func (c *Camera) Update() {
	c.ViewMat = types.LookAtV(c.Position, c.LookAt, c.Up)
	c.updateFrustum()

	forward := c.LookAt.Sub(c.Position)
	c.focusLen = c.FocusDist
	if !(c.focusLen > 0) {
		c.focusLen = forward.Len()
	}
	c.right = forward.Cross(c.Up).Normalize()
	c.trueUp = c.right.Cross(forward).Normalize()
}

func (c *Camera) InvViewProjMat() types.Mat4 {
	return c.ProjMat.Mul4(c.ViewMat).Inv()
}

// Generate a primary ray through the image plane location (s, t) where
// (0, 0) is the top-left corner and (1, 1) the bottom-right one. (u1, u2)
// select a point on the lens and are ignored by pinhole cameras.
func (c *Camera) GenerateRay(s, t, u1, u2 float32) types.Ray {
	dir := c.Frustum[0].
		Add(c.Frustum[1].Sub(c.Frustum[0]).Mul(s)).
		Add(c.Frustum[2].Sub(c.Frustum[0]).Mul(t))

	if c.Aperture <= 0 {
		return types.NewRay(c.Position, dir, 0, math32.Inf(1))
	}

	focusPoint := c.Position.Add(dir.Mul(c.focusLen))
	lx, ly := sampleDisk(u1, u2)
	radius := 0.5 * c.Aperture
	origin := c.Position.Add(c.right.Mul(lx * radius)).Add(c.trueUp.Mul(ly * radius))
	return types.NewRay(origin, focusPoint.Sub(origin), 0, math32.Inf(1))
}

// Generate a ray vector for each corner of the camera frustum by
// multiplying clip space vectors for each corner with the inv proj/view
// matrix, applying perspective and subtracting the camera eye position.
func (c *Camera) updateFrustum() {
	invProjViewMat := c.InvViewProjMat()
	corners := [4][2]float32{{-1, 1}, {1, 1}, {-1, -1}, {1, -1}}
	for idx, corner := range corners {
		v := invProjViewMat.Mul4x1(types.XYZW(corner[0], corner[1], -1, 1))
		c.Frustum[idx] = v.Mul(1.0 / v[3]).Vec3().Sub(c.Position)
	}
}

// Concentric mapping of the unit square to the unit disk.
func sampleDisk(u1, u2 float32) (float32, float32) {
	ox, oy := 2*u1-1, 2*u2-1
	if ox == 0 && oy == 0 {
		return 0, 0
	}

	var r, theta float32
	if math32.Abs(ox) > math32.Abs(oy) {
		r = ox
		theta = math32.Pi / 4 * (oy / ox)
	} else {
		r = oy
		theta = math32.Pi/2 - math32.Pi/4*(ox/oy)
	}
	return r * math32.Cos(theta), r * math32.Sin(theta)
}
