package scene

import (
	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/geometry"
	"github.com/polaris-rt/pathtracer/types"
)

// Light samples whose cosine at the emitter falls below this value are
// discarded.
const minLightCosine float32 = 1e-6

// The type of a light source.
type LightType uint8

const (
	PointLight LightType = iota
	AreaLight
)

func (t LightType) String() string {
	switch t {
	case PointLight:
		return "point"
	case AreaLight:
		return "area"
	}
	return "invalid"
}

// A light source that can be sampled directly. Area lights emit from both
// sides of their surface.
type Light struct {
	Type LightType

	// Point light position and radiant intensity.
	Position  types.Vec3
	Intensity types.Vec3

	// World-space emitting primitive and its emitted radiance.
	Prim     geometry.Primitive
	Radiance types.Vec3

	area float32
}

// A sampled light connection.
type LightSample struct {
	// Point on the light.
	Point types.Vec3

	// Unit direction from the shaded point towards the light.
	Dir types.Vec3

	// Distance to the sampled point.
	Dist float32

	// Incident radiance scaled by the geometry term and divided by the
	// pdf of picking the sampled point on this light.
	Contrib types.Vec3
}

// Create a point light.
func NewPointLight(position, intensity types.Vec3) Light {
	return Light{Type: PointLight, Position: position, Intensity: intensity}
}

// Create an area light from a world-space primitive.
func NewAreaLight(prim geometry.Primitive, radiance types.Vec3) Light {
	return Light{Type: AreaLight, Prim: prim, Radiance: radiance, area: prim.Area()}
}

// Get the index of the material assigned to the emitting primitive.
func (l *Light) MaterialIndex() uint32 {
	return l.Prim.MaterialIndex
}

// Get the total emitted power.
func (l *Light) Power() float32 {
	switch l.Type {
	case PointLight:
		return 4 * math32.Pi * l.Intensity.MaxComponent()
	case AreaLight:
		return 2 * math32.Pi * l.area * l.Radiance.MaxComponent()
	}
	return 0
}

// Sample the light as seen from point p. (u1, u2) are uniform random
// numbers used to pick a point on area lights. Returns false if the light
// cannot contribute to p.
func (l *Light) Sample(p types.Vec3, u1, u2 float32) (LightSample, bool) {
	switch l.Type {
	case PointLight:
		toLight := l.Position.Sub(p)
		distSq := toLight.LenSq()
		if !(distSq > 0) {
			return LightSample{}, false
		}
		dist := math32.Sqrt(distSq)
		return LightSample{
			Point:   l.Position,
			Dir:     toLight.Mul(1 / dist),
			Dist:    dist,
			Contrib: l.Intensity.Mul(1 / distSq),
		}, true
	case AreaLight:
		if !(l.area > 0) {
			return LightSample{}, false
		}
		point, normal := l.Prim.SampleArea(u1, u2)
		toLight := point.Sub(p)
		distSq := toLight.LenSq()
		if !(distSq > 0) {
			return LightSample{}, false
		}
		dist := math32.Sqrt(distSq)
		dir := toLight.Mul(1 / dist)

		cosLight := math32.Abs(normal.Dot(dir))
		if cosLight < minLightCosine {
			return LightSample{}, false
		}
		return LightSample{
			Point:   point,
			Dir:     dir,
			Dist:    dist,
			Contrib: l.Radiance.Mul(cosLight * l.area / distSq),
		}, true
	}
	return LightSample{}, false
}
