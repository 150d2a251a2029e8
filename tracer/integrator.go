package tracer

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/accel"
	"github.com/polaris-rt/pathtracer/geometry"
	"github.com/polaris-rt/pathtracer/material"
	"github.com/polaris-rt/pathtracer/scene"
	"github.com/polaris-rt/pathtracer/types"
)

const (
	// Secondary ray origins are pushed off the surface by this amount,
	// scaled by the magnitude of the hit point.
	rayEpsilon float32 = 1e-4

	// Russian roulette survival probability bounds.
	minSurvival float32 = 0.05
	maxSurvival float32 = 0.95
)

// Everything the integrator reads while tracing a frame. A Scene is shared
// by all tracers and must not be modified while a frame is in flight.
type Scene struct {
	Camera *scene.Camera

	// The intersection structure: a TLAS or a flat object list.
	World accel.Object

	Lights      []scene.Light
	Materials   material.List
	Environment scene.Environment

	// Maximum number of path segments.
	NumBounces uint32

	// Number of bounces before Russian roulette may terminate a path.
	MinBouncesForRR uint32

	// Disable explicit light sampling. Emissive surfaces are then only
	// found by scattered rays.
	DisableNEE bool

	// Materials of emitters registered as area lights.
	lightMaterials map[uint32]struct{}
}

// Create a traced scene. The light list is indexed so that emitters reached
// by diffuse bounces are not counted twice when light sampling is enabled.
func NewScene(camera *scene.Camera, world accel.Object, lights []scene.Light, materials material.List) *Scene {
	sc := &Scene{
		Camera:         camera,
		World:          world,
		Lights:         lights,
		Materials:      materials,
		lightMaterials: make(map[uint32]struct{}),
	}
	for idx := range lights {
		if lights[idx].Type == scene.AreaLight {
			sc.lightMaterials[lights[idx].MaterialIndex()] = struct{}{}
		}
	}
	return sc
}

// Create the random number generator for a pixel. Streams are independent
// per pixel and per accumulated frame.
func PixelRNG(seed uint64, frame uint32, pixel uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed^(uint64(frame)*0x9e3779b97f4a7c15), pixel))
}

// Trace a single jittered sample through pixel (x, y) of a w x h frame.
func (sc *Scene) SamplePixel(x, y, w, h uint32, rng *rand.Rand) types.Vec3 {
	s := (float32(x) + rng.Float32()) / float32(w)
	t := (float32(y) + rng.Float32()) / float32(h)
	ray := sc.Camera.GenerateRay(s, t, rng.Float32(), rng.Float32())
	return sc.Radiance(ray, rng)
}

// Estimate the radiance arriving along ray.
func (sc *Scene) Radiance(ray types.Ray, rng *rand.Rand) types.Vec3 {
	var radiance types.Vec3
	throughput := types.Splat(1)
	specularBounce := true

	for bounce := uint32(0); bounce < sc.NumBounces; bounce++ {
		hit, ok := sc.World.Intersect(ray)
		if !ok {
			radiance = radiance.Add(throughput.MulVec(sc.Environment.Radiance(ray.Dir)))
			break
		}

		mat := sc.Materials.Get(hit.MaterialIndex)
		if mat.Type == material.Emissive {
			if specularBounce || sc.DisableNEE || !sc.isLight(hit.MaterialIndex) {
				radiance = radiance.Add(throughput.MulVec(mat.Radiance()))
			}
			break
		}

		if mat.Type == material.Diffuse && !sc.DisableNEE && len(sc.Lights) != 0 {
			radiance = radiance.Add(throughput.MulVec(sc.sampleDirect(&hit, mat, rng)))
		}

		scatter, ok := mat.Scatter(ray.Dir, &hit, rng)
		if !ok {
			break
		}
		throughput = throughput.MulVec(scatter.Attenuation)
		if throughput.IsZero() {
			break
		}
		specularBounce = scatter.Specular

		if bounce+1 >= sc.MinBouncesForRR {
			survival := clamp(throughput.MaxComponent(), minSurvival, maxSurvival)
			if rng.Float32() > survival {
				break
			}
			throughput = throughput.Mul(1 / survival)
		}

		ray = types.NewRay(offsetOrigin(&hit, scatter.Dir), scatter.Dir, rayEpsilon, math32.Inf(1))
	}

	return radiance
}

// Pick a light uniformly and return its contribution to a diffuse surface
// if the connection is not occluded.
func (sc *Scene) sampleDirect(hit *geometry.HitRecord, mat *material.Material, rng *rand.Rand) types.Vec3 {
	numLights := len(sc.Lights)
	light := &sc.Lights[rng.IntN(numLights)]
	sample, ok := light.Sample(hit.Point, rng.Float32(), rng.Float32())
	if !ok {
		return types.Vec3{}
	}

	cosSurface := sample.Dir.Dot(hit.Normal)
	if cosSurface <= 0 {
		return types.Vec3{}
	}

	origin := offsetOrigin(hit, sample.Dir)
	toLight := sample.Point.Sub(origin)
	dist := toLight.Len()
	shadowRay := types.NewRay(origin, toLight, rayEpsilon, dist*(1-1e-3))
	if _, blocked := sc.World.Intersect(shadowRay); blocked {
		return types.Vec3{}
	}

	return mat.EvalDiffuse(hit.UV).MulVec(sample.Contrib).Mul(cosSurface * float32(numLights))
}

func (sc *Scene) isLight(matIndex uint32) bool {
	_, ok := sc.lightMaterials[matIndex]
	return ok
}

// Offset the hit point along the surface normal towards the side that dir
// leaves from.
func offsetOrigin(hit *geometry.HitRecord, dir types.Vec3) types.Vec3 {
	p := hit.Point
	scale := rayEpsilon * (1 + math32.Max(math32.Abs(p[0]), math32.Max(math32.Abs(p[1]), math32.Abs(p[2]))))
	if dir.Dot(hit.Normal) < 0 {
		scale = -scale
	}
	return p.Add(hit.Normal.Mul(scale))
}

func clamp(v, lo, hi float32) float32 {
	if !(v > lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
