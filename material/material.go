package material

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/asset/texture"
	"github.com/polaris-rt/pathtracer/geometry"
	"github.com/polaris-rt/pathtracer/types"
)

// Type represents the surface scattering models supported by the renderer.
type Type uint8

const (
	Diffuse Type = iota
	Metal
	Dielectric
	Emissive
)

// Lookup material type by its name.
func TypeFromName(name string) (Type, bool) {
	switch name {
	case "diffuse":
		return Diffuse, true
	case "metal":
		return Metal, true
	case "dielectric":
		return Dielectric, true
	case "emissive":
		return Emissive, true
	}

	return Diffuse, false
}

func (t Type) String() string {
	switch t {
	case Diffuse:
		return "diffuse"
	case Metal:
		return "metal"
	case Dielectric:
		return "dielectric"
	case Emissive:
		return "emissive"
	}

	return "invalid"
}

// A surface material. Materials are immutable once a render starts and are
// referenced by index from primitives.
type Material struct {
	Type Type
	Name string

	// Surface colour for diffuse and metal surfaces; transmission tint for
	// dielectrics.
	Albedo types.Vec3

	// Optional texture that replaces Albedo.
	AlbedoTexture *texture.Texture

	// Metal reflection fuzz in [0, 1].
	Roughness float32

	// Dielectric index of refraction.
	IOR float32

	// Emitted colour and its scaler.
	Emission types.Vec3
	Power    float32
}

// The result of scattering a ray at a surface.
type Scatter struct {
	// Unit direction of the scattered ray.
	Dir types.Vec3

	// Per-channel throughput multiplier.
	Attenuation types.Vec3

	// True if the scattered direction was drawn from a delta (or
	// near-delta) distribution that light sampling cannot evaluate.
	Specular bool
}

// Create a lambertian material.
func NewDiffuse(name string, albedo types.Vec3) Material {
	return Material{Type: Diffuse, Name: name, Albedo: albedo}
}

// Create a lambertian material whose colour comes from a texture.
func NewTexturedDiffuse(name string, tex *texture.Texture) Material {
	return Material{Type: Diffuse, Name: name, Albedo: DefaultAlbedo, AlbedoTexture: tex}
}

// Create a metal. Roughness is clamped to [0, 1].
func NewMetal(name string, albedo types.Vec3, roughness float32) Material {
	return Material{Type: Metal, Name: name, Albedo: albedo, Roughness: clamp01(roughness)}
}

// Create a clear dielectric. Non-positive IORs are replaced by DefaultIOR.
func NewDielectric(name string, ior float32) Material {
	if !(ior > 0) {
		ior = DefaultIOR
	}
	return Material{Type: Dielectric, Name: name, Albedo: types.Vec3{1, 1, 1}, IOR: ior}
}

// Create a light emitting material.
func NewEmissive(name string, emission types.Vec3, power float32) Material {
	return Material{Type: Emissive, Name: name, Emission: emission, Power: power}
}

// Get the material used when a primitive references a missing material.
func Default() Material {
	return NewDiffuse("default", DefaultAlbedo)
}

// Get the emitted radiance. Non-emissive materials return black.
func (m *Material) Radiance() types.Vec3 {
	if m.Type != Emissive {
		return types.Vec3{}
	}
	return m.Emission.Mul(m.Power)
}

// Returns true for light emitting materials.
func (m *Material) IsEmissive() bool {
	return m.Type == Emissive && !m.Radiance().IsZero()
}

// Get the surface colour at uv.
func (m *Material) AlbedoAt(uv types.Vec2) types.Vec3 {
	if m.AlbedoTexture != nil {
		return m.AlbedoTexture.Sample(uv)
	}
	return m.Albedo
}

// Evaluate the BRDF for light arriving from any direction in the upper
// hemisphere. Only diffuse materials have a non-delta BRDF; all other types
// return black.
func (m *Material) EvalDiffuse(uv types.Vec2) types.Vec3 {
	if m.Type != Diffuse {
		return types.Vec3{}
	}
	return m.AlbedoAt(uv).Mul(1 / math32.Pi)
}

// Sample a scattered direction for a ray travelling along dir that hit the
// surface described by hit. Returns false if the path is absorbed.
func (m *Material) Scatter(dir types.Vec3, hit *geometry.HitRecord, rng *rand.Rand) (Scatter, bool) {
	switch m.Type {
	case Diffuse:
		// cos/pi BRDF sampled with a cos/pi pdf: the ratio is the albedo
		out := CosineHemisphere(hit.Normal, rng.Float32(), rng.Float32())
		if out.IsZero() {
			return Scatter{}, false
		}
		return Scatter{Dir: out, Attenuation: m.AlbedoAt(hit.UV)}, true
	case Metal:
		out := Reflect(dir, hit.Normal)
		if m.Roughness > 0 {
			out = out.Add(RandomInUnitSphere(rng).Mul(m.Roughness)).Normalize()
		}
		if out.Dot(hit.Normal) <= 0 {
			return Scatter{}, false
		}
		return Scatter{Dir: out, Attenuation: m.AlbedoAt(hit.UV), Specular: true}, true
	case Dielectric:
		eta := m.IOR
		if hit.FrontFace {
			eta = 1 / m.IOR
		}

		cosTheta := math32.Min(-dir.Dot(hit.Normal), 1)
		sinTheta := math32.Sqrt(math32.Max(0, 1-cosTheta*cosTheta))

		var out types.Vec3
		if eta*sinTheta > 1 || Schlick(cosTheta, eta) > rng.Float32() {
			out = Reflect(dir, hit.Normal)
		} else {
			out = Refract(dir, hit.Normal, eta)
		}
		return Scatter{Dir: out.Normalize(), Attenuation: m.Albedo, Specular: true}, true
	}

	// Emissive surfaces terminate the path
	return Scatter{}, false
}

// An indexed material collection.
type List []Material

// Get the material at idx. Out of range indices resolve to the default
// material.
func (l List) Get(idx uint32) *Material {
	if int(idx) < len(l) {
		return &l[idx]
	}
	return &defaultMaterial
}

var defaultMaterial = Default()

func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
