package material

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/types"
)

// Map two uniform random numbers to a cosine weighted direction in the
// hemisphere around unit vector n.
func CosineHemisphere(n types.Vec3, u1, u2 float32) types.Vec3 {
	r := math32.Sqrt(u1)
	phi := 2 * math32.Pi * u2
	x := r * math32.Cos(phi)
	y := r * math32.Sin(phi)
	z := math32.Sqrt(math32.Max(0, 1-u1))

	t, b := types.OrthonormalBasis(n)
	return t.Mul(x).Add(b.Mul(y)).Add(n.Mul(z)).Normalize()
}

// Generate a random point inside the unit sphere.
func RandomInUnitSphere(rng *rand.Rand) types.Vec3 {
	for {
		p := types.Vec3{2*rng.Float32() - 1, 2*rng.Float32() - 1, 2*rng.Float32() - 1}
		if p.LenSq() <= 1 {
			return p
		}
	}
}

// Mirror v about unit normal n.
func Reflect(v, n types.Vec3) types.Vec3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

// Refract unit vector v through a surface with unit normal n facing against
// v. eta is the ratio of the incident to the transmitted index.
func Refract(v, n types.Vec3, eta float32) types.Vec3 {
	cosTheta := math32.Min(-v.Dot(n), 1)
	perp := v.Add(n.Mul(cosTheta)).Mul(eta)
	parallel := n.Mul(-math32.Sqrt(math32.Abs(1 - perp.LenSq())))
	return perp.Add(parallel)
}

// Schlick's approximation of the Fresnel reflectance.
func Schlick(cosine, eta float32) float32 {
	r0 := (1 - eta) / (1 + eta)
	r0 *= r0
	return r0 + (1-r0)*math32.Pow(1-cosine, 5)
}
