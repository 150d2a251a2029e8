package scene

import "github.com/polaris-rt/pathtracer/types"

// The radiance arriving from directions that escape the scene. The zero
// value is a black environment.
type Environment struct {
	// Radiance towards +Y.
	Top types.Vec3

	// Radiance towards -Y.
	Bottom types.Vec3
}

// Create an environment with the same radiance in every direction.
func UniformEnvironment(c types.Vec3) Environment {
	return Environment{Top: c, Bottom: c}
}

// Create an environment that blends linearly between bottom and top based
// on the vertical component of the direction.
func GradientEnvironment(bottom, top types.Vec3) Environment {
	return Environment{Top: top, Bottom: bottom}
}

// Get the radiance for unit direction dir.
func (e Environment) Radiance(dir types.Vec3) types.Vec3 {
	if e.Top == e.Bottom {
		return e.Top
	}
	t := 0.5 * (dir[1] + 1)
	if !(t > 0) {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return e.Bottom.Lerp(e.Top, t)
}

// Returns true if the environment does not emit any light.
func (e Environment) IsBlack() bool {
	return e.Top.IsZero() && e.Bottom.IsZero()
}
