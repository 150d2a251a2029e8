package renderer

import (
	"fmt"

	"github.com/polaris-rt/pathtracer/scene"
)

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Maximum number of path segments traced per sample.
	NumBounces uint32

	// Min bounces before applying russian roulette for path elimination.
	MinBouncesForRR uint32

	// Number of samples.
	SamplesPerPixel uint32

	// Exposure for tonemapping.
	Exposure float32

	// Seed for the per-pixel random number generators. Renders with the
	// same seed and options are reproducible.
	Seed uint64

	// Number of tracers. When zero one tracer is created per logical CPU.
	Workers int

	// Disable explicit light sampling.
	DisableNEE bool

	// Average successive renders into the same frame until
	// ResetAccumulation is called.
	Accumulate bool

	// Radiance for rays that escape the scene.
	Environment scene.Environment
}

// Get the default render options.
func DefaultOptions() Options {
	return Options{
		FrameW:          512,
		FrameH:          512,
		NumBounces:      5,
		MinBouncesForRR: 3,
		SamplesPerPixel: 16,
		Exposure:        1,
		Seed:            1,
	}
}

// Check the options for values that cannot produce a frame.
func (opts *Options) Validate() error {
	switch {
	case opts.FrameW == 0 || opts.FrameH == 0:
		return fmt.Errorf("%w: frame dimensions must be positive; got %dx%d", ErrInvalidOptions, opts.FrameW, opts.FrameH)
	case opts.SamplesPerPixel == 0:
		return fmt.Errorf("%w: samples per pixel must be positive", ErrInvalidOptions)
	case opts.NumBounces == 0:
		return fmt.Errorf("%w: number of bounces must be positive", ErrInvalidOptions)
	case opts.Workers < 0:
		return fmt.Errorf("%w: negative worker count %d", ErrInvalidOptions, opts.Workers)
	case !(opts.Exposure > 0):
		return fmt.Errorf("%w: exposure must be positive; got %f", ErrInvalidOptions, opts.Exposure)
	}
	return nil
}
