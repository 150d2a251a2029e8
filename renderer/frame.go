package renderer

import (
	"fmt"

	"github.com/polaris-rt/pathtracer/types"
)

// A rendered frame holding linear RGB radiance, top row first. Frames
// returned by a renderer are not modified by it afterwards.
type Frame struct {
	Width  uint32
	Height uint32

	pixels []types.Vec3
}

// Get the radiance of pixel (x, y). Coordinates outside the frame return
// black.
func (f *Frame) At(x, y uint32) types.Vec3 {
	if x >= f.Width || y >= f.Height {
		return types.Vec3{}
	}
	return f.pixels[y*f.Width+x]
}

// Get the average radiance over the whole frame.
func (f *Frame) Mean() types.Vec3 {
	var sum types.Vec3
	if len(f.pixels) == 0 {
		return sum
	}
	for _, c := range f.pixels {
		sum = sum.Add(c)
	}
	return sum.Mul(1 / float32(len(f.pixels)))
}

// Create a frame from a copy of w * h linear RGB values, top row first.
func NewFrame(w, h uint32, pixels []types.Vec3) (*Frame, error) {
	if uint64(len(pixels)) != uint64(w)*uint64(h) {
		return nil, fmt.Errorf("renderer: expected %d pixels for a %dx%d frame; got %d", uint64(w)*uint64(h), w, h, len(pixels))
	}
	return &Frame{Width: w, Height: h, pixels: append([]types.Vec3(nil), pixels...)}, nil
}

// Create a frame from the per-pixel sum of passes accumulated renders.
func newFrame(w, h uint32, accum []types.Vec3, passes uint32) *Frame {
	scaler := 1 / float32(passes)
	pixels := make([]types.Vec3, len(accum))
	for idx, c := range accum {
		pixels[idx] = c.Mul(scaler)
	}
	return &Frame{Width: w, Height: h, pixels: pixels}
}
