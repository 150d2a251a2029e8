package tracer

import (
	"context"
	"time"

	"github.com/polaris-rt/pathtracer/types"
)

type Flag uint8

const (
	// The tracer runs on the local machine.
	Local Flag = 1 << iota

	// The tracer executes on the host CPU.
	CPU
)

type UpdateType uint8

const (
	// Replace the traced scene; payload is a *Scene.
	UpdateScene UpdateType = iota

	// Replace the scene camera; payload is a *scene.Camera.
	UpdateCamera
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Cancels the remaining rows of the block.
	Ctx context.Context

	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The number of emitted rays per traced pixel.
	SamplesPerPixel uint32

	// A random seed value for the per-pixel random number generators.
	Seed uint64

	// Number of frames accumulated so far. When zero the block overwrites
	// the accumulation buffer instead of adding to it.
	FrameCount uint32

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering the block.
	RenderTime time.Duration

	// The time spent applying pending updates.
	UpdateTime time.Duration

	// Traced and discarded (non-finite) samples for the last block.
	Samples   uint64
	Discarded uint64
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Get tracer flags.
	Flags() Flag

	// Get the computation speed estimate relative to the other tracers.
	Speed() uint32

	// Initialize the tracer. Rendered rows are written to accum which holds
	// frameW * frameH linear RGB values.
	Init(frameW, frameH uint32, accum []types.Vec3) error

	// Shutdown and cleanup tracer.
	Close()

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Append a change to the tracer's update buffer. Changes are applied
	// before processing the next block.
	Update(UpdateType, interface{})

	// Retrieve last block statistics.
	Stats() *Stats
}
