package tracer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/polaris-rt/pathtracer/log"
	"github.com/polaris-rt/pathtracer/scene"
	"github.com/polaris-rt/pathtracer/types"
)

var (
	ErrNoSceneData    = errors.New("tracer: no scene data")
	ErrNotInitialized = errors.New("tracer: not initialized")
	ErrTracerClosed   = errors.New("tracer: closed")
	ErrInvalidBlock   = errors.New("tracer: block outside of frame")
	ErrBufferSize     = errors.New("tracer: accumulation buffer does not match frame size")
)

type cpuTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	// Relative speed estimate.
	speed uint32

	frameW, frameH uint32

	// Per-pixel linear RGB accumulation buffer shared with the renderer.
	// Each block writes to a disjoint set of rows.
	accum []types.Vec3

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateBuffer map[UpdateType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan BlockRequest

	// Closed to signal the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered block.
	stats *Stats

	sceneData *Scene
}

// Create a new tracer that renders blocks on a dedicated goroutine.
func NewCPUTracer(id int, speed uint32) Tracer {
	if speed == 0 {
		speed = 1
	}
	return &cpuTracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%d)", id)),
		id:           fmt.Sprintf("cpu-%d", id),
		speed:        speed,
		blockReqChan: make(chan BlockRequest),
		updateBuffer: make(map[UpdateType]interface{}),
		stats:        &Stats{},
	}
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// Get tracer flags.
func (tr *cpuTracer) Flags() Flag {
	return Local | CPU
}

// Get the computation speed estimate.
func (tr *cpuTracer) Speed() uint32 {
	return tr.speed
}

// Initialize tracer and start its worker.
func (tr *cpuTracer) Init(frameW, frameH uint32, accum []types.Vec3) error {
	if uint64(len(accum)) != uint64(frameW)*uint64(frameH) {
		return fmt.Errorf("%w: expected %d entries; got %d", ErrBufferSize, frameW*frameH, len(accum))
	}

	tr.Lock()
	defer tr.Unlock()

	tr.frameW, tr.frameH = frameW, frameH
	tr.accum = accum

	// Start worker
	if tr.closeChan == nil {
		tr.startWorker()
	}

	return nil
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.Lock()
	closeChan := tr.closeChan
	tr.closeChan = nil
	tr.Unlock()

	// If the worker is running shut it down and wait for it to finish its
	// current block
	if closeChan != nil {
		close(closeChan)
		tr.wg.Wait()
	}

	tr.Lock()
	tr.accum = nil
	tr.sceneData = nil
	tr.Unlock()
}

// Enqueue block request. The call blocks until the worker accepts the
// request; requests sent to a tracer that is not running fail immediately.
func (tr *cpuTracer) Enqueue(blockReq BlockRequest) {
	tr.Lock()
	closeChan := tr.closeChan
	tr.Unlock()

	if closeChan == nil {
		blockReq.ErrChan <- ErrNotInitialized
		return
	}

	select {
	case tr.blockReqChan <- blockReq:
	case <-closeChan:
		blockReq.ErrChan <- ErrTracerClosed
	}
}

// Append a change to the tracer's update buffer.
func (tr *cpuTracer) Update(updateType UpdateType, data interface{}) {
	tr.Lock()
	defer tr.Unlock()
	tr.updateBuffer[updateType] = data
}

// Retrieve last frame statistics.
func (tr *cpuTracer) Stats() *Stats {
	return tr.stats
}

// Commit queued changes.
func (tr *cpuTracer) commitUpdates() error {
	tr.Lock()
	defer tr.Unlock()

	pending := tr.updateBuffer
	tr.updateBuffer = make(map[UpdateType]interface{})
	for updateType := range pending {
		if updateType != UpdateScene && updateType != UpdateCamera {
			return fmt.Errorf("tracer: unsupported update type %d", updateType)
		}
	}

	// Scene updates replace the camera so they are applied first
	if data, ok := pending[UpdateScene]; ok {
		sc, ok := data.(*Scene)
		if !ok || sc == nil {
			return ErrNoSceneData
		}
		tr.sceneData = sc
	}
	if data, ok := pending[UpdateCamera]; ok {
		camera, ok := data.(*scene.Camera)
		if !ok || camera == nil {
			return fmt.Errorf("tracer: invalid camera update %T", data)
		}
		if tr.sceneData == nil {
			return ErrNoSceneData
		}
		// Copy so that tracers sharing a scene are not affected
		sc := *tr.sceneData
		sc.Camera = camera
		tr.sceneData = &sc
	}

	return nil
}

// Spawn a go-routine to process block render requests.
func (tr *cpuTracer) startWorker() {
	tr.closeChan = make(chan struct{})
	closeChan := tr.closeChan

	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		close(readyChan)
		for {
			select {
			case blockReq := <-tr.blockReqChan:
				tr.process(&blockReq)
			case <-closeChan:
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

func (tr *cpuTracer) process(blockReq *BlockRequest) {
	// Apply any pending changes
	startTime := time.Now()
	if err := tr.commitUpdates(); err != nil {
		blockReq.ErrChan <- err
		return
	}
	tr.stats.UpdateTime = time.Since(startTime)

	// Render block and reply with our completion status
	startTime = time.Now()
	samples, discarded, err := tr.renderBlock(blockReq)
	if err != nil {
		blockReq.ErrChan <- err
		return
	}
	if discarded != 0 {
		tr.logger.Warningf("discarded %d non-finite samples in rows [%d, %d)", discarded, blockReq.BlockY, blockReq.BlockY+blockReq.BlockH)
	}

	// Update stats
	tr.stats.BlockH = blockReq.BlockH
	tr.stats.RenderTime = time.Since(startTime)
	tr.stats.Samples = samples
	tr.stats.Discarded = discarded

	blockReq.DoneChan <- blockReq.BlockH
}

// Render block rows into the accumulation buffer. Non-finite samples are
// dropped and the pixel value is averaged over the remaining ones.
func (tr *cpuTracer) renderBlock(blockReq *BlockRequest) (samples, discarded uint64, err error) {
	sc := tr.sceneData
	if sc == nil {
		return 0, 0, ErrNoSceneData
	}
	if blockReq.BlockY+blockReq.BlockH > tr.frameH || blockReq.BlockH == 0 {
		return 0, 0, fmt.Errorf("%w: rows [%d, %d) of %d", ErrInvalidBlock, blockReq.BlockY, blockReq.BlockY+blockReq.BlockH, tr.frameH)
	}

	ctx := blockReq.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	spp := blockReq.SamplesPerPixel
	if spp == 0 {
		spp = 1
	}

	frameW := tr.frameW
	for y := blockReq.BlockY; y < blockReq.BlockY+blockReq.BlockH; y++ {
		if err = ctx.Err(); err != nil {
			return samples, discarded, err
		}

		for x := uint32(0); x < frameW; x++ {
			pixel := uint64(y)*uint64(frameW) + uint64(x)
			rng := PixelRNG(blockReq.Seed, blockReq.FrameCount, pixel)

			var sum types.Vec3
			var valid uint32
			for s := uint32(0); s < spp; s++ {
				c := sc.SamplePixel(x, y, frameW, tr.frameH, rng)
				samples++
				if !c.IsFinite() {
					discarded++
					continue
				}
				sum = sum.Add(c)
				valid++
			}

			var mean types.Vec3
			if valid != 0 {
				mean = sum.Mul(1 / float32(valid))
			}
			if blockReq.FrameCount == 0 {
				tr.accum[pixel] = mean
			} else {
				tr.accum[pixel] = tr.accum[pixel].Add(mean)
			}
		}
	}

	return samples, discarded, nil
}
