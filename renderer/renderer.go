package renderer

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/accel"
	"github.com/polaris-rt/pathtracer/log"
	"github.com/polaris-rt/pathtracer/material"
	"github.com/polaris-rt/pathtracer/scene"
	"github.com/polaris-rt/pathtracer/tracer"
	"github.com/polaris-rt/pathtracer/types"
	"github.com/shirou/gopsutil/cpu"
)

type Renderer interface {
	// Render a frame using a flat object list for intersection queries.
	RenderObjects(ctx context.Context, camera *scene.Camera, objects []accel.Object, lights []scene.Light, materials material.List) (*Frame, error)

	// Render a frame using a TLAS for intersection queries. The TLAS must
	// not be stale.
	RenderTLAS(ctx context.Context, camera *scene.Camera, tlas *accel.TLAS, lights []scene.Light, materials material.List) (*Frame, error)

	// Discard accumulated passes.
	ResetAccumulation()

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}

type cpuRenderer struct {
	logger log.Logger

	opts      Options
	tracers   []tracer.Tracer
	scheduler tracer.BlockScheduler

	// Per-pixel radiance summed over accumulated passes.
	accum []types.Vec3

	// Number of passes currently held in accum.
	passes uint32

	stats FrameStats
}

// Create a renderer that traces frames on a pool of CPU tracers.
func New(opts Options) (Renderer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	numWorkers := opts.Workers
	if numWorkers == 0 {
		numWorkers = logicalCPUs()
	}

	r := &cpuRenderer{
		logger:    log.New("renderer"),
		opts:      opts,
		scheduler: tracer.PerfectScheduler(),
		accum:     make([]types.Vec3, int(opts.FrameW)*int(opts.FrameH)),
	}

	for id := 0; id < numWorkers; id++ {
		tr := tracer.NewCPUTracer(id, 1)
		if err := tr.Init(opts.FrameW, opts.FrameH, r.accum); err != nil {
			r.Close()
			return nil, err
		}
		r.tracers = append(r.tracers, tr)
	}
	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}

	r.logger.Debugf("attached %d tracers for a %dx%d frame", len(r.tracers), opts.FrameW, opts.FrameH)
	return r, nil
}

func (r *cpuRenderer) RenderObjects(ctx context.Context, camera *scene.Camera, objects []accel.Object, lights []scene.Light, materials material.List) (*Frame, error) {
	return r.render(ctx, camera, accel.ObjectList(objects), lights, materials)
}

func (r *cpuRenderer) RenderTLAS(ctx context.Context, camera *scene.Camera, tlas *accel.TLAS, lights []scene.Light, materials material.List) (*Frame, error) {
	if tlas == nil {
		return nil, ErrSceneNotDefined
	}
	if tlas.Stale() {
		return nil, ErrStaleTLAS
	}
	return r.render(ctx, camera, tlas, lights, materials)
}

// Discard accumulated passes; the next render starts a new average.
func (r *cpuRenderer) ResetAccumulation() {
	r.passes = 0
}

// Shutdown renderer and any attached tracer.
func (r *cpuRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Get render statistics.
func (r *cpuRenderer) Stats() FrameStats {
	return r.stats
}

func (r *cpuRenderer) render(ctx context.Context, camera *scene.Camera, world accel.Object, lights []scene.Light, materials material.List) (*Frame, error) {
	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}
	if camera == nil {
		return nil, ErrCameraNotDefined
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if aspect := float32(r.opts.FrameW) / float32(r.opts.FrameH); math32.Abs(camera.Aspect()-aspect) > 1e-3 {
		r.logger.Warningf("camera aspect ratio %.3f does not match frame aspect ratio %.3f", camera.Aspect(), aspect)
	}

	sc := tracer.NewScene(camera, world, lights, materials)
	sc.Environment = r.opts.Environment
	sc.NumBounces = r.opts.NumBounces
	sc.MinBouncesForRR = r.opts.MinBouncesForRR
	sc.DisableNEE = r.opts.DisableNEE

	if !r.opts.Accumulate {
		r.passes = 0
	}
	frameIndex := r.passes

	start := time.Now()
	renderCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, tr := range r.tracers {
		tr.Update(tracer.UpdateScene, sc)
	}

	blockAssignment := r.scheduler.Schedule(r.tracers, r.opts.FrameH)
	doneChan := make(chan uint32, len(r.tracers))
	errChan := make(chan error, len(r.tracers))
	var blockY uint32
	pending := 0
	for idx, tr := range r.tracers {
		if blockAssignment[idx] == 0 {
			continue
		}
		blockReq := tracer.BlockRequest{
			Ctx:             renderCtx,
			BlockY:          blockY,
			BlockH:          blockAssignment[idx],
			SamplesPerPixel: r.opts.SamplesPerPixel,
			Seed:            r.opts.Seed,
			FrameCount:      frameIndex,
			DoneChan:        doneChan,
			ErrChan:         errChan,
		}
		blockY += blockAssignment[idx]
		pending++
		go tr.Enqueue(blockReq)
	}

	// Wait for every block to report back so that no tracer touches the
	// accumulation buffer after we return
	var renderErr error
	for ; pending > 0; pending-- {
		select {
		case <-doneChan:
		case err := <-errChan:
			if renderErr == nil {
				renderErr = err
				cancel()
			}
		}
	}

	if renderErr != nil {
		// The accumulation buffer holds a partial pass
		r.passes = 0
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrInterrupted, ctxErr)
		}
		return nil, renderErr
	}

	r.passes++
	frame := newFrame(r.opts.FrameW, r.opts.FrameH, r.accum, r.passes)
	r.updateStats(blockAssignment, time.Since(start))
	r.logger.Infof("rendered %dx%d frame (pass %d) in %s; %d samples, %d discarded", r.opts.FrameW, r.opts.FrameH, r.passes, r.stats.RenderTime, r.stats.Samples, r.stats.Discarded)
	return frame, nil
}

func (r *cpuRenderer) updateStats(blockAssignment []uint32, renderTime time.Duration) {
	r.stats = FrameStats{
		Tracers:    make([]TracerStat, 0, len(r.tracers)),
		RenderTime: renderTime,
		Passes:     r.passes,
	}
	for idx, tr := range r.tracers {
		stat := TracerStat{
			Id:           tr.Id(),
			IsPrimary:    idx == 0,
			BlockH:       blockAssignment[idx],
			FramePercent: 100 * float32(blockAssignment[idx]) / float32(r.opts.FrameH),
		}
		if blockAssignment[idx] != 0 {
			trStats := tr.Stats()
			stat.RenderTime = trStats.RenderTime
			stat.Samples = trStats.Samples
			stat.Discarded = trStats.Discarded
		}
		r.stats.Samples += stat.Samples
		r.stats.Discarded += stat.Discarded
		r.stats.Tracers = append(r.stats.Tracers, stat)
	}
}

// Get the number of logical CPUs.
func logicalCPUs() int {
	count, err := cpu.Counts(true)
	if err != nil || count <= 0 {
		return runtime.NumCPU()
	}
	return count
}
