package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/polaris-rt/pathtracer/accel"
	"github.com/polaris-rt/pathtracer/geometry"
	"github.com/polaris-rt/pathtracer/material"
	"github.com/polaris-rt/pathtracer/scene"
	"github.com/polaris-rt/pathtracer/types"
)

const tolerance float32 = 1e-4

func testOptions(w, h uint32) Options {
	opts := DefaultOptions()
	opts.FrameW, opts.FrameH = w, h
	opts.SamplesPerPixel = 2
	opts.Workers = 3
	return opts
}

func mustRenderer(t *testing.T, opts Options) Renderer {
	t.Helper()
	r, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)
	return r
}

func camera(position, target types.Vec3, w, h uint32) *scene.Camera {
	cam := scene.NewCamera(40)
	cam.Position = position
	cam.LookAt = target
	cam.SetupProjection(float32(w) / float32(h))
	return cam
}

// A scene with a single mesh instance; returns the built scene.
func singleMeshScene(t *testing.T, mats []material.Material, prims []geometry.Primitive) *scene.Scene {
	t.Helper()
	sc := scene.NewScene("test")
	for _, mat := range mats {
		if _, err := sc.AddMaterial(mat); err != nil {
			t.Fatal(err)
		}
	}
	mesh, err := sc.AddMesh("mesh", prims)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = sc.AddInstance(mesh); err != nil {
		t.Fatal(err)
	}
	if err = sc.Build(); err != nil {
		t.Fatal(err)
	}
	return sc
}

func floorPrims(matIndex uint32) []geometry.Primitive {
	return geometry.Quad(types.Vec3{-10, 0, 10}, types.Vec3{10, 0, 10}, types.Vec3{10, 0, -10}, types.Vec3{-10, 0, -10}, matIndex)
}

func renderBoth(t *testing.T, r Renderer, sc *scene.Scene) (*Frame, *Frame) {
	t.Helper()
	tlasFrame, err := r.RenderTLAS(context.Background(), sc.Camera, sc.TLAS, sc.Lights, sc.Materials)
	if err != nil {
		t.Fatal(err)
	}
	listFrame, err := r.RenderObjects(context.Background(), sc.Camera, sc.Objects(), sc.Lights, sc.Materials)
	if err != nil {
		t.Fatal(err)
	}
	return tlasFrame, listFrame
}

func TestInvalidOptions(t *testing.T) {
	specs := []func(*Options){
		func(o *Options) { o.FrameW = 0 },
		func(o *Options) { o.FrameH = 0 },
		func(o *Options) { o.SamplesPerPixel = 0 },
		func(o *Options) { o.NumBounces = 0 },
		func(o *Options) { o.Workers = -1 },
		func(o *Options) { o.Exposure = 0 },
	}
	for index, mutate := range specs {
		opts := testOptions(4, 4)
		mutate(&opts)
		if _, err := New(opts); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("[spec %d] expected ErrInvalidOptions; got %v", index, err)
		}
	}
}

func TestEmptySpaceMatchesBackground(t *testing.T) {
	const w, h = 8, 6
	sc := singleMeshScene(t,
		[]material.Material{material.NewDiffuse("grey", types.Splat(0.5))},
		[]geometry.Primitive{geometry.NewSphere(types.Vec3{0, 0, 50}, 1, 0)},
	)
	sc.Camera = camera(types.Vec3{}, types.Vec3{0, 0, -1}, w, h)

	opts := testOptions(w, h)
	opts.Environment = scene.UniformEnvironment(types.Vec3{0.25, 0.5, 1})
	r := mustRenderer(t, opts)

	tlasFrame, listFrame := renderBoth(t, r, sc)
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			if tlasFrame.At(x, y) != opts.Environment.Top || listFrame.At(x, y) != opts.Environment.Top {
				t.Fatalf("expected background at (%d, %d); got %v (TLAS) and %v (list)", x, y, tlasFrame.At(x, y), listFrame.At(x, y))
			}
		}
	}
}

func TestUnlitSceneIsBlack(t *testing.T) {
	const w, h = 8, 8
	sc := singleMeshScene(t,
		[]material.Material{material.NewDiffuse("grey", types.Splat(0.8))},
		append(floorPrims(0), geometry.Box(types.Vec3{-1, 0, -1}, types.Vec3{1, 1, 1}, 0)...),
	)
	sc.Camera = camera(types.Vec3{0, 2, 4}, types.Vec3{}, w, h)

	for _, depth := range []uint32{1, 3, 10} {
		opts := testOptions(w, h)
		opts.NumBounces = depth
		r := mustRenderer(t, opts)

		tlasFrame, listFrame := renderBoth(t, r, sc)
		if !tlasFrame.Mean().IsZero() || !listFrame.Mean().IsZero() {
			t.Fatalf("[depth %d] expected black frame; got mean %v (TLAS) and %v (list)", depth, tlasFrame.Mean(), listFrame.Mean())
		}
	}
}

func TestRayDepthInvariance(t *testing.T) {
	const w, h = 8, 8
	// Paths off a single plane escape after one bounce
	sc := singleMeshScene(t,
		[]material.Material{material.NewDiffuse("grey", types.Splat(0.5))},
		floorPrims(0),
	)
	sc.Camera = camera(types.Vec3{0, 1, 3}, types.Vec3{}, w, h)

	var reference *Frame
	for _, depth := range []uint32{2, 4, 16} {
		opts := testOptions(w, h)
		opts.NumBounces = depth
		opts.MinBouncesForRR = 100
		opts.Environment = scene.UniformEnvironment(types.Vec3{1, 1, 1})
		r := mustRenderer(t, opts)

		frame, err := r.RenderTLAS(context.Background(), sc.Camera, sc.TLAS, sc.Lights, sc.Materials)
		if err != nil {
			t.Fatal(err)
		}
		if reference == nil {
			reference = frame
			continue
		}
		for y := uint32(0); y < h; y++ {
			for x := uint32(0); x < w; x++ {
				if frame.At(x, y) != reference.At(x, y) {
					t.Fatalf("[depth %d] expected pixel (%d, %d) to be %v; got %v", depth, x, y, reference.At(x, y), frame.At(x, y))
				}
			}
		}
	}

	// The floor reflects half of the sky
	if got := reference.At(4, 7); math32.Abs(got[0]-0.5) > tolerance {
		t.Fatalf("expected floor pixel radiance 0.5; got %v", got)
	}
}

func TestEmissiveConvergence(t *testing.T) {
	const w, h = 16, 16
	radiance := types.Vec3{3, 2, 1}
	sc := singleMeshScene(t,
		[]material.Material{material.NewEmissive("light", radiance, 1)},
		[]geometry.Primitive{geometry.NewSphere(types.Vec3{}, 1, 0)},
	)
	sc.Camera = camera(types.Vec3{0, 0, 6}, types.Vec3{}, w, h)

	opts := testOptions(w, h)
	opts.SamplesPerPixel = 64
	r := mustRenderer(t, opts)

	tlasFrame, listFrame := renderBoth(t, r, sc)
	for _, frame := range []*Frame{tlasFrame, listFrame} {
		if got := frame.At(w/2, h/2); got.Sub(radiance).Len() > tolerance {
			t.Fatalf("expected center pixel radiance %v; got %v", radiance, got)
		}
		if got := frame.At(0, 0); !got.IsZero() {
			t.Fatalf("expected corner pixel to miss the sphere; got %v", got)
		}

		// Silhouette pixels average partial coverage
		for x := uint32(0); x < w; x++ {
			got := frame.At(x, h/2)
			if got[0] < 0 || got[0] > radiance[0]+tolerance {
				t.Fatalf("expected pixel (%d, %d) within [0, %f]; got %v", x, h/2, radiance[0], got)
			}
		}
	}
}

func TestTLASAndObjectListAgree(t *testing.T) {
	const w, h = 16, 16
	sc, err := scene.Preset("cornell", scene.PresetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	sc.Camera.SetupProjection(1)

	opts := testOptions(w, h)
	opts.NumBounces = 4
	r := mustRenderer(t, opts)

	tlasFrame, listFrame := renderBoth(t, r, sc)
	mismatches := 0
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			if tlasFrame.At(x, y).Sub(listFrame.At(x, y)).Len() > 1e-3 {
				mismatches++
			}
		}
	}
	if mismatches > w*h/50 {
		t.Fatalf("expected TLAS and object list renders to match; %d pixels differ", mismatches)
	}
	if tlasFrame.Mean().IsZero() {
		t.Fatal("expected lit cornell box")
	}
}

func TestDeterministicRender(t *testing.T) {
	const w, h = 8, 8
	sc, err := scene.Preset("cornell", scene.PresetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	sc.Camera.SetupProjection(1)

	opts := testOptions(w, h)
	opts.Seed = 42
	r1 := mustRenderer(t, opts)
	opts.Workers = 1
	r2 := mustRenderer(t, opts)

	f1, err := r1.RenderTLAS(context.Background(), sc.Camera, sc.TLAS, sc.Lights, sc.Materials)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := r2.RenderTLAS(context.Background(), sc.Camera, sc.TLAS, sc.Lights, sc.Materials)
	if err != nil {
		t.Fatal(err)
	}
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			if f1.At(x, y) != f2.At(x, y) {
				t.Fatalf("expected identical pixel (%d, %d) regardless of worker count; got %v and %v", x, y, f1.At(x, y), f2.At(x, y))
			}
		}
	}
}

func TestStaleTLAS(t *testing.T) {
	sc := singleMeshScene(t,
		[]material.Material{material.NewDiffuse("grey", types.Splat(0.5))},
		floorPrims(0),
	)
	r := mustRenderer(t, testOptions(4, 4))

	if _, err := r.RenderTLAS(context.Background(), sc.Camera, nil, nil, nil); !errors.Is(err, ErrSceneNotDefined) {
		t.Fatalf("expected ErrSceneNotDefined; got %v", err)
	}
	if _, err := r.RenderObjects(context.Background(), nil, nil, nil, nil); !errors.Is(err, ErrCameraNotDefined) {
		t.Fatalf("expected ErrCameraNotDefined; got %v", err)
	}

	sc.Instances[0].SetTranslation(types.Vec3{0, -1, 0})
	if _, err := r.RenderTLAS(context.Background(), sc.Camera, sc.TLAS, sc.Lights, sc.Materials); !errors.Is(err, ErrStaleTLAS) {
		t.Fatalf("expected ErrStaleTLAS after moving an instance; got %v", err)
	}
	if err := sc.TLAS.Refit(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RenderTLAS(context.Background(), sc.Camera, sc.TLAS, sc.Lights, sc.Materials); err != nil {
		t.Fatalf("expected refit TLAS to render; got %v", err)
	}

	sc.TLAS.Insert(accel.NewInstance(sc.Meshes[0].BLAS))
	if _, err := r.RenderTLAS(context.Background(), sc.Camera, sc.TLAS, sc.Lights, sc.Materials); !errors.Is(err, ErrStaleTLAS) {
		t.Fatalf("expected ErrStaleTLAS after inserting an instance; got %v", err)
	}
}

func TestCancelledRender(t *testing.T) {
	sc := singleMeshScene(t,
		[]material.Material{material.NewDiffuse("grey", types.Splat(0.5))},
		floorPrims(0),
	)
	r := mustRenderer(t, testOptions(8, 8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.RenderTLAS(ctx, sc.Camera, sc.TLAS, sc.Lights, sc.Materials)
	if !errors.Is(err, ErrInterrupted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrInterrupted wrapping context.Canceled; got %v", err)
	}

	// The renderer remains usable
	if _, err = r.RenderTLAS(context.Background(), sc.Camera, sc.TLAS, sc.Lights, sc.Materials); err != nil {
		t.Fatal(err)
	}
}

func TestAccumulation(t *testing.T) {
	const w, h = 8, 8
	radiance := types.Vec3{1, 1, 1}
	sc := singleMeshScene(t,
		[]material.Material{material.NewEmissive("light", radiance, 2)},
		[]geometry.Primitive{geometry.NewSphere(types.Vec3{}, 1, 0)},
	)
	sc.Camera = camera(types.Vec3{0, 0, 4}, types.Vec3{}, w, h)

	opts := testOptions(w, h)
	opts.Accumulate = true
	r := mustRenderer(t, opts)

	var frame *Frame
	var err error
	for pass := uint32(1); pass <= 3; pass++ {
		if frame, err = r.RenderTLAS(context.Background(), sc.Camera, sc.TLAS, sc.Lights, sc.Materials); err != nil {
			t.Fatal(err)
		}
		stats := r.Stats()
		if stats.Passes != pass {
			t.Fatalf("expected %d accumulated passes; got %d", pass, stats.Passes)
		}
		if got := frame.At(w/2, h/2); got.Sub(types.Splat(2)).Len() > tolerance {
			t.Fatalf("[pass %d] expected averaged center pixel to stay at the emitted radiance; got %v", pass, got)
		}
	}

	stats := r.Stats()
	var rows uint32
	for _, trStat := range stats.Tracers {
		rows += trStat.BlockH
	}
	if rows != h || stats.Samples != w*h*uint64(opts.SamplesPerPixel) || stats.Discarded != 0 {
		t.Fatalf("unexpected frame stats %+v", stats)
	}

	r.ResetAccumulation()
	if _, err = r.RenderTLAS(context.Background(), sc.Camera, sc.TLAS, sc.Lights, sc.Materials); err != nil {
		t.Fatal(err)
	}
	if got := r.Stats().Passes; got != 1 {
		t.Fatalf("expected reset to restart accumulation; got %d passes", got)
	}
}
