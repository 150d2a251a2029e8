package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/polaris-rt/pathtracer/export"
	"github.com/polaris-rt/pathtracer/renderer"
	"github.com/polaris-rt/pathtracer/scene"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts := renderer.Options{
		FrameW:          uint32(ctx.Int("width")),
		FrameH:          uint32(ctx.Int("height")),
		SamplesPerPixel: uint32(ctx.Int("spp")),
		Exposure:        float32(ctx.Float64("exposure")),
		NumBounces:      uint32(ctx.Int("num-bounces")),
		MinBouncesForRR: uint32(ctx.Int("rr-bounces")),
		Seed:            uint64(ctx.Int64("seed")),
		Workers:         ctx.Int("workers"),
		DisableNEE:      ctx.Bool("no-nee"),
		Accumulate:      ctx.Int("passes") > 1,
	}

	if opts.MinBouncesForRR == 0 || opts.MinBouncesForRR >= opts.NumBounces {
		logger.Notice("disabling RR for path elimination")
		opts.MinBouncesForRR = opts.NumBounces + 1
	}

	// Load scene
	presetName := ctx.String("preset")
	if ctx.NArg() == 1 {
		presetName = ctx.Args().First()
	}
	sc, err := scene.Preset(presetName, scene.PresetOptions{
		GridSize:     ctx.Int("grid-size"),
		FloorTexture: ctx.String("floor-texture"),
	})
	if err != nil {
		return err
	}
	opts.Environment = sc.Environment

	// Update projection matrix
	sc.Camera.SetupProjection(float32(opts.FrameW) / float32(opts.FrameH))

	// Create renderer
	r, err := renderer.New(opts)
	if err != nil {
		return err
	}
	defer r.Close()

	renderCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	passes := ctx.Int("passes")
	if passes < 1 {
		passes = 1
	}
	var frame *renderer.Frame
	for pass := 0; pass < passes; pass++ {
		if ctx.Bool("flat") {
			frame, err = r.RenderObjects(renderCtx, sc.Camera, sc.Objects(), sc.Lights, sc.Materials)
		} else {
			frame, err = r.RenderTLAS(renderCtx, sc.Camera, sc.TLAS, sc.Lights, sc.Materials)
		}
		if err != nil {
			return err
		}

		// Display stats
		displayFrameStats(r.Stats())
	}

	img, err := export.ToImage(frame, opts.Exposure)
	if err != nil {
		return err
	}
	return writeOutputs(ctx, renderCtx, img)
}

// Save the frame, its optional thumbnail and upload both if requested.
func writeOutputs(ctx *cli.Context, renderCtx context.Context, img image.Image) error {
	outputs := map[string]image.Image{ctx.String("out"): img}
	if thumbW := ctx.Int("thumbnail"); thumbW > 0 {
		outFile := ctx.String("out")
		ext := filepath.Ext(outFile)
		outputs[strings.TrimSuffix(outFile, ext)+"-thumb"+ext] = export.Thumbnail(img, uint(thumbW))
	}

	var uploader *export.Uploader
	if ctx.Bool("upload") {
		var err error
		if uploader, err = export.NewUploader(export.LoadUploadConfig(ctx.String("env-file"))); err != nil {
			return err
		}
	}

	for file, out := range outputs {
		if err := export.Save(out, file); err != nil {
			return err
		}
		logger.Noticef("wrote %s", file)

		if uploader != nil {
			key, err := uploader.Upload(renderCtx, filepath.Base(file), out)
			if err != nil {
				return err
			}
			logger.Noticef("uploaded %s", key)
		}
	}

	return nil
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Primary", "Block height", "% of frame", "Samples", "Discarded", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%t", stat.IsPrimary),
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%d", stat.Samples),
			fmt.Sprintf("%d", stat.Discarded),
			stat.RenderTime.String(),
		})
	}
	table.SetFooter([]string{"", "", "", fmt.Sprintf("pass %d", stats.Passes), fmt.Sprintf("%d", stats.Samples), fmt.Sprintf("%d", stats.Discarded), stats.RenderTime.String()})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
