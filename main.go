package main

import (
	"fmt"
	"os"

	"github.com/polaris-rt/pathtracer/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	sceneFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "grid-size",
			Value: 5,
			Usage: "number of instances per side for grid presets",
		},
		cli.StringFlag{
			Name:  "floor-texture",
			Usage: "texture file or URL for floor surfaces",
		},
	}

	app := cli.NewApp()
	app.Name = "pathtracer"
	app.Usage = "render scenes using path tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (error, warning, notice, info, debug)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list-devices",
			Usage:  "list available cpus",
			Action: cmd.ListDevices,
		},
		{
			Name:   "list-presets",
			Usage:  "list available scene presets",
			Action: cmd.ListPresets,
		},
		{
			Name:      "scene-info",
			Usage:     "display scene preset statistics",
			ArgsUsage: "[preset1 preset2 ...]",
			Flags:     sceneFlags,
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:  "render",
			Usage: "render single frame",
			Description: `
Build a scene preset, render it with one path tracer per worker and write
the tonemapped frame to an image file. The output can optionally be
uploaded to an S3 compatible bucket configured via S3_* environment
variables or an env file.`,
			ArgsUsage: "[preset]",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "preset, p",
					Value: "cornell",
					Usage: "scene preset to render",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "spp",
					Value: 16,
					Usage: "samples per pixel",
				},
				cli.IntFlag{
					Name:  "num-bounces",
					Value: 5,
					Usage: "max number of bounces",
				},
				cli.IntFlag{
					Name:  "rr-bounces",
					Value: 3,
					Usage: "min number of bounces before applying russian roulette for path elimination; set to 0 to disable",
				},
				cli.Float64Flag{
					Name:  "exposure",
					Value: 1.0,
					Usage: "camera exposure for tone-mapping",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "base seed for the per-pixel random streams",
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "number of tracers; defaults to the number of logical cpus",
				},
				cli.IntFlag{
					Name:  "passes",
					Value: 1,
					Usage: "number of passes to accumulate",
				},
				cli.BoolFlag{
					Name:  "no-nee",
					Usage: "disable next event estimation",
				},
				cli.BoolFlag{
					Name:  "flat",
					Usage: "trace the scene instances as a flat list instead of the TLAS",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
				cli.IntFlag{
					Name:  "thumbnail",
					Usage: "also write a thumbnail with this width",
				},
				cli.BoolFlag{
					Name:  "upload",
					Usage: "upload the rendered images to the configured bucket",
				},
				cli.StringFlag{
					Name:  "env-file",
					Value: ".env",
					Usage: "file with upload settings",
				},
			}, sceneFlags...),
			Action: cmd.RenderFrame,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
