package cmd

import (
	"strings"

	"github.com/polaris-rt/pathtracer/scene"
	"github.com/urfave/cli"
)

// Display scene preset info.
func ShowSceneInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	names := scene.PresetNames()
	if ctx.NArg() > 0 {
		names = ctx.Args()
	}

	for _, name := range names {
		sc, err := scene.Preset(name, scene.PresetOptions{
			GridSize:     ctx.Int("grid-size"),
			FloorTexture: ctx.String("floor-texture"),
		})
		if err != nil {
			return err
		}

		logger.Noticef("scene %q information:\n%s", name, sc.Stats())
	}

	return nil
}

// List the available scene presets.
func ListPresets(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	logger.Noticef("available scene presets: %s", strings.Join(scene.PresetNames(), ", "))
	return nil
}
