package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/polaris-rt/pathtracer/asset"
	"github.com/polaris-rt/pathtracer/asset/texture"
	"github.com/polaris-rt/pathtracer/geometry"
	"github.com/polaris-rt/pathtracer/material"
	"github.com/polaris-rt/pathtracer/types"
)

var ErrUnknownPreset = errors.New("scene: unknown preset")

// Options for procedurally generated scenes.
type PresetOptions struct {
	// Number of instances per grid side for presets that scatter copies of
	// a mesh.
	GridSize int

	// Optional texture path or URL used for floor surfaces. A procedural
	// checkerboard is used when empty.
	FloorTexture string
}

type presetFn func(opts PresetOptions) (*Scene, error)

var presets = map[string]presetFn{
	"cornell":   cornellBox,
	"instances": instanceGrid,
}

// Get the names of the available scene presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate and build a scene preset.
func Preset(name string, opts PresetOptions) (*Scene, error) {
	fn, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w %q; available presets: %v", ErrUnknownPreset, name, PresetNames())
	}
	if opts.GridSize <= 0 {
		opts.GridSize = 5
	}

	sc, err := fn(opts)
	if err != nil {
		return nil, err
	}
	if err = sc.Build(); err != nil {
		return nil, err
	}
	return sc, nil
}

// A box shaped room lit by a ceiling panel, with two instances of the same
// box mesh and a glass sphere.
func cornellBox(_ PresetOptions) (*Scene, error) {
	sc := NewScene("cornell")

	white, _ := sc.AddMaterial(material.NewDiffuse("white", types.Vec3{0.73, 0.73, 0.73}))
	red, _ := sc.AddMaterial(material.NewDiffuse("red", types.Vec3{0.65, 0.05, 0.05}))
	green, _ := sc.AddMaterial(material.NewDiffuse("green", types.Vec3{0.12, 0.45, 0.15}))
	light, _ := sc.AddMaterial(material.NewEmissive("light", types.Vec3{1, 0.85, 0.6}, 15))
	glass, _ := sc.AddMaterial(material.NewDielectric("glass", material.KnownIORs["Glass"]))

	p := func(x, y, z float32) types.Vec3 { return types.Vec3{x, y, z} }

	var room []geometry.Primitive
	room = append(room, geometry.Quad(p(-1, 0, 1), p(1, 0, 1), p(1, 0, -1), p(-1, 0, -1), white)...)  // floor
	room = append(room, geometry.Quad(p(-1, 2, -1), p(1, 2, -1), p(1, 2, 1), p(-1, 2, 1), white)...)  // ceiling
	room = append(room, geometry.Quad(p(-1, 0, -1), p(1, 0, -1), p(1, 2, -1), p(-1, 2, -1), white)...) // back
	room = append(room, geometry.Quad(p(-1, 0, 1), p(-1, 0, -1), p(-1, 2, -1), p(-1, 2, 1), red)...)  // left
	room = append(room, geometry.Quad(p(1, 0, -1), p(1, 0, 1), p(1, 2, 1), p(1, 2, -1), green)...)    // right

	panel := geometry.Quad(p(-0.25, 1.995, -0.25), p(0.25, 1.995, -0.25), p(0.25, 1.995, 0.25), p(-0.25, 1.995, 0.25), light)
	box := geometry.Box(p(-0.5, -0.5, -0.5), p(0.5, 0.5, 0.5), white)
	ball := []geometry.Primitive{geometry.NewSphere(p(0, 0, 0), 1, glass)}

	type placement struct {
		mesh                string
		translation, rotate types.Vec3
		scale               types.Vec3
	}
	meshes := map[string][]geometry.Primitive{"room": room, "panel": panel, "box": box, "ball": ball}
	placements := []placement{
		{"room", p(0, 0, 0), p(0, 0, 0), p(1, 1, 1)},
		{"panel", p(0, 0, 0), p(0, 0, 0), p(1, 1, 1)},
		{"box", p(-0.33, 0.6, -0.3), p(0, 18, 0), p(0.6, 1.2, 0.6)},
		{"box", p(0.35, 0.3, 0.3), p(0, -15, 0), p(0.6, 0.6, 0.6)},
		{"ball", p(0.35, 0.85, 0.3), p(0, 0, 0), p(0.25, 0.25, 0.25)},
	}

	built := make(map[string]*Mesh)
	for _, name := range []string{"room", "panel", "box", "ball"} {
		mesh, err := sc.AddMesh(name, meshes[name])
		if err != nil {
			return nil, err
		}
		built[name] = mesh
	}
	for _, pl := range placements {
		inst, err := sc.AddInstance(built[pl.mesh])
		if err != nil {
			return nil, err
		}
		inst.SetTransform(pl.translation, pl.rotate, pl.scale)
	}

	sc.Camera = NewCamera(40)
	sc.Camera.Position = p(0, 1, 3.9)
	sc.Camera.LookAt = p(0, 1, 0)
	sc.Camera.Update()
	return sc, nil
}

// A grid of sphere instances with alternating materials resting on a
// textured floor under a sky gradient.
func instanceGrid(opts PresetOptions) (*Scene, error) {
	sc := NewScene("instances")

	floorTex, err := loadFloorTexture(opts.FloorTexture)
	if err != nil {
		return nil, err
	}
	floorMat, _ := sc.AddMaterial(material.NewTexturedDiffuse("floor", floorTex))
	sphereMats := make([]uint32, 0, 3)
	for _, mat := range []material.Material{
		material.NewDiffuse("clay", types.Vec3{0.8, 0.3, 0.2}),
		material.NewMetal("steel", types.Vec3{0.8, 0.8, 0.85}, material.DefaultRoughness),
		material.NewDielectric("glass", material.KnownIORs["Glass"]),
	} {
		idx, _ := sc.AddMaterial(mat)
		sphereMats = append(sphereMats, idx)
	}
	lightMat, _ := sc.AddMaterial(material.NewEmissive("sun", types.Vec3{1, 0.95, 0.9}, 8))

	extent := float32(opts.GridSize)
	floor, err := sc.AddMesh("floor", geometry.Quad(
		types.Vec3{-extent, 0, extent}, types.Vec3{extent, 0, extent},
		types.Vec3{extent, 0, -extent}, types.Vec3{-extent, 0, -extent},
		floorMat,
	))
	if err != nil {
		return nil, err
	}
	if _, err = sc.AddInstance(floor); err != nil {
		return nil, err
	}

	lamp, err := sc.AddMesh("lamp", geometry.Quad(
		types.Vec3{-1, 0, -1}, types.Vec3{-1, 0, 1}, types.Vec3{1, 0, 1}, types.Vec3{1, 0, -1},
		lightMat,
	))
	if err != nil {
		return nil, err
	}
	lampInst, err := sc.AddInstance(lamp)
	if err != nil {
		return nil, err
	}
	lampInst.SetTransform(types.Vec3{0, extent + 2, 0}, types.Vec3{}, types.Vec3{1, 1, 1})

	spheres := make([]*Mesh, len(sphereMats))
	for idx, matIdx := range sphereMats {
		if spheres[idx], err = sc.AddMesh(fmt.Sprintf("sphere-%d", idx), geometry.UVSphere(types.Vec3{}, 1, 32, 16, matIdx)); err != nil {
			return nil, err
		}
	}

	for z := 0; z < opts.GridSize; z++ {
		for x := 0; x < opts.GridSize; x++ {
			inst, err := sc.AddInstance(spheres[(x+z)%len(spheres)])
			if err != nil {
				return nil, err
			}
			inst.SetTransform(
				types.Vec3{2*float32(x) - extent + 1, 0.4, 2*float32(z) - extent + 1},
				types.Vec3{0, float32(x*z) * 15, 0},
				types.Splat(0.4),
			)
		}
	}

	sc.Environment = GradientEnvironment(types.Vec3{0.05, 0.05, 0.05}, types.Vec3{0.4, 0.55, 0.8})
	sc.Camera = NewCamera(45)
	sc.Camera.Position = types.Vec3{0, extent, 2.5 * extent}
	sc.Camera.LookAt = types.Vec3{0, 0, 0}
	sc.Camera.Update()
	return sc, nil
}

func loadFloorTexture(path string) (*texture.Texture, error) {
	if path == "" {
		return texture.NewChecker(256, 16, types.Vec3{0.8, 0.8, 0.8}, types.Vec3{0.1, 0.1, 0.1}), nil
	}

	res, err := asset.NewResource(path, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	return texture.New(res)
}
