package scene

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/polaris-rt/pathtracer/accel"
	"github.com/polaris-rt/pathtracer/accel/bvh"
	"github.com/polaris-rt/pathtracer/asset/texture"
	"github.com/polaris-rt/pathtracer/geometry"
	"github.com/polaris-rt/pathtracer/log"
	"github.com/polaris-rt/pathtracer/material"
)

var (
	ErrDuplicateMaterial = errors.New("scene: material already defined")
	ErrUnknownMesh       = errors.New("scene: instance references unknown mesh")
)

var logger = log.New("scene")

// A named mesh and its acceleration structure. Meshes are shared by all
// instances that reference them.
type Mesh struct {
	Name string
	BLAS *accel.BLAS
}

// A renderable scene: geometry, materials, lights, a camera and the
// environment. Scenes are assembled with the Add* methods and finalized with
// Build, which creates the TLAS and registers emissive geometry as area
// lights.
type Scene struct {
	Name string

	Camera *Camera

	Meshes    []*Mesh
	Instances []*accel.Instance
	TLAS      *accel.TLAS

	// Point lights added explicitly and area lights generated by Build.
	Lights []Light

	Materials   material.List
	Environment Environment

	pointLights []Light
}

// Create an empty scene with a default camera.
func NewScene(name string) *Scene {
	return &Scene{
		Name:   name,
		Camera: NewCamera(45),
		TLAS:   accel.NewTLAS(),
	}
}

// Add a material and return its index. Material names must be unique.
func (s *Scene) AddMaterial(mat material.Material) (uint32, error) {
	for _, existing := range s.Materials {
		if existing.Name == mat.Name {
			return 0, fmt.Errorf("%w: %q", ErrDuplicateMaterial, mat.Name)
		}
	}
	s.Materials = append(s.Materials, mat)
	return uint32(len(s.Materials) - 1), nil
}

// Build a BLAS for a set of primitives and register it as a mesh.
func (s *Scene) AddMesh(name string, prims []geometry.Primitive) (*Mesh, error) {
	blas, err := accel.NewBLAS(prims)
	if err != nil {
		return nil, fmt.Errorf("scene: could not build mesh %q: %w", name, err)
	}
	mesh := &Mesh{Name: name, BLAS: blas}
	s.Meshes = append(s.Meshes, mesh)
	return mesh, nil
}

// Create a new instance of a registered mesh.
func (s *Scene) AddInstance(mesh *Mesh) (*accel.Instance, error) {
	for _, existing := range s.Meshes {
		if existing == mesh {
			inst := accel.NewInstance(mesh.BLAS)
			s.Instances = append(s.Instances, inst)
			return inst, nil
		}
	}
	return nil, ErrUnknownMesh
}

// Add a point light.
func (s *Scene) AddPointLight(light Light) {
	s.pointLights = append(s.pointLights, light)
}

// Build the TLAS from the current instance set and regenerate the light list
// from the emissive primitives of all instances. Build must be called after
// instance transforms change and before rendering.
func (s *Scene) Build() error {
	if err := s.TLAS.Build(s.Instances); err != nil {
		return fmt.Errorf("scene: could not build TLAS: %w", err)
	}

	s.Lights = append(s.Lights[:0], s.pointLights...)
	for _, inst := range s.Instances {
		if inst.BBox().Empty() {
			continue
		}
		prims := inst.BLAS().Primitives()
		for idx := range prims {
			mat := s.Materials.Get(prims[idx].MaterialIndex)
			if !mat.IsEmissive() {
				continue
			}
			s.Lights = append(s.Lights, NewAreaLight(prims[idx].Transform(inst.Transform()), mat.Radiance()))
		}
	}

	logger.Infof("scene %q: %d meshes, %d instances, %d lights", s.Name, len(s.Meshes), len(s.Instances), len(s.Lights))
	return nil
}

// Get the scene instances as a flat object list.
func (s *Scene) Objects() []accel.Object {
	objects := make([]accel.Object, len(s.Instances))
	for idx, inst := range s.Instances {
		objects[idx] = inst
	}
	return objects
}

// Build a tabular representation of scene statistics.
func (s *Scene) Stats() string {
	var prims []geometry.Primitive
	var blasNodes []bvh.Node
	for _, mesh := range s.Meshes {
		prims = append(prims, mesh.BLAS.Primitives()...)
		blasNodes = append(blasNodes, mesh.BLAS.Nodes()...)
	}
	tlasNodes, _ := s.TLAS.Nodes()

	var texData []float32
	seen := make(map[*texture.Texture]bool)
	for _, mat := range s.Materials {
		if mat.AlbedoTexture != nil && !seen[mat.AlbedoTexture] {
			seen[mat.AlbedoTexture] = true
			texData = append(texData, mat.AlbedoTexture.Data...)
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "---", " ", fmtSize(prims, blasNodes)})
	table.Append([]string{"", "Meshes", fmt.Sprint(len(s.Meshes)), " "})
	table.Append([]string{"", "Primitives", fmt.Sprint(len(prims)), fmtSize(prims)})
	table.Append([]string{"", "BLAS nodes", fmt.Sprint(len(blasNodes)), fmtSize(blasNodes)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Instances", "---", " ", fmtSize(s.Instances, tlasNodes)})
	table.Append([]string{"", "Instances", fmt.Sprint(len(s.Instances)), fmtSize(s.Instances)})
	table.Append([]string{"", "TLAS nodes", fmt.Sprint(len(tlasNodes)), fmtSize(tlasNodes)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Lights", "---", fmt.Sprint(len(s.Lights)), fmtSize(s.Lights)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Materials", "---", " ", fmtSize(s.Materials, texData)})
	table.Append([]string{"", "Materials", fmt.Sprint(len(s.Materials)), fmtSize(s.Materials)})
	table.Append([]string{"", "Textures", fmt.Sprint(len(seen)), fmtSize(texData)})
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(prims, blasNodes, s.Instances, tlasNodes, s.Lights, s.Materials, texData), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
