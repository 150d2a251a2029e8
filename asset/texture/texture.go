package texture

import (
	"errors"
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
	"github.com/polaris-rt/pathtracer/asset"
	"github.com/polaris-rt/pathtracer/types"
)

var ErrEmptyTexture = errors.New("texture: image has no pixels")

// A decoded texture. Pixels are stored as linear RGB triplets in row-major
// order with the first row at the top of the image.
type Texture struct {
	Name string

	Width  uint32
	Height uint32

	Data []float32
}

// Decode a texture from a Resource. Any format supported by the imaging
// package can be used; 8-bit data is assumed to be sRGB encoded and gets
// converted to linear space.
func New(res *asset.Resource) (*Texture, error) {
	img, err := imaging.Decode(res, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("texture: could not decode %s: %w", res.Path(), err)
	}

	tex, err := FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, res.Path())
	}
	tex.Name = res.Name()
	return tex, nil
}

// Convert an in-memory image into a linear space texture.
func FromImage(img image.Image) (*Texture, error) {
	nrgba := imaging.Clone(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	if w == 0 || h == 0 {
		return nil, ErrEmptyTexture
	}

	tex := &Texture{
		Width:  uint32(w),
		Height: uint32(h),
		Data:   make([]float32, 0, w*h*3),
	}
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := 0; x < w; x++ {
			tex.Data = append(tex.Data, srgbToLinear[row[x*4]], srgbToLinear[row[x*4+1]], srgbToLinear[row[x*4+2]])
		}
	}
	return tex, nil
}

// Create a procedural checkerboard texture with the given number of cells
// per side.
func NewChecker(size, cells uint32, c0, c1 types.Vec3) *Texture {
	if size == 0 {
		size = 1
	}
	if cells == 0 {
		cells = 1
	}

	tex := &Texture{
		Name:   "checker",
		Width:  size,
		Height: size,
		Data:   make([]float32, 0, size*size*3),
	}
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			c := c0
			if (x*cells/size+y*cells/size)%2 == 1 {
				c = c1
			}
			tex.Data = append(tex.Data, c[0], c[1], c[2])
		}
	}
	return tex
}

// Get the texel at (x, y). Coordinates wrap around the texture edges.
func (t *Texture) At(x, y int) types.Vec3 {
	w, h := int(t.Width), int(t.Height)
	x = ((x % w) + w) % w
	y = ((y % h) + h) % h
	offset := (y*w + x) * 3
	return types.Vec3{t.Data[offset], t.Data[offset+1], t.Data[offset+2]}
}

// Sample the texture at uv using bilinear filtering. UVs outside [0, 1]
// wrap; v = 0 maps to the bottom row.
func (t *Texture) Sample(uv types.Vec2) types.Vec3 {
	if !isFinite(uv[0]) || !isFinite(uv[1]) {
		return t.At(0, 0)
	}

	u := uv[0] - math32.Floor(uv[0])
	v := 1 - (uv[1] - math32.Floor(uv[1]))

	x := u*float32(t.Width) - 0.5
	y := v*float32(t.Height) - 0.5
	x0, y0 := math32.Floor(x), math32.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	c00 := t.At(ix, iy)
	c10 := t.At(ix+1, iy)
	c01 := t.At(ix, iy+1)
	c11 := t.At(ix+1, iy+1)

	return c00.Mul((1 - fx) * (1 - fy)).
		Add(c10.Mul(fx * (1 - fy))).
		Add(c01.Mul((1 - fx) * fy)).
		Add(c11.Mul(fx * fy))
}

func isFinite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

var srgbToLinear = func() (lut [256]float32) {
	for i := range lut {
		c := float32(i) / 255
		if c <= 0.04045 {
			lut[i] = c / 12.92
		} else {
			lut[i] = math32.Pow((c+0.055)/1.055, 2.4)
		}
	}
	return lut
}()
