package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/polaris-rt/pathtracer/renderer"
)

var (
	ErrEmptyFrame          = errors.New("export: empty frame")
	ErrUnsupportedFormat   = errors.New("export: unsupported image format")
	ErrUploadNotConfigured = errors.New("export: upload bucket not configured")
)

// Display gamma applied after tone mapping.
const Gamma float32 = 2.2

// Tone map a linear HDR frame into an 8-bit sRGB-ish image. Each channel is
// mapped through 1 - exp(-v * exposure), gamma corrected and clamped.
func ToImage(frame *renderer.Frame, exposure float32) (*image.NRGBA, error) {
	if frame == nil || frame.Width == 0 || frame.Height == 0 {
		return nil, ErrEmptyFrame
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(frame.Width), int(frame.Height)))
	for y := uint32(0); y < frame.Height; y++ {
		for x := uint32(0); x < frame.Width; x++ {
			c := frame.At(x, y)
			img.SetNRGBA(int(x), int(y), color.NRGBA{
				R: tonemap(c[0], exposure),
				G: tonemap(c[1], exposure),
				B: tonemap(c[2], exposure),
				A: 255,
			})
		}
	}
	return img, nil
}

func tonemap(v, exposure float32) uint8 {
	if !(v > 0) {
		return 0
	}
	v = 1 - math32.Exp(-v*exposure)
	v = math32.Pow(v, 1/Gamma)
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Write an image to path. The format is selected by the file extension.
func Save(img image.Image, path string) error {
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return imaging.Save(img, path)
}

// Encode an image to w using the format implied by filename.
func Encode(w io.Writer, img image.Image, filename string) error {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	return imaging.Encode(w, img, format)
}

// Scale img down to the given width preserving its aspect ratio.
func Thumbnail(img image.Image, width uint) image.Image {
	return resize.Resize(width, 0, img, resize.Bilinear)
}
