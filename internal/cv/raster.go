package cv

import (
	"bytes"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Error types
var (
	ErrCropOutOfRange = fmt.Errorf("crop rows out of image range")
	ErrInvalidImage   = fmt.Errorf("invalid image provided")
)

// ToRGBA returns img as a zero-origin *image.RGBA, copying only when needed
func ToRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// CropRows copies rows [fromY, fromY+height) of img into a new zero-origin image.
// The full width is kept.
func CropRows(img *image.RGBA, fromY, height int) (*image.RGBA, error) {
	if img == nil {
		return nil, ErrInvalidImage
	}
	bounds := img.Bounds()
	if fromY < 0 || height < 0 || fromY+height > bounds.Dy() {
		return nil, fmt.Errorf("%w: rows [%d, %d) of %d", ErrCropOutOfRange, fromY, fromY+height, bounds.Dy())
	}

	width := bounds.Dx()
	cropped := image.NewRGBA(image.Rect(0, 0, width, height))
	rowBytes := width * 4

	for y := 0; y < height; y++ {
		src := img.PixOffset(bounds.Min.X, bounds.Min.Y+fromY+y)
		dst := y * cropped.Stride
		copy(cropped.Pix[dst:dst+rowBytes], img.Pix[src:src+rowBytes])
	}

	return cropped, nil
}

// Equal reports whether a and b have the same size and byte-identical pixels
func Equal(a, b *image.RGBA) bool {
	if a == nil || b == nil {
		return a == b
	}
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return false
	}

	rowBytes := ab.Dx() * 4
	for y := 0; y < ab.Dy(); y++ {
		ai := a.PixOffset(ab.Min.X, ab.Min.Y+y)
		bi := b.PixOffset(bb.Min.X, bb.Min.Y+y)
		if !bytes.Equal(a.Pix[ai:ai+rowBytes], b.Pix[bi:bi+rowBytes]) {
			return false
		}
	}
	return true
}

// grayPlane is a single-channel intensity image
type grayPlane struct {
	width, height int
	pix           []float64
}

// toGrayPlane converts img to luminance using the 299/587/114 weights
func toGrayPlane(img *image.RGBA) *grayPlane {
	bounds := img.Bounds()
	plane := &grayPlane{
		width:  bounds.Dx(),
		height: bounds.Dy(),
		pix:    make([]float64, bounds.Dx()*bounds.Dy()),
	}

	for y := 0; y < plane.height; y++ {
		idx := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		row := y * plane.width
		for x := 0; x < plane.width; x++ {
			r := int(img.Pix[idx])
			g := int(img.Pix[idx+1])
			b := int(img.Pix[idx+2])
			plane.pix[row+x] = float64(r*299+g*587+b*114) / 1000
			idx += 4
		}
	}

	return plane
}
