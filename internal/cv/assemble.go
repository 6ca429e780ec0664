package cv

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Background fills canvas area not covered by narrower segments
var Background color.Color = color.RGBA{R: 0, G: 0, B: 255, A: 255}

// Concat stacks images vertically, left-aligned, on a Background-filled canvas
func Concat(images ...*image.RGBA) *image.RGBA {
	return ConcatWithBackground(Background, images...)
}

// ConcatWithBackground stacks images vertically on a canvas filled with bg.
// Canvas width is the widest input and height is the sum of input heights.
// Inputs are never modified.
func ConcatWithBackground(bg color.Color, images ...*image.RGBA) *image.RGBA {
	width, height := 0, 0
	for _, img := range images {
		if img == nil {
			continue
		}
		b := img.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		height += b.Dy()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return canvas
	}

	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	drawY := 0
	for _, img := range images {
		if img == nil {
			continue
		}
		b := img.Bounds()
		dst := image.Rect(0, drawY, b.Dx(), drawY+b.Dy())
		draw.Draw(canvas, dst, img, b.Min, draw.Src)
		drawY += b.Dy()
	}

	return canvas
}
