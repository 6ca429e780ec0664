package stitch

import (
	"fmt"
	"math"
)

// FrameGeometry is the vertical crop window of a viewport capture
type FrameGeometry struct {
	TopIndent        int
	ScrollableHeight int
}

// ComputeCropWindow trims cutFraction of the viewport height from both the
// top and the bottom
func ComputeCropWindow(viewportHeight int, cutFraction float64) FrameGeometry {
	top := int(math.Round(float64(viewportHeight) * cutFraction))
	return FrameGeometry{
		TopIndent:        top,
		ScrollableHeight: viewportHeight - 2*top,
	}
}

// BottomStartY is the first row below the crop window
func (g FrameGeometry) BottomStartY() int {
	return g.TopIndent + g.ScrollableHeight
}

// Scaled converts logical geometry to physical pixels
func (g FrameGeometry) Scaled(dpr float64) FrameGeometry {
	return FrameGeometry{
		TopIndent:        scale(g.TopIndent, dpr),
		ScrollableHeight: scale(g.ScrollableHeight, dpr),
	}
}

// Validate reports whether the window fits inside a capture of the given height
func (g FrameGeometry) Validate(viewportHeight int) error {
	if g.TopIndent < 0 || g.ScrollableHeight <= 0 {
		return fmt.Errorf("%w: crop window %+v is empty", ErrInvalidGeometry, g)
	}
	if g.BottomStartY() > viewportHeight {
		return fmt.Errorf("%w: crop window ends at row %d but viewport has %d rows",
			ErrInvalidGeometry, g.BottomStartY(), viewportHeight)
	}
	return nil
}

func scale(v int, dpr float64) int {
	return int(math.Round(float64(v) * dpr))
}

// band is the comparison region inside the crop window, in physical rows
type band struct {
	from, height int
}

// comparisonBand is the second-to-last 1/divider of a window of windowHeight
// rows, with shift rows dropped from its top. It always lies inside content
// both the previous and the next capture show.
func comparisonBand(windowHeight, physRate, shift int) band {
	from := windowHeight - 2*physRate + shift
	return band{from: from, height: physRate - shift}
}

func (b band) valid(windowHeight int) bool {
	return b.from >= 0 && b.height > 0 && b.from+b.height <= windowHeight
}
