package surface

import (
	"context"
	"fmt"
	"image"
	"time"
)

// Surface is a device or browser viewport that can be captured and scrolled.
// Sizes and scroll distances are logical pixels and captures are physical
// pixels, related by DevicePixelRatio. A Surface is a single stateful
// resource and is not safe for concurrent use.
type Surface interface {
	// CaptureViewport returns a bitmap of what is currently visible
	CaptureViewport(ctx context.Context) (*image.RGBA, error)

	// ViewportSize returns the visible area in logical pixels
	ViewportSize(ctx context.Context) (width, height int, err error)

	// DevicePixelRatio returns physical pixels per logical pixel
	DevicePixelRatio(ctx context.Context) (float64, error)

	// ScrollBy moves the content up by distance logical pixels over duration
	ScrollBy(ctx context.Context, distance int, duration time.Duration) error

	// ScrollToEdge scrolls until the given edge of the content is reached
	ScrollToEdge(ctx context.Context, edge Edge) error
}

// Edge names a scroll boundary
type Edge int

const (
	EdgeTop Edge = iota
	EdgeBottom
)

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	default:
		return fmt.Sprintf("Edge(%d)", int(e))
	}
}
