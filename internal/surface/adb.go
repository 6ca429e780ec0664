package surface

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"jordanella.com/pagestitch/internal/adb"
	"jordanella.com/pagestitch/internal/cv"
	"jordanella.com/pagestitch/internal/logging"
)

// ErrEdgeNotReached is returned when repeated swipes keep changing the screen
var ErrEdgeNotReached = errors.New("scroll edge not reached")

// baselineDensity is the Android dpi at which one dp is one pixel
const baselineDensity = 160

// Device is the part of an adb controller the ADB surface drives
type Device interface {
	Screencap(ctx context.Context) (image.Image, error)
	WindowSize(ctx context.Context) (width, height int, err error)
	Density(ctx context.Context) (int, error)
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
}

// ADBOptions configures an ADB surface
type ADBOptions struct {
	Path              string        // adb binary or directory, empty searches PATH
	Device            string        // serial, empty picks the only ready device
	MaxEdgeSwipes     int           // swipes tried before giving up on an edge
	EdgeSwipeDuration time.Duration // duration of each edge swipe
	EdgeSettle        time.Duration // wait after each edge swipe before comparing
}

// DefaultADBOptions returns recommended settings
func DefaultADBOptions() ADBOptions {
	return ADBOptions{
		MaxEdgeSwipes:     20,
		EdgeSwipeDuration: 300 * time.Millisecond,
		EdgeSettle:        500 * time.Millisecond,
	}
}

// ADB is an Android screen reached through adb. Gestures are sent in
// physical pixels and converted from dp with the screen density.
type ADB struct {
	dev    Device
	opts   ADBOptions
	logger *logging.Logger
	close  func(ctx context.Context) error

	mu            sync.Mutex
	width, height int
	dpr           float64
}

// NewADB wraps dev
func NewADB(dev Device, opts ADBOptions) *ADB {
	if opts.MaxEdgeSwipes <= 0 {
		opts.MaxEdgeSwipes = DefaultADBOptions().MaxEdgeSwipes
	}
	return &ADB{
		dev:    dev,
		opts:   opts,
		logger: logging.NewLogger("ADBSurface"),
	}
}

// OpenADB finds adb, connects to the device and wraps it
func OpenADB(ctx context.Context, opts ADBOptions) (*ADB, error) {
	ctrl, err := adb.ConnectADB(ctx, opts.Path, opts.Device)
	if err != nil {
		return nil, err
	}
	s := NewADB(ctrl, opts)
	s.close = ctrl.Disconnect
	s.logger.InfoWithContext("Connected to device", map[string]interface{}{"device": ctrl.Device()})
	return s, nil
}

// SetLogger replaces the surface logger
func (s *ADB) SetLogger(logger *logging.Logger) {
	s.logger = logger
}

// metrics reads and caches the physical screen size and pixel ratio
func (s *ADB) metrics(ctx context.Context) (int, int, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dpr > 0 {
		return s.width, s.height, s.dpr, nil
	}

	w, h, err := s.dev.WindowSize(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("read window size: %w", err)
	}
	density, err := s.dev.Density(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("read density: %w", err)
	}

	s.width, s.height = w, h
	s.dpr = float64(density) / baselineDensity
	return s.width, s.height, s.dpr, nil
}

func (s *ADB) CaptureViewport(ctx context.Context) (*image.RGBA, error) {
	img, err := s.dev.Screencap(ctx)
	if err != nil {
		return nil, err
	}
	return cv.ToRGBA(img), nil
}

func (s *ADB) ViewportSize(ctx context.Context) (int, int, error) {
	w, h, dpr, err := s.metrics(ctx)
	if err != nil {
		return 0, 0, err
	}
	return int(math.Round(float64(w) / dpr)), int(math.Round(float64(h) / dpr)), nil
}

func (s *ADB) DevicePixelRatio(ctx context.Context) (float64, error) {
	_, _, dpr, err := s.metrics(ctx)
	return dpr, err
}

// ScrollBy drags the content up by distance dp around the screen centre
func (s *ADB) ScrollBy(ctx context.Context, distance int, duration time.Duration) error {
	w, h, dpr, err := s.metrics(ctx)
	if err != nil {
		return err
	}
	phys := int(math.Round(float64(distance) * dpr))
	x, cy := w/2, h/2
	return s.dev.Swipe(ctx, x, cy+phys/2, x, cy-phys/2, duration)
}

// edgeBandDivider splits the screen into thirds, the middle one is compared
const edgeBandDivider = 3

// ScrollToEdge swipes toward edge until the middle third of two consecutive
// captures is identical. Status and navigation bars are outside that band.
func (s *ADB) ScrollToEdge(ctx context.Context, edge Edge) error {
	w, h, _, err := s.metrics(ctx)
	if err != nil {
		return err
	}

	// Drag across 60% of the screen, downwards to reveal the top
	x, from, to := w/2, h/5, h*4/5
	if edge == EdgeBottom {
		from, to = to, from
	}

	previous, err := s.edgeBand(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < s.opts.MaxEdgeSwipes; i++ {
		if err := s.dev.Swipe(ctx, x, from, x, to, s.opts.EdgeSwipeDuration); err != nil {
			return fmt.Errorf("swipe to %s: %w", edge, err)
		}
		if err := wait(ctx, s.opts.EdgeSettle); err != nil {
			return err
		}

		current, err := s.edgeBand(ctx)
		if err != nil {
			return err
		}
		if cv.Equal(previous, current) {
			s.logger.DebugWithContext("Reached scroll edge", map[string]interface{}{
				"edge":   edge.String(),
				"swipes": i + 1,
			})
			return nil
		}
		previous = current
	}

	return fmt.Errorf("%w: %s after %d swipes", ErrEdgeNotReached, edge, s.opts.MaxEdgeSwipes)
}

// edgeBand captures the screen and keeps its middle third
func (s *ADB) edgeBand(ctx context.Context) (*image.RGBA, error) {
	img, err := s.CaptureViewport(ctx)
	if err != nil {
		return nil, err
	}
	h := img.Bounds().Dy()
	band, err := cv.CropRows(img, h-2*h/edgeBandDivider, h/edgeBandDivider)
	if err != nil {
		return nil, fmt.Errorf("crop edge band: %w", err)
	}
	return band, nil
}

// Close disconnects from the device when the surface owns the connection
func (s *ADB) Close() error {
	if s.close == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.close(ctx)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
