package surface

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"jordanella.com/pagestitch/internal/logging"
)

type swipe struct {
	x1, y1, x2, y2 int
}

// fakeDevice scrolls a solid-banded screen until it hits its limit
type fakeDevice struct {
	width, height int
	density       int
	position      int // 0 is the top
	maxPosition   int
	swipes        []swipe
	screencaps    int
}

func (d *fakeDevice) Screencap(ctx context.Context) (image.Image, error) {
	d.screencaps++
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	shade := uint8(d.position * 10)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: shade, A: 255})
		}
	}
	return img, nil
}

func (d *fakeDevice) WindowSize(ctx context.Context) (int, int, error) {
	return d.width, d.height, nil
}

func (d *fakeDevice) Density(ctx context.Context) (int, error) {
	return d.density, nil
}

func (d *fakeDevice) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	d.swipes = append(d.swipes, swipe{x1, y1, x2, y2})
	switch {
	case y2 > y1 && d.position > 0:
		d.position--
	case y2 < y1 && d.position < d.maxPosition:
		d.position++
	}
	return nil
}

func newTestADB(dev *fakeDevice) *ADB {
	s := NewADB(dev, ADBOptions{MaxEdgeSwipes: 5})
	s.SetLogger(logging.Discard("ADBSurface"))
	return s
}

func TestADBMetrics(t *testing.T) {
	dev := &fakeDevice{width: 1080, height: 2400, density: 420}
	s := newTestADB(dev)

	dpr, err := s.DevicePixelRatio(context.Background())
	if err != nil {
		t.Fatalf("DevicePixelRatio failed: %v", err)
	}
	if dpr != 2.625 {
		t.Errorf("Expected dpr 2.625, got %v", dpr)
	}

	w, h, err := s.ViewportSize(context.Background())
	if err != nil {
		t.Fatalf("ViewportSize failed: %v", err)
	}
	if w != 411 || h != 914 {
		t.Errorf("Expected 411x914 dp, got %dx%d", w, h)
	}
}

func TestADBScrollByConvertsToPixels(t *testing.T) {
	dev := &fakeDevice{width: 1080, height: 2400, density: 320, maxPosition: 10}
	s := newTestADB(dev)

	if err := s.ScrollBy(context.Background(), 200, time.Second); err != nil {
		t.Fatalf("ScrollBy failed: %v", err)
	}

	got := dev.swipes[0]
	want := swipe{x1: 540, y1: 1400, x2: 540, y2: 1000}
	if got != want {
		t.Errorf("Expected swipe %+v, got %+v", want, got)
	}
}

func TestADBScrollToEdgeStopsWhenScreenSettles(t *testing.T) {
	dev := &fakeDevice{width: 100, height: 200, density: 160, position: 3, maxPosition: 5}
	s := newTestADB(dev)

	if err := s.ScrollToEdge(context.Background(), EdgeTop); err != nil {
		t.Fatalf("ScrollToEdge failed: %v", err)
	}
	if dev.position != 0 {
		t.Errorf("Expected top position, got %d", dev.position)
	}
	// 3 swipes to reach the top and one more to see that nothing moved
	if len(dev.swipes) != 4 {
		t.Errorf("Expected 4 swipes, got %d", len(dev.swipes))
	}
	if dev.swipes[0].y2 <= dev.swipes[0].y1 {
		t.Error("Top edge should drag the finger downwards")
	}
}

// tickingBarsDevice redraws the status and navigation bars on every screencap,
// like a clock or a notification icon would
type tickingBarsDevice struct {
	*fakeDevice
	ticks uint8
}

func (d *tickingBarsDevice) Screencap(ctx context.Context) (image.Image, error) {
	img, err := d.fakeDevice.Screencap(ctx)
	if err != nil {
		return nil, err
	}
	d.ticks++
	rgba := img.(*image.RGBA)
	rgba.SetRGBA(0, 0, color.RGBA{G: d.ticks, A: 255})
	rgba.SetRGBA(0, rgba.Bounds().Dy()-1, color.RGBA{B: d.ticks, A: 255})
	return rgba, nil
}

func TestADBScrollToEdgeIgnoresChangingSystemBars(t *testing.T) {
	dev := &tickingBarsDevice{fakeDevice: &fakeDevice{width: 100, height: 200, density: 160, position: 2, maxPosition: 5}}
	s := NewADB(dev, ADBOptions{MaxEdgeSwipes: 5})
	s.SetLogger(logging.Discard("ADBSurface"))

	if err := s.ScrollToEdge(context.Background(), EdgeTop); err != nil {
		t.Fatalf("ScrollToEdge failed: %v", err)
	}
	if dev.position != 0 {
		t.Errorf("Expected top position, got %d", dev.position)
	}
	if len(dev.swipes) != 3 {
		t.Errorf("Expected 3 swipes, got %d", len(dev.swipes))
	}
}

func TestADBScrollToEdgeGivesUp(t *testing.T) {
	dev := &fakeDevice{width: 100, height: 200, density: 160, maxPosition: 100}
	s := newTestADB(dev)

	err := s.ScrollToEdge(context.Background(), EdgeBottom)
	if !errors.Is(err, ErrEdgeNotReached) {
		t.Fatalf("Expected ErrEdgeNotReached, got %v", err)
	}
	if len(dev.swipes) != 5 {
		t.Errorf("Expected MaxEdgeSwipes swipes, got %d", len(dev.swipes))
	}
}

func TestADBScrollToEdgeHonorsCancellation(t *testing.T) {
	dev := &fakeDevice{width: 100, height: 200, density: 160, position: 3, maxPosition: 5}
	s := NewADB(dev, ADBOptions{MaxEdgeSwipes: 5, EdgeSettle: time.Minute})
	s.SetLogger(logging.Discard("ADBSurface"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.ScrollToEdge(ctx, EdgeTop); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestScrollScripts(t *testing.T) {
	if got := scrollByScript(93); !strings.Contains(got, "top: 93") {
		t.Errorf("Unexpected scrollBy script %q", got)
	}
	if got := scrollToEdgeScript(EdgeTop); !strings.Contains(got, "top: 0") {
		t.Errorf("Unexpected scroll to top script %q", got)
	}
	if got := scrollToEdgeScript(EdgeBottom); !strings.Contains(got, "scrollHeight") {
		t.Errorf("Unexpected scroll to bottom script %q", got)
	}
}

func TestOpenRejectsUnknownKind(t *testing.T) {
	if _, err := Open(context.Background(), Config{Kind: "vnc"}); err == nil {
		t.Error("Expected error for unknown surface kind")
	}
}

func TestOpenChromeRequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), Config{Kind: "Chrome"}); err == nil {
		t.Error("Expected error for missing URL")
	}
}

func TestEdgeString(t *testing.T) {
	if EdgeTop.String() != "top" || EdgeBottom.String() != "bottom" {
		t.Error("Unexpected edge names")
	}
}
