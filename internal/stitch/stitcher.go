package stitch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"jordanella.com/pagestitch/internal/cv"
	"jordanella.com/pagestitch/internal/diagnostics"
	"jordanella.com/pagestitch/internal/logging"
	"jordanella.com/pagestitch/internal/surface"
)

// Artifact names published when a comparison band cannot be matched
const (
	ArtifactTargetImage = "targetImage"
	ArtifactTemplate    = "template"
)

// Outcome describes how a successful run ended
type Outcome int

const (
	// OutcomeExhausted means scrolling stopped producing new content
	OutcomeExhausted Outcome = iota
	// OutcomeSwipeLimit means the swipe limit was hit and the image may be partial
	OutcomeSwipeLimit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeSwipeLimit:
		return "swipe_limit"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is a stitched page
type Result struct {
	Image      *image.RGBA
	Iterations int // Captures merged after the first one
	Outcome    Outcome
}

// Sleeper waits d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Stitcher
type Option func(*Stitcher)

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *Stitcher) {
		s.logger = logger
	}
}

// WithPublisher sets where mismatch artifacts go
func WithPublisher(p diagnostics.Publisher) Option {
	return func(s *Stitcher) {
		s.publisher = p
	}
}

// WithSleeper replaces the stabilization wait
func WithSleeper(sleep Sleeper) Option {
	return func(s *Stitcher) {
		s.sleep = sleep
	}
}

// Stitcher captures full-page images from one surface. Its methods must not
// be called concurrently because the surface is stateful.
type Stitcher struct {
	surface   surface.Surface
	cfg       Config
	logger    *logging.Logger
	publisher diagnostics.Publisher
	sleep     Sleeper
	match     cv.Matcher
}

// New validates cfg and creates a Stitcher for surf
func New(surf surface.Surface, cfg Config, opts ...Option) (*Stitcher, error) {
	if surf == nil {
		return nil, fmt.Errorf("%w: surface is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Stitcher{
		surface: surf,
		cfg:     cfg,
		logger:  logging.NewLogger("Stitcher"),
		sleep:   sleepContext,
		match:   cv.MatchOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the configuration in use
func (s *Stitcher) Config() Config {
	return s.cfg
}

// Capture scrolls the surface to the top, reads its viewport height and
// stitches the whole page
func (s *Stitcher) Capture(ctx context.Context) (*Result, error) {
	if err := s.surface.ScrollToEdge(ctx, surface.EdgeTop); err != nil {
		return nil, fmt.Errorf("scroll to top: %w", err)
	}

	_, height, err := s.surface.ViewportSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("read viewport size: %w", err)
	}

	return s.Stitch(ctx, height)
}

// Stitch builds the page image starting from the current scroll position.
// viewportHeight is in logical pixels. The surface is scrolled back to the
// top on every return path.
func (s *Stitcher) Stitch(ctx context.Context, viewportHeight int) (result *Result, err error) {
	defer func() {
		resetErr := s.resetScroll(ctx)
		if resetErr == nil {
			return
		}
		if err == nil {
			result = nil
			err = fmt.Errorf("reset scroll position: %w", resetErr)
			return
		}
		s.logger.Error("Failed to reset scroll position after failed stitch", resetErr)
	}()

	dpr, err := s.surface.DevicePixelRatio(ctx)
	if err != nil {
		return nil, fmt.Errorf("read device pixel ratio: %w", err)
	}
	if dpr <= 0 || math.IsNaN(dpr) || math.IsInf(dpr, 0) {
		return nil, fmt.Errorf("%w: device pixel ratio %v", ErrInvalidGeometry, dpr)
	}

	logical := ComputeCropWindow(viewportHeight, s.cfg.CutFraction)
	phys := logical.Scaled(dpr)

	swipeRate := logical.ScrollableHeight / s.cfg.SwipeDivider
	physRate := scale(swipeRate, dpr)
	frame := comparisonBand(phys.ScrollableHeight, physRate, s.cfg.FrameShift)
	if swipeRate <= 0 || !frame.valid(phys.ScrollableHeight) {
		return nil, fmt.Errorf("%w: comparison band %+v does not fit a %d row window (swipe rate %d, frame shift %d)",
			ErrInvalidGeometry, frame, phys.ScrollableHeight, physRate, s.cfg.FrameShift)
	}

	log := s.logger.WithContext(map[string]interface{}{
		"viewport_height": viewportHeight,
		"dpr":             dpr,
		"swipe_rate":      swipeRate,
	})
	log.Info("Starting full page capture", map[string]interface{}{
		"top_indent":        phys.TopIndent,
		"scrollable_height": phys.ScrollableHeight,
		"swipe_limit":       s.cfg.SwipeLimit,
	})

	viewport, err := s.capture(ctx)
	if err != nil {
		return nil, err
	}
	if err := phys.Validate(viewport.Bounds().Dy()); err != nil {
		return nil, err
	}

	seed, err := cv.CropRows(viewport, 0, phys.BottomStartY())
	if err != nil {
		return nil, fmt.Errorf("crop first capture: %w", err)
	}

	segments := []*image.RGBA{seed}
	var previousFrame *image.RGBA

	for count := 0; count < s.cfg.SwipeLimit; count++ {
		if err := s.surface.ScrollBy(ctx, swipeRate, s.cfg.SwipeDuration); err != nil {
			return nil, fmt.Errorf("scroll by %d: %w", swipeRate, err)
		}
		if err := s.sleep(ctx, s.cfg.StabilizationDuration); err != nil {
			return nil, fmt.Errorf("wait for scroll to settle: %w", err)
		}

		viewport, err = s.capture(ctx)
		if err != nil {
			return nil, err
		}

		area, err := cv.CropRows(viewport, phys.TopIndent, phys.ScrollableHeight)
		if err != nil {
			return nil, fmt.Errorf("%w: crop capture %d: %v", ErrInvalidGeometry, count+1, err)
		}
		currentFrame, err := cv.CropRows(area, frame.from, frame.height)
		if err != nil {
			return nil, fmt.Errorf("%w: crop comparison band: %v", ErrInvalidGeometry, err)
		}

		if previousFrame != nil && cv.Equal(currentFrame, previousFrame) {
			tail, err := cv.CropRows(viewport, phys.BottomStartY(), viewport.Bounds().Dy()-phys.BottomStartY())
			if err != nil {
				return nil, fmt.Errorf("%w: crop final tail: %v", ErrInvalidGeometry, err)
			}
			segments = append(segments, tail)

			out := &Result{Image: cv.Concat(segments...), Iterations: count, Outcome: OutcomeExhausted}
			log.Info("Reached end of content", map[string]interface{}{
				"iterations": count,
				"height":     out.Image.Bounds().Dy(),
			})
			return out, nil
		}

		last := segments[len(segments)-1]
		inSegment := s.match(last, currentFrame)
		if !inSegment.Accepted(s.cfg.MatchScoreThreshold) {
			return nil, s.abort(ctx, area, currentFrame, TargetSegment, inSegment.Score, count)
		}
		inArea := s.match(area, currentFrame)
		if !inArea.Accepted(s.cfg.MatchScoreThreshold) {
			return nil, s.abort(ctx, area, currentFrame, TargetArea, inArea.Score, count)
		}

		kept, err := cv.CropRows(last, 0, inSegment.OffsetY)
		if err != nil {
			return nil, fmt.Errorf("trim stitched segment: %w", err)
		}
		fresh, err := cv.CropRows(area, inArea.OffsetY, area.Bounds().Dy()-inArea.OffsetY)
		if err != nil {
			return nil, fmt.Errorf("crop new content: %w", err)
		}
		segments[len(segments)-1] = kept
		segments = append(segments, fresh)
		previousFrame = currentFrame

		log.Debug("Merged capture", map[string]interface{}{
			"iteration":     count + 1,
			"segment_y":     inSegment.OffsetY,
			"segment_score": inSegment.Score,
			"area_y":        inArea.OffsetY,
			"area_score":    inArea.Score,
		})
	}

	log.Warn(fmt.Sprintf("Taking of full page screenshot is stopped due to exceeded swipe limit '%d'", s.cfg.SwipeLimit), nil)
	return &Result{Image: cv.Concat(segments...), Iterations: s.cfg.SwipeLimit, Outcome: OutcomeSwipeLimit}, nil
}

func (s *Stitcher) capture(ctx context.Context) (*image.RGBA, error) {
	viewport, err := s.surface.CaptureViewport(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture viewport: %w", err)
	}
	if viewport == nil {
		return nil, fmt.Errorf("capture viewport: %w", cv.ErrInvalidImage)
	}
	return cv.ToRGBA(viewport), nil
}

// abort publishes the mismatch artifacts and returns the mismatch error
func (s *Stitcher) abort(ctx context.Context, area, template *image.RGBA, target MismatchTarget, score float64, iteration int) error {
	mismatch := &TemplateMismatchError{
		Image:     area,
		Template:  template,
		Target:    target,
		Score:     score,
		Threshold: s.cfg.MatchScoreThreshold,
		Iteration: iteration,
	}
	s.logger.ErrorWithContext("Comparison band not found", mismatch, map[string]interface{}{
		"target": string(target),
	})

	if s.publisher != nil {
		err := errors.Join(
			s.publisher.Publish(ctx, ArtifactTargetImage, area),
			s.publisher.Publish(ctx, ArtifactTemplate, template),
		)
		if err != nil {
			s.logger.Error("Failed to publish mismatch artifacts", err)
		}
	}

	return mismatch
}

// resetScroll returns the surface to the top even when ctx is already done
func (s *Stitcher) resetScroll(ctx context.Context) error {
	resetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ResetTimeout)
	defer cancel()
	return s.surface.ScrollToEdge(resetCtx, surface.EdgeTop)
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
