package stitch

import (
	"fmt"
	"time"
)

// Config controls a stitching run
type Config struct {
	CutFraction           float64       // Fraction of viewport height trimmed top and bottom
	SwipeLimit            int           // Maximum scroll iterations before returning a partial image
	StabilizationDuration time.Duration // Wait after each scroll before capture
	MatchScoreThreshold   float64       // Minimum accepted overlap score (0.0-1.0)
	FrameShift            int           // Physical rows trimmed from the top of the comparison band
	SwipeDivider          int           // Crop window is scrolled 1/SwipeDivider at a time
	SwipeDuration         time.Duration // Duration of each scroll gesture
	ResetTimeout          time.Duration // Budget for the final scroll-to-top
}

// DefaultConfig returns recommended settings
func DefaultConfig() Config {
	return Config{
		CutFraction:           0.15,
		SwipeLimit:            10,
		StabilizationDuration: 500 * time.Millisecond,
		MatchScoreThreshold:   0.99,
		FrameShift:            100,
		SwipeDivider:          3,
		SwipeDuration:         2 * time.Second,
		ResetTimeout:          30 * time.Second,
	}
}

// Validate checks every field is in range
func (c Config) Validate() error {
	if c.CutFraction < 0 || c.CutFraction >= 0.5 {
		return fmt.Errorf("%w: cut fraction %v must be in [0, 0.5)", ErrInvalidConfig, c.CutFraction)
	}
	if c.SwipeLimit < 0 {
		return fmt.Errorf("%w: swipe limit (%d) must be non-negative", ErrInvalidConfig, c.SwipeLimit)
	}
	if c.StabilizationDuration < 0 || c.SwipeDuration < 0 {
		return fmt.Errorf("%w: durations must be non-negative", ErrInvalidConfig)
	}
	if c.MatchScoreThreshold <= 0 || c.MatchScoreThreshold > 1 {
		return fmt.Errorf("%w: match score threshold %v must be in (0, 1]", ErrInvalidConfig, c.MatchScoreThreshold)
	}
	if c.FrameShift < 0 {
		return fmt.Errorf("%w: frame shift (%d) must be non-negative", ErrInvalidConfig, c.FrameShift)
	}
	if c.SwipeDivider < 2 {
		return fmt.Errorf("%w: swipe divider (%d) must be at least 2", ErrInvalidConfig, c.SwipeDivider)
	}
	if c.ResetTimeout <= 0 {
		return fmt.Errorf("%w: reset timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
