package stitch

import (
	"errors"
	"fmt"
	"image"
)

// Error types
var (
	ErrInvalidConfig   = errors.New("invalid stitch configuration")
	ErrInvalidGeometry = errors.New("invalid crop geometry")
)

// MismatchTarget names the image the comparison band could not be found in
type MismatchTarget string

const (
	TargetSegment MismatchTarget = "segment" // Previously stitched content
	TargetArea    MismatchTarget = "area"    // The fresh capture itself
)

// TemplateMismatchError reports that a comparison band could not be located
// with enough confidence. It carries the images for diagnostics.
type TemplateMismatchError struct {
	Image     *image.RGBA // Cropped capture the band was taken from
	Template  *image.RGBA // The comparison band
	Target    MismatchTarget
	Score     float64
	Threshold float64
	Iteration int
}

func (e *TemplateMismatchError) Error() string {
	return fmt.Sprintf("unable to match the template in the target image (%s, iteration %d): score %.4f below threshold %.4f",
		e.Target, e.Iteration, e.Score, e.Threshold)
}
