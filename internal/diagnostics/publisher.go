package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
)

// Publisher receives named images for operator inspection
type Publisher interface {
	Publish(ctx context.Context, name string, img *image.RGBA) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, name string, img *image.RGBA) error

func (f PublisherFunc) Publish(ctx context.Context, name string, img *image.RGBA) error {
	return f(ctx, name, img)
}

// EncodePNG encodes img as PNG bytes
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DirPublisher writes each image to <dir>/<name>.png, overwriting earlier files
type DirPublisher struct {
	dir string
}

// NewDirPublisher creates dir if needed
func NewDirPublisher(dir string) (*DirPublisher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics directory: %w", err)
	}
	return &DirPublisher{dir: dir}, nil
}

// Path returns the file a given artifact name is written to
func (p *DirPublisher) Path(name string) string {
	return filepath.Join(p.dir, unsafeNameChars.ReplaceAllString(name, "_")+".png")
}

func (p *DirPublisher) Publish(ctx context.Context, name string, img *image.RGBA) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p.Path(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	return nil
}

// ArtifactStore persists encoded artifacts for a run
type ArtifactStore interface {
	SaveArtifact(runID, name string, pngData []byte) (int64, error)
}

// StorePublisher publishes artifacts into an ArtifactStore under one run
type StorePublisher struct {
	store ArtifactStore
	runID string
}

// NewStorePublisher binds publications to runID
func NewStorePublisher(store ArtifactStore, runID string) *StorePublisher {
	return &StorePublisher{store: store, runID: runID}
}

func (p *StorePublisher) Publish(ctx context.Context, name string, img *image.RGBA) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodePNG(img)
	if err != nil {
		return err
	}
	if _, err := p.store.SaveArtifact(p.runID, name, data); err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", name, err)
	}
	return nil
}

// Multi publishes to every publisher and joins their errors
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, name string, img *image.RGBA) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, name, img); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
