package adb

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"
)

// Shell executes a shell command and returns its trimmed output
func (c *Controller) Shell(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	output, err := c.exec(ctx, c.args("shell", command)...)
	if err != nil {
		return "", fmt.Errorf("shell command %q failed: %w", command, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ExecOut runs command on the device and returns the raw, untranslated stdout
func (c *Controller) ExecOut(ctx context.Context, command string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	output, err := c.exec(ctx, c.args("exec-out", command)...)
	if err != nil {
		return nil, fmt.Errorf("exec-out %q failed: %w", command, err)
	}
	return output, nil
}

// Screencap captures the current screen in physical pixels
func (c *Controller) Screencap(ctx context.Context) (image.Image, error) {
	data, err := c.ExecOut(ctx, "screencap -p")
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot (%d bytes): %w", len(data), err)
	}
	return img, nil
}

// Swipe performs a swipe gesture in physical pixels
func (c *Controller) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	cmd := fmt.Sprintf("input swipe %d %d %d %d %d", x1, y1, x2, y2, duration.Milliseconds())
	_, err := c.Shell(ctx, cmd)
	return err
}

// WindowSize returns the screen size in physical pixels.
// An override size set with "wm size WxH" takes precedence.
func (c *Controller) WindowSize(ctx context.Context) (width, height int, err error) {
	output, err := c.Shell(ctx, "wm size")
	if err != nil {
		return 0, 0, err
	}
	return parseWindowSize(output)
}

// Density returns the screen density in dpi, override first
func (c *Controller) Density(ctx context.Context) (int, error) {
	output, err := c.Shell(ctx, "wm density")
	if err != nil {
		return 0, err
	}
	return parseDensity(output)
}

// parseWindowSize parses output like
//
//	Physical size: 1080x1920
//	Override size: 720x1280
func parseWindowSize(output string) (int, int, error) {
	var w, h int
	found := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		var lw, lh int
		if _, err := fmt.Sscanf(line, "Override size: %dx%d", &lw, &lh); err == nil {
			return lw, lh, nil
		}
		if _, err := fmt.Sscanf(line, "Physical size: %dx%d", &lw, &lh); err == nil {
			w, h, found = lw, lh, true
		}
	}

	if !found {
		return 0, 0, fmt.Errorf("failed to parse window size: %s", output)
	}
	return w, h, nil
}

// parseDensity parses "Physical density: 420" with an optional override line
func parseDensity(output string) (int, error) {
	density := 0

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		var d int
		if _, err := fmt.Sscanf(line, "Override density: %d", &d); err == nil && d > 0 {
			return d, nil
		}
		if _, err := fmt.Sscanf(line, "Physical density: %d", &d); err == nil {
			density = d
		}
	}

	if density <= 0 {
		return 0, fmt.Errorf("failed to parse density: %s", output)
	}
	return density, nil
}
