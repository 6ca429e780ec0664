package adb

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// runner executes the adb binary and returns its stdout
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return output, fmt.Errorf("%w, output: %s", err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

// ADB controller type and lifecycle
type Controller struct {
	path      string
	device    string // Serial passed to -s, empty for the only attached device
	mu        sync.Mutex
	run       runner
	connected bool
}

// NewController creates a new ADB controller
func NewController(adbPath, device string) *Controller {
	return &Controller{
		path:   adbPath,
		device: device,
		run:    execRunner,
	}
}

// Device returns the serial this controller targets
func (c *Controller) Device() string {
	return c.device
}

// isNetworkDevice reports whether the serial is a host:port pair that needs adb connect
func (c *Controller) isNetworkDevice() bool {
	return strings.Contains(c.device, ":")
}

// Connect establishes connection to the ADB device
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isNetworkDevice() {
		output, err := c.exec(ctx, "connect", c.device)
		if err != nil {
			return fmt.Errorf("failed to connect to device %s: %w", c.device, err)
		}
		if !strings.Contains(string(output), "connected") {
			return fmt.Errorf("unexpected connect output: %s", strings.TrimSpace(string(output)))
		}
	}

	output, err := c.exec(ctx, c.args("get-state")...)
	if err != nil {
		return fmt.Errorf("device %s is not reachable: %w", c.device, err)
	}
	if state := strings.TrimSpace(string(output)); state != "device" {
		return fmt.Errorf("device %s is in state %q", c.device, state)
	}

	c.connected = true
	return nil
}

// Disconnect closes the ADB connection
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	if !c.isNetworkDevice() {
		return nil
	}
	if _, err := c.exec(ctx, "disconnect", c.device); err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", c.device, err)
	}
	return nil
}

// IsConnected returns whether the controller is connected
func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// args prefixes the device selector
func (c *Controller) args(extra ...string) []string {
	if c.device == "" {
		return extra
	}
	return append([]string{"-s", c.device}, extra...)
}

// exec runs adb with the caller holding c.mu.
// A cancelled context is reported as ctx.Err() rather than a killed process.
func (c *Controller) exec(ctx context.Context, args ...string) ([]byte, error) {
	output, err := c.run(ctx, c.path, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return output, nil
}
