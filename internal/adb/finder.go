package adb

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// FindADB attempts to locate the ADB executable
func FindADB(preferredPath string) (string, error) {
	binary := "adb"
	if runtime.GOOS == "windows" {
		binary = "adb.exe"
	}

	// Try preferred path first, either the binary itself or a directory holding it
	if preferredPath != "" {
		candidates := []string{
			preferredPath,
			filepath.Join(preferredPath, binary),
			filepath.Join(preferredPath, "platform-tools", binary),
		}
		for _, path := range candidates {
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}

	// Android SDK locations
	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if root := os.Getenv(env); root != "" {
			path := filepath.Join(root, "platform-tools", binary)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	if path, err := exec.LookPath(binary); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("adb not found, please specify path in config")
}

// Device is one entry of "adb devices"
type Device struct {
	Serial string
	State  string
}

// ListDevices returns the devices the adb server knows about
func ListDevices(ctx context.Context, adbPath string) ([]Device, error) {
	output, err := execRunner(ctx, adbPath, "devices")
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return parseDevices(string(output)), nil
}

func parseDevices(output string) []Device {
	var devices []Device
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			devices = append(devices, Device{Serial: parts[0], State: parts[1]})
		}
	}
	return devices
}

// pickDevice chooses the serial to use when none is configured
func pickDevice(devices []Device) (string, error) {
	var ready []string
	for _, d := range devices {
		if d.State == "device" {
			ready = append(ready, d.Serial)
		}
	}
	switch len(ready) {
	case 0:
		return "", fmt.Errorf("no ready adb device found")
	case 1:
		return ready[0], nil
	default:
		return "", fmt.Errorf("multiple adb devices attached (%s), please specify one in config", strings.Join(ready, ", "))
	}
}

// ConnectADB is a helper function to find and connect to ADB.
// An empty device selects the only ready device.
func ConnectADB(ctx context.Context, adbPath, device string) (*Controller, error) {
	path, err := FindADB(adbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find ADB: %w", err)
	}

	if device == "" {
		devices, err := ListDevices(ctx, path)
		if err != nil {
			return nil, err
		}
		if device, err = pickDevice(devices); err != nil {
			return nil, err
		}
	}

	ctrl := NewController(path, device)
	if err := ctrl.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to device: %w", err)
	}

	return ctrl, nil
}
