package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"jordanella.com/pagestitch/internal/logging"
	"jordanella.com/pagestitch/internal/stitch"
)

func TestDefaultsMatchStitcher(t *testing.T) {
	s := NewDefaultSettings()

	if got := s.StitchConfig(); got != stitch.DefaultConfig() {
		t.Errorf("Default stitch settings %+v differ from stitch.DefaultConfig()", got)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Default settings should be valid: %v", err)
	}
}

func TestLoadFromINIPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")
	content := `[Stitch]
swipeLimit = 25
stabilizationDuration = 1s
frameShift = 40

[Surface]
kind = chrome

[Chrome]
url = https://example.com/article
dpr = 3

[Logging]
level = debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if s.Stitch.SwipeLimit != 25 || s.Stitch.FrameShift != 40 {
		t.Errorf("Unexpected stitch settings %+v", s.Stitch)
	}
	if s.Stitch.StabilizationDuration != time.Second {
		t.Errorf("Expected 1s stabilization, got %v", s.Stitch.StabilizationDuration)
	}
	if s.Stitch.CutFraction != 0.15 {
		t.Errorf("Missing key should keep default, got %v", s.Stitch.CutFraction)
	}
	if s.Surface.Kind != "chrome" || s.Chrome.URL != "https://example.com/article" || s.Chrome.DPR != 3 {
		t.Errorf("Unexpected surface settings %+v %+v", s.Surface, s.Chrome)
	}
	if level, err := s.LogLevel(); err != nil || level != logging.LogLevelDebug {
		t.Errorf("Expected DEBUG level, got %s (%v)", level, err)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Expected valid settings, got %v", err)
	}
}

func TestINIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.ini")

	want := NewDefaultSettings()
	want.Stitch.MatchScoreThreshold = 0.97
	want.ADB.Device = "emulator-5554"
	want.Diagnostics.StoreArtifacts = false

	if err := SaveToINI(want, path); err != nil {
		t.Fatalf("Failed to save settings: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	want := NewDefaultSettings()
	want.Surface.Kind = "chrome"
	want.Chrome.URL = "https://example.com"
	want.Stitch.SwipeDuration = 750 * time.Millisecond

	if err := SaveToYAML(want, path); err != nil {
		t.Fatalf("Failed to save settings: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadFromYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	content := "stitch:\n  swipeLimit: 4\n  swipeDuration: 500ms\nlogging:\n  level: warn\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if s.Stitch.SwipeLimit != 4 || s.Stitch.SwipeDuration != 500*time.Millisecond {
		t.Errorf("Unexpected stitch settings %+v", s.Stitch)
	}
	if s.Stitch.MatchScoreThreshold != 0.99 || s.Surface.Kind != "adb" {
		t.Error("Missing keys should keep their defaults")
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	s := NewDefaultSettings()
	s.Stitch.SwipeDivider = 1
	s.Surface.Kind = "chrome"
	s.Logging.Level = "loud"

	err := s.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 3 {
		t.Errorf("Expected 3 problems, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.ini")); err == nil {
		t.Error("Expected error for missing file")
	}
}
