package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"jordanella.com/pagestitch/internal/config"
	"jordanella.com/pagestitch/internal/database"
	"jordanella.com/pagestitch/internal/diagnostics"
	"jordanella.com/pagestitch/internal/logging"
	"jordanella.com/pagestitch/internal/stitch"
	"jordanella.com/pagestitch/internal/surface"
)

func init() {
	color.NoColor = true
}

func openTestStore(t *testing.T) *database.DB {
	t.Helper()
	s := config.NewDefaultSettings()
	s.Diagnostics.Database = filepath.Join(t.TempDir(), "runs.db")
	db, err := openStore(s)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSummarize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 700))
	mismatch := &stitch.TemplateMismatchError{Target: stitch.TargetArea, Score: 0.5, Threshold: 0.99, Iteration: 3}

	tests := []struct {
		name       string
		result     *stitch.Result
		err        error
		status     database.RunStatus
		iterations int
		height     int
	}{
		{"exhausted", &stitch.Result{Image: img, Iterations: 4, Outcome: stitch.OutcomeExhausted}, nil, database.RunStatusExhausted, 4, 700},
		{"swipe limit", &stitch.Result{Image: img, Iterations: 30, Outcome: stitch.OutcomeSwipeLimit}, nil, database.RunStatusSwipeLimit, 30, 700},
		{"mismatch", nil, fmt.Errorf("capture: %w", mismatch), database.RunStatusMismatch, 3, 0},
		{"failed", nil, errors.New("device offline"), database.RunStatusFailed, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summarize(tt.result, tt.err)
			if got.Status != tt.status || got.Iterations != tt.iterations || got.Height != tt.height {
				t.Errorf("summarize() = %+v, want status %s iterations %d height %d", got, tt.status, tt.iterations, tt.height)
			}
			if (got.Err != nil) != (tt.err != nil) {
				t.Errorf("summarize() error = %v, want %v", got.Err, tt.err)
			}
		})
	}
}

func TestErrorCategory(t *testing.T) {
	tests := []struct {
		err  error
		want logging.ErrorCategory
	}{
		{&stitch.TemplateMismatchError{}, logging.ErrorCategoryMatching},
		{fmt.Errorf("%w: cut fraction", stitch.ErrInvalidConfig), logging.ErrorCategoryConfiguration},
		{fmt.Errorf("%w: viewport", stitch.ErrInvalidGeometry), logging.ErrorCategoryConfiguration},
		{fmt.Errorf("reset: %w", surface.ErrEdgeNotReached), logging.ErrorCategorySurface},
		{errors.New("screencap failed"), logging.ErrorCategoryCapture},
	}

	for _, tt := range tests {
		if got := errorCategory(tt.err); got != tt.want {
			t.Errorf("errorCategory(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := loadSettings("")
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if s.Surface.Kind != surface.KindADB {
		t.Errorf("Expected adb default surface, got %q", s.Surface.Kind)
	}
}

func TestWriteDefaultSettings(t *testing.T) {
	for _, name := range []string{"fullpage.ini", "fullpage.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := writeDefaultSettings(path, false); err != nil {
				t.Fatalf("writeDefaultSettings() error = %v", err)
			}

			s, err := loadSettings(path)
			if err != nil {
				t.Fatalf("Failed to load written settings: %v", err)
			}
			if s.StitchConfig() != stitch.DefaultConfig() {
				t.Errorf("Written stitch settings %+v differ from defaults", s.StitchConfig())
			}

			if err := writeDefaultSettings(path, false); err == nil {
				t.Error("Expected error when file exists")
			}
			if err := writeDefaultSettings(path, true); err != nil {
				t.Errorf("Expected overwrite with force, got %v", err)
			}
		})
	}
}

func TestRunCaptureRejectsInvalidSettings(t *testing.T) {
	s := config.NewDefaultSettings()
	s.Surface.Kind = "chrome"
	s.Diagnostics.Database = filepath.Join(t.TempDir(), "runs.db")

	var out bytes.Buffer
	err := runCapture(t.Context(), s, filepath.Join(t.TempDir(), "page.png"), &out)
	if err == nil || !strings.Contains(err.Error(), "url") {
		t.Errorf("Expected missing url error, got %v", err)
	}
	if _, statErr := os.Stat(s.Diagnostics.Database); statErr == nil {
		t.Error("Database should not be created for invalid settings")
	}
}

func TestNewPublisherWritesDirAndStore(t *testing.T) {
	db := openTestStore(t)
	run, err := db.CreateRun(surface.KindADB)
	if err != nil {
		t.Fatal(err)
	}

	s := config.NewDefaultSettings()
	s.Diagnostics.Dir = t.TempDir()

	pub, err := newPublisher(s, db, run.ID)
	if err != nil {
		t.Fatalf("newPublisher() error = %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if err := pub.Publish(t.Context(), stitch.ArtifactTemplate, img); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(s.Diagnostics.Dir, run.ID, stitch.ArtifactTemplate+".png")); err != nil {
		t.Errorf("Expected artifact file: %v", err)
	}
	artifacts, err := db.ListArtifacts(run.ID)
	if err != nil || len(artifacts) != 1 {
		t.Errorf("Expected 1 stored artifact, got %d (%v)", len(artifacts), err)
	}

	s.Diagnostics.StoreArtifacts = false
	pub, err = newPublisher(s, db, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if m := pub.(diagnostics.Multi); len(m) != 1 {
		t.Errorf("Expected only the directory publisher, got %d", len(m))
	}
}

func TestExportArtifacts(t *testing.T) {
	db := openTestStore(t)
	run, err := db.CreateRun(surface.KindChrome)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{stitch.ArtifactTargetImage, stitch.ArtifactTemplate} {
		if _, err := db.SaveArtifact(run.ID, name, []byte(name)); err != nil {
			t.Fatal(err)
		}
	}

	dir := filepath.Join(t.TempDir(), "out")
	var out bytes.Buffer
	if err := exportArtifacts(&out, db, run.ID, dir); err != nil {
		t.Fatalf("exportArtifacts() error = %v", err)
	}

	artifacts, _ := db.ListArtifacts(run.ID)
	for _, a := range artifacts {
		data, err := os.ReadFile(artifactPath(dir, a))
		if err != nil {
			t.Fatalf("Missing exported file: %v", err)
		}
		if string(data) != a.Name {
			t.Errorf("Exported %s has wrong content", a.Name)
		}
	}

	if err := exportArtifacts(&out, db, "missing", dir); !errors.Is(err, database.ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestPrintRuns(t *testing.T) {
	var out bytes.Buffer
	printRuns(&out, nil)
	if !strings.Contains(out.String(), "No runs") {
		t.Errorf("Unexpected output for empty list: %q", out.String())
	}

	db := openTestStore(t)
	run, err := db.CreateRun(surface.KindADB)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.FinishRun(run.ID, database.RunSummary{Status: database.RunStatusFailed, Err: errors.New("device offline")}); err != nil {
		t.Fatal(err)
	}
	runs, err := db.ListRecentRuns(5)
	if err != nil {
		t.Fatal(err)
	}

	out.Reset()
	printRuns(&out, runs)
	for _, want := range []string{run.ID, "failed", "device offline"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}
}

func TestPrintFailureListsRecentErrors(t *testing.T) {
	reporter := logging.NewErrorReporter(logging.Discard("ErrorReporter"), 10)
	reporter.ReportError(logging.ErrorCategoryStorage, logging.ErrorSeverityMedium, "RunStore", "Failed to record run outcome", errors.New("disk full"))

	mismatch := &stitch.TemplateMismatchError{Target: stitch.TargetSegment, Score: 0.42, Threshold: 0.99}
	reporter.ReportCriticalError(logging.ErrorCategoryMatching, "Capture", "Full page capture failed", mismatch, nil)

	var out bytes.Buffer
	printFailure(&out, mismatch, reporter)

	for _, want := range []string{
		"Capture failed",
		"not found in segment",
		"errors this run: 2 (1 non-recoverable)",
		"[storage/medium] RunStore: Failed to record run outcome",
		"[matching/critical] Capture: Full page capture failed",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}
}
