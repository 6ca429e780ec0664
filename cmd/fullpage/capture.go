package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"jordanella.com/pagestitch/internal/config"
	"jordanella.com/pagestitch/internal/database"
	"jordanella.com/pagestitch/internal/diagnostics"
	"jordanella.com/pagestitch/internal/logging"
	"jordanella.com/pagestitch/internal/stitch"
	"jordanella.com/pagestitch/internal/surface"
)

func newCaptureCmd(settings func() (*config.Settings, error)) *cobra.Command {
	var (
		out  string
		kind string
		url  string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Stitch a full-page screenshot from the configured surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings()
			if err != nil {
				return err
			}
			if kind != "" {
				s.Surface.Kind = kind
			}
			if url != "" {
				s.Chrome.URL = url
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runCapture(ctx, s, out, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "page.png", "output PNG path")
	cmd.Flags().StringVar(&kind, "surface", "", "override the surface kind (adb or chrome)")
	cmd.Flags().StringVar(&url, "url", "", "override the page loaded by the chrome surface")

	return cmd
}

// session holds what one capture command opens
type session struct {
	logger   *logging.Logger
	reporter *logging.ErrorReporter
	db       *database.DB
	logFile  io.Closer
}

func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
}

func openSession(s *config.Settings) (*session, error) {
	level, err := s.LogLevel()
	if err != nil {
		return nil, err
	}

	sess := &session{logger: logging.NewLogger("fullpage").SetMinLevel(level)}
	if s.Logging.Dir != "" {
		f, err := logging.OpenLogFile(s.Logging.Dir, "fullpage")
		if err != nil {
			return nil, err
		}
		sess.logFile = f
		sess.logger.AddOutput(f)
	}
	sess.reporter = logging.NewErrorReporter(sess.logger.Named("ErrorReporter"), 50)

	if s.Diagnostics.Database != "" {
		db, err := database.Open(s.Diagnostics.Database)
		if err != nil {
			sess.Close()
			return nil, err
		}
		db.SetLogger(sess.logger.Named("Database"))
		if err := db.RunMigrations(); err != nil {
			db.Close()
			sess.Close()
			return nil, err
		}
		sess.db = db
	}

	return sess, nil
}

func runCapture(ctx context.Context, s *config.Settings, out string, w io.Writer) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	sess, err := openSession(s)
	if err != nil {
		return err
	}
	defer sess.Close()

	runID := "adhoc"
	if sess.db != nil {
		run, err := sess.db.CreateRun(s.Surface.Kind)
		if err != nil {
			return err
		}
		runID = run.ID
	}
	colorCyan.Fprintf(w, "Run %s on %s surface\n", runID, s.Surface.Kind)

	publisher, err := newPublisher(s, sess.db, runID)
	if err != nil {
		return err
	}

	result, err := capture(ctx, s, sess, publisher)

	summary := summarize(result, err)
	if sess.db != nil {
		if ferr := sess.db.FinishRun(runID, summary); ferr != nil {
			sess.reporter.ReportError(logging.ErrorCategoryStorage, logging.ErrorSeverityMedium, "RunStore", "Failed to record run outcome", ferr)
		}
	}

	if err != nil {
		sess.reporter.ReportCriticalError(errorCategory(err), "Capture", "Full page capture failed", err, map[string]interface{}{
			"run_id": runID,
		})
		printFailure(w, err, sess.reporter)
		return err
	}

	if err := writePNG(out, result.Image); err != nil {
		return err
	}
	printResult(w, result, out)
	return nil
}

func capture(ctx context.Context, s *config.Settings, sess *session, publisher diagnostics.Publisher) (*stitch.Result, error) {
	surf, err := surface.Open(ctx, s.SurfaceConfig())
	if err != nil {
		return nil, fmt.Errorf("open surface: %w", err)
	}
	defer surf.Close()

	stitcher, err := stitch.New(surf, s.StitchConfig(),
		stitch.WithLogger(sess.logger.Named("Stitcher")),
		stitch.WithPublisher(publisher),
	)
	if err != nil {
		return nil, err
	}

	return stitcher.Capture(ctx)
}

// newPublisher writes artifacts under <dir>/<run id> and, when enabled, into the run store
func newPublisher(s *config.Settings, db *database.DB, runID string) (diagnostics.Publisher, error) {
	var multi diagnostics.Multi

	if s.Diagnostics.Dir != "" {
		dir, err := diagnostics.NewDirPublisher(filepath.Join(s.Diagnostics.Dir, runID))
		if err != nil {
			return nil, err
		}
		multi = append(multi, dir)
	}
	if db != nil && s.Diagnostics.StoreArtifacts {
		multi = append(multi, diagnostics.NewStorePublisher(db, runID))
	}

	return multi, nil
}

// summarize maps a capture outcome to the stored run status
func summarize(result *stitch.Result, err error) database.RunSummary {
	var mismatch *stitch.TemplateMismatchError

	switch {
	case errors.As(err, &mismatch):
		return database.RunSummary{Status: database.RunStatusMismatch, Iterations: mismatch.Iteration, Err: err}
	case err != nil:
		return database.RunSummary{Status: database.RunStatusFailed, Err: err}
	}

	summary := database.RunSummary{
		Status:     database.RunStatusExhausted,
		Iterations: result.Iterations,
		Width:      result.Image.Bounds().Dx(),
		Height:     result.Image.Bounds().Dy(),
	}
	if result.Outcome == stitch.OutcomeSwipeLimit {
		summary.Status = database.RunStatusSwipeLimit
	}
	return summary
}

func errorCategory(err error) logging.ErrorCategory {
	var mismatch *stitch.TemplateMismatchError
	switch {
	case errors.As(err, &mismatch):
		return logging.ErrorCategoryMatching
	case errors.Is(err, stitch.ErrInvalidConfig), errors.Is(err, stitch.ErrInvalidGeometry):
		return logging.ErrorCategoryConfiguration
	case errors.Is(err, surface.ErrEdgeNotReached):
		return logging.ErrorCategorySurface
	default:
		return logging.ErrorCategoryCapture
	}
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	data, err := diagnostics.EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func printResult(w io.Writer, result *stitch.Result, out string) {
	b := result.Image.Bounds()
	switch result.Outcome {
	case stitch.OutcomeSwipeLimit:
		colorYellow.Fprintf(w, "Swipe limit reached, image may be partial: ")
	default:
		colorGreen.Fprintf(w, "Captured full page: ")
	}
	fmt.Fprintf(w, "%dx%d after %d scrolls -> %s\n", b.Dx(), b.Dy(), result.Iterations, out)
}

func printFailure(w io.Writer, err error, reporter *logging.ErrorReporter) {
	colorRed.Fprintf(w, "Capture failed: ")
	fmt.Fprintln(w, err)

	var mismatch *stitch.TemplateMismatchError
	if errors.As(err, &mismatch) {
		fmt.Fprintf(w, "  comparison band not found in %s (score %.4f, threshold %.4f)\n",
			mismatch.Target, mismatch.Score, mismatch.Threshold)
	}

	stats := reporter.GetErrorStats()
	fmt.Fprintf(w, "  errors this run: %d (%d non-recoverable)\n", stats["total"], stats["non_recoverable"])
	for _, report := range reporter.GetRecentErrors(5) {
		fmt.Fprintf(w, "  [%s/%s] %s: %s\n", report.Category, report.Severity, report.Component, report.Message)
	}
}
