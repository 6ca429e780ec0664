package database

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"jordanella.com/pagestitch/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetLogger(logging.Discard("Database"))

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestDatabaseInitialization(t *testing.T) {
	db := openTestDB(t)

	version, err := db.GetVersion()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != LatestVersion() {
		t.Errorf("Expected version %d, got %d", LatestVersion(), version)
	}

	if _, err := os.Stat(db.Path()); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	// Running again is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	run, err := db.CreateRun("adb")
	if err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}
	if run.ID == "" || run.Status != RunStatusRunning {
		t.Fatalf("Unexpected new run %+v", run)
	}

	err = db.FinishRun(run.ID, RunSummary{
		Status:     RunStatusExhausted,
		Iterations: 4,
		Width:      1080,
		Height:     5120,
	})
	if err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got.Status != RunStatusExhausted || got.Iterations != 4 || got.Height != 5120 {
		t.Errorf("Unexpected stored run %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("Expected finished_at to be set")
	}
	if got.ErrorMessage != nil {
		t.Errorf("Expected no error message, got %q", *got.ErrorMessage)
	}
	if got.Duration() < 0 {
		t.Errorf("Unexpected negative duration %v", got.Duration())
	}
}

func TestFinishRunRecordsError(t *testing.T) {
	db := openTestDB(t)

	run, _ := db.CreateRun("chrome")
	if err := db.FinishRun(run.ID, RunSummary{Status: RunStatusMismatch, Err: errors.New("score 0.42")}); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}

	got, _ := db.GetRun(run.ID)
	if got.ErrorMessage == nil || *got.ErrorMessage != "score 0.42" {
		t.Errorf("Expected error message to be stored, got %v", got.ErrorMessage)
	}
}

func TestRunNotFound(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	if err := db.FinishRun("missing", RunSummary{Status: RunStatusFailed}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestStatusConstraint(t *testing.T) {
	db := openTestDB(t)

	run, _ := db.CreateRun("adb")
	if err := db.FinishRun(run.ID, RunSummary{Status: RunStatus("paused")}); err == nil {
		t.Error("Expected unknown status to be rejected")
	}
}

func TestListRecentRuns(t *testing.T) {
	db := openTestDB(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := db.CreateRun("adb")
		if err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := db.ListRecentRuns(2)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("Expected newest runs first, got %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestArtifacts(t *testing.T) {
	db := openTestDB(t)

	run, _ := db.CreateRun("adb")
	first := []byte{0x89, 'P', 'N', 'G', 1}
	second := []byte{0x89, 'P', 'N', 'G', 2}

	if _, err := db.SaveArtifact(run.ID, "targetImage", first); err != nil {
		t.Fatalf("Failed to save artifact: %v", err)
	}
	if _, err := db.SaveArtifact(run.ID, "template", second); err != nil {
		t.Fatalf("Failed to save artifact: %v", err)
	}

	artifacts, err := db.ListArtifacts(run.ID)
	if err != nil {
		t.Fatalf("Failed to list artifacts: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("Expected 2 artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Name != "targetImage" || !bytes.Equal(artifacts[0].PNG, first) {
		t.Errorf("Unexpected first artifact %+v", artifacts[0])
	}
	if artifacts[1].Name != "template" || !bytes.Equal(artifacts[1].PNG, second) {
		t.Errorf("Unexpected second artifact %+v", artifacts[1])
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats["diagnostic_artifacts"] != 2 || stats["stitch_runs"] != 1 {
		t.Errorf("Unexpected stats %v", stats)
	}
}

func TestArtifactRequiresRun(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.SaveArtifact("no-such-run", "template", []byte{1}); err == nil {
		t.Error("Expected foreign key violation for unknown run")
	}
}

func TestRollbackTo(t *testing.T) {
	db := openTestDB(t)

	if err := db.RollbackTo(1); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	version, _ := db.GetVersion()
	if version != 1 {
		t.Errorf("Expected version 1 after rollback, got %d", version)
	}
	if _, err := db.CreateRun("adb"); err == nil {
		t.Error("Expected stitch_runs to be dropped")
	}

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Re-migration failed: %v", err)
	}
	if _, err := db.CreateRun("adb"); err != nil {
		t.Errorf("Expected stitch_runs after re-migration, got %v", err)
	}
}
