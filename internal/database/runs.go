package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = `id, surface, started_at, finished_at, status, iterations, width, height, error_message`

// CreateRun records the start of a capture on the given surface
func (db *DB) CreateRun(surface string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Surface:   surface,
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
	}

	_, err := db.conn.Exec(`
		INSERT INTO stitch_runs (id, surface, started_at, status)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.Surface, run.StartedAt, string(run.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// FinishRun stores the outcome of a run
func (db *DB) FinishRun(id string, summary RunSummary) error {
	var errorMessage *string
	if summary.Err != nil {
		msg := summary.Err.Error()
		errorMessage = &msg
	}

	result, err := db.conn.Exec(`
		UPDATE stitch_runs
		SET finished_at = ?,
		    status = ?,
		    iterations = ?,
		    width = ?,
		    height = ?,
		    error_message = ?
		WHERE id = ?
	`, time.Now().UTC(), string(summary.Status), summary.Iterations,
		summary.Width, summary.Height, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.conn.QueryRow(`SELECT `+runColumns+` FROM stitch_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRecentRuns returns up to limit runs, newest first
func (db *DB) ListRecentRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT `+runColumns+`
		FROM stitch_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var status string
	err := s.Scan(
		&run.ID,
		&run.Surface,
		&run.StartedAt,
		&run.FinishedAt,
		&status,
		&run.Iterations,
		&run.Width,
		&run.Height,
		&run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	return &run, nil
}
