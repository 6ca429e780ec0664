package database

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveArtifact stores an encoded PNG for a run and returns its ID
func (db *DB) SaveArtifact(runID, name string, pngData []byte) (int64, error) {
	var id int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO diagnostic_artifacts (run_id, name, png, created_at)
			VALUES (?, ?, ?, ?)
		`, runID, name, pngData, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to insert artifact: %w", err)
		}

		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// ListArtifacts returns a run's artifacts in the order they were saved
func (db *DB) ListArtifacts(runID string) ([]*Artifact, error) {
	rows, err := db.conn.Query(`
		SELECT id, run_id, name, png, created_at
		FROM diagnostic_artifacts
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.RunID, &a.Name, &a.PNG, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, &a)
	}

	return artifacts, rows.Err()
}
