package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jordanella.com/pagestitch/internal/config"
	"jordanella.com/pagestitch/internal/database"
)

func newArtifactsCmd(settings func() (*config.Settings, error)) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "artifacts <run-id>",
		Short: "Export the diagnostic images stored for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings()
			if err != nil {
				return err
			}
			db, err := openStore(s)
			if err != nil {
				return err
			}
			defer db.Close()

			return exportArtifacts(cmd.OutOrStdout(), db, args[0], dir)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory to write the images to")

	return cmd
}

func exportArtifacts(w io.Writer, db *database.DB, runID, dir string) error {
	if _, err := db.GetRun(runID); err != nil {
		return err
	}

	artifacts, err := db.ListArtifacts(runID)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		fmt.Fprintf(w, "Run %s has no stored artifacts\n", runID)
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, a := range artifacts {
		path := artifactPath(dir, a)
		if err := os.WriteFile(path, a.PNG, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(w, "%s %s\n", colorCyan.Sprint(a.Name), path)
	}
	return nil
}

func artifactPath(dir string, a *database.Artifact) string {
	return filepath.Join(dir, fmt.Sprintf("%d-%s.png", a.ID, a.Name))
}
