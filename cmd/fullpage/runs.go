package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jordanella.com/pagestitch/internal/config"
	"jordanella.com/pagestitch/internal/database"
	"jordanella.com/pagestitch/internal/logging"
)

// openStore opens the run database quietly for the read-only commands
func openStore(s *config.Settings) (*database.DB, error) {
	if s.Diagnostics.Database == "" {
		return nil, fmt.Errorf("no run database configured")
	}
	db, err := database.Open(s.Diagnostics.Database)
	if err != nil {
		return nil, err
	}
	db.SetLogger(logging.Discard("Database"))
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newRunsCmd(settings func() (*config.Settings, error)) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent capture runs",
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

			runs, err := db.ListRecentRuns(limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")

	return cmd
}

func statusColor(status database.RunStatus) *color.Color {
	switch status {
	case database.RunStatusExhausted:
		return colorGreen
	case database.RunStatusSwipeLimit, database.RunStatusRunning:
		return colorYellow
	default:
		return colorRed
	}
}

func printRuns(w io.Writer, runs []*database.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSURFACE\tSTARTED\tSTATUS\tSCROLLS\tSIZE\tDURATION")
	for _, run := range runs {
		size := "-"
		if run.Width > 0 {
			size = fmt.Sprintf("%dx%d", run.Width, run.Height)
		}
		duration := "-"
		if d := run.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			run.ID,
			run.Surface,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			statusColor(run.Status).Sprint(run.Status),
			run.Iterations,
			size,
			duration,
		)
	}
	tw.Flush()

	for _, run := range runs {
		if run.ErrorMessage != nil {
			fmt.Fprintf(w, "%s: %s\n", run.ID, *run.ErrorMessage)
		}
	}
}
