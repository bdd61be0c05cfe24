package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/nao1215/reaper/internal/database"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// It lists crawl runs recorded in the state database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past crawl runs",
		Long: `History lists crawl runs recorded in the state database, newest first.

Each run shows the target it searched for, when it started and finished,
and the frontier counters at the end of the run. A run that is still
"running" either is in progress or ended without a clean shutdown.

Examples:
  # Show the last 10 runs
  reaper history

  # Show every run as JSON
  reaper history --limit 0 --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	addConfigFlags(cmd.Flags())
	cmd.Flags().IntP("limit", "l", 10, "Number of runs to show (0 for all)")
	cmd.Flags().BoolP("json", "j", false, "Output runs in JSON format")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fa := newFlagApplier(cmd)
	fa.str("data-dir", &cfg.DataDir)
	if err := fa.err(); err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	var (
		runs    []database.Run
		savedAt time.Time
	)
	if _, err := os.Stat(cfg.StateDBPath()); !errors.Is(err, fs.ErrNotExist) {
		if runs, savedAt, err = listRuns(cmd.Context(), cfg.DataDir, limit); err != nil {
			return err
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if runs == nil {
			runs = []database.Run{}
		}
		return enc.Encode(runs)
	}
	printRuns(cmd.OutOrStdout(), runs, savedAt)
	return nil
}

// listRuns reads runs and the time of the last frontier snapshot from an
// existing state database without creating one.
func listRuns(ctx context.Context, dataDir string, limit int) ([]database.Run, time.Time, error) {
	db, err := database.Open(dataDir, database.Options{EnableWAL: true})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to open state database: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, db.SavedAt(ctx), nil
}

func printRuns(w io.Writer, runs []database.Run, savedAt time.Time) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No crawl runs recorded.")
		fmt.Fprintln(w, "\nUse 'reaper crawl' to start one.")
		return
	}

	fmt.Fprintf(w, "Crawl runs (%d):\n\n", len(runs))
	fmt.Fprintf(w, "  %-8s  %-20s  %-10s  %-10s  %s\n", "ID", "Started", "Duration", "State", "Visited/Pending/Failed  Target")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 90))
	for _, r := range runs {
		fmt.Fprintf(w, "  %-8s  %-20s  %-10s  %-10s  %d/%d/%d  %s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runDuration(r),
			r.State,
			r.Visited, r.Pending, r.Failed,
			r.Target,
		)
	}
	if !savedAt.IsZero() {
		fmt.Fprintf(w, "\nLast frontier snapshot: %s\n", savedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDuration(r database.Run) string {
	if r.FinishedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}
