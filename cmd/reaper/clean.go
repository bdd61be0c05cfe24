package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/reaper/internal/config"
	"github.com/spf13/cobra"
)

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete crawl state, match log and stored pages",
		Long: `Clean removes everything a crawl wrote to the data directory so that the
next crawl starts from scratch: the state database, the match log and the
stored pages.

With --backup the files are moved into a timestamped directory under the
data directory instead of being deleted.

Examples:
  # Ask before deleting
  reaper clean

  # Keep a copy of the previous run
  reaper clean --backup --yes`,
		Args: cobra.NoArgs,
		RunE: runCleanCmd,
	}

	addConfigFlags(cmd.Flags())
	cmd.Flags().BoolP("backup", "b", false, "Move the files into a backup directory instead of deleting them")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func runCleanCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fa := newFlagApplier(cmd)
	fa.str("data-dir", &cfg.DataDir)
	if err := fa.err(); err != nil {
		return err
	}
	backup, err := cmd.Flags().GetBool("backup")
	if err != nil {
		return err
	}
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	targets := existingCrawlFiles(cfg)
	if len(targets) == 0 {
		fmt.Fprintf(out, "Nothing to clean in %s\n", cfg.DataDir)
		return nil
	}

	if !yes {
		verb := "Delete"
		if backup {
			verb = "Back up and remove"
		}
		fmt.Fprintf(out, "%s the following?\n", verb)
		for _, p := range targets {
			fmt.Fprintf(out, "  %s\n", p)
		}
		if !confirm(cmd.InOrStdin(), out) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if backup {
		dir, err := backupCrawlFiles(cfg.DataDir, targets, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Backed up to %s\n", dir)
		return nil
	}

	var errs []error
	for _, p := range targets {
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", p, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %d item(s) from %s\n", len(targets), cfg.DataDir)
	return nil
}

// existingCrawlFiles returns the crawl outputs present in the data directory.
// SQLite side files and quarantined databases are included.
func existingCrawlFiles(cfg *config.Config) []string {
	db := cfg.StateDBPath()
	candidates := []string{db, db + "-wal", db + "-shm", cfg.MatchLogPath(), cfg.PagesDir()}
	if matches, err := filepath.Glob(cfg.StateDBPath() + ".corrupt-*"); err == nil {
		candidates = append(candidates, matches...)
	}

	var found []string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found
}

// backupCrawlFiles moves paths into a new backup-<timestamp> directory
// under dataDir and returns that directory.
func backupCrawlFiles(dataDir string, paths []string, now time.Time) (string, error) {
	dir := filepath.Join(dataDir, "backup-"+now.UTC().Format("20060102T150405Z"))
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	for _, p := range paths {
		dst := filepath.Join(dir, filepath.Base(p))
		if err := os.Rename(p, dst); err != nil {
			return "", fmt.Errorf("failed to back up %s: %w", p, err)
		}
	}
	return dir, nil
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Continue? [y/N]: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
