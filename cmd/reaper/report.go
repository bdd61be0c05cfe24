package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/reaper/internal/report"
	"github.com/nao1215/reaper/internal/storage"
	"github.com/spf13/cobra"
)

// Report output formats.
const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the recorded mentions",
		Long: `Report reads the match log written by crawl and summarizes it: the total
number of mentions, the domains with the most mentions, mentions per name
variation and the sentiment of the surrounding text.

The log can be read while a crawl is still running. Lines that cannot be
parsed are skipped and counted.

Examples:
  # Print a text summary
  reaper report

  # Markdown report with the 20 most recent mentions
  reaper report --format markdown --limit 20 -o report.md

  # Also export every mention as CSV and XLSX
  reaper report --csv mentions.csv --xlsx mentions.xlsx`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	addConfigFlags(cmd.Flags())
	cmd.Flags().String("log", "", "Match log to read (default: matches.jsonl in the data directory)")
	cmd.Flags().StringP("format", "f", formatText, "Output format: text, markdown or json")
	cmd.Flags().IntP("limit", "l", -1, "Number of mentions listed in detail (-1 for all)")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().String("csv", "", "Also write every mention to this CSV file")
	cmd.Flags().String("xlsx", "", "Also write the summary and every mention to this XLSX workbook")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fa := newFlagApplier(cmd)
	fa.str("data-dir", &cfg.DataDir)
	if err := fa.err(); err != nil {
		return err
	}

	f := cmd.Flags()
	logPath, err := f.GetString("log")
	if err != nil {
		return err
	}
	if logPath == "" {
		logPath = cfg.MatchLogPath()
	}
	format, err := f.GetString("format")
	if err != nil {
		return err
	}
	limit, err := f.GetInt("limit")
	if err != nil {
		return err
	}
	outPath, err := f.GetString("output")
	if err != nil {
		return err
	}
	csvPath, err := f.GetString("csv")
	if err != nil {
		return err
	}
	xlsxPath, err := f.GetString("xlsx")
	if err != nil {
		return err
	}

	res, err := storage.ReadMatchLogFile(logPath)
	if err != nil {
		return fmt.Errorf("failed to read match log: %w", err)
	}
	if res.Skipped > 0 {
		newLogger(cmd).Warn("skipped unreadable match log lines", "count", res.Skipped, "path", logPath)
	}
	summary := report.Summarize(res.Records, res.Skipped, time.Now())

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	out := cmd.OutOrStdout()
	if outPath != "" {
		file, err := createReportFile(outPath)
		if err != nil {
			return err
		}
		closers = append(closers, file)
		out = file
	}

	primary, err := newFormatWriter(format, out, limit)
	if err != nil {
		return err
	}
	writers := []report.Writer{primary}

	if csvPath != "" {
		file, err := createReportFile(csvPath)
		if err != nil {
			return err
		}
		closers = append(closers, file)
		writers = append(writers, report.NewCSVWriter(file))
	}
	if xlsxPath != "" {
		file, err := createReportFile(xlsxPath)
		if err != nil {
			return err
		}
		closers = append(closers, file)
		writers = append(writers, report.NewXLSXWriter(file))
	}

	if _, err := report.NewMultiWriter(writers...).Write(summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close report file: %w", err)
		}
	}
	closers = nil
	return nil
}

func newFormatWriter(format string, w io.Writer, limit int) (report.Writer, error) {
	switch format {
	case formatText:
		return report.NewSimpleWriter(w, report.WithDetailLimit(limit)), nil
	case formatMarkdown:
		return report.NewMarkdownWriter(w, report.WithMarkdownDetailLimit(limit)), nil
	case formatJSON:
		return report.NewJSONWriter(w, report.WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want text, markdown or json)", format)
	}
}

// createReportFile creates or truncates path with owner-only permissions.
// Reports quote the pages that mention the target.
func createReportFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
