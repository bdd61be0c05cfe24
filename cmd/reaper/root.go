package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	rlog "github.com/nao1215/reaper/internal/log"
	"github.com/spf13/cobra"
)

// debugEnv enables debug logging like --verbose.
const debugEnv = "REAPER_DEBUG"

// NewRootCmd creates the root command for reaper.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reaper",
		Short: "Resumable stealth crawler that finds mentions of a person",
		Long: `reaper crawls from seed URLs looking for mentions of a person by name.

Every page is searched for spelling variations of the name. Hits are
appended to a match log with a context snippet and a sentiment score, and
every fetched page is archived compressed. Fetches start with plain HTTP and
escalate through Tor and headless browsers when a site resists. The crawl
state is saved periodically so an interrupted crawl resumes where it stopped.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging (also "+debugEnv+"=true)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCircuitCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCleanCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// isVerbose reports whether debug logging was requested by flag or environment.
func isVerbose(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, _ = cmd.Root().PersistentFlags().GetBool("verbose") //nolint:errcheck // defined on root
	}
	if verbose {
		return true
	}
	on, err := strconv.ParseBool(os.Getenv(debugEnv))
	return err == nil && on
}

// newLogger builds the redacting logger used by every command.
func newLogger(cmd *cobra.Command) *slog.Logger {
	return rlog.NewSecureLogger(cmd.ErrOrStderr(), isVerbose(cmd))
}
