package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/reaper/internal/analyzer"
	"github.com/nao1215/reaper/internal/antibot"
	"github.com/nao1215/reaper/internal/config"
	"github.com/nao1215/reaper/internal/crawler"
	"github.com/nao1215/reaper/internal/database"
	"github.com/nao1215/reaper/internal/fetch"
	"github.com/nao1215/reaper/internal/frontier"
	"github.com/nao1215/reaper/internal/model"
	"github.com/nao1215/reaper/internal/pipeline"
	"github.com/nao1215/reaper/internal/scheduler"
	"github.com/nao1215/reaper/internal/storage"
	"github.com/nao1215/reaper/internal/tor"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl for mentions of a person",
		Long: `Crawl starts from the seed URLs and follows links, looking for mentions
of the target's name on every page.

Each URL is fetched with the cheapest strategy first: plain HTTP, then HTTP
over Tor, then a headless browser, a headless browser over Tor and finally
a stealth browser that simulates a human visitor. Hits are printed and
appended to the match log; every page is archived.

Stop with Ctrl-C: in-flight pages finish and the crawl state is saved. A
second Ctrl-C aborts in-flight pages. Running the same command again
resumes the crawl.

Examples:
  # Crawl from one seed
  reaper crawl --name "Jane Doe" https://example.org/

  # Qualify the name and watch extra keywords
  reaper crawl -n "Jane Doe" --org "Acme" -k "project falcon" -s https://example.org/

  # Let reaper start its own Tor daemon
  reaper crawl --embedded-tor -n "Jane Doe" https://example.org/

  # Use settings from a config file
  reaper crawl -c jane.yaml`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	f := cmd.Flags()
	f.StringP("name", "n", "", "Full name of the person to look for")
	f.String("org", "", "Organization the person is associated with")
	f.StringSliceP("keyword", "k", nil, "Extra keyword to look for (repeatable)")
	f.StringSliceP("seed", "s", nil, "Seed URL (repeatable, positional arguments are seeds too)")
	f.StringSlice("blacklist", nil, "Extra host never to crawl (repeatable)")
	addConfigFlags(f)
	addTorFlags(f)
	f.Bool("embedded-tor", false, "Start an embedded Tor daemon instead of using --socks/--control")
	f.Duration("tor-timeout", config.DefaultTorStartupTimeout, "Timeout for embedded Tor startup")
	f.Float64("renew-probability", config.DefaultRenewProbability, "Chance of a new circuit after each fetched page")

	f.IntP("workers", "w", config.DefaultWorkers, "Concurrent workers (1-3)")
	f.Int("max-retries", config.DefaultMaxRetries, "Fetch attempts per URL")
	f.Duration("backoff-ceiling", config.DefaultBackoffCeiling, "Longest wait between fetch attempts")
	f.Duration("save-interval", config.DefaultSaveInterval, "Time between crawl state snapshots")
	f.Int("context-radius", config.DefaultContextRadius, "Characters kept on each side of a match")
	f.Duration("http-timeout", config.DefaultHTTPTimeout, "Timeout for one HTTP fetch")
	f.Duration("render-timeout", config.DefaultRenderTimeout, "Timeout for one browser render")
	f.String("browser", "", "Chrome executable for browser strategies")
	f.Bool("strip-query", false, "Drop query strings from discovered URLs")
	f.Bool("ignore-robots", false, "Do not consult robots.txt")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return runCrawl(ctx, cancel, cfg, logger, cmd.OutOrStdout())
}

// buildConfig layers defaults, the config file and explicitly set flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	fa := newFlagApplier(cmd)
	fa.str("name", &cfg.TargetName)
	fa.str("org", &cfg.Organization)
	fa.list("keyword", &cfg.Keywords)
	fa.list("seed", &cfg.Seeds)
	cfg.Seeds = append(cfg.Seeds, args...)
	fa.list("blacklist", &cfg.Blacklist)
	fa.str("data-dir", &cfg.DataDir)

	fa.tor(cfg)
	fa.flag("embedded-tor", &cfg.UseEmbeddedTor, false)
	fa.dur("tor-timeout", &cfg.TorStartupTimeout)
	fa.float("renew-probability", &cfg.RenewProbability)

	fa.num("workers", &cfg.Workers)
	fa.num("max-retries", &cfg.MaxRetries)
	fa.dur("backoff-ceiling", &cfg.BackoffCeiling)
	fa.dur("save-interval", &cfg.SaveInterval)
	fa.num("context-radius", &cfg.ContextRadius)
	fa.dur("http-timeout", &cfg.HTTPTimeout)
	fa.dur("render-timeout", &cfg.RenderTimeout)
	fa.str("browser", &cfg.BrowserPath)
	fa.flag("strip-query", &cfg.StripQuery, false)
	fa.flag("ignore-robots", &cfg.RespectRobots, true)

	if err := fa.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// torStack is the anonymizing side of a crawl.
type torStack struct {
	client     *tor.Client
	controller *tor.Controller
	embedded   *tor.EmbeddedTor
}

func (t *torStack) close(logger *slog.Logger) {
	if t.embedded == nil {
		return
	}
	logger.Info("stopping embedded Tor daemon")
	if err := t.embedded.Stop(); err != nil {
		logger.Error("failed to stop embedded Tor", "error", err)
	}
}

// setupTor connects to the configured Tor or starts an embedded one.
func setupTor(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*torStack, error) {
	ts := &torStack{}
	opts := append(controllerAuth(cfg), tor.WithControllerLogger(logger))

	var err error
	if cfg.UseEmbeddedTor {
		fmt.Fprintln(out, "Starting embedded Tor daemon...")
		fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")
		ts.embedded = tor.NewEmbeddedTor(
			tor.WithStartupTimeout(cfg.TorStartupTimeout),
			tor.WithEmbeddedLogger(logger),
		)
		if err := ts.embedded.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		if ts.client, err = ts.embedded.NewClient(cfg.HTTPTimeout); err != nil {
			ts.close(logger)
			return nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		if cfg.VerifyRenewal {
			opts = append(opts, tor.WithIPLookup(tor.NewIPEcho(ts.client.NewHTTPClient(), cfg.IPEchoURLs)))
		}
		if ts.controller, err = ts.embedded.NewController(opts...); err != nil {
			ts.close(logger)
			return nil, fmt.Errorf("failed to create Tor controller: %w", err)
		}
		logger.Info("tor control port", "address", ts.controller.Address(), "method", "cookie")
		return ts, nil
	}

	if ts.client, err = tor.NewClient(cfg.SocksAddress, cfg.HTTPTimeout); err != nil {
		return nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if cfg.VerifyRenewal {
		opts = append(opts, tor.WithIPLookup(tor.NewIPEcho(ts.client.NewHTTPClient(), cfg.IPEchoURLs)))
	}
	ts.controller = tor.NewController(cfg.ControlAddress, opts...)
	logger.Info("tor control port", "address", ts.controller.Address(), "method", authMethod(cfg))
	return ts, nil
}

// newEscalator builds the strategy ladder, cheapest first.
func newEscalator(cfg *config.Config, ts *torStack, rng *fetch.Rand, logger *slog.Logger) (*fetch.Escalator, error) {
	httpOpts := []fetch.HTTPOption{
		fetch.WithHeaderGenerator(fetch.NewHeaderGenerator(rng)),
		fetch.WithSiteLookup(cfg.SiteConfigs.GetSiteConfig),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	}
	browserOpts := []fetch.BrowserOption{
		fetch.WithRenderTimeout(cfg.RenderTimeout),
		fetch.WithBrowserRand(rng),
	}
	if cfg.BrowserPath != "" {
		browserOpts = append(browserOpts, fetch.WithBrowserPath(cfg.BrowserPath))
	}

	strategies := []fetch.Strategy{
		fetch.NewDirectHTTP(fetch.NewDirectClient(cfg.HTTPTimeout), httpOpts...),
		fetch.NewAnonymizedHTTP(ts.client.NewHTTPClient(), ts.controller, httpOpts...),
		fetch.NewHeadless(browserOpts...),
		fetch.NewAnonymizedHeadless(ts.client.ProxyURL(), ts.controller, browserOpts...),
		fetch.NewStealth(
			fetch.WithMitigator(antibot.NewMitigator(antibot.WithLogger(logger))),
			fetch.WithStealthLogger(logger),
			fetch.WithStealthBrowser(browserOpts...),
		),
	}
	return fetch.NewEscalator(strategies,
		fetch.WithMaxRetries(cfg.MaxRetries),
		fetch.WithBackoffCeiling(cfg.BackoffCeiling),
		fetch.WithLogger(logger),
	)
}

// runCrawl wires every component and runs the scheduler until it stops.
func runCrawl(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	profile, err := model.NewTargetProfile(cfg.TargetName, cfg.Organization, cfg.Keywords)
	if err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}
	logger.Info("target profile",
		"name", profile.Name(),
		"variations", len(profile.Variations()),
		"keywords", profile.Keywords(),
	)
	logger.Debug("name variations", "variations", profile.Variations())

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	db, quarantined, err := database.OpenOrReset(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer db.Close()
	if quarantined != "" {
		logger.Warn("unreadable crawl state moved aside, starting fresh", "path", quarantined)
	}
	if at := db.SavedAt(ctx); !at.IsZero() {
		logger.Info("previous crawl state found", "saved_at", at.Local().Format(time.RFC3339))
	}

	matchLog, err := storage.OpenMatchLog(cfg.MatchLogPath())
	if err != nil {
		return err
	}
	defer matchLog.Close()
	pages, err := storage.NewRawStore(cfg.PagesDir())
	if err != nil {
		return err
	}

	ts, err := setupTor(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer ts.close(logger)

	rng := fetch.NewRand()
	esc, err := newEscalator(cfg, ts, rng, logger)
	if err != nil {
		return err
	}
	logger.Info("fetch strategies", "ladder", strings.Join(esc.Strategies(), " > "), "max_retries", cfg.MaxRetries)

	front := frontier.New(
		frontier.WithValidator(frontier.NewValidator(cfg.Blacklist, func(host string) []string {
			return cfg.SiteConfigs.GetSiteConfig(host).IgnorePatterns
		})),
		frontier.WithStore(db),
		frontier.WithSaveInterval(cfg.SaveInterval),
		frontier.WithStripQuery(cfg.StripQuery),
		frontier.WithLogger(logger),
	)

	steps := pipeline.New(pipeline.WithLogger(logger), pipeline.WithContinueOnError(true))
	steps.AddSteps(
		pipeline.NewAnalyzeStep(
			analyzer.New(profile, analyzer.WithContextRadius(cfg.ContextRadius)),
			matchLog,
			pipeline.WithHitWriter(out),
			pipeline.WithAnalyzeLogger(logger),
		),
		pipeline.NewArchiveStep(pages, logger),
		pipeline.NewLinkStep(front, logger),
	)

	torHTTP := ts.client.NewHTTPClient()
	opts := []scheduler.Option{
		scheduler.WithWorkers(cfg.Workers),
		scheduler.WithCircuitRotation(ts.controller, cfg.RenewProbability),
		scheduler.WithProxyCheck(ts.client),
		scheduler.WithTorCheck(func(ctx context.Context) (tor.TorCheck, error) {
			return tor.CheckTor(ctx, torHTTP, cfg.TorCheckURL)
		}),
		scheduler.WithRunRecorder(db, profile.Name()),
		scheduler.WithThinkTime(scheduler.NewThinkTime(cfg.ThinkScale, cfg.ThinkShape, cfg.ThinkCap, rng)),
		scheduler.WithRand(rng),
		scheduler.WithProgressEvery(cfg.ProgressEvery),
		scheduler.WithDrainTimeout(cfg.DrainTimeout),
		scheduler.WithLogger(logger),
	}
	if cfg.RespectRobots {
		opts = append(opts, scheduler.WithRobots(crawler.NewRobotsChecker(
			fetch.NewDirectClient(cfg.HTTPTimeout),
			crawler.WithRobotsLogger(logger),
		)))
	}
	sched := scheduler.New(front, esc, steps, opts...)

	stopOnSignal(ctx, sched, cancel, logger)

	fmt.Fprintf(out, "Crawling for %q from %d seed(s). Press Ctrl-C to stop.\n", profile.Name(), len(cfg.Seeds))
	if err := sched.Run(ctx, cfg.Seeds); err != nil {
		return fmt.Errorf("crawl state could not be saved: %w", err)
	}

	st := front.Stats()
	fmt.Fprintf(out, "\nCrawl stopped: %d visited, %d pending, %d failed.\n", st.Visited, st.Pending, st.Failed)
	fmt.Fprintf(out, "Matches: %s\n", matchLog.Path())
	return nil
}

// stopOnSignal drains the crawl on the first interrupt and cancels
// in-flight work on the second.
func stopOnSignal(ctx context.Context, sched *scheduler.Scheduler, cancel context.CancelFunc, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		logger.Info("received shutdown signal, finishing in-flight pages (press Ctrl-C again to abort)")
		sched.Stop()
		select {
		case <-sigCh:
			logger.Warn("aborting in-flight pages")
			cancel()
		case <-ctx.Done():
		}
	}()
}
