package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/reaper/internal/config"
	"github.com/nao1215/reaper/internal/database"
	"github.com/nao1215/reaper/internal/fetch"
	"github.com/nao1215/reaper/internal/frontier"
	"github.com/nao1215/reaper/internal/model"
	"github.com/nao1215/reaper/internal/tor"
)

// Fetcher retrieves a URL, escalating strategies as needed.
type Fetcher interface {
	Execute(ctx context.Context, url string) (*fetch.Result, error)
}

// Processor handles a fetched page.
type Processor interface {
	Execute(ctx context.Context, page *model.Page) error
}

// RobotsPolicy decides whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}

// ProxyChecker verifies the anonymizing proxy.
type ProxyChecker interface {
	CheckConnection(ctx context.Context) tor.ProxyStatus
}

// RunRecorder keeps the history of crawl runs.
type RunRecorder interface {
	BeginRun(ctx context.Context, target string) (string, error)
	FinishRun(ctx context.Context, id string, stats database.RunStats) error
}

// TorCheckFunc asks whether traffic exits through Tor.
type TorCheckFunc func(ctx context.Context) (tor.TorCheck, error)

// Scheduler runs a crawl over a frontier.
type Scheduler struct {
	frontier *frontier.Frontier
	fetcher  Fetcher
	pages    Processor

	robots   RobotsPolicy
	renewer  fetch.CircuitRenewer
	proxy    ProxyChecker
	torCheck TorCheckFunc
	runs     RunRecorder
	target   string

	limiter *HostLimiter
	think   *ThinkTime
	rng     *fetch.Rand

	workers       int
	renewProb     float64
	progressEvery int
	drainTimeout  time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
	now           func() time.Time
	logger        *slog.Logger

	state     atomic.Int32
	stopped   atomic.Bool
	completed atomic.Int64

	mu         sync.Mutex
	cancelLoop context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the worker pool size, clamped to 1..config.MaxWorkers.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		s.workers = min(max(n, 1), config.MaxWorkers)
	}
}

// WithRobots enables the robots check before each fetch.
func WithRobots(r RobotsPolicy) Option {
	return func(s *Scheduler) {
		s.robots = r
	}
}

// WithCircuitRotation renews the circuit after a successful fetch with
// probability p.
func WithCircuitRotation(r fetch.CircuitRenewer, p float64) Option {
	return func(s *Scheduler) {
		s.renewer = r
		s.renewProb = p
	}
}

// WithProxyCheck verifies the proxy during Init.
func WithProxyCheck(p ProxyChecker) Option {
	return func(s *Scheduler) {
		s.proxy = p
	}
}

// WithTorCheck asks the Tor check service during Init.
func WithTorCheck(fn TorCheckFunc) Option {
	return func(s *Scheduler) {
		s.torCheck = fn
	}
}

// WithRunRecorder records the run under target.
func WithRunRecorder(r RunRecorder, target string) Option {
	return func(s *Scheduler) {
		s.runs = r
		s.target = target
	}
}

// WithHostLimiter sets the per-host rate limiter.
func WithHostLimiter(h *HostLimiter) Option {
	return func(s *Scheduler) {
		s.limiter = h
	}
}

// WithThinkTime sets the inter-dispatch delay sampler.
func WithThinkTime(t *ThinkTime) Option {
	return func(s *Scheduler) {
		s.think = t
	}
}

// WithRand sets the random source.
func WithRand(r *fetch.Rand) Option {
	return func(s *Scheduler) {
		s.rng = r
	}
}

// WithProgressEvery logs progress after every n completed tasks.
func WithProgressEvery(n int) Option {
	return func(s *Scheduler) {
		s.progressEvery = n
	}
}

// WithDrainTimeout bounds the wait for in-flight tasks and the final snapshot.
func WithDrainTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.drainTimeout = d
		}
	}
}

// WithSleep replaces the think-time sleep, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) {
		s.sleep = fn
	}
}

// WithClock sets the time source of fetched pages.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a Scheduler.
func New(f *frontier.Frontier, fetcher Fetcher, pages Processor, opts ...Option) *Scheduler {
	s := &Scheduler{
		frontier:      f,
		fetcher:       fetcher,
		pages:         pages,
		workers:       config.DefaultWorkers,
		progressEvery: config.DefaultProgressEvery,
		drainTimeout:  config.DefaultDrainTimeout,
		sleep:         tor.Sleep,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = fetch.NewRand()
	}
	if s.limiter == nil {
		s.limiter = NewHostLimiter(defaultHostInterval, defaultMinInterval)
	}
	if s.think == nil {
		s.think = NewThinkTime(config.DefaultThinkScale, config.DefaultThinkShape, config.DefaultThinkCap, s.rng)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
	s.logger.Debug("scheduler state", "state", st)
}

// Stop asks a running crawl to drain. It is safe to call more than once
// and from any goroutine.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelLoop != nil {
		s.cancelLoop()
	}
}

// Run crawls until the frontier is exhausted, Stop is called or ctx is
// done. It always finishes with a final snapshot, whose error it returns.
func (s *Scheduler) Run(ctx context.Context, seeds []string) error {
	s.setState(StateInit)
	restored := s.frontier.Restore(ctx)
	s.checkAnonymity(ctx)
	added := s.frontier.EnqueueAll(seeds)
	runID := s.beginRun(ctx)

	stats := s.frontier.Stats()
	s.logger.Info("crawl initialized",
		"run_id", runID,
		"restored", restored,
		"seeds_added", added,
		"visited", stats.Visited,
		"pending", stats.Pending,
		"workers", s.workers,
	)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancelLoop = cancel
	s.mu.Unlock()
	if s.stopped.Load() {
		cancel()
	}

	pool := NewPool(context.WithoutCancel(ctx), s.workers)
	s.setState(StateRunning)
	s.dispatch(loopCtx, pool)

	s.setState(StateDraining)
	s.logger.Info("draining", "in_flight", pool.InFlight())
	if ctx.Err() != nil {
		pool.Cancel()
	}
	if err := pool.Drain(s.drainTimeout); err != nil {
		s.logger.Warn("in-flight tasks cancelled", "error", err)
	}

	s.setState(StateStopped)
	snapCtx, cancelSnap := context.WithTimeout(context.WithoutCancel(ctx), s.drainTimeout)
	defer cancelSnap()
	err := s.frontier.Snapshot(snapCtx)
	if err != nil {
		s.logger.Error("final snapshot failed", "error", err)
	}

	stats = s.frontier.Stats()
	s.finishRun(snapCtx, runID, stats)
	s.logger.Info("crawl stopped",
		"visited", stats.Visited,
		"pending", stats.Pending,
		"failed", stats.Failed,
	)
	return err
}

// dispatch claims pending URLs and submits them until there is no work
// left or ctx is done.
func (s *Scheduler) dispatch(ctx context.Context, pool *Pool) {
	for !s.stopped.Load() && ctx.Err() == nil {
		u, ok := s.frontier.NextPending()
		if !ok {
			if pool.InFlight() == 0 {
				// a task may have enqueued links between the two checks
				if s.frontier.Len() > 0 {
					continue
				}
				s.logger.Info("frontier exhausted")
				return
			}
			select {
			case <-pool.Finished():
			case <-ctx.Done():
			}
			continue
		}

		if err := pool.Submit(ctx, func(tctx context.Context) { s.runTask(tctx, u) }); err != nil {
			s.logger.Debug("returning undispatched url", "url", u, "error", err)
			s.frontier.Requeue(u)
			return
		}
		if err := s.sleep(ctx, s.think.Next()); err != nil {
			return
		}
	}
}

// runTask processes one claimed URL. Nothing below this point ends the crawl.
func (s *Scheduler) runTask(ctx context.Context, u string) {
	defer s.finishTask(ctx)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", "url", u, "panic", r)
			s.frontier.RecordFailure(u, fmt.Sprintf("panic: %v", r))
		}
	}()

	if s.robots != nil && !s.robots.Allowed(ctx, u) {
		s.fail(ctx, u, "disallowed by robots.txt")
		return
	}

	host := hostOf(u)
	if err := s.limiter.Wait(ctx, host); err != nil {
		s.fail(ctx, u, err.Error())
		return
	}

	res, err := s.fetcher.Execute(ctx, u)
	s.limiter.Observe(host, err)
	if err != nil {
		s.fail(ctx, u, err.Error())
		return
	}

	page := &model.Page{
		URL:       u,
		Raw:       res.Body,
		Strategy:  res.Strategy,
		Attempts:  res.Attempts,
		FetchedAt: s.now(),
	}
	if err := s.pages.Execute(ctx, page); err != nil {
		s.fail(ctx, u, err.Error())
		return
	}
	s.logger.Info("page processed",
		"url", u,
		"strategy", res.Strategy,
		"attempts", res.Attempts,
		"links", len(page.Links),
		"match", page.Match != nil,
	)

	if s.renewer != nil && s.rng.Chance(s.renewProb) {
		r := s.renewer.RenewCircuit(ctx)
		s.logger.Debug("random circuit rotation", "status", r.Status)
	}
}

// fail records reason as the terminal outcome for u. A task cut short by
// cancellation has not really been tried, so u goes back to pending instead.
func (s *Scheduler) fail(ctx context.Context, u, reason string) {
	if ctx.Err() != nil {
		s.logger.Debug("task interrupted, url requeued", "url", u, "reason", reason)
		s.frontier.Requeue(u)
		return
	}
	s.logger.Warn("url failed", "url", u, "reason", reason)
	s.frontier.RecordFailure(u, reason)
}

func (s *Scheduler) finishTask(ctx context.Context) {
	n := s.completed.Add(1)
	if s.progressEvery > 0 && n%int64(s.progressEvery) == 0 {
		st := s.frontier.Stats()
		s.logger.Info("progress",
			"completed", n,
			"visited", st.Visited,
			"pending", st.Pending,
			"failed", st.Failed,
			"hosts", st.Hosts,
		)
	}
	if _, err := s.frontier.SnapshotIfDue(ctx); err != nil {
		s.logger.Warn("periodic snapshot failed", "error", err)
	}
}

// Completed returns the number of finished tasks.
func (s *Scheduler) Completed() int {
	return int(s.completed.Load())
}

func (s *Scheduler) checkAnonymity(ctx context.Context) {
	if s.proxy != nil {
		if st := s.proxy.CheckConnection(ctx); st != tor.ProxyStatusOK {
			s.logger.Warn("anonymizing proxy unavailable, proxied strategies will fail and escalate",
				"status", st.String())
		} else {
			s.logger.Info("anonymizing proxy reachable")
		}
	}
	if s.torCheck != nil {
		tc, err := s.torCheck(ctx)
		switch {
		case err != nil:
			s.logger.Warn("tor check failed", "error", err)
		case !tc.IsTor:
			s.logger.Warn("traffic does not exit through tor", "ip", tc.IP)
		default:
			s.logger.Info("traffic exits through tor", "ip", tc.IP)
		}
	}
}

func (s *Scheduler) beginRun(ctx context.Context) string {
	if s.runs == nil {
		return ""
	}
	id, err := s.runs.BeginRun(ctx, s.target)
	if err != nil {
		s.logger.Warn("could not record run", "error", err)
		return ""
	}
	return id
}

func (s *Scheduler) finishRun(ctx context.Context, id string, st frontier.Stats) {
	if s.runs == nil || id == "" {
		return
	}
	err := s.runs.FinishRun(ctx, id, database.RunStats{
		Visited: st.Visited,
		Pending: st.Pending,
		Failed:  st.Failed,
		State:   s.State().String(),
	})
	if err != nil {
		s.logger.Warn("could not finish run record", "run_id", id, "error", err)
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
