package fetch

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nao1215/reaper/internal/tor"
)

const (
	defaultMaxRetries = 5
	defaultCeiling    = 60 * time.Second
)

// Result is a successful fetch.
type Result struct {
	Body     []byte
	Strategy string

	// Attempts counts every attempt including the successful one.
	Attempts int
}

// Escalator runs strategies in order of increasing cost.
type Escalator struct {
	strategies []Strategy
	maxRetries int
	ceiling    time.Duration
	jitter     func() time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// EscalatorOption configures an Escalator.
type EscalatorOption func(*Escalator)

// WithMaxRetries sets the total number of attempts.
func WithMaxRetries(n int) EscalatorOption {
	return func(e *Escalator) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithBackoffCeiling caps the sleep between attempts.
func WithBackoffCeiling(d time.Duration) EscalatorOption {
	return func(e *Escalator) {
		e.ceiling = d
	}
}

// WithJitter replaces the [0,1s) jitter source.
func WithJitter(fn func() time.Duration) EscalatorOption {
	return func(e *Escalator) {
		e.jitter = fn
	}
}

// WithSleep replaces the context-aware sleep.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) EscalatorOption {
	return func(e *Escalator) {
		e.sleep = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EscalatorOption {
	return func(e *Escalator) {
		e.logger = l
	}
}

// NewEscalator creates an Escalator over strategies, cheapest first.
func NewEscalator(strategies []Strategy, opts ...EscalatorOption) (*Escalator, error) {
	if len(strategies) == 0 {
		return nil, ErrNoStrategies
	}
	e := &Escalator{
		strategies: strategies,
		maxRetries: defaultMaxRetries,
		ceiling:    defaultCeiling,
		jitter: func() time.Duration {
			return rand.N(time.Second) //nolint:gosec // timing jitter
		},
		sleep:  tor.Sleep,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Strategies returns the strategy names in escalation order.
func (e *Escalator) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}

// Execute fetches url, escalating on failure. After maxRetries failed
// attempts it returns an *ExhaustedError listing each of them. A done
// context ends the loop with the context's error.
func (e *Escalator) Execute(ctx context.Context, url string) (*Result, error) {
	failures := make([]StrategyFailure, 0, e.maxRetries)
	for a := range e.maxRetries {
		s := e.strategies[min(a, len(e.strategies)-1)]

		body, err := s.Fetch(ctx, url)
		if err == nil {
			if a > 0 {
				e.logger.Debug("fetched after escalation", "url", url, "strategy", s.Name(), "attempts", a+1)
			}
			return &Result{Body: body, Strategy: s.Name(), Attempts: a + 1}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		failures = append(failures, StrategyFailure{Attempt: a, Strategy: s.Name(), Err: err})
		e.logger.Debug("fetch attempt failed", "url", url, "strategy", s.Name(), "attempt", a+1, "error", err)

		if a == e.maxRetries-1 {
			break
		}
		if err := e.sleep(ctx, Backoff(a, e.jitter(), e.ceiling)); err != nil {
			return nil, err
		}
	}
	return nil, &ExhaustedError{URL: url, Failures: failures}
}

// Backoff returns min(2^attempt seconds + jitter, ceiling).
func Backoff(attempt int, jitter, ceiling time.Duration) time.Duration {
	if attempt > 30 {
		return ceiling
	}
	d := time.Duration(1<<attempt)*time.Second + jitter
	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}
