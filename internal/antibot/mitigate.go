package antibot

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultSettleWait   = 10 * time.Second
	defaultClickPause   = 2 * time.Second
	defaultRedirectWait = 5 * time.Second
)

// Session is the part of a browser tab the mitigator drives.
type Session interface {
	// FrameCount returns the number of frames in the page, including the
	// top-level document at index 0.
	FrameCount(ctx context.Context) (int, error)

	// ClickCheckboxes clicks every checkbox-style widget in frame i once
	// and returns how many were clicked.
	ClickCheckboxes(ctx context.Context, i int) (int, error)
}

// Mitigator attempts to clear a challenge page.
type Mitigator struct {
	settle   time.Duration
	pause    time.Duration
	redirect time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// Option configures a Mitigator.
type Option func(*Mitigator)

// WithWaits overrides the settle, per-click and redirect waits.
func WithWaits(settle, pause, redirect time.Duration) Option {
	return func(m *Mitigator) {
		m.settle, m.pause, m.redirect = settle, pause, redirect
	}
}

// WithSleep replaces the context-aware sleep.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Mitigator) {
		m.sleep = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mitigator) {
		m.logger = l
	}
}

// NewMitigator creates a Mitigator with the default waits.
func NewMitigator(opts ...Option) *Mitigator {
	m := &Mitigator{
		settle:   defaultSettleWait,
		pause:    defaultClickPause,
		redirect: defaultRedirectWait,
		sleep:    sleep,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mitigate runs one mitigation pass over s and returns the number of
// widgets clicked. Errors are logged and swallowed; it only stops early
// when ctx is done.
func (m *Mitigator) Mitigate(ctx context.Context, s Session) int {
	if m.sleep(ctx, m.settle) != nil {
		return 0
	}

	n, err := s.FrameCount(ctx)
	if err != nil {
		m.logger.Debug("could not list frames", "error", err)
		n = 1
	}

	clicked := 0
	for i := range n {
		c, err := s.ClickCheckboxes(ctx, i)
		if err != nil {
			m.logger.Debug("challenge click failed", "frame", i, "error", err)
		}
		for range c {
			if m.sleep(ctx, m.pause) != nil {
				return clicked + c
			}
		}
		clicked += c
	}

	_ = m.sleep(ctx, m.redirect) //nolint:errcheck // the caller re-checks the page
	m.logger.Debug("challenge mitigation finished", "frames", n, "clicked", clicked)
	return clicked
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
