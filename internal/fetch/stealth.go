package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/stealth"

	"github.com/nao1215/reaper/internal/antibot"
	"github.com/nao1215/reaper/internal/tor"
)

// bodyWait bounds the final wait for a body element.
const bodyWait = 10 * time.Second

// StealthStrategy renders url while trying hard to look like a person.
type StealthStrategy struct {
	opts      renderOptions
	mitigator *antibot.Mitigator
	logger    *slog.Logger
}

// StealthOption configures a StealthStrategy.
type StealthOption func(*StealthStrategy)

// WithMitigator sets the challenge mitigator.
func WithMitigator(m *antibot.Mitigator) StealthOption {
	return func(s *StealthStrategy) {
		s.mitigator = m
	}
}

// WithStealthLogger sets the logger.
func WithStealthLogger(l *slog.Logger) StealthOption {
	return func(s *StealthStrategy) {
		s.logger = l
	}
}

// WithStealthBrowser applies browser options.
func WithStealthBrowser(opts ...BrowserOption) StealthOption {
	return func(s *StealthStrategy) {
		for _, opt := range opts {
			opt(&s.opts)
		}
	}
}

// NewStealth returns the last-resort strategy.
func NewStealth(opts ...StealthOption) *StealthStrategy {
	s := &StealthStrategy{
		opts:   defaultRenderOptions(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mitigator == nil {
		s.mitigator = antibot.NewMitigator(antibot.WithLogger(s.logger))
	}
	return s
}

// Name implements Strategy.
func (s *StealthStrategy) Name() string { return NameStealth }

// Fetch implements Strategy. It draws a random viewport, hides automation
// fingerprints before any page script runs, waits 4-7s, plays a HumanPlan,
// runs the challenge mitigator when the page looks like a bot check, and
// finally requires a body element.
func (s *StealthStrategy) Fetch(ctx context.Context, url string) ([]byte, error) {
	rng := s.opts.rng
	w, h := rng.IntRange(1024, 1920), rng.IntRange(768, 1080)

	tab, cancel := newTab(ctx, browserConfig{
		userAgent: s.opts.headers.UserAgent(),
		width:     w,
		height:    h,
		execPath:  s.opts.execPath,
	}, s.opts.timeout)
	defer cancel()

	err := chromedp.Run(tab,
		chromedp.EmulateViewport(int64(w), int64(h)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealth.JS).Do(ctx)
			return err
		}),
		chromedp.Navigate(url),
		chromedp.Sleep(rng.DurationRange(4*time.Second, 7*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("stealth render %s: %w", url, err)
	}

	plan := NewHumanPlan(rng)
	s.logger.Debug("simulating reader",
		"url", url, "scrolls", len(plan.Scrolls), "moves", len(plan.Moves), "pauses", plan.Duration())
	if err := plan.Run(tab, chromeActor{rng: rng}, float64(w)/2, float64(h)/2, tor.Sleep); err != nil {
		return nil, fmt.Errorf("human simulation on %s: %w", url, err)
	}

	var text string
	if err := chromedp.Run(tab, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text)); err == nil {
		if marker, ok := antibot.Marker(text); ok {
			s.logger.Debug("challenge page detected", "url", url, "marker", marker)
			s.mitigator.Mitigate(tab, antibot.NewChromeSession())
		}
	}

	waitCtx, waitCancel := context.WithTimeout(tab, bodyWait)
	defer waitCancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoContent, url, err)
	}

	var html string
	if err := chromedp.Run(tab, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read DOM of %s: %w", url, err)
	}
	if html == "" {
		return nil, ErrEmptyBody
	}
	return []byte(html), nil
}
