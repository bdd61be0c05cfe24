package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// HeadlessStrategy renders url in headless Chrome.
type HeadlessStrategy struct {
	name      string
	proxy     string
	renewer   CircuitRenewer
	settleMin time.Duration
	settleMax time.Duration
	opts      renderOptions
}

// NewHeadless returns the direct headless render strategy. It waits 2-4s
// for scripts to settle and scrolls once.
func NewHeadless(opts ...BrowserOption) *HeadlessStrategy {
	return newHeadless(NameHeadless, "", nil, 2*time.Second, 4*time.Second, opts)
}

// NewAnonymizedHeadless returns the headless strategy routed through the
// Tor SOCKS proxy at proxyURL ("socks5://host:port"). It renews the
// circuit first and waits 3-5s.
func NewAnonymizedHeadless(proxyURL string, renewer CircuitRenewer, opts ...BrowserOption) *HeadlessStrategy {
	return newHeadless(NameAnonymizedHeadless, proxyURL, renewer, 3*time.Second, 5*time.Second, opts)
}

func newHeadless(name, proxy string, renewer CircuitRenewer, lo, hi time.Duration, opts []BrowserOption) *HeadlessStrategy {
	s := &HeadlessStrategy{
		name:      name,
		proxy:     proxy,
		renewer:   renewer,
		settleMin: lo,
		settleMax: hi,
		opts:      defaultRenderOptions(),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Name implements Strategy.
func (s *HeadlessStrategy) Name() string { return s.name }

// Fetch implements Strategy and returns the rendered DOM.
func (s *HeadlessStrategy) Fetch(ctx context.Context, url string) ([]byte, error) {
	if s.renewer != nil {
		s.renewer.RenewCircuit(ctx)
	}

	tab, cancel := newTab(ctx, browserConfig{
		proxy:     s.proxy,
		userAgent: s.opts.headers.UserAgent(),
		width:     1366,
		height:    768,
		execPath:  s.opts.execPath,
	}, s.opts.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(tab,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.opts.rng.DurationRange(s.settleMin, s.settleMax)),
		scrollBy(s.opts.rng.IntRange(200, 600)),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	if html == "" {
		return nil, ErrEmptyBody
	}
	return []byte(html), nil
}

func scrollBy(dy int) chromedp.Action {
	return chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", dy), nil)
}
