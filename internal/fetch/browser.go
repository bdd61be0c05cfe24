package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// browserConfig describes one Chrome launch.
type browserConfig struct {
	proxy     string
	userAgent string
	width     int
	height    int
	execPath  string
}

// allocatorOptions returns the Chrome flags for bc. Automation markers are
// turned off for every launch.
func allocatorOptions(bc browserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.WindowSize(bc.width, bc.height),
	)
	if bc.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(bc.userAgent))
	}
	if bc.proxy != "" {
		opts = append(opts, chromedp.ProxyServer(bc.proxy))
	}
	if bc.execPath != "" {
		opts = append(opts, chromedp.ExecPath(bc.execPath))
	}
	return opts
}

// newTab launches a browser for bc and returns a tab context bounded by
// timeout. The cancel func shuts the browser down.
func newTab(ctx context.Context, bc browserConfig, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(bc)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	return tabCtx, func() {
		cancelTab()
		cancelAlloc()
		cancelTimeout()
	}
}

// BrowserOption configures the rendering strategies.
type BrowserOption func(*renderOptions)

type renderOptions struct {
	timeout  time.Duration
	execPath string
	rng      *Rand
	headers  *HeaderGenerator
}

func defaultRenderOptions() renderOptions {
	rng := NewRand()
	return renderOptions{
		timeout: 90 * time.Second,
		rng:     rng,
		headers: NewHeaderGenerator(rng),
	}
}

// WithRenderTimeout bounds one render including browser start-up.
func WithRenderTimeout(d time.Duration) BrowserOption {
	return func(o *renderOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBrowserPath sets the Chrome executable.
func WithBrowserPath(path string) BrowserOption {
	return func(o *renderOptions) {
		o.execPath = path
	}
}

// WithBrowserRand sets the random source for delays and viewports.
func WithBrowserRand(r *Rand) BrowserOption {
	return func(o *renderOptions) {
		o.rng = r
		o.headers = NewHeaderGenerator(r)
	}
}
