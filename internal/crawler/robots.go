package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	// robotsTimeout bounds one robots.txt fetch.
	robotsTimeout = 5 * time.Second

	// maxRobotsSize bounds the robots.txt body read.
	maxRobotsSize = 512 * 1024
)

// RobotsChecker answers robots.txt questions with a per-host cache.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotsEntry
}

// robotsEntry is filled once per host; concurrent callers wait on ready.
type robotsEntry struct {
	ready chan struct{}
	group *robotstxt.Group
}

// RobotsOption configures a RobotsChecker.
type RobotsOption func(*RobotsChecker)

// WithUserAgent sets the agent matched against robots.txt groups.
func WithUserAgent(ua string) RobotsOption {
	return func(r *RobotsChecker) {
		r.userAgent = ua
	}
}

// WithRobotsLogger sets the logger.
func WithRobotsLogger(l *slog.Logger) RobotsOption {
	return func(r *RobotsChecker) {
		r.logger = l
	}
}

// NewRobotsChecker creates a checker fetching robots.txt with client.
func NewRobotsChecker(client *http.Client, opts ...RobotsOption) *RobotsChecker {
	r := &RobotsChecker{
		client:    client,
		userAgent: "*",
		logger:    slog.Default(),
		cache:     make(map[string]*robotsEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allowed reports whether rawURL may be crawled. Any failure allows.
func (r *RobotsChecker) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	group := r.group(ctx, u)
	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (r *RobotsChecker) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	r.mu.Lock()
	e, ok := r.cache[key]
	if !ok {
		e = &robotsEntry{ready: make(chan struct{})}
		r.cache[key] = e
	}
	r.mu.Unlock()

	if ok {
		select {
		case <-e.ready:
			return e.group
		case <-ctx.Done():
			return nil
		}
	}

	e.group = r.fetch(ctx, key+"/robots.txt")
	close(e.ready)
	return e.group
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) *robotstxt.Group {
	ctx, cancel := context.WithTimeout(ctx, robotsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("robots.txt unreachable, allowing", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		// robotstxt reads a server error as disallow-all
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		r.logger.Debug("robots.txt unparsable, allowing", "url", robotsURL, "error", err)
		return nil
	}
	return data.FindGroup(r.userAgent)
}
