package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/reaper/internal/config"
)

// SiteLookup returns host-specific request settings.
type SiteLookup func(host string) config.SiteConfig

// HTTPStrategy fetches with a single GET.
type HTTPStrategy struct {
	name    string
	client  *http.Client
	headers *HeaderGenerator
	renewer CircuitRenewer
	site    SiteLookup
	maxBody int64
}

// HTTPOption configures an HTTPStrategy.
type HTTPOption func(*HTTPStrategy)

// WithHeaderGenerator sets the header source.
func WithHeaderGenerator(g *HeaderGenerator) HTTPOption {
	return func(s *HTTPStrategy) {
		s.headers = g
	}
}

// WithSiteLookup applies per-site headers and cookies.
func WithSiteLookup(fn SiteLookup) HTTPOption {
	return func(s *HTTPStrategy) {
		s.site = fn
	}
}

// WithMaxBodySize caps the number of body bytes read.
func WithMaxBodySize(n int64) HTTPOption {
	return func(s *HTTPStrategy) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// NewDirectHTTP returns the strategy that GETs url without a proxy.
func NewDirectHTTP(client *http.Client, opts ...HTTPOption) *HTTPStrategy {
	return newHTTPStrategy(NameDirectHTTP, client, nil, opts)
}

// NewAnonymizedHTTP returns the strategy that renews the Tor circuit and
// then GETs url with client, which must dial through the Tor SOCKS proxy.
func NewAnonymizedHTTP(client *http.Client, renewer CircuitRenewer, opts ...HTTPOption) *HTTPStrategy {
	return newHTTPStrategy(NameAnonymizedHTTP, client, renewer, opts)
}

func newHTTPStrategy(name string, client *http.Client, renewer CircuitRenewer, opts []HTTPOption) *HTTPStrategy {
	s := &HTTPStrategy{
		name:    name,
		client:  client,
		headers: NewHeaderGenerator(NewRand()),
		renewer: renewer,
		site:    func(string) config.SiteConfig { return config.SiteConfig{} },
		maxBody: config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDirectClient returns the HTTP client used by the direct strategy.
func NewDirectClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 nil,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
		},
	}
}

// Name implements Strategy.
func (s *HTTPStrategy) Name() string { return s.name }

// Fetch implements Strategy. Status codes of 400 and above are errors.
func (s *HTTPStrategy) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if s.renewer != nil {
		s.renewer.RenewCircuit(ctx)
		// Kept-alive connections would stay on the old circuit.
		s.client.CloseIdleConnections()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = s.headers.Generate()
	if u, err := url.Parse(rawURL); err == nil {
		site := s.site(u.Hostname())
		for k, v := range site.Headers {
			req.Header.Set(k, v)
		}
		if site.Cookie != "" {
			req.Header.Set("Cookie", site.Cookie)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for reuse
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}
