package config

import (
	"net"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "reaper"

	// DefaultSocksAddress is the standard Tor SOCKS5 proxy address.
	DefaultSocksAddress = "127.0.0.1:9050"

	// DefaultControlAddress is the standard Tor control port address.
	DefaultControlAddress = "127.0.0.1:9051"

	// DefaultWorkers is the size of the worker pool.
	// Kept small on purpose: the crawler optimizes for a low request
	// footprint, not throughput.
	DefaultWorkers = 2

	// MaxWorkers is the largest accepted worker pool size.
	MaxWorkers = 3

	// DefaultMaxRetries is the number of fetch attempts per URL.
	// Attempts walk the strategy ladder, capped at the last strategy.
	DefaultMaxRetries = 5

	// DefaultBackoffCeiling caps the exponential backoff between attempts.
	DefaultBackoffCeiling = 60 * time.Second

	// DefaultSaveInterval is the wall-clock interval between frontier snapshots.
	DefaultSaveInterval = 180 * time.Second

	// DefaultContextRadius is the number of characters kept on each side
	// of a match in the recorded context window.
	DefaultContextRadius = 150

	// DefaultThinkScale and DefaultThinkShape parameterize the Weibull
	// distribution the scheduler samples its inter-dispatch delay from.
	DefaultThinkScale = 3 * time.Second
	DefaultThinkShape = 0.7

	// DefaultThinkCap bounds a single think-time sample.
	// The distribution is heavy tailed and occasionally produces minutes.
	DefaultThinkCap = 60 * time.Second

	// DefaultProgressEvery emits a progress line every N visited URLs.
	DefaultProgressEvery = 10

	// DefaultDrainTimeout bounds how long shutdown waits for in-flight tasks.
	DefaultDrainTimeout = 30 * time.Second

	// DefaultHTTPTimeout applies to each plain or proxied HTTP request.
	DefaultHTTPTimeout = 25 * time.Second

	// DefaultRenderTimeout applies to each headless render including
	// settle delays and human-motion simulation.
	DefaultRenderTimeout = 90 * time.Second

	// DefaultRenewProbability is the chance of requesting a fresh circuit
	// after a successful fetch.
	DefaultRenewProbability = 0.2

	// DefaultTorCheckURL answers whether the caller is coming from a Tor exit.
	DefaultTorCheckURL = "https://check.torproject.org/api/ip"

	// DefaultMaxBodySize limits the response body size read by HTTP strategies.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// StateDBName, MatchLogName and PagesDirName are the artifacts written
	// under the data directory.
	StateDBName  = "state.db"
	MatchLogName = "matches.jsonl"
	PagesDirName = "pages"
)

// DefaultIPEchoURLs are tried in order when looking up the egress IP.
var DefaultIPEchoURLs = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
}

// DefaultBlacklist holds hosts that are never enqueued.
// Subdomains of these hosts are rejected too.
var DefaultBlacklist = []string{
	"localhost",
	"127.0.0.1",
	"example.com",
	"facebook.com",
	"twitter.com",
	"instagram.com",
	"youtube.com",
	"tiktok.com",
}

// Config holds all configuration options for a crawl run.
// It is populated from defaults, then the optional config file, then CLI
// flags, and is passed down explicitly rather than read from global state.
type Config struct {
	// TargetName is the full name of the identity being searched for.
	// It must contain at least a first and a last name.
	TargetName string

	// Organization optionally qualifies the name ("Jane Doe, Acme").
	Organization string

	// Keywords are extra terms monitored next to the name variations.
	Keywords []string

	// Seeds are the URLs the frontier starts from.
	Seeds []string

	// Blacklist holds hosts rejected at enqueue time. Subdomains match too.
	Blacklist []string

	// SocksAddress is the anonymizing proxy in "host:port" form.
	SocksAddress string

	// ControlAddress is the Tor control port in "host:port" form.
	ControlAddress string

	// ControlPassword is sent with AUTHENTICATE. Empty means null auth.
	ControlPassword string

	// ControlCookie is the path of Tor's control_auth_cookie. When set it
	// is used instead of ControlPassword.
	ControlCookie string

	// VerifyRenewal compares the egress IP before and after a circuit renewal.
	VerifyRenewal bool

	// UseEmbeddedTor starts a private Tor daemon instead of using
	// SocksAddress and ControlAddress.
	UseEmbeddedTor bool

	// TorStartupTimeout bounds the embedded daemon's bootstrap.
	TorStartupTimeout time.Duration

	// Workers is the fixed worker pool size (1..MaxWorkers).
	Workers int

	// MaxRetries is the number of fetch attempts per URL.
	MaxRetries int

	// BackoffCeiling caps the backoff between fetch attempts.
	BackoffCeiling time.Duration

	// SaveInterval is the minimum time between periodic snapshots.
	SaveInterval time.Duration

	// ContextRadius is the match context window radius in characters.
	ContextRadius int

	// ThinkScale, ThinkShape and ThinkCap shape the scheduler's think-time.
	ThinkScale time.Duration
	ThinkShape float64
	ThinkCap   time.Duration

	// ProgressEvery emits progress after this many visited URLs.
	ProgressEvery int

	// DrainTimeout bounds the wait for in-flight tasks during shutdown.
	DrainTimeout time.Duration

	// HTTPTimeout and RenderTimeout bound single fetch attempts.
	HTTPTimeout   time.Duration
	RenderTimeout time.Duration

	// RenewProbability is the chance of renewing the circuit after a fetch.
	RenewProbability float64

	// IPEchoURLs are the plain-text IP echo endpoints, tried in order.
	IPEchoURLs []string

	// TorCheckURL is queried once at startup to confirm Tor routing.
	TorCheckURL string

	// StripQuery drops the whole query string during URL normalization.
	// Tracking parameters are always removed.
	StripQuery bool

	// RespectRobots enables the robots.txt check before each fetch.
	RespectRobots bool

	// MaxBodySize limits the bytes read from an HTTP response.
	MaxBodySize int64

	// BrowserPath overrides the Chrome executable used by rendering
	// strategies. Empty lets chromedp find one.
	BrowserPath string

	// DataDir holds the state database, the match log and stored pages.
	DataDir string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path of the YAML config file, if any.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Blacklist:         append([]string(nil), DefaultBlacklist...),
		SocksAddress:      DefaultSocksAddress,
		ControlAddress:    DefaultControlAddress,
		VerifyRenewal:     true,
		TorStartupTimeout: DefaultTorStartupTimeout,
		Workers:           DefaultWorkers,
		MaxRetries:        DefaultMaxRetries,
		BackoffCeiling:    DefaultBackoffCeiling,
		SaveInterval:      DefaultSaveInterval,
		ContextRadius:     DefaultContextRadius,
		ThinkScale:        DefaultThinkScale,
		ThinkShape:        DefaultThinkShape,
		ThinkCap:          DefaultThinkCap,
		ProgressEvery:     DefaultProgressEvery,
		DrainTimeout:      DefaultDrainTimeout,
		HTTPTimeout:       DefaultHTTPTimeout,
		RenderTimeout:     DefaultRenderTimeout,
		RenewProbability:  DefaultRenewProbability,
		IPEchoURLs:        append([]string(nil), DefaultIPEchoURLs...),
		TorCheckURL:       DefaultTorCheckURL,
		RespectRobots:     true,
		MaxBodySize:       DefaultMaxBodySize,
		DataDir:           XDGDataDir(),
		SiteConfigs:       &File{Sites: map[string]SiteConfig{}},
	}
}

// XDGDataDir returns the XDG data directory for reaper.
// On Linux: ~/.local/share/reaper
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDBPath returns the path of the crawl state database.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.DataDir, StateDBName)
}

// MatchLogPath returns the path of the append-only match log.
func (c *Config) MatchLogPath() string {
	return filepath.Join(c.DataDir, MatchLogName)
}

// PagesDir returns the directory holding compressed raw pages.
func (c *Config) PagesDir() string {
	return filepath.Join(c.DataDir, PagesDirName)
}

// Validate checks if the configuration is valid for a crawl run.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.TargetName == "" {
		return ErrNoTarget
	}
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return ErrInvalidWorkers
	}
	if c.MaxRetries < 1 {
		return ErrInvalidMaxRetries
	}
	if c.BackoffCeiling <= 0 {
		return ErrInvalidBackoff
	}
	if c.SaveInterval <= 0 {
		return ErrInvalidSaveInterval
	}
	if c.ContextRadius < 0 {
		return ErrInvalidContextRadius
	}
	if c.ThinkScale < 0 || c.ThinkShape <= 0 {
		return ErrInvalidThinkTime
	}
	if c.HTTPTimeout <= 0 || c.RenderTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RenewProbability < 0 || c.RenewProbability > 1 {
		return ErrInvalidProbability
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if !c.UseEmbeddedTor {
		if !validHostPort(c.SocksAddress) {
			return ErrInvalidSocksAddress
		}
		if !validHostPort(c.ControlAddress) {
			return ErrInvalidControlAddress
		}
	}
	if c.DataDir == "" {
		return ErrNoDataDir
	}
	return nil
}

func validHostPort(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	return err == nil && host != "" && port != ""
}
