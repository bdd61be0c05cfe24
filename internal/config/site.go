package config

import (
	"strings"
	"time"
)

// SiteConfig holds host-specific request settings.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to this host.
	// They override the randomized browser header template.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are glob patterns matched against the URL path.
	// Matching URLs are rejected at enqueue time.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`
}

// TargetSection describes the identity being searched for.
type TargetSection struct {
	Name         string   `yaml:"name,omitempty"`
	Organization string   `yaml:"organization,omitempty"`
	Keywords     []string `yaml:"keywords,omitempty"`
}

// TorSection configures the anonymizing proxy.
type TorSection struct {
	Socks           string `yaml:"socks,omitempty"`
	Control         string `yaml:"control,omitempty"`
	ControlPassword string `yaml:"controlPassword,omitempty"`
	ControlCookie   string `yaml:"controlCookie,omitempty"`
	Embedded        bool   `yaml:"embedded,omitempty"`
}

// CrawlSection configures crawl pacing.
type CrawlSection struct {
	Workers       int           `yaml:"workers,omitempty"`
	MaxRetries    int           `yaml:"maxRetries,omitempty"`
	SaveInterval  time.Duration `yaml:"saveInterval,omitempty"`
	ContextRadius int           `yaml:"contextRadius,omitempty"`
	StripQuery    bool          `yaml:"stripQuery,omitempty"`
	IgnoreRobots  bool          `yaml:"ignoreRobots,omitempty"`
	DataDir       string        `yaml:"dataDir,omitempty"`
}

// File represents the structure of the .reaper configuration file.
type File struct {
	Target TargetSection `yaml:"target,omitempty"`

	// Seeds are appended to seeds given on the command line.
	Seeds []string `yaml:"seeds,omitempty"`

	// Blacklist extends DefaultBlacklist.
	Blacklist []string `yaml:"blacklist,omitempty"`

	Tor   TorSection   `yaml:"tor,omitempty"`
	Crawl CrawlSection `yaml:"crawl,omitempty"`

	// Sites maps host names to their site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults is applied to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host.
// It merges the host-specific configuration with defaults. A "www." prefix
// is ignored when looking the host up.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		siteConfig, ok = cf.Sites[strings.TrimPrefix(host, "www.")]
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	return result
}

// ApplyTo copies every value set in the file onto cfg.
// Command-line flags are applied afterwards and win.
func (cf *File) ApplyTo(cfg *Config) {
	if cf == nil {
		return
	}
	cfg.SiteConfigs = cf

	if cf.Target.Name != "" {
		cfg.TargetName = cf.Target.Name
	}
	if cf.Target.Organization != "" {
		cfg.Organization = cf.Target.Organization
	}
	cfg.Keywords = append(cfg.Keywords, cf.Target.Keywords...)
	cfg.Seeds = append(cfg.Seeds, cf.Seeds...)
	cfg.Blacklist = append(cfg.Blacklist, cf.Blacklist...)

	if cf.Tor.Socks != "" {
		cfg.SocksAddress = cf.Tor.Socks
	}
	if cf.Tor.Control != "" {
		cfg.ControlAddress = cf.Tor.Control
	}
	if cf.Tor.ControlPassword != "" {
		cfg.ControlPassword = cf.Tor.ControlPassword
	}
	if cf.Tor.ControlCookie != "" {
		cfg.ControlCookie = cf.Tor.ControlCookie
	}
	if cf.Tor.Embedded {
		cfg.UseEmbeddedTor = true
	}

	if cf.Crawl.Workers != 0 {
		cfg.Workers = cf.Crawl.Workers
	}
	if cf.Crawl.MaxRetries != 0 {
		cfg.MaxRetries = cf.Crawl.MaxRetries
	}
	if cf.Crawl.SaveInterval != 0 {
		cfg.SaveInterval = cf.Crawl.SaveInterval
	}
	if cf.Crawl.ContextRadius != 0 {
		cfg.ContextRadius = cf.Crawl.ContextRadius
	}
	if cf.Crawl.StripQuery {
		cfg.StripQuery = true
	}
	if cf.Crawl.IgnoreRobots {
		cfg.RespectRobots = false
	}
	if cf.Crawl.DataDir != "" {
		cfg.DataDir = cf.Crawl.DataDir
	}
}
