package frontier

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Reason explains why a URL was rejected at enqueue time.
type Reason int

const (
	// ReasonOK means the URL is acceptable.
	ReasonOK Reason = iota
	// ReasonMalformed means the URL could not be normalized.
	ReasonMalformed
	// ReasonScheme means the scheme is not http or https.
	ReasonScheme
	// ReasonBlacklisted means the host or a parent domain is blacklisted.
	ReasonBlacklisted
	// ReasonExtension means the path points at a non-document type.
	ReasonExtension
	// ReasonIgnored means a site ignore pattern matched the path.
	ReasonIgnored
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonMalformed:
		return "malformed"
	case ReasonScheme:
		return "scheme"
	case ReasonBlacklisted:
		return "blacklisted"
	case ReasonExtension:
		return "extension"
	case ReasonIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// skipExtensions matches paths of images, archives, media and office documents.
var skipExtensions = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|bmp|webp|svg|ico|tiff?|pdf|docx?|xlsx?|pptx?|odt|ods|zip|rar|7z|gz|tgz|tar|bz2|xz|mp[34]|m4a|avi|mov|mkv|webm|wav|flac|exe|dmg|iso|apk)$`)

// IgnoreFunc returns the glob ignore patterns configured for a host.
type IgnoreFunc func(host string) []string

// Validator decides whether a normalized URL may enter the frontier.
type Validator struct {
	blacklist []string
	ignore    IgnoreFunc
}

// NewValidator creates a Validator. Blacklisted hosts match exactly or as
// a parent domain, so "facebook.com" also rejects "m.facebook.com".
// ignore may be nil.
func NewValidator(blacklist []string, ignore IgnoreFunc) *Validator {
	bl := make([]string, 0, len(blacklist))
	for _, h := range blacklist {
		if h = strings.Trim(strings.ToLower(strings.TrimSpace(h)), "."); h != "" {
			bl = append(bl, h)
		}
	}
	return &Validator{blacklist: bl, ignore: ignore}
}

// Check returns ReasonOK if u may be enqueued.
func (v *Validator) Check(u *url.URL) Reason {
	if u == nil {
		return ReasonMalformed
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ReasonScheme
	}
	host := u.Hostname()
	if host == "" {
		return ReasonMalformed
	}
	for _, b := range v.blacklist {
		if host == b || strings.HasSuffix(host, "."+b) {
			return ReasonBlacklisted
		}
	}
	if skipExtensions.MatchString(u.Path) {
		return ReasonExtension
	}
	if v.ignore != nil {
		for _, p := range v.ignore(host) {
			if matchPattern(p, u.Path) {
				return ReasonIgnored
			}
		}
	}
	return ReasonOK
}

// matchPattern reports whether a URL path matches a glob pattern.
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.php" matches any path ending in ".php"
//   - "/login*" matches "/login" and "/login.html"
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*."); ok && strings.HasSuffix(p, "."+ext) {
		return true
	}
	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}
