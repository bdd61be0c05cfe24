package frontier

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are query keys removed during normalization.
// Any key starting with "utm_" is removed as well.
var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"dclid":   {},
	"msclkid": {},
	"mc_cid":  {},
	"mc_eid":  {},
	"_ga":     {},
	"igshid":  {},
	"yclid":   {},
}

// Normalize canonicalizes a URL for deduplication.
//
// The fragment and tracking parameters are dropped, the scheme and host
// are lowercased, default ports are removed and an empty path becomes "/".
// The remaining query keys are sorted. With stripQuery the whole query is
// dropped.
func Normalize(raw string, stripQuery bool) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Host == "" {
		return nil, ErrNoHost
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	u.Host = host

	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	if stripQuery {
		u.RawQuery = ""
		u.ForceQuery = false
		return u, nil
	}

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if _, ok := trackingParams[lk]; ok || strings.HasPrefix(lk, "utm_") {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	u.ForceQuery = false
	return u, nil
}

// hostOf returns the lowercased host (without port) of a normalized URL.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
