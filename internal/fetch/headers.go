package fetch

import (
	"fmt"
	"net/http"
	"strings"
)

// Accept-Encoding is left to the transport so bodies are decoded for us.
// An empty DNT value is filled with a random 0 or 1.
var headerTemplates = []map[string]string{
	{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Upgrade-Insecure-Requests": "1",
		"DNT":                       "",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Pragma":                    "no-cache",
		"Cache-Control":             "no-cache",
	},
	{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Pragma":                    "no-cache",
	},
	{
		"Accept":          "*/*",
		"Accept-Language": "en-GB,en;q=0.9",
		"Sec-Fetch-Mode":  "navigate",
		"Sec-Fetch-Site":  "cross-site",
		"Sec-Fetch-Dest":  "document",
	},
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:132.0) Gecko/20100101 Firefox/132.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
}

var refererTerms = []string{"news", "latest", "info", "about"}

// HeaderGenerator produces plausible, randomized browser request headers.
type HeaderGenerator struct {
	rng *Rand
}

// NewHeaderGenerator creates a generator drawing from rng.
func NewHeaderGenerator(rng *Rand) *HeaderGenerator {
	return &HeaderGenerator{rng: rng}
}

// UserAgent returns a random user agent.
func (g *HeaderGenerator) UserAgent() string {
	return Pick(g.rng, userAgents)
}

// Generate returns one of the templates with a random user agent, a
// Google search Referer 30% of the time and a random X-Forwarded-For 20%
// of the time.
func (g *HeaderGenerator) Generate() http.Header {
	h := make(http.Header)
	for k, v := range Pick(g.rng, headerTemplates) {
		if k == "DNT" && v == "" {
			v = fmt.Sprint(g.rng.IntRange(0, 1))
		}
		h.Set(k, v)
	}
	h.Set("User-Agent", g.UserAgent())

	if g.rng.Chance(0.3) {
		a := Pick(g.rng, refererTerms)
		b := Pick(g.rng, refererTerms)
		for b == a {
			b = Pick(g.rng, refererTerms)
		}
		h.Set("Referer", "https://www.google.com/search?q="+strings.Join([]string{a, b}, "+"))
	}
	if g.rng.Chance(0.2) {
		h.Set("X-Forwarded-For", fmt.Sprintf("%d.%d.%d.%d",
			g.rng.IntRange(1, 255), g.rng.IntRange(1, 255), g.rng.IntRange(1, 255), g.rng.IntRange(1, 255)))
	}
	return h
}
