package fetch

import (
	"context"

	"github.com/nao1215/reaper/internal/tor"
)

// Strategy is one way of fetching a URL.
type Strategy interface {
	// Name identifies the strategy in logs and failure reports.
	Name() string

	// Fetch returns the raw page content.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// CircuitRenewer requests a fresh Tor circuit. Implementations never fail
// the caller; *tor.Controller is the production one.
type CircuitRenewer interface {
	RenewCircuit(ctx context.Context) tor.RenewResult
}

// Strategy names.
const (
	NameDirectHTTP         = "direct-http"
	NameAnonymizedHTTP     = "tor-http"
	NameHeadless           = "headless"
	NameAnonymizedHeadless = "tor-headless"
	NameStealth            = "stealth"
)
