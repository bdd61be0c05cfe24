package tor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// maxEchoBody bounds the body read from echo services.
const maxEchoBody = 4096

// IPEcho looks up the egress IP through plain-text echo services.
type IPEcho struct {
	client *http.Client
	urls   []string
}

// NewIPEcho creates an IPEcho that tries urls in order with client.
// Pass a Tor HTTP client to see the exit address.
func NewIPEcho(client *http.Client, urls []string) *IPEcho {
	return &IPEcho{client: client, urls: urls}
}

// Lookup returns the first valid IP any endpoint reports.
func (e *IPEcho) Lookup(ctx context.Context) (string, error) {
	var errs []error
	for _, u := range e.urls {
		ip, err := e.lookupOne(ctx, u)
		if err == nil {
			return ip, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(append([]error{ErrNoEchoService}, errs...)...)
}

func (e *IPEcho) lookupOne(ctx context.Context, u string) (string, error) {
	body, err := getBody(ctx, e.client, u)
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("%s: response is not an IP address", u)
	}
	return ip, nil
}

// TorCheck is the answer of the Tor Project's check API.
type TorCheck struct {
	IsTor bool   `json:"IsTor"`
	IP    string `json:"IP"`
}

// CheckTor asks the check service whether client's traffic exits through Tor.
func CheckTor(ctx context.Context, client *http.Client, checkURL string) (TorCheck, error) {
	var tc TorCheck
	body, err := getBody(ctx, client, checkURL)
	if err != nil {
		return tc, err
	}
	if err := json.Unmarshal(body, &tc); err != nil {
		return tc, fmt.Errorf("decode tor check: %w", err)
	}
	return tc, nil
}

func getBody(ctx context.Context, client *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", u, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxEchoBody))
}
