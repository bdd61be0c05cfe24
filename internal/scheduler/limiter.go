package scheduler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/nao1215/reaper/internal/fetch"
	"golang.org/x/time/rate"
)

const (
	defaultHostInterval = 2 * time.Second
	defaultMinInterval  = 60 * time.Second
)

// HostLimiter paces requests per host. A host that fails or answers with
// 429 or 503 is slowed down; successes bring it back gradually.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	base     rate.Limit
	floor    rate.Limit
}

// NewHostLimiter allows one request per interval per host, never slowing a
// host below one request per minInterval.
func NewHostLimiter(interval, minInterval time.Duration) *HostLimiter {
	if interval <= 0 {
		interval = defaultHostInterval
	}
	if minInterval < interval {
		minInterval = interval
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		base:     rate.Every(interval),
		floor:    rate.Every(minInterval),
	}
}

func (h *HostLimiter) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(h.base, 1)
		h.limiters[host] = lim
	}
	return lim
}

// Wait blocks until host may be contacted.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	return h.get(host).Wait(ctx)
}

// Limit returns the current rate of host.
func (h *HostLimiter) Limit(host string) rate.Limit {
	return h.get(host).Limit()
}

// Observe adapts the rate of host to the outcome of a fetch.
func (h *HostLimiter) Observe(host string, err error) {
	lim := h.get(host)
	current := lim.Limit()

	if err == nil {
		if current < h.base {
			lim.SetLimit(rate.Limit(math.Min(float64(h.base), float64(current)+float64(h.base)/10)))
		}
		return
	}

	var se *fetch.StatusError
	if errors.As(err, &se) && (se.Code == http.StatusTooManyRequests || se.Code == http.StatusServiceUnavailable) {
		lim.SetLimit(h.floor)
		return
	}
	lim.SetLimit(rate.Limit(math.Max(float64(h.floor), float64(current)/2)))
}
