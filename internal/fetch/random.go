package fetch

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Rand is a goroutine-safe random source for header and behaviour
// randomization.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a Rand seeded from the runtime.
func NewRand() *Rand {
	return NewSeededRand(rand.Uint64(), rand.Uint64()) //nolint:gosec // not security sensitive
}

// NewSeededRand returns a deterministic Rand.
func NewSeededRand(seed1, seed2 uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed1, seed2))} //nolint:gosec // not security sensitive
}

// IntRange returns an int in [lo, hi].
func (r *Rand) IntRange(lo, hi int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.r.IntN(hi-lo+1)
}

// DurationRange returns a duration in [lo, hi).
func (r *Rand) DurationRange(lo, hi time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.r.Int64N(int64(hi-lo)))
}

// Chance returns true with probability p.
func (r *Rand) Chance(p float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64() < p
}

// Pick returns a random element of s.
func Pick[T any](r *Rand, s []T) T {
	return s[r.IntRange(0, len(s)-1)]
}

// Float64 returns a float in [0, 1).
func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}
