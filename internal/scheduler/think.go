package scheduler

import (
	"math"
	"time"

	"github.com/nao1215/reaper/internal/fetch"
)

// ThinkTime samples inter-dispatch delays from a Weibull distribution.
// A shape below 1 gives mostly short pauses with an occasional long one.
type ThinkTime struct {
	scale time.Duration
	shape float64
	limit time.Duration
	rng   *fetch.Rand
}

// NewThinkTime creates a sampler. Samples are capped at limit; a
// non-positive limit disables the cap.
func NewThinkTime(scale time.Duration, shape float64, limit time.Duration, rng *fetch.Rand) *ThinkTime {
	if shape <= 0 {
		shape = 1
	}
	if rng == nil {
		rng = fetch.NewRand()
	}
	return &ThinkTime{scale: scale, shape: shape, limit: limit, rng: rng}
}

// Next returns a random delay.
func (t *ThinkTime) Next() time.Duration {
	return t.Quantile(t.rng.Float64())
}

// Quantile returns the delay at cumulative probability p in [0, 1).
func (t *ThinkTime) Quantile(p float64) time.Duration {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		p = math.Nextafter(1, 0)
	}
	d := float64(t.scale) * math.Pow(-math.Log1p(-p), 1/t.shape)
	if t.limit > 0 && d > float64(t.limit) {
		return t.limit
	}
	return time.Duration(d)
}
