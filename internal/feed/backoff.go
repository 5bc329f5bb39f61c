package feed

import (
	"math/rand"
	"time"
)

// Backoff computes reconnect delays: exponential growth from Base by
// Factor, capped at Max, with the upper half of each delay randomised.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64

	// Rand returns a value in [0, 1). Nil uses math/rand/v2.
	Rand func() float64
}

// DefaultBackoff returns 500ms doubling up to 30s.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:   500 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
	}
}

// Delay returns the wait before reconnect attempt n (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := float64(b.Base)
	for i := 0; i < attempt && d < float64(b.Max); i++ {
		d *= b.Factor
	}
	if d > float64(b.Max) {
		d = float64(b.Max)
	}

	r := b.Rand
	if r == nil {
		r = rand.Float64
	}

	half := d / 2
	return time.Duration(half + r()*half)
}
