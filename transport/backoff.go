// ABOUTME: Reconnect delay calculation for the transport's dial loop.
// ABOUTME: Exponential growth from an initial delay, capped, with optional jitter.
package transport

import (
	"math"
	"math/rand"
	"time"
)

// Backoff controls the delay between reconnect attempts.
type Backoff struct {
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultBackoff starts at one second and doubles up to five.
func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: time.Second,
		Factor:       2,
		MaxDelay:     5 * time.Second,
	}
}

// DelayForAttempt returns InitialDelay * Factor^attempt capped at MaxDelay.
// With Jitter the result is drawn uniformly from [0, delay].
func (b Backoff) DelayForAttempt(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := float64(b.InitialDelay) * math.Pow(b.Factor, float64(attempt))
	delay := math.Min(base, float64(b.MaxDelay))
	if b.Jitter {
		delay = rand.Float64() * delay
	}
	return time.Duration(delay)
}
