// ABOUTME: Local monotonic clock and client/server clock skew correction.
// ABOUTME: The offset is remeasured on every message so stage timers compare against local readings.
package session

import "time"

// Clock returns the local monotonic time in seconds.
type Clock func() float64

// NewMonotonicClock returns a Clock measuring seconds since its creation
// using Go's monotonic clock reading.
func NewMonotonicClock() Clock {
	base := time.Now()
	return func() float64 {
		return time.Since(base).Seconds()
	}
}

// Skew relates the server clock to the local clock as of the most recent
// message. Delta is local minus server at receipt time.
type Skew struct {
	ServerNow float64 // server timestamp of the last message
	Delta     float64
}

// Observe measures a new skew from a message stamped serverNow and received
// at local time localNow. Latency is assumed negligible; earlier
// measurements are discarded rather than averaged.
func Observe(localNow, serverNow float64) Skew {
	return Skew{ServerNow: serverNow, Delta: localNow - serverNow}
}

// Now converts a local reading to a server-comparable timestamp.
func (s Skew) Now(localNow float64) float64 {
	return localNow - s.Delta
}

// ToLocal converts a server timestamp into local clock seconds.
func (s Skew) ToLocal(serverTime float64) float64 {
	return serverTime + s.Delta
}
