// ABOUTME: Stopwatch arithmetic for live elapsed-time displays driven by a periodic tick.
// ABOUTME: Truncates elapsed time to the tick step so the rendered value only changes once per step.
package timefmt

import "math"

// DefaultStep is the stopwatch resolution in seconds.
const DefaultStep = 0.1

// Stopwatch measures time elapsed since Start, both expressed in seconds on
// the same local clock.
type Stopwatch struct {
	Start float64
	Step  float64
}

// NewStopwatch returns a stopwatch started at start with the default step.
func NewStopwatch(start float64) Stopwatch {
	return Stopwatch{Start: start, Step: DefaultStep}
}

func (s Stopwatch) step() float64 {
	if s.Step <= 0 || math.IsNaN(s.Step) || math.IsInf(s.Step, 0) {
		return DefaultStep
	}
	return s.Step
}

// FractionDigits is the number of decimals needed to show one step.
func (s Stopwatch) FractionDigits() int {
	digits := int(math.Ceil(-math.Log10(s.step())))
	if digits < 0 {
		return 0
	}
	return digits
}

// Elapsed returns now-Start truncated towards zero to a multiple of Step.
func (s Stopwatch) Elapsed(now float64) float64 {
	step := s.step()
	return math.Trunc((now-s.Start)/step) * step
}

// Format renders the elapsed time at now.
func (s Stopwatch) Format(now float64) string {
	return FormatDuration(s.Elapsed(now), s.FractionDigits())
}
