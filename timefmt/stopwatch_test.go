package timefmt

import "testing"

func TestStopwatchFractionDigits(t *testing.T) {
	tests := []struct {
		step float64
		want int
	}{
		{step: 0.1, want: 1},
		{step: 0.01, want: 2},
		{step: 1, want: 0},
		{step: 5, want: 0},
		{step: 0, want: 1}, // falls back to the default step
	}
	for _, tt := range tests {
		sw := Stopwatch{Start: 0, Step: tt.step}
		if got := sw.FractionDigits(); got != tt.want {
			t.Errorf("step %v: FractionDigits() = %d, want %d", tt.step, got, tt.want)
		}
	}
}

func TestStopwatchFormat(t *testing.T) {
	sw := NewStopwatch(100)
	if got := sw.Format(112.37); got != "12.3s" {
		t.Errorf("Format = %q, want %q", got, "12.3s")
	}
	if got := sw.Format(100); got != "0.0s" {
		t.Errorf("Format at start = %q, want %q", got, "0.0s")
	}

	whole := Stopwatch{Start: 0, Step: 1}
	if got := whole.Format(65.9); got != "1m 5s" {
		t.Errorf("Format = %q, want %q", got, "1m 5s")
	}
}
