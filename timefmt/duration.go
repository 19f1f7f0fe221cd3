// ABOUTME: Human-readable duration and time-remaining formatting for pipeline stages.
// ABOUTME: Renders seconds as "1d 2h 3m 4s" and estimates remaining time with decaying precision.
package timefmt

import (
	"math"
	"strconv"
	"strings"
)

// FewSeconds is the phrase used when less than five seconds remain.
const FewSeconds = "a few seconds"

// Unknown is returned by FormatTimeRemaining when progress gives no basis
// for an estimate.
const Unknown = "unknown"

// FormatDuration renders a signed number of seconds using the largest
// nonzero unit among days, hours, minutes and seconds. Once a larger unit is
// present every smaller unit down to seconds is printed as well. The seconds
// part carries fractionDigits digits after the decimal point.
//
// NaN renders as zero and infinities as "∞" so callers never have to guard
// against bad arithmetic upstream.
func FormatDuration(seconds float64, fractionDigits int) string {
	if fractionDigits < 0 {
		fractionDigits = 0
	}
	if math.IsNaN(seconds) {
		seconds = 0
	}
	if seconds < 0 {
		return "-" + FormatDuration(-seconds, fractionDigits)
	}
	if math.IsInf(seconds, 0) {
		return "∞"
	}
	// Round with the same rule the seconds part prints with, so 119.999
	// carries into "2m 0.00s" rather than "1m 60.00s".
	seconds, _ = strconv.ParseFloat(strconv.FormatFloat(seconds, 'f', fractionDigits, 64), 64)

	minutes := math.Trunc(seconds / 60)
	secondsPart := strconv.FormatFloat(math.Mod(seconds, 60), 'f', fractionDigits, 64) + "s"
	if minutes == 0 {
		return secondsPart
	}

	hours := math.Trunc(minutes / 60)
	minutesPart := strconv.FormatFloat(math.Mod(minutes, 60), 'f', 0, 64) + "m"
	if hours == 0 {
		return minutesPart + " " + secondsPart
	}

	days := math.Trunc(hours / 24)
	hoursPart := strconv.FormatFloat(math.Mod(hours, 24), 'f', 0, 64) + "h"
	if days == 0 {
		return hoursPart + " " + minutesPart + " " + secondsPart
	}

	daysPart := strconv.FormatFloat(days, 'f', 0, 64) + "d"
	return daysPart + " " + hoursPart + " " + minutesPart + " " + secondsPart
}

// FormatTimeRemaining estimates how long a stage still has to run from the
// time it has been running and its reported progress fraction, assuming
// progress is linear. Under five seconds it answers FewSeconds; under ten
// minutes seconds are rounded down to a multiple of ten; beyond that
// seconds are dropped.
func FormatTimeRemaining(elapsed, progress float64) string {
	if math.IsNaN(progress) || progress <= 0 || math.IsNaN(elapsed) || math.IsInf(elapsed, 0) {
		return Unknown
	}
	if progress > 1 {
		progress = 1
	}
	if elapsed < 0 {
		elapsed = 0
	}

	total := elapsed / progress
	remaining := total - elapsed

	switch {
	case remaining < 5:
		return FewSeconds
	case remaining < 10*60:
		return FormatDuration(math.Floor(remaining/10)*10, 0)
	default:
		return strings.TrimSuffix(FormatDuration(math.Floor(remaining/60)*60, 0), " 0s")
	}
}
