// ABOUTME: Renders the status page: one line per pipeline stage with icon, label, timing and errors.
// ABOUTME: Running stages show a stopwatch and progress with an ETA; failed stages print their error verbatim.
package tui

import (
	"fmt"
	"strings"

	"github.com/2389-research/simwatch/pipeline"
	"github.com/2389-research/simwatch/session"
	"github.com/2389-research/simwatch/timefmt"
)

// finishedDigits is the precision used for completed stage durations.
const finishedDigits = 2

// StatusPageModel renders the stage list.
type StatusPageModel struct {
	width  int
	height int
}

// NewStatusPageModel creates an empty StatusPageModel.
func NewStatusPageModel() StatusPageModel {
	return StatusPageModel{}
}

// SetSize sets the available dimensions.
func (m *StatusPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// View renders every stage of st. localNow is the current local monotonic
// time; frame animates running icons.
func (m StatusPageModel) View(st session.State, localNow float64, frame int) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("STATUS"))
	b.WriteString(MutedStyle.Render("  (r) rebuild"))
	b.WriteString("\n\n")

	for _, stage := range pipeline.Stages {
		b.WriteString(stageLine(stage, st.Stage(stage), st.Skew, localNow, frame))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// stageLine renders one stage. Server timestamps are localised through skew
// before comparing with localNow.
func stageLine(stage pipeline.Stage, rec pipeline.StageStatus, skew session.Skew, localNow float64, frame int) string {
	state := rec.State()
	icon := StyleForState(state).Render(stateIcon(state, frame))

	switch state {
	case pipeline.StageRunning:
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s%s ", icon, stage.Label(), ellipsis)
		if stage == pipeline.WaitingForNextSynthesis {
			b.WriteString(MutedStyle.Render("(s) skip "))
		}
		sw := timefmt.NewStopwatch(skew.ToLocal(*rec.Start))
		b.WriteString(sw.Format(localNow))
		if p, ok := rec.ProgressFraction(); ok {
			fmt.Fprintf(&b, " (%.1f%%", p*100)
			if p != 0 {
				fmt.Fprintf(&b, ", %s remaining", timefmt.FormatTimeRemaining(skew.Now(localNow)-*rec.Start, p))
			}
			b.WriteString(")")
		}
		return b.String()

	case pipeline.StageSucceeded:
		d, _ := rec.Duration()
		return fmt.Sprintf("%s %s%s %s", icon, stage.Label(), ellipsis,
			SucceededStyle.Render("done in "+timefmt.FormatDuration(d, finishedDigits)+"."))

	case pipeline.StageFailed:
		d, _ := rec.Duration()
		line := fmt.Sprintf("%s %s%s %s", icon, stage.Label(), ellipsis,
			FailedStyle.Render("error in "+timefmt.FormatDuration(d, finishedDigits)+"."))
		for _, l := range strings.Split(rec.ErrorText(), "\n") {
			line += "\n      " + ErrorTextStyle.Render(l)
		}
		return line

	default:
		return icon + " " + MutedStyle.Render(stage.Label())
	}
}
