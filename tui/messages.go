// ABOUTME: Bubble Tea message types used in the dashboard message loop.
// ABOUTME: Wraps session snapshots, generation-tagged ticks and command results as tea.Msg values.
package tui

import (
	"time"

	"github.com/2389-research/simwatch/session"
)

// StateMsg carries a new session snapshot into the message loop.
type StateMsg struct {
	State session.State
}

// TickMsg drives stopwatches and spinners. Gen identifies the tick chain
// that produced it; ticks from an older chain are dropped.
type TickMsg struct {
	Gen  int
	Time time.Time
}

// CommandResultMsg reports the outcome of a command sent to the server.
type CommandResultMsg struct {
	Command string
	Err     error
}
