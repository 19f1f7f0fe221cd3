// ABOUTME: Bridge connecting the session tracker to the Bubble Tea message loop.
// ABOUTME: Provides state injection via program.Send, and tea.Cmd factories for ticks and server commands.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/simwatch/session"
)

// SessionSource yields the live session, or nil while disconnected.
// session.Tracker implements it.
type SessionSource interface {
	Current() *session.Session
}

// Bridge wraps a tea.Program's Send method for injecting session snapshots
// into the Bubble Tea message loop.
type Bridge struct {
	send func(msg tea.Msg)
}

// NewBridge creates a Bridge that sends messages via the given function.
// Typically called with program.Send as the argument.
func NewBridge(send func(msg tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

// Publish wraps a snapshot in a StateMsg and sends it to the TUI. It has the
// signature session.Tracker.Subscribe expects.
func (b *Bridge) Publish(st session.State) {
	b.send(StateMsg{State: st})
}

// Attach subscribes the bridge to every snapshot the tracker publishes and
// returns the unsubscribe func.
func (b *Bridge) Attach(tr *session.Tracker) (cancel func()) {
	return tr.Subscribe(b.Publish)
}

// TickCmd returns a tea.Cmd that sends a TickMsg tagged with gen after the
// given interval.
func TickCmd(gen int, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Gen: gen, Time: t}
	})
}

// commandCmd runs fn against the live session off the UI loop and reports
// the result as a CommandResultMsg.
func commandCmd(src SessionSource, name string, fn func(*session.Session) error) tea.Cmd {
	return func() tea.Msg {
		var s *session.Session
		if src != nil {
			s = src.Current()
		}
		if s == nil {
			return CommandResultMsg{Command: name, Err: session.ErrClosed}
		}
		return CommandResultMsg{Command: name, Err: fn(s)}
	}
}

// RebuildCmd asks the server to rebuild.
func RebuildCmd(src SessionSource) tea.Cmd {
	return commandCmd(src, "rebuild", (*session.Session).Rebuild)
}

// SkipWaitCmd asks the server to stop waiting for synthesis.
func SkipWaitCmd(src SessionSource) tea.Cmd {
	return commandCmd(src, "skip wait", (*session.Session).SkipWaitForSynthesis)
}

// ChangeFIFODepthCmd requests a new depth for one FIFO.
func ChangeFIFODepthCmd(src SessionSource, name, input string) tea.Cmd {
	return commandCmd(src, "set depth of "+name, func(s *session.Session) error {
		_, err := s.ChangeFIFODepth(name, input)
		return err
	})
}
