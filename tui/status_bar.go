// ABOUTME: Implements a single-line status bar for the bottom of the dashboard.
// ABOUTME: Displays the derived pipeline summary, the server address and the latest command notice.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/simwatch/pipeline"
)

// StatusBarModel displays the pipeline summary in a single line.
type StatusBarModel struct {
	server string
	notice string
	width  int
}

// NewStatusBarModel creates a StatusBarModel for the given server address.
func NewStatusBarModel(server string) StatusBarModel {
	return StatusBarModel{server: server}
}

// SetNotice shows a transient message such as a command failure. An empty
// string clears it.
func (m *StatusBarModel) SetNotice(notice string) {
	m.notice = notice
}

// Notice returns the current notice.
func (m StatusBarModel) Notice() string {
	return m.notice
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View(summary pipeline.Summary) string {
	parts := []string{StyleForSummary(summary.Kind).Render(summary.Message())}
	if m.server != "" {
		parts = append(parts, "Server: "+m.server)
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}
	content := strings.Join(parts, " | ")

	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
