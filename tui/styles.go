// ABOUTME: Defines lipgloss style constants for the dashboard pages, stage state colors and the status bar.
// ABOUTME: Provides StyleForState and StyleForSummary to map pipeline states to their display styles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/simwatch/pipeline"
)

var (
	// Page borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Tab bar
	ActiveTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170")).Underline(true)
	InactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	DisabledTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Strikethrough(true)

	// Stage state colors
	IdleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	RunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	SucceededStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Table cells
	HeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	MutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	SelectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("237"))
	ErrorTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// FIFO depth editor
	EditorStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
)

// StyleForState returns the style for a stage state.
func StyleForState(state pipeline.StageState) lipgloss.Style {
	switch state {
	case pipeline.StageRunning:
		return RunningStyle
	case pipeline.StageSucceeded:
		return SucceededStyle
	case pipeline.StageFailed:
		return FailedStyle
	default:
		return IdleStyle
	}
}

// StyleForSummary returns the style for the status bar summary.
func StyleForSummary(kind pipeline.SummaryKind) lipgloss.Style {
	switch kind {
	case pipeline.SummaryRunning:
		return RunningStyle
	case pipeline.SummaryDone:
		return SucceededStyle
	case pipeline.SummaryFailed, pipeline.SummaryDeadlocked:
		return FailedStyle
	default:
		return IdleStyle
	}
}
