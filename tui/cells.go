// ABOUTME: Cell formatting shared by the overview and FIFO tables.
// ABOUTME: Simulation-derived numbers show "?" after a failed run and a trailing ellipsis while pending.
package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/simwatch/pipeline"
)

const ellipsis = "…"

// metricCell formats a value produced by a simulation stage. While the
// stage has not ended the value is provisional.
func metricCell(value *int, stage pipeline.StageStatus) string {
	if stage.Error != nil {
		return "?"
	}
	out := ""
	if value != nil {
		out = strconv.Itoa(*value)
	}
	if stage.End == nil {
		out += ellipsis
	}
	return out
}

// metricCellStyled mutes provisional cells.
func metricCellStyled(value *int, stage pipeline.StageStatus) string {
	cell := metricCell(value, stage)
	if stage.End == nil {
		return MutedStyle.Render(cell)
	}
	return cell
}

// padRight pads s with spaces to the given display width.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
