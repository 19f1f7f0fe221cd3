// ABOUTME: Output page showing the testbench's captured output in a scrollable viewport.
// ABOUTME: The footer reports the testbench exit code once a run has finished.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/simwatch/wire"
)

// OutputPanelModel displays testbench output.
type OutputPanelModel struct {
	testbench *wire.Testbench
	viewport  viewport.Model
	width     int
	height    int
}

// NewOutputPanelModel creates an empty output page.
func NewOutputPanelModel() OutputPanelModel {
	return OutputPanelModel{viewport: viewport.New(80, 10)}
}

// SetTestbench replaces the displayed result. The scroll position is kept
// when the output text is unchanged.
func (m *OutputPanelModel) SetTestbench(tb *wire.Testbench) {
	changed := tb == nil || m.testbench == nil || tb.Output != m.testbench.Output
	m.testbench = tb
	if !changed {
		return
	}
	if tb == nil {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(tb.Output)
	m.viewport.GotoTop()
}

// SetSize sets the available dimensions and resizes the viewport. Two lines
// are reserved for the title and one for the footer.
func (m *OutputPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	vpHeight := h - 4
	if vpHeight < 1 {
		vpHeight = 1
	}
	if w < 1 {
		w = 1
	}
	m.viewport.Width = w
	m.viewport.Height = vpHeight
}

// Update scrolls the viewport.
func (m OutputPanelModel) Update(msg tea.KeyMsg) OutputPanelModel {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	_ = cmd
	return m
}

// View renders the output page.
func (m OutputPanelModel) View() string {
	title := TitleStyle.Render("OUTPUT") + "\n\n"
	if m.testbench == nil {
		return title + MutedStyle.Render("No testbench output yet")
	}
	footer := fmt.Sprintf("Exited with code %d.", m.testbench.ReturnCode)
	if m.testbench.ReturnCode != 0 {
		footer = FailedStyle.Render(footer)
	} else {
		footer = SucceededStyle.Render(footer)
	}
	return title + m.viewport.View() + "\n" + footer
}
