// ABOUTME: FIFO page listing configured depth and observed/optimal occupancy for every stream FIFO.
// ABOUTME: Depths are edited in a text input; invalid input is rejected and the confirmed depth shown again.
package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/simwatch/pipeline"
	"github.com/2389-research/simwatch/session"
	"github.com/2389-research/simwatch/wire"
)

const (
	fifoNameWidth  = 40
	fifoDepthWidth = 10
	fifoCountWidth = 12
)

// FIFOPanelModel is the FIFO table plus its depth editor.
type FIFOPanelModel struct {
	names  []string
	cursor int
	width  int
	height int

	input    textinput.Model
	editing  bool
	editName string
}

// NewFIFOPanelModel creates an empty FIFO page.
func NewFIFOPanelModel() FIFOPanelModel {
	ti := textinput.New()
	ti.Prompt = "depth> "
	ti.Placeholder = strconv.Itoa(wire.MinFIFODepth)
	ti.CharLimit = 9
	return FIFOPanelModel{input: ti}
}

// SetSize sets the available dimensions.
func (m *FIFOPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFIFOs refreshes the row list. An edit in progress is cancelled if its
// FIFO disappears.
func (m *FIFOPanelModel) SetFIFOs(fifos wire.FIFOs) {
	names := make([]string, 0, len(fifos))
	for name := range fifos {
		names = append(names, name)
	}
	sort.Strings(names)
	m.names = names
	if m.cursor >= len(names) {
		m.cursor = len(names) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.editing {
		if _, ok := fifos[m.editName]; !ok {
			m.Cancel()
		}
	}
}

// Editing reports whether the depth editor is open.
func (m FIFOPanelModel) Editing() bool {
	return m.editing
}

// Selected returns the FIFO under the cursor.
func (m FIFOPanelModel) Selected() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.names) {
		return "", false
	}
	return m.names[m.cursor], true
}

// StartEdit opens the editor on the selected FIFO, prefilled with its
// confirmed depth.
func (m *FIFOPanelModel) StartEdit(st session.State) bool {
	name, ok := m.Selected()
	if !ok {
		return false
	}
	depth, ok := st.FIFODepth(name)
	if !ok {
		return false
	}
	m.editing = true
	m.editName = name
	m.input.SetValue(strconv.Itoa(depth))
	m.input.CursorEnd()
	m.input.Focus()
	return true
}

// Submit closes the editor and returns the FIFO name and raw input.
func (m *FIFOPanelModel) Submit() (name, input string) {
	name, input = m.editName, m.input.Value()
	m.Cancel()
	return name, input
}

// Cancel closes the editor without sending anything.
func (m *FIFOPanelModel) Cancel() {
	m.editing = false
	m.editName = ""
	m.input.Reset()
	m.input.Blur()
}

// Update routes keys to the editor when open, otherwise moves the cursor.
func (m FIFOPanelModel) Update(msg tea.KeyMsg) FIFOPanelModel {
	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		_ = cmd // cursor blink is not needed in the editor
		return m
	}
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.names)-1 {
			m.cursor++
		}
	}
	return m
}

// View renders the FIFO table, with the editor below when open.
func (m FIFOPanelModel) View(st session.State) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("FIFOS"))
	b.WriteString(MutedStyle.Render("  (enter) edit depth  (esc) cancel"))
	b.WriteString("\n\n")

	if st.FIFOs == nil {
		b.WriteString(MutedStyle.Render("No FIFO data yet"))
		return b.String()
	}
	if len(m.names) == 0 {
		b.WriteString(MutedStyle.Render("Design has no FIFOs"))
		return b.String()
	}

	b.WriteString(HeaderStyle.Render(padRight("Name", fifoNameWidth) +
		padRight("Depth", fifoDepthWidth) +
		padRight("Observed", fifoCountWidth) + "Optimal"))
	b.WriteString("\n")

	actual := st.Stage(pipeline.RunningSimulationActual)
	optimal := st.Stage(pipeline.RunningSimulationOptimal)
	for i, name := range m.names {
		f := st.FIFOs[name]
		line := padRight(name, fifoNameWidth) +
			padRight(strconv.Itoa(f.Depth), fifoDepthWidth) +
			padRight(metricCellStyled(f.Observed, actual), fifoCountWidth) +
			metricCellStyled(f.Optimal, optimal)
		if i == m.cursor {
			line = SelectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.editing {
		b.WriteString("\n")
		b.WriteString(EditorStyle.Render(fmt.Sprintf("%s\n%s", m.editName, m.input.View())))
	}
	return strings.TrimRight(b.String(), "\n")
}
