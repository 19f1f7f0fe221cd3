// ABOUTME: Overview page showing the module latency tree with per-node expand/collapse state.
// ABOUTME: Each new snapshot is reconciled against the previous UI tree so user toggles survive updates.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/simwatch/pipeline"
	"github.com/2389-research/simwatch/session"
	"github.com/2389-research/simwatch/tree"
	"github.com/2389-research/simwatch/wire"
)

const (
	nameColWidth    = 48
	latencyColWidth = 12
)

// OverviewModel holds the reconciled latency tree and the row cursor.
type OverviewModel struct {
	roots  []*tree.Node[wire.Latency]
	cursor int
	offset int
	width  int
	height int
}

// NewOverviewModel creates an empty OverviewModel.
func NewOverviewModel() OverviewModel {
	return OverviewModel{}
}

// SetSize sets the available dimensions.
func (m *OverviewModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.scroll()
}

// SetLatencies reconciles a new latency snapshot into the UI tree. A nil
// root clears the tree.
func (m *OverviewModel) SetLatencies(root *wire.Latency) {
	var items []wire.Latency
	if root != nil {
		items = []wire.Latency{*root}
	}
	m.roots = tree.Reconcile(items, m.roots)
	m.clampCursor()
}

// Roots exposes the UI tree.
func (m OverviewModel) Roots() []*tree.Node[wire.Latency] {
	return m.roots
}

// Cursor returns the selected visible row.
func (m OverviewModel) Cursor() int {
	return m.cursor
}

// Update handles navigation and expansion keys.
func (m OverviewModel) Update(msg tea.KeyMsg) OverviewModel {
	rows := tree.Visible(m.roots)
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(rows) - 1
	case "enter", " ":
		if m.cursor < len(rows) {
			tree.Toggle(m.roots, rows[m.cursor].Path)
		}
	case "right", "l":
		if m.cursor < len(rows) {
			tree.SetExpanded(m.roots, rows[m.cursor].Path, true)
		}
	case "left", "h":
		if m.cursor < len(rows) {
			row := rows[m.cursor]
			if row.Node.Expanded && row.Node.Expandable() {
				tree.SetExpanded(m.roots, row.Path, false)
			} else if len(row.Path) > 1 {
				m.cursor = indexOfPath(tree.Visible(m.roots), row.Path[:len(row.Path)-1])
			}
		}
	case "e":
		tree.SetAll(m.roots, true)
	case "c":
		tree.SetAll(m.roots, false)
	default:
		// alt+N expands the first N levels and collapses the rest.
		if level, ok := strings.CutPrefix(msg.String(), "alt+"); ok {
			if n, err := strconv.Atoi(level); err == nil && n >= 1 && n <= 9 {
				tree.ExpandToLevel(m.roots, n)
			}
		}
	}
	m.clampCursor()
	return m
}

// View renders the tree as a table.
func (m OverviewModel) View(st session.State) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("OVERVIEW"))
	b.WriteString(MutedStyle.Render("  (enter) toggle  (e) expand all  (c) collapse all"))
	b.WriteString("\n\n")

	rows := tree.Visible(m.roots)
	if len(rows) == 0 {
		b.WriteString(MutedStyle.Render("No latency data yet"))
		return b.String()
	}

	b.WriteString(HeaderStyle.Render(padRight("Name", nameColWidth) +
		padRight("Latency", latencyColWidth) + "Minimum"))
	b.WriteString("\n")

	actual := st.Stage(pipeline.RunningSimulationActual)
	optimal := st.Stage(pipeline.RunningSimulationOptimal)
	end := m.offset + m.bodyRows()
	if end > len(rows) {
		end = len(rows)
	}
	for i := m.offset; i < end; i++ {
		row := rows[i]
		line := padRight(treeLabel(row.Node), nameColWidth) +
			padRight(metricCellStyled(row.Node.Data.Actual, actual), latencyColWidth) +
			metricCellStyled(row.Node.Data.Optimal, optimal)
		if i == m.cursor {
			line = SelectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(rows) > end {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("%s %d more", ellipsis, len(rows)-end)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func treeLabel(n *tree.Node[wire.Latency]) string {
	marker := "  "
	if n.Expandable() {
		if n.Expanded {
			marker = "▾ "
		} else {
			marker = "▸ "
		}
	}
	return strings.Repeat("  ", n.Depth) + marker + n.Name()
}

// bodyRows is the number of tree rows that fit below the title and header.
func (m OverviewModel) bodyRows() int {
	if m.height <= 4 {
		return 1
	}
	return m.height - 4
}

func (m *OverviewModel) clampCursor() {
	n := len(tree.Visible(m.roots))
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scroll()
}

func (m *OverviewModel) scroll() {
	rows := m.bodyRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func indexOfPath(rows []tree.Row[wire.Latency], path tree.Path) int {
	for i, r := range rows {
		if len(r.Path) != len(path) {
			continue
		}
		match := true
		for j := range path {
			if r.Path[j] != path[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return 0
}
