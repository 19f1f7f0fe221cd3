// ABOUTME: Top-level Bubble Tea AppModel that composes the status, overview, FIFO and output pages.
// ABOUTME: Implements tea.Model and routes session snapshots, ticks and keys to the pages and server commands.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/simwatch/pipeline"
	"github.com/2389-research/simwatch/session"
)

// Page identifies one dashboard page.
type Page int

const (
	PageStatus Page = iota
	PageOverview
	PageFIFOs
	PageOutput
	pageCount
)

// String returns the tab label.
func (p Page) String() string {
	switch p {
	case PageStatus:
		return "Status"
	case PageOverview:
		return "Overview"
	case PageFIFOs:
		return "FIFOs"
	case PageOutput:
		return "Output"
	default:
		return "?"
	}
}

// DefaultTickInterval matches the stopwatch step.
const DefaultTickInterval = 100 * time.Millisecond

// Options configures an AppModel.
type Options struct {
	Server       string
	Clock        session.Clock
	Sessions     SessionSource
	Initial      session.State
	TickInterval time.Duration
}

// AppModel is the top-level Bubble Tea model.
type AppModel struct {
	status    StatusPageModel
	overview  OverviewModel
	fifos     FIFOPanelModel
	output    OutputPanelModel
	statusBar StatusBarModel

	sessions SessionSource
	clock    session.Clock
	interval time.Duration

	state session.State
	page  Page
	now   float64 // local clock reading used by the last render

	// Ticks carry tickGen; bumping it orphans the chain in flight.
	tickGen int
	ticking bool
	frame   int

	width  int
	height int
}

// NewAppModel creates an AppModel showing opts.Initial.
func NewAppModel(opts Options) AppModel {
	if opts.Clock == nil {
		opts.Clock = session.NewMonotonicClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	m := AppModel{
		status:    NewStatusPageModel(),
		overview:  NewOverviewModel(),
		fifos:     NewFIFOPanelModel(),
		output:    NewOutputPanelModel(),
		statusBar: NewStatusBarModel(opts.Server),
		sessions:  opts.Sessions,
		clock:     opts.Clock,
		interval:  opts.TickInterval,
		page:      PageStatus,
	}
	m.applyState(opts.Initial)
	return m
}

// State returns the snapshot currently displayed.
func (m AppModel) State() session.State { return m.state }

// Page returns the active page.
func (m AppModel) Page() Page { return m.page }

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	if m.shouldTick() {
		return TickCmd(m.tickGen, m.interval)
	}
	return nil
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case StateMsg:
		return m.handleState(msg)

	case TickMsg:
		return m.handleTick(msg)

	case CommandResultMsg:
		return m.handleCommandResult(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.width < 40 || m.height < 10 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 40x10.", m.width, m.height)
	}

	var body string
	switch {
	case !m.state.Ready():
		body = m.state.Summary().Message()
	case m.page == PageStatus:
		body = m.status.View(m.state, m.now, m.frame)
	case m.page == PageOverview:
		body = m.overview.View(m.state)
	case m.page == PageFIFOs:
		body = m.fifos.View(m.state)
	case m.page == PageOutput:
		body = m.output.View()
	}

	var b strings.Builder
	b.WriteString(m.tabs())
	b.WriteString("\n")
	b.WriteString(BorderStyle.Width(m.width - 2).Height(m.bodyHeight()).Render(body))
	b.WriteString("\n")
	b.WriteString(m.statusBar.View(m.state.Summary()))
	return b.String()
}

func (m AppModel) tabs() string {
	labels := make([]string, 0, pageCount)
	for p := PageStatus; p < pageCount; p++ {
		label := fmt.Sprintf("%d %s", int(p)+1, p)
		switch {
		case p == m.page:
			labels = append(labels, ActiveTabStyle.Render(label))
		case !m.pageEnabled(p):
			labels = append(labels, DisabledTabStyle.Render(label))
		default:
			labels = append(labels, InactiveTabStyle.Render(label))
		}
	}
	return strings.Join(labels, "  ")
}

// bodyHeight is the inner page height: the tab line, status bar and the
// border take four lines.
func (m AppModel) bodyHeight() int {
	h := m.height - 4
	if h < 1 {
		return 1
	}
	return h
}

func (m *AppModel) layout() {
	w := m.width - 4
	h := m.bodyHeight()
	m.status.SetSize(w, h)
	m.overview.SetSize(w, h)
	m.fifos.SetSize(w, h)
	m.output.SetSize(w, h)
	m.statusBar.SetWidth(m.width)
}

// applyState installs a snapshot into every page.
func (m *AppModel) applyState(st session.State) {
	m.state = st
	m.now = m.clock()
	m.overview.SetLatencies(st.Latencies)
	m.fifos.SetFIFOs(st.FIFOs)
	m.output.SetTestbench(st.Testbench)
}

func (m AppModel) handleState(msg StateMsg) (tea.Model, tea.Cmd) {
	wasConnected := m.state.Connected
	m.applyState(msg.State)
	if !m.pageEnabled(m.page) {
		// The page lost its data; fall back to Status.
		m.fifos.Cancel()
		m.page = PageStatus
	}
	if !msg.State.Connected {
		m.fifos.Cancel()
		m.stopTicking()
		if wasConnected {
			m.statusBar.SetNotice("")
		}
		return m, nil
	}
	return m, m.ensureTicking()
}

// shouldTick reports whether anything on screen changes with time.
func (m AppModel) shouldTick() bool {
	if m.page != PageStatus || !m.state.Ready() {
		return false
	}
	for _, s := range pipeline.Stages {
		if m.state.Stage(s).Running() {
			return true
		}
	}
	return false
}

func (m *AppModel) ensureTicking() tea.Cmd {
	if m.ticking || !m.shouldTick() {
		return nil
	}
	m.ticking = true
	return TickCmd(m.tickGen, m.interval)
}

func (m *AppModel) stopTicking() {
	m.tickGen++
	m.ticking = false
}

// handleTick refreshes the clock and schedules the next tick while a stage
// is running. Ticks from an abandoned chain are ignored.
func (m AppModel) handleTick(msg TickMsg) (tea.Model, tea.Cmd) {
	if msg.Gen != m.tickGen {
		return m, nil
	}
	m.now = m.clock()
	m.frame++
	if !m.shouldTick() {
		m.ticking = false
		return m, nil
	}
	return m, TickCmd(m.tickGen, m.interval)
}

func (m AppModel) handleCommandResult(msg CommandResultMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Err == nil:
		m.statusBar.SetNotice("sent " + msg.Command)
	case errors.Is(msg.Err, session.ErrClosed):
		m.statusBar.SetNotice(msg.Command + ": not connected")
	default:
		m.statusBar.SetNotice(fmt.Sprintf("%s failed: %v", msg.Command, msg.Err))
	}
	return m, nil
}

// pageEnabled reports whether p has data to show. Status always does.
func (m AppModel) pageEnabled(p Page) bool {
	switch p {
	case PageOverview:
		return m.state.Latencies != nil
	case PageFIFOs:
		return m.state.FIFOs != nil
	case PageOutput:
		return m.state.Testbench != nil
	}
	return true
}

// cyclePage returns the next enabled page in direction step.
func (m AppModel) cyclePage(step Page) Page {
	p := m.page
	for {
		p = (p + step + pageCount) % pageCount
		if m.pageEnabled(p) {
			return p
		}
	}
}

func (m AppModel) setPage(p Page) (tea.Model, tea.Cmd) {
	if p == m.page || !m.pageEnabled(p) {
		return m, nil
	}
	if m.page == PageStatus {
		m.stopTicking()
	}
	m.fifos.Cancel()
	m.page = p
	m.now = m.clock()
	return m, m.ensureTicking()
}

func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.fifos.Editing() {
		return m.handleEditorKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.stopTicking()
		return m, tea.Quit
	case "tab":
		return m.setPage(m.cyclePage(1))
	case "shift+tab":
		return m.setPage(m.cyclePage(-1))
	case "1", "2", "3", "4":
		return m.setPage(Page(msg.String()[0] - '1'))
	case "r":
		return m, RebuildCmd(m.sessions)
	case "s":
		if !m.state.Stage(pipeline.WaitingForNextSynthesis).Running() {
			m.statusBar.SetNotice("not waiting for synthesis")
			return m, nil
		}
		return m, SkipWaitCmd(m.sessions)
	}

	if !m.state.Ready() {
		return m, nil
	}
	switch m.page {
	case PageOverview:
		m.overview = m.overview.Update(msg)
	case PageFIFOs:
		if msg.String() == "enter" {
			m.fifos.StartEdit(m.state)
			return m, nil
		}
		m.fifos = m.fifos.Update(msg)
	case PageOutput:
		m.output = m.output.Update(msg)
	}
	return m, nil
}

// handleEditorKey drives the FIFO depth editor. Invalid input is reported
// and discarded so the table keeps showing the confirmed depth.
func (m AppModel) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.stopTicking()
		return m, tea.Quit
	case "esc":
		m.fifos.Cancel()
		return m, nil
	case "enter":
		name, input := m.fifos.Submit()
		if _, err := session.ParseFIFODepth(input); err != nil {
			depth, _ := m.state.FIFODepth(name)
			m.statusBar.SetNotice(fmt.Sprintf("%v; %s stays at %d", err, name, depth))
			return m, nil
		}
		return m, ChangeFIFODepthCmd(m.sessions, name, input)
	}
	m.fifos = m.fifos.Update(msg)
	return m, nil
}
