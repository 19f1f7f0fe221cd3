// ABOUTME: Derives the single most relevant status message from a pipeline snapshot.
// ABOUTME: First running stage wins, then first failed stage, then done; deadlock is reported distinctly.
package pipeline

import "strings"

// DeadlockMarker is the substring of the actual-stall simulation error that
// identifies a design deadlock rather than a tool failure.
const DeadlockMarker = "deadlock detected"

// SummaryKind classifies a Summary.
type SummaryKind int

const (
	SummaryConnecting SummaryKind = iota // no live connection
	SummaryWaiting                       // connected, no status received yet
	SummaryRunning
	SummaryFailed
	SummaryDeadlocked
	SummaryDone
)

// String returns the lowercase name of the kind.
func (k SummaryKind) String() string {
	switch k {
	case SummaryConnecting:
		return "connecting"
	case SummaryWaiting:
		return "waiting"
	case SummaryRunning:
		return "running"
	case SummaryFailed:
		return "failed"
	case SummaryDeadlocked:
		return "deadlocked"
	case SummaryDone:
		return "done"
	default:
		return "unknown"
	}
}

// Summary is the one-line pipeline state shown in the status bar.
type Summary struct {
	Kind  SummaryKind
	Stage Stage // meaningful for running, failed and deadlocked
}

// Terminal reports whether the pipeline has stopped making progress on its
// own: finished, failed or deadlocked.
func (s Summary) Terminal() bool {
	return s.Kind == SummaryDone || s.Kind == SummaryFailed || s.Kind == SummaryDeadlocked
}

// Message renders the human-readable summary text.
func (s Summary) Message() string {
	switch s.Kind {
	case SummaryConnecting:
		return "Connecting..."
	case SummaryWaiting:
		return "Waiting for status info..."
	case SummaryRunning:
		return s.Stage.RunningPhrase() + "..."
	case SummaryFailed:
		return s.Stage.ErrorPhrase()
	case SummaryDeadlocked:
		return "Deadlocked"
	case SummaryDone:
		return "Done"
	default:
		return ""
	}
}

// Summarize picks the first running stage in declared order, else the first
// failed stage, else done. Timestamps never break ties.
func Summarize(st Status) Summary {
	for _, s := range Stages {
		if st.Stage(s).Running() {
			return Summary{Kind: SummaryRunning, Stage: s}
		}
	}
	for _, s := range Stages {
		rec := st.Stage(s)
		if !rec.Failed() {
			continue
		}
		if s == RunningSimulationActual && strings.Contains(rec.ErrorText(), DeadlockMarker) {
			return Summary{Kind: SummaryDeadlocked, Stage: s}
		}
		return Summary{Kind: SummaryFailed, Stage: s}
	}
	return Summary{Kind: SummaryDone}
}

// SummarizeSnapshot extends Summarize with the connection phases: a nil
// status while connected means no hello has arrived yet.
func SummarizeSnapshot(connected bool, st *Status) Summary {
	if !connected {
		return Summary{Kind: SummaryConnecting}
	}
	if st == nil {
		return Summary{Kind: SummaryWaiting}
	}
	return Summarize(*st)
}
