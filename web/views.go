// ABOUTME: JSON shapes served by the mirror, derived from session snapshots.
// ABOUTME: Stage views add the derived state and duration so clients need no pipeline logic.
package web

import (
	"github.com/2389-research/simwatch/pipeline"
	"github.com/2389-research/simwatch/session"
	"github.com/2389-research/simwatch/wire"
)

type summaryView struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Stage    string `json:"stage,omitempty"`
	Terminal bool   `json:"terminal"`
}

func newSummaryView(s pipeline.Summary) summaryView {
	v := summaryView{
		Kind:     s.Kind.String(),
		Message:  s.Message(),
		Terminal: s.Terminal(),
	}
	switch s.Kind {
	case pipeline.SummaryRunning, pipeline.SummaryFailed, pipeline.SummaryDeadlocked:
		v.Stage = s.Stage.String()
	}
	return v
}

type stageView struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	State    string   `json:"state"`
	Start    *float64 `json:"start"`
	End      *float64 `json:"end"`
	Error    *string  `json:"error"`
	Progress *float64 `json:"progress"`
	Duration *float64 `json:"duration,omitempty"`
}

func newStageViews(st session.State) []stageView {
	out := make([]stageView, 0, len(pipeline.Stages))
	for _, stage := range pipeline.Stages {
		rec := st.Stage(stage)
		v := stageView{
			Name:     stage.String(),
			Label:    stage.Label(),
			State:    rec.State().String(),
			Start:    rec.Start,
			End:      rec.End,
			Error:    rec.Error,
			Progress: rec.Progress,
		}
		if d, ok := rec.Duration(); ok {
			v.Duration = &d
		}
		out = append(out, v)
	}
	return out
}

type stateView struct {
	SessionID string           `json:"session_id"`
	Connected bool             `json:"connected"`
	Summary   summaryView      `json:"summary"`
	ServerNow float64          `json:"server_now"`
	Delta     float64          `json:"delta"`
	Status    *pipeline.Status `json:"status"`
	Testbench *wire.Testbench  `json:"testbench"`
	FIFOs     wire.FIFOs       `json:"fifos"`
	Latencies *wire.Latency    `json:"latencies"`
	Messages  int              `json:"messages"`
}

func newStateView(st session.State, serverNow float64) stateView {
	return stateView{
		SessionID: st.SessionID,
		Connected: st.Connected,
		Summary:   newSummaryView(st.Summary()),
		ServerNow: serverNow,
		Delta:     st.Skew.Delta,
		Status:    st.Status,
		Testbench: st.Testbench,
		FIFOs:     st.FIFOs,
		Latencies: st.Latencies,
		Messages:  st.Messages,
	}
}
