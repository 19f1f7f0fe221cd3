// ABOUTME: Immutable snapshot of everything the dashboard knows about the remote pipeline.
// ABOUTME: Subscribers receive State values; nothing inside is mutated after publication.
package session

import (
	"github.com/2389-research/simwatch/pipeline"
	"github.com/2389-research/simwatch/wire"
)

// State is a point-in-time view of one session. Nil fields mean the server
// has not provided (or has cleared) that part.
type State struct {
	SessionID string
	Connected bool
	Skew      Skew
	Status    *pipeline.Status
	Testbench *wire.Testbench
	FIFOs     wire.FIFOs
	Latencies *wire.Latency

	// Messages counts hello and update messages applied in this session.
	Messages int
}

// Summary derives the status bar summary, including the connection phases.
func (s State) Summary() pipeline.Summary {
	return pipeline.SummarizeSnapshot(s.Connected, s.Status)
}

// Ready reports whether enough data has arrived to render the data pages.
func (s State) Ready() bool {
	return s.Connected && s.Status != nil
}

// Stage returns the record for one stage, or an idle record when no status
// is known.
func (s State) Stage(st pipeline.Stage) pipeline.StageStatus {
	if s.Status == nil {
		return pipeline.StageStatus{}
	}
	return s.Status.Stage(st)
}

// FIFODepth returns the last depth the server confirmed for name.
func (s State) FIFODepth(name string) (int, bool) {
	f, ok := s.FIFOs[name]
	if !ok {
		return 0, false
	}
	return f.Depth, true
}

// disconnected strips data so nothing stale is shown while offline.
func disconnected(id string) State {
	return State{SessionID: id}
}
