// ABOUTME: StageStatus and Status model the per-stage start/end/error/progress state machine.
// ABOUTME: Status is an immutable snapshot that is replaced by hello messages and merged by updates.
package pipeline

import (
	"encoding/json"
	"math"
)

// StageState is the lifecycle position derived from a StageStatus.
type StageState int

const (
	StageIdle      StageState = iota // not started (or reset)
	StageRunning                     // started, no end yet
	StageSucceeded                   // ended without error
	StageFailed                      // ended with an error
)

// String returns the lowercase name of the state.
func (s StageState) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageRunning:
		return "running"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StageStatus is the raw server record for one stage. Times are server
// clock seconds.
type StageStatus struct {
	Start    *float64 `json:"start"`
	End      *float64 `json:"end"`
	Error    *string  `json:"error"`
	Progress *float64 `json:"progress"`
}

// State derives the lifecycle position. A record with an end but no start
// is inconsistent and treated as idle.
func (s StageStatus) State() StageState {
	switch {
	case s.Start == nil:
		return StageIdle
	case s.End == nil:
		return StageRunning
	case s.Error != nil:
		return StageFailed
	default:
		return StageSucceeded
	}
}

// Running reports whether the stage has started and not yet ended.
func (s StageStatus) Running() bool { return s.State() == StageRunning }

// Failed reports whether the stage ended with an error.
func (s StageStatus) Failed() bool { return s.State() == StageFailed }

// ProgressFraction returns the progress clamped to [0,1]. The second result
// is false when no usable progress is known or the stage is not running.
func (s StageStatus) ProgressFraction() (float64, bool) {
	if s.Progress == nil || !s.Running() || math.IsNaN(*s.Progress) {
		return 0, false
	}
	return math.Min(math.Max(*s.Progress, 0), 1), true
}

// Duration returns end-start in seconds for a finished stage.
func (s StageStatus) Duration() (float64, bool) {
	if s.Start == nil || s.End == nil {
		return 0, false
	}
	return *s.End - *s.Start, true
}

// ErrorText returns the error message or the empty string.
func (s StageStatus) ErrorText() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}

// Status is an immutable snapshot of every stage. The zero value has all
// stages idle. Methods never mutate the receiver.
type Status struct {
	stages [stageCount]StageStatus
}

// NewStatus builds a snapshot from per-stage records. Stages missing from
// the map are idle.
func NewStatus(stages map[Stage]StageStatus) Status {
	var st Status
	for s, v := range stages {
		if s.Valid() {
			st.stages[s] = v
		}
	}
	return st
}

// Stage returns the record for s.
func (st Status) Stage(s Stage) StageStatus {
	if !s.Valid() {
		return StageStatus{}
	}
	return st.stages[s]
}

// With returns a copy of st with stage s replaced.
func (st Status) With(s Stage, v StageStatus) Status {
	if s.Valid() {
		st.stages[s] = v
	}
	return st
}

// Merge returns a copy of st where every stage present in partial replaces
// the prior record. Stages absent from partial keep their value.
func (st Status) Merge(partial Partial) Status {
	for s, v := range partial {
		st = st.With(s, v)
	}
	return st
}

// Partial is the set of stage records carried by one message. Only keys
// present were sent by the server.
type Partial map[Stage]StageStatus

// UnmarshalJSON decodes a stage-name keyed object. Unknown stage names are
// dropped so newer servers can add stages without breaking older clients.
func (p *Partial) UnmarshalJSON(data []byte) error {
	var raw map[string]StageStatus
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Partial, len(raw))
	for name, v := range raw {
		if s, ok := ParseStage(name); ok {
			out[s] = v
		}
	}
	*p = out
	return nil
}

// MarshalJSON encodes the partial keyed by wire names.
func (p Partial) MarshalJSON() ([]byte, error) {
	raw := make(map[string]StageStatus, len(p))
	for s, v := range p {
		raw[s.String()] = v
	}
	return json.Marshal(raw)
}

// Full returns the complete snapshot as a Partial, for serialization.
func (st Status) Full() Partial {
	p := make(Partial, stageCount)
	for _, s := range Stages {
		p[s] = st.stages[s]
	}
	return p
}

// MarshalJSON encodes every stage keyed by wire name.
func (st Status) MarshalJSON() ([]byte, error) {
	return st.Full().MarshalJSON()
}
