// ABOUTME: Inbound message payloads pushed by the simulation server over the socket.io channel.
// ABOUTME: Defines hello/update envelopes and the testbench, FIFO and latency-tree records they carry.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/2389-research/simwatch/pipeline"
)

// Inbound event names.
const (
	EventHello  = "hello"
	EventUpdate = "update"
)

// Testbench is the result of the C/RTL testbench run.
type Testbench struct {
	ReturnCode int    `json:"returncode"`
	Output     string `json:"output"`
}

// FIFO describes one stream FIFO. Depth is the configured depth and can be
// edited; Observed and Optimal are the maximum occupancies measured by the
// actual and unconstrained simulations.
type FIFO struct {
	Depth    int  `json:"depth"`
	Observed *int `json:"observed"`
	Optimal  *int `json:"optimal"`
}

// FIFOs maps display names to FIFO records.
type FIFOs map[string]FIFO

// Clone returns an independent copy.
func (f FIFOs) Clone() FIFOs {
	if f == nil {
		return nil
	}
	out := make(FIFOs, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Latency is one module invocation in the simulated call tree, with its
// start cycle and the latencies measured by the actual and optimal runs.
type Latency struct {
	Name     string    `json:"name"`
	Start    int       `json:"start"`
	Actual   *int      `json:"actual"`
	Optimal  *int      `json:"optimal"`
	Children []Latency `json:"children"`
}

// TreeName implements tree.Item.
func (l Latency) TreeName() string { return l.Name }

// TreeChildren implements tree.Item.
func (l Latency) TreeChildren() []Latency {
	if l.Children == nil {
		return []Latency{}
	}
	return l.Children
}

// Hello is the full state sent once after every connect.
type Hello struct {
	Now       float64          `json:"now"`
	Status    pipeline.Partial `json:"status"`
	Testbench *Testbench       `json:"testbench"`
	FIFOs     FIFOs            `json:"fifos"`
	Latencies *Latency         `json:"latencies"`
}

// Update carries only the fields that changed since the previous message.
type Update struct {
	Now       float64
	Status    Optional[pipeline.Partial]
	Testbench Optional[Testbench]
	FIFOs     Optional[FIFOs]
	Latencies Optional[Latency]
}

type updateJSON struct {
	Now       float64                    `json:"now"`
	Status    Optional[pipeline.Partial] `json:"status"`
	Testbench Optional[Testbench]        `json:"testbench"`
	FIFOs     Optional[FIFOs]            `json:"fifos"`
	Latencies Optional[Latency]          `json:"latencies"`
}

// UnmarshalJSON decodes an update, recording which fields were present.
func (u *Update) UnmarshalJSON(data []byte) error {
	var raw updateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = Update(raw)
	return nil
}

// MarshalJSON encodes only the fields that are set.
func (u Update) MarshalJSON() ([]byte, error) {
	out := map[string]any{"now": u.Now}
	if u.Status.Set {
		out["status"] = u.Status
	}
	if u.Testbench.Set {
		out["testbench"] = u.Testbench
	}
	if u.FIFOs.Set {
		out["fifos"] = u.FIFOs
	}
	if u.Latencies.Set {
		out["latencies"] = u.Latencies
	}
	return json.Marshal(out)
}

// DecodeHello parses a hello payload.
func DecodeHello(data []byte) (Hello, error) {
	var h Hello
	if err := json.Unmarshal(data, &h); err != nil {
		return Hello{}, fmt.Errorf("decode hello: %w", err)
	}
	return h, nil
}

// DecodeUpdate parses an update payload.
func DecodeUpdate(data []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return Update{}, fmt.Errorf("decode update: %w", err)
	}
	return u, nil
}
