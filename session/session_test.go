// ABOUTME: Tests for Session message application, clock skew and command validation.
// ABOUTME: Uses a fake clock and a recording emitter in place of a live connection.
package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/2389-research/simwatch/pipeline"
	"github.com/2389-research/simwatch/wire"
)

type sent struct {
	event   string
	payload any
}

type recordingEmitter struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (r *recordingEmitter) Emit(event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sent{event, payload})
	return nil
}

type fakeClock struct{ now float64 }

func (c *fakeClock) read() float64 { return c.now }

func f(v float64) *float64 { return &v }

func newTestSession(t *testing.T) (*Session, *fakeClock, *recordingEmitter, *[]State) {
	t.Helper()
	clock := &fakeClock{}
	em := &recordingEmitter{}
	var published []State
	sess := newSession(clock.read, em, func(st State) { published = append(published, st) }, zap.NewNop())
	return sess, clock, em, &published
}

func TestApplyHelloReplacesEverything(t *testing.T) {
	sess, clock, _, published := newTestSession(t)
	clock.now = 100

	sess.ApplyHello(wire.Hello{
		Now: 40,
		Status: pipeline.Partial{
			pipeline.AnalyzingProject: {Start: f(30), End: f(35)},
		},
		Testbench: &wire.Testbench{ReturnCode: 0, Output: "ok"},
		FIFOs:     wire.FIFOs{"q": {Depth: 4}},
	})

	st := sess.State()
	if !st.Connected || st.Status == nil {
		t.Fatalf("expected connected state with status, got %+v", st)
	}
	if st.Skew.Delta != 60 {
		t.Errorf("delta: got %v, want 60", st.Skew.Delta)
	}
	if got := st.Stage(pipeline.AnalyzingProject).State(); got != pipeline.StageSucceeded {
		t.Errorf("analyzing state: got %v", got)
	}
	if st.Latencies != nil {
		t.Errorf("latencies should be nil, got %+v", st.Latencies)
	}
	if len(*published) != 1 {
		t.Fatalf("published %d states, want 1", len(*published))
	}

	// A second hello replaces, it does not merge.
	sess.ApplyHello(wire.Hello{Now: 50, Status: pipeline.Partial{}})
	st = sess.State()
	if st.Stage(pipeline.AnalyzingProject).Start != nil {
		t.Error("second hello should reset stage records")
	}
	if st.Testbench != nil || st.FIFOs != nil {
		t.Errorf("second hello should clear testbench and fifos, got %+v", st)
	}
	if st.Messages != 2 {
		t.Errorf("messages: got %d, want 2", st.Messages)
	}
}

func TestApplyUpdateMergesPresentFields(t *testing.T) {
	sess, clock, _, _ := newTestSession(t)
	sess.ApplyHello(wire.Hello{
		Now: 0,
		Status: pipeline.Partial{
			pipeline.AnalyzingProject:  {Start: f(0), End: f(1)},
			pipeline.WaitingForBitcode: {Start: f(1)},
		},
		Testbench: &wire.Testbench{Output: "tb"},
		FIFOs:     wire.FIFOs{"a": {Depth: 2}},
	})

	clock.now = 10
	sess.ApplyUpdate(wire.Update{
		Now: 7,
		Status: wire.Present(pipeline.Partial{
			pipeline.WaitingForBitcode: {Start: f(1), End: f(6)},
		}),
		Testbench: wire.Null[wire.Testbench](),
	})

	st := sess.State()
	if st.Skew.Delta != 3 {
		t.Errorf("delta: got %v, want 3", st.Skew.Delta)
	}
	if st.Stage(pipeline.AnalyzingProject).State() != pipeline.StageSucceeded {
		t.Error("stage absent from update must keep its record")
	}
	if st.Stage(pipeline.WaitingForBitcode).State() != pipeline.StageSucceeded {
		t.Error("stage present in update must be replaced")
	}
	if st.Testbench != nil {
		t.Error("explicit null must clear testbench")
	}
	if diff := cmp.Diff(wire.FIFOs{"a": {Depth: 2}}, st.FIFOs); diff != "" {
		t.Errorf("absent fifos must be unchanged (-want +got):\n%s", diff)
	}
}

func TestApplyUpdateDoesNotMutatePublishedSnapshots(t *testing.T) {
	sess, _, _, published := newTestSession(t)
	sess.ApplyHello(wire.Hello{
		Status: pipeline.Partial{pipeline.AnalyzingProject: {Start: f(0)}},
		FIFOs:  wire.FIFOs{"a": {Depth: 2}},
	})
	first := (*published)[0]

	sess.ApplyUpdate(wire.Update{
		Status: wire.Present(pipeline.Partial{pipeline.AnalyzingProject: {Start: f(0), End: f(1)}}),
		FIFOs:  wire.Present(wire.FIFOs{"a": {Depth: 9}}),
	})

	if first.Stage(pipeline.AnalyzingProject).End != nil {
		t.Error("earlier snapshot status was mutated")
	}
	if first.FIFOs["a"].Depth != 2 {
		t.Error("earlier snapshot fifos were mutated")
	}
}

func TestUpdateBeforeHelloStartsFromEmpty(t *testing.T) {
	sess, _, _, _ := newTestSession(t)
	sess.ApplyUpdate(wire.Update{
		Status: wire.Present(pipeline.Partial{pipeline.LinkingBitcode: {Start: f(2)}}),
	})
	st := sess.State()
	if st.Status == nil {
		t.Fatal("status should be set")
	}
	if got := st.Summary(); got.Kind != pipeline.SummaryRunning || got.Stage != pipeline.LinkingBitcode {
		t.Errorf("summary: got %+v", got)
	}
}

func TestSummaryPhases(t *testing.T) {
	sess, _, _, _ := newTestSession(t)
	if got := sess.State().Summary().Kind; got != pipeline.SummaryWaiting {
		t.Errorf("before hello: got %v, want waiting", got)
	}
	sess.ApplyHello(wire.Hello{Status: pipeline.Partial{}})
	if got := sess.State().Summary().Kind; got != pipeline.SummaryDone {
		t.Errorf("empty status: got %v, want done", got)
	}
	sess.Close()
	if got := sess.State().Summary().Kind; got != pipeline.SummaryConnecting {
		t.Errorf("after close: got %v, want connecting", got)
	}
}

func TestServerNowTracksLatestDelta(t *testing.T) {
	sess, clock, _, _ := newTestSession(t)
	clock.now = 1000
	sess.ApplyHello(wire.Hello{Now: 200, Status: pipeline.Partial{}})

	clock.now = 1005
	if got := sess.ServerNow(); got != 205 {
		t.Errorf("server now: got %v, want 205", got)
	}

	// Server clock jumped ahead; the next message remeasures.
	sess.ApplyUpdate(wire.Update{Now: 500})
	clock.now = 1010
	if got := sess.ServerNow(); got != 505 {
		t.Errorf("server now after update: got %v, want 505", got)
	}
	if got := sess.State().Skew.ToLocal(500); got != 1005 {
		t.Errorf("localized start: got %v, want 1005", got)
	}
}

func TestHandleEvent(t *testing.T) {
	sess, _, _, _ := newTestSession(t)

	if err := sess.HandleEvent("hello", []byte(`{"now":1,"status":{"ANALYZING_PROJECT":{"start":0}},"testbench":null,"fifos":null,"latencies":null}`)); err != nil {
		t.Fatalf("hello: %v", err)
	}
	if err := sess.HandleEvent("update", []byte(`{"now":2,"status":{"ANALYZING_PROJECT":{"start":0,"end":1,"error":"boom"}}}`)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := sess.HandleEvent("something_else", []byte(`[]`)); err != nil {
		t.Fatalf("unknown events are ignored, got %v", err)
	}
	if err := sess.HandleEvent("update", []byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}

	got := sess.State().Summary()
	if got.Kind != pipeline.SummaryFailed || got.Stage != pipeline.AnalyzingProject {
		t.Errorf("summary: got %+v", got)
	}
}

func TestCloseRejectsMessagesAndCommands(t *testing.T) {
	sess, _, em, published := newTestSession(t)
	sess.ApplyHello(wire.Hello{Status: pipeline.Partial{}, FIFOs: wire.FIFOs{"a": {Depth: 2}}})
	sess.Close()
	sess.Close()

	if n := len(*published); n != 2 {
		t.Errorf("close should publish once, got %d states", n)
	}
	sess.ApplyUpdate(wire.Update{Now: 9})
	if n := len(*published); n != 2 {
		t.Errorf("closed session must ignore updates, got %d states", n)
	}
	st := sess.State()
	if st.Connected || st.Status != nil || st.FIFOs != nil {
		t.Errorf("closed session must expose no data, got %+v", st)
	}
	if err := sess.Rebuild(); !errors.Is(err, ErrClosed) {
		t.Errorf("rebuild after close: got %v", err)
	}
	if len(em.sent) != 0 {
		t.Errorf("nothing should be sent, got %+v", em.sent)
	}
}

func TestCommands(t *testing.T) {
	sess, _, em, _ := newTestSession(t)
	sess.ApplyHello(wire.Hello{Status: pipeline.Partial{}, FIFOs: wire.FIFOs{"in_stream": {Depth: 2}}})

	if err := sess.Rebuild(); err != nil {
		t.Fatal(err)
	}
	if err := sess.SkipWaitForSynthesis(); err != nil {
		t.Fatal(err)
	}
	depth, err := sess.ChangeFIFODepth("in_stream", " 16 ")
	if err != nil {
		t.Fatal(err)
	}
	if depth != 16 {
		t.Errorf("depth: got %d", depth)
	}

	want := []sent{
		{wire.CommandRebuild, nil},
		{wire.CommandSkipWaitForSynthesis, nil},
		{wire.CommandChangeFIFOs, wire.ChangeFIFOs{"in_stream": 16}},
	}
	if diff := cmp.Diff(want, em.sent, cmp.AllowUnexported(sent{})); diff != "" {
		t.Errorf("sent commands (-want +got):\n%s", diff)
	}

	// The confirmed depth is unchanged until the server says otherwise.
	if d, _ := sess.State().FIFODepth("in_stream"); d != 2 {
		t.Errorf("confirmed depth: got %d, want 2", d)
	}
}

func TestChangeFIFODepthRejectsBadInput(t *testing.T) {
	sess, _, em, _ := newTestSession(t)
	sess.ApplyHello(wire.Hello{Status: pipeline.Partial{}, FIFOs: wire.FIFOs{"a": {Depth: 4}}})

	tests := []struct {
		name  string
		fifo  string
		input string
		want  error
	}{
		{"not a number", "a", "abc", ErrInvalidDepth},
		{"empty", "a", "", ErrInvalidDepth},
		{"fraction", "a", "2.5", ErrInvalidDepth},
		{"below minimum", "a", "1", ErrInvalidDepth},
		{"negative", "a", "-3", ErrInvalidDepth},
		{"unknown fifo", "b", "8", ErrUnknownFIFO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sess.ChangeFIFODepth(tt.fifo, tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
	if len(em.sent) != 0 {
		t.Errorf("invalid input must send nothing, got %+v", em.sent)
	}
}

func TestChangeFIFODepthsSendsOneCommand(t *testing.T) {
	sess, _, em, _ := newTestSession(t)
	sess.ApplyHello(wire.Hello{Status: pipeline.Partial{}, FIFOs: wire.FIFOs{
		"a": {Depth: 2}, "b": {Depth: 2}, "c": {Depth: 2},
	}})

	got, err := sess.ChangeFIFODepths(map[string]string{"a": "5", "b": " 6", "c": "7"})
	if err != nil {
		t.Fatal(err)
	}
	wantDepths := wire.ChangeFIFOs{"a": 5, "b": 6, "c": 7}
	if diff := cmp.Diff(wantDepths, got); diff != "" {
		t.Errorf("depths (-want +got):\n%s", diff)
	}
	want := []sent{{wire.CommandChangeFIFOs, wantDepths}}
	if diff := cmp.Diff(want, em.sent, cmp.AllowUnexported(sent{})); diff != "" {
		t.Errorf("sent commands (-want +got):\n%s", diff)
	}
}

func TestChangeFIFODepthsAllOrNothing(t *testing.T) {
	sess, _, em, _ := newTestSession(t)
	sess.ApplyHello(wire.Hello{Status: pipeline.Partial{}, FIFOs: wire.FIFOs{"a": {Depth: 2}, "b": {Depth: 2}}})

	tests := []struct {
		name   string
		inputs map[string]string
		want   error
	}{
		{"empty", map[string]string{}, ErrInvalidDepth},
		{"one bad depth", map[string]string{"a": "8", "b": "1"}, ErrInvalidDepth},
		{"one unknown", map[string]string{"a": "8", "z": "8"}, ErrUnknownFIFO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sess.ChangeFIFODepths(tt.inputs); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
	if len(em.sent) != 0 {
		t.Errorf("rejected batches must send nothing, got %+v", em.sent)
	}
}

func TestParseFIFODepthMinimum(t *testing.T) {
	if d, err := ParseFIFODepth("2"); err != nil || d != 2 {
		t.Errorf("ParseFIFODepth(2) = %d, %v", d, err)
	}
}

func TestEmitErrorIsWrapped(t *testing.T) {
	sess, _, em, _ := newTestSession(t)
	boom := errors.New("socket gone")
	em.err = boom
	err := sess.Rebuild()
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want wrapped %v", err, boom)
	}
}

func TestNewSessionIDsAreUnique(t *testing.T) {
	a, _, _, _ := newTestSession(t)
	b, _, _, _ := newTestSession(t)
	if a.ID() == b.ID() || a.ID() == "" {
		t.Errorf("ids should be unique and non-empty: %q %q", a.ID(), b.ID())
	}
}
