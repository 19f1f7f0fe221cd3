// ABOUTME: Tests for the SQLite message recorder, the recording tap and session replay.
// ABOUTME: Uses temp databases and a real session tracker as the replay target.
package record

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/2389-research/simwatch/pipeline"
	"github.com/2389-research/simwatch/session"
)

func openTemp(t *testing.T) *Recorder {
	t.Helper()
	rec, err := Open(filepath.Join(t.TempDir(), "record.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = rec.Close() })
	return rec
}

// steppingClock returns a time source that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestRecorderStoresInOrder(t *testing.T) {
	rec := openTemp(t)
	rec.now = steppingClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), time.Millisecond)

	if err := rec.StartSession("s1", "http://127.0.0.1:8080"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	events := []struct{ event, payload string }{
		{"hello", `{"now":10,"status":{}}`},
		{"update", `{"now":11}`},
		{"update", `{"now":12.5,"fifos":null}`},
	}
	for _, e := range events {
		if _, err := rec.Append("s1", e.event, []byte(e.payload)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	msgs, err := rec.Messages("s1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != len(events) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(events))
	}
	for i, e := range events {
		if msgs[i].Event != e.event || string(msgs[i].Payload) != e.payload {
			t.Errorf("message %d: got %s %s", i, msgs[i].Event, msgs[i].Payload)
		}
	}
	if msgs[2].ServerNow != 12.5 {
		t.Errorf("server_now: got %v", msgs[2].ServerNow)
	}
	if !msgs[1].ReceivedAt.After(msgs[0].ReceivedAt) {
		t.Errorf("received_at should increase: %v then %v", msgs[0].ReceivedAt, msgs[1].ReceivedAt)
	}
}

func TestRecorderSessions(t *testing.T) {
	rec := openTemp(t)
	rec.now = steppingClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), time.Second)

	if err := rec.StartSession("old", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Append("old", "hello", []byte(`{"now":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := rec.EndSession("old"); err != nil {
		t.Fatal(err)
	}
	if err := rec.StartSession("new", "b"); err != nil {
		t.Fatal(err)
	}

	infos, err := rec.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d sessions", len(infos))
	}
	if infos[0].ID != "new" || infos[1].ID != "old" {
		t.Errorf("order: got %s, %s", infos[0].ID, infos[1].ID)
	}
	if infos[0].EndedAt != nil {
		t.Error("open session should have no end")
	}
	if infos[1].EndedAt == nil || infos[1].Messages != 1 || infos[1].Server != "a" {
		t.Errorf("old session: %+v", infos[1])
	}

	if err := rec.EndSession("old"); !errors.Is(err, ErrNoSession) {
		t.Errorf("ending twice: got %v", err)
	}
	if _, err := rec.Messages("missing"); !errors.Is(err, ErrNoSession) {
		t.Errorf("missing session: got %v", err)
	}
}

func TestTapRecordsLiveTraffic(t *testing.T) {
	rec := openTemp(t)
	tr := session.NewTracker(nil, nil)
	tap := NewTap(tr, rec, "http://sim", nil)

	s := tap.Connect(LogEmitter{})
	if err := tap.Event("hello", []byte(`{"now":1,"status":{"ANALYZING_PROJECT":{"start":0}}}`)); err != nil {
		t.Fatal(err)
	}
	if err := tap.Event("update", []byte(`{`)); err == nil {
		t.Fatal("decode errors should still reach the caller")
	}
	tap.Disconnect(nil)

	msgs, err := rec.Messages(s.ID())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Errorf("both messages are recorded, got %d", len(msgs))
	}
	infos, _ := rec.Sessions()
	if len(infos) != 1 || infos[0].EndedAt == nil {
		t.Errorf("session should be recorded and ended: %+v", infos)
	}
	if tr.Snapshot().Connected {
		t.Error("tracker should be disconnected")
	}
}

func TestReplayRebuildsState(t *testing.T) {
	rec := openTemp(t)
	if err := rec.StartSession("s1", "x"); err != nil {
		t.Fatal(err)
	}
	payloads := []struct{ event, payload string }{
		{"hello", `{"now":1,"status":{"ANALYZING_PROJECT":{"start":0}},"fifos":{"q":{"depth":2,"observed":null,"optimal":null}}}`},
		{"update", `{"now":2,"status":{"ANALYZING_PROJECT":{"start":0,"end":1}}}`},
		{"update", `{"now":3,"status":{"RUNNING_SIMULATION_ACTUAL":{"start":2,"end":3,"error":"deadlock detected in module top"}}}`},
	}
	for _, p := range payloads {
		if _, err := rec.Append("s1", p.event, []byte(p.payload)); err != nil {
			t.Fatal(err)
		}
	}

	tr := session.NewTracker(nil, nil)
	if err := Replay(context.Background(), rec, "s1", tr, 0, nil); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	st := tr.Snapshot()
	if st.Messages != 3 {
		t.Errorf("messages: got %d", st.Messages)
	}
	if got := st.Summary().Kind; got != pipeline.SummaryDeadlocked {
		t.Errorf("summary: got %v, want deadlocked", got)
	}

	// Commands during replay are swallowed, not failed.
	if err := tr.Current().Rebuild(); err != nil {
		t.Errorf("rebuild during replay: %v", err)
	}
}

func TestReplayHonoursCancellation(t *testing.T) {
	rec := openTemp(t)
	rec.now = steppingClock(time.Now(), time.Hour)
	if err := rec.StartSession("s1", "x"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := rec.Append("s1", "update", []byte(`{"now":1}`)); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := Replay(ctx, rec, "s1", session.NewTracker(nil, nil), 1, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want deadline exceeded", err)
	}
}

func TestInMemoryRecorderSharesOneDatabase(t *testing.T) {
	rec, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rec.Close()

	if got := rec.db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
	if err := rec.StartSession("mem", "http://127.0.0.1:8080"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	const writers, each = 8, 5
	var wg sync.WaitGroup
	errs := make(chan error, writers*each)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				payload := []byte(fmt.Sprintf(`{"now":%d}`, w*each+i))
				if _, err := rec.Append("mem", "update", payload); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Append: %v", err)
	}

	msgs, err := rec.Messages("mem")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != writers*each {
		t.Errorf("got %d messages, want %d", len(msgs), writers*each)
	}
}
