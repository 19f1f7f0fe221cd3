// ABOUTME: Tests for the sessions and replay commands against a recording database on disk.
package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/2389-research/simwatch/record"
)

func seedRecording(t *testing.T, dataDir string) string {
	t.Helper()
	rec, err := record.Open(filepath.Join(dataDir, "recordings.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	const id = "3f1c2a9e-0000-4000-8000-000000000001"
	if err := rec.StartSession(id, "http://sim:8080"); err != nil {
		t.Fatal(err)
	}
	msgs := []struct{ event, payload string }{
		{"hello", `{"now":10,"status":{"WAITING_FOR_NEXT_SYNTHESIS":{"start":0}},"testbench":null,"fifos":null,"latencies":null}`},
		{"update", `{"now":20,"status":{"WAITING_FOR_NEXT_SYNTHESIS":{"start":0,"end":12},"RUNNING_SIMULATION_OPTIMAL":{"start":12,"end":19}}}`},
	}
	for _, m := range msgs {
		if _, err := rec.Append(id, m.event, []byte(m.payload)); err != nil {
			t.Fatal(err)
		}
	}
	if err := rec.EndSession(id); err != nil {
		t.Fatal(err)
	}
	return id
}

func TestSessionsCommand(t *testing.T) {
	dataDir := isolate(t)

	out, err := runCLI(t, "sessions", "--log-file", "-")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No recorded sessions") {
		t.Errorf("empty output:\n%s", out)
	}

	id := seedRecording(t, dataDir)
	out, err = runCLI(t, "sessions", "--log-file", "-")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{id, "http://sim:8080", "Messages"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReplayPrint(t *testing.T) {
	dataDir := isolate(t)
	id := seedRecording(t, dataDir)

	out, err := runCLI(t, "replay", id, "--print", "--log-file", "-")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Summary: Done", "12.00s", "7.00s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReplayUnknownSession(t *testing.T) {
	isolate(t)
	if _, err := runCLI(t, "replay", "nope", "--print", "--log-file", "-"); err == nil {
		t.Error("replaying an unknown session should fail")
	}
}
