// ABOUTME: Tests for StatusBarModel which renders the single-line pipeline summary.
// ABOUTME: Covers summary messages, server display and notices.
package tui

import (
	"strings"
	"testing"

	"github.com/2389-research/simwatch/pipeline"
)

func TestStatusBarView(t *testing.T) {
	tests := []struct {
		name    string
		summary pipeline.Summary
		want    string
	}{
		{"connecting", pipeline.Summary{Kind: pipeline.SummaryConnecting}, "Connecting..."},
		{"running", pipeline.Summary{Kind: pipeline.SummaryRunning, Stage: pipeline.LinkingBitcode}, pipeline.LinkingBitcode.RunningPhrase()},
		{"failed", pipeline.Summary{Kind: pipeline.SummaryFailed, Stage: pipeline.CompilingBitcode}, pipeline.CompilingBitcode.ErrorPhrase()},
		{"deadlocked", pipeline.Summary{Kind: pipeline.SummaryDeadlocked}, "Deadlocked"},
		{"done", pipeline.Summary{Kind: pipeline.SummaryDone}, "Done"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStatusBarModel("http://127.0.0.1:8080")
			m.SetWidth(120)
			view := m.View(tt.summary)
			if !strings.Contains(view, tt.want) {
				t.Errorf("View() = %q, want it to contain %q", view, tt.want)
			}
			if !strings.Contains(view, "Server: http://127.0.0.1:8080") {
				t.Errorf("View() = %q, missing server", view)
			}
		})
	}
}

func TestStatusBarNotice(t *testing.T) {
	m := NewStatusBarModel("")
	m.SetWidth(80)
	m.SetNotice("sent rebuild")
	if !strings.Contains(m.View(pipeline.Summary{Kind: pipeline.SummaryDone}), "sent rebuild") {
		t.Error("notice should be rendered")
	}
	if strings.Contains(m.View(pipeline.Summary{}), "Server:") {
		t.Error("empty server should be omitted")
	}
	m.SetNotice("")
	if m.Notice() != "" {
		t.Error("notice should clear")
	}
}
