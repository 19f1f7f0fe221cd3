// ABOUTME: The status command: waits for one hello, prints a stage table and exits by outcome.
// ABOUTME: Exit code 2 reports a failed or deadlocked pipeline so scripts can gate on it.
package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389-research/simwatch/pipeline"
	"github.com/2389-research/simwatch/session"
	"github.com/2389-research/simwatch/timefmt"
	"github.com/2389-research/simwatch/transport"
)

const pipelineFailedCode = 2

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current pipeline status and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			st, serverNow, err := fetchStatus(cmd.Context(), cfg.Server, timeout, logger)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStatus(st, serverNow))
			return statusOutcome(st.Summary())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for the server's hello")
	return cmd
}

// fetchStatus connects, waits for the first complete snapshot and
// disconnects. It also returns the server clock at the time of the snapshot.
func fetchStatus(parent context.Context, server string, timeout time.Duration, logger *zap.Logger) (session.State, float64, error) {
	tracker := session.NewTracker(session.NewMonotonicClock(), logger.Named("session"))
	ready := make(chan session.State, 1)
	unsubscribe := tracker.Subscribe(func(st session.State) {
		if st.Ready() {
			select {
			case ready <- st:
			default:
			}
		}
	})
	defer unsubscribe()

	client, err := transport.NewClient(transport.Config{Server: server, Logger: logger.Named("transport")})
	if err != nil {
		return session.State{}, 0, err
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx, tracker) }()

	var st session.State
	select {
	case st = <-ready:
	case <-ctx.Done():
	}
	serverNow := st.Skew.Now(tracker.Clock()())
	cancel()
	if err := <-done; err != nil {
		logger.Warn("transport stopped", zap.Error(err))
	}

	if !st.Ready() {
		if err := parent.Err(); err != nil {
			return session.State{}, 0, err
		}
		return session.State{}, 0, fmt.Errorf("no status from %s within %s", server, timeout)
	}
	return st, serverNow, nil
}

// statusOutcome maps the summary to the command result.
func statusOutcome(s pipeline.Summary) error {
	switch s.Kind {
	case pipeline.SummaryFailed, pipeline.SummaryDeadlocked:
		return &exitError{code: pipelineFailedCode, msg: s.Message()}
	default:
		return nil
	}
}

func renderStatus(st session.State, serverNow float64) string {
	rows := make([][]string, 0, len(pipeline.Stages))
	for _, stage := range pipeline.Stages {
		rec := st.Stage(stage)
		rows = append(rows, []string{
			stage.Label(),
			rec.State().String(),
			stageTiming(rec, serverNow),
			firstLine(rec.ErrorText()),
		})
	}

	var b strings.Builder
	b.WriteString(renderTable(
		[]string{"Stage", "State", "Time", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	b.WriteString("\n")
	if tb := st.Testbench; tb != nil {
		fmt.Fprintf(&b, "Testbench exited with code %d.\n", tb.ReturnCode)
	}
	if st.FIFOs != nil {
		fmt.Fprintf(&b, "FIFOs: %d\n", len(st.FIFOs))
	}
	fmt.Fprintf(&b, "Summary: %s\n", st.Summary().Message())
	return b.String()
}

func stageTiming(rec pipeline.StageStatus, serverNow float64) string {
	switch rec.State() {
	case pipeline.StageRunning:
		elapsed := serverNow - *rec.Start
		out := timefmt.FormatDuration(elapsed, 1)
		if p, ok := rec.ProgressFraction(); ok {
			out += fmt.Sprintf(" (%d%%, ETA %s)", int(math.Floor(p*100)), timefmt.FormatTimeRemaining(elapsed, p))
		}
		return out
	case pipeline.StageSucceeded, pipeline.StageFailed:
		d, _ := rec.Duration()
		return timefmt.FormatDuration(d, 2)
	default:
		return ""
	}
}

func firstLine(s string) string {
	line, rest, _ := strings.Cut(s, "\n")
	if rest != "" {
		return line + " …"
	}
	return line
}
