// ABOUTME: The replay command: feeds a recorded session back through the dashboard.
// ABOUTME: Commands typed during replay are logged, never sent to a server.
package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/simwatch/record"
	"github.com/2389-research/simwatch/session"
	"github.com/2389-research/simwatch/tui"
)

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var speed float64
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "replay <session-id>",
		Short: "Replay a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			recorder, err := record.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer recorder.Close()

			if printOnly {
				st, serverNow, err := replayToEnd(cmd.Context(), recorder, args[0], logger)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderStatus(st, serverNow))
				return statusOutcome(st.Summary())
			}
			return runReplayTUI(cmd.Context(), recorder, args[0], speed, logger)
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 1, "Playback speed multiplier; 0 applies every message at once")
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the final status table instead of opening the dashboard")
	return cmd
}

// replayToEnd applies every message without pacing and returns the final
// snapshot with the server clock of the last message.
func replayToEnd(ctx context.Context, rec *record.Recorder, id string, logger *zap.Logger) (session.State, float64, error) {
	tracker := session.NewTracker(session.NewMonotonicClock(), logger.Named("session"))
	if err := record.Replay(ctx, rec, id, tracker, 0, logger.Named("replay")); err != nil {
		return session.State{}, 0, err
	}
	st := tracker.Snapshot()
	return st, st.Skew.ServerNow, nil
}

func runReplayTUI(parent context.Context, rec *record.Recorder, id string, speed float64, logger *zap.Logger) error {
	tracker := session.NewTracker(session.NewMonotonicClock(), logger.Named("session"))

	g, gctx := errgroup.WithContext(parent)
	ctx, cancel := context.WithCancel(gctx)
	defer cancel()

	model := tui.NewAppModel(tui.Options{
		Server:   "replay " + id,
		Clock:    tracker.Clock(),
		Sessions: tracker,
		Initial:  tracker.Snapshot(),
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	detach := tui.NewBridge(program.Send).Attach(tracker)
	defer detach()

	g.Go(func() error {
		return record.Replay(ctx, rec, id, tracker, speed, logger.Named("replay"))
	})
	g.Go(func() error {
		defer cancel()
		return runProgram(program)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) && parent.Err() == nil {
		// The user quit before the replay finished.
		return nil
	}
	return err
}
