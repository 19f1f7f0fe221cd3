// ABOUTME: The watch command: connects to the server and runs the TUI, optionally mirroring over HTTP.
// ABOUTME: Transport, mirror and TUI run in one errgroup; quitting the TUI stops the others.
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
	"github.com/2389-research/simwatch/transport"
	"github.com/2389-research/simwatch/tui"
	"github.com/2389-research/simwatch/web"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var listen string
	var rec bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show the live dashboard (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			if cmd.Flags().Changed("record") {
				cfg.Record = rec
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Also serve the HTTP mirror on this address, e.g. 127.0.0.1:8090")
	cmd.Flags().BoolVar(&rec, "record", false, "Store every received message in the recording database")
	return cmd
}

func runWatch(parent context.Context, cfg Config, logger *zap.Logger) error {
	tracker := session.NewTracker(session.NewMonotonicClock(), logger.Named("session"))

	var handler transport.Handler = tracker
	if cfg.Record {
		recorder, err := record.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer recorder.Close()
		handler = record.NewTap(tracker, recorder, cfg.Server, logger.Named("record"))
		logger.Info("recording", zap.String("database", cfg.Database))
	}

	client, err := transport.NewClient(transport.Config{
		Server: cfg.Server,
		Logger: logger.Named("transport"),
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(parent)
	ctx, cancel := context.WithCancel(gctx)
	defer cancel()

	model := tui.NewAppModel(tui.Options{
		Server:   cfg.Server,
		Clock:    tracker.Clock(),
		Sessions: tracker,
		Initial:  tracker.Snapshot(),
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	detach := tui.NewBridge(program.Send).Attach(tracker)
	defer detach()

	g.Go(func() error {
		return client.Run(ctx, handler)
	})
	if cfg.Listen != "" {
		mirror := web.NewServer(tracker, web.ServerConfig{Addr: cfg.Listen, Logger: logger.Named("web")})
		g.Go(func() error {
			return mirror.ListenAndServe(ctx)
		})
	}
	g.Go(func() error {
		defer cancel()
		return runProgram(program)
	})
	return g.Wait()
}

// runProgram runs the TUI. Being stopped through its context is a normal exit.
func runProgram(p *tea.Program) error {
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
