// ABOUTME: The sessions command: lists recorded sessions, newest first.
package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/simwatch/record"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			recorder, err := record.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer recorder.Close()

			infos, err := recorder.Sessions()
			if err != nil {
				return err
			}
			writeSessions(cmd.OutOrStdout(), infos)
			return nil
		},
	}
}

func writeSessions(w io.Writer, infos []record.SessionInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No recorded sessions")
		return
	}
	rows := make([][]string, 0, len(infos))
	for _, s := range infos {
		ended := "live"
		if s.EndedAt != nil {
			ended = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			s.ID,
			s.Server,
			s.StartedAt.Local().Format(time.DateTime),
			ended,
			strconv.Itoa(s.Messages),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Session", "Server", "Started", "Length", "Messages"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
}
