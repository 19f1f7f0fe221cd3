// ABOUTME: Replays a recorded session into a tracker, optionally paced by the original arrival times.
// ABOUTME: Commands issued during replay are logged instead of sent.
package record

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LogEmitter satisfies session.Emitter by logging commands.
type LogEmitter struct {
	Logger *zap.Logger
}

// Emit implements session.Emitter.
func (e LogEmitter) Emit(event string, payload any) error {
	if e.Logger == nil {
		return nil
	}
	e.Logger.Info("replay: command not sent", zap.String("command", event), zap.Any("payload", payload))
	return nil
}

// Replay feeds the recorded messages of sessionID into h. With speed > 0
// the gaps between messages are reproduced, divided by speed; otherwise
// messages are applied back to back. The replayed session stays connected
// after the last message so the final state remains visible.
func Replay(ctx context.Context, rec *Recorder, sessionID string, h Handler, speed float64, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	msgs, err := rec.Messages(sessionID)
	if err != nil {
		return err
	}

	h.Connect(LogEmitter{Logger: logger})
	var prev time.Time
	for i, msg := range msgs {
		if speed > 0 && i > 0 {
			gap := time.Duration(float64(msg.ReceivedAt.Sub(prev)) / speed)
			if gap > 0 {
				t := time.NewTimer(gap)
				select {
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				case <-t.C:
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		prev = msg.ReceivedAt
		if err := h.Event(msg.Event, msg.Payload); err != nil {
			return fmt.Errorf("replay message %s: %w", msg.ID, err)
		}
	}
	logger.Info("replay finished", zap.String("session", sessionID), zap.Int("messages", len(msgs)))
	return nil
}
