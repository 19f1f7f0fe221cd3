// ABOUTME: Connection handler decorator that records every inbound event before passing it on.
// ABOUTME: Recording failures are logged and never interrupt the live dashboard.
package record

import (
	"go.uber.org/zap"

	"github.com/2389-research/simwatch/session"
)

// Handler is the connection lifecycle the transport drives.
type Handler interface {
	Connect(em session.Emitter) *session.Session
	Event(event string, payload []byte) error
	Disconnect(err error)
}

// Tap records traffic flowing into Next.
type Tap struct {
	next   Handler
	rec    *Recorder
	server string
	logger *zap.Logger

	current string
}

// NewTap wraps next so every session and event is stored in rec.
func NewTap(next Handler, rec *Recorder, server string, logger *zap.Logger) *Tap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tap{next: next, rec: rec, server: server, logger: logger}
}

// Connect implements Handler.
func (t *Tap) Connect(em session.Emitter) *session.Session {
	s := t.next.Connect(em)
	t.current = s.ID()
	if err := t.rec.StartSession(t.current, t.server); err != nil {
		t.logger.Error("record session start", zap.Error(err))
		t.current = ""
	}
	return s
}

// Event implements Handler.
func (t *Tap) Event(event string, payload []byte) error {
	if t.current != "" {
		if _, err := t.rec.Append(t.current, event, payload); err != nil {
			t.logger.Error("record message", zap.String("event", event), zap.Error(err))
		}
	}
	return t.next.Event(event, payload)
}

// Disconnect implements Handler.
func (t *Tap) Disconnect(err error) {
	if t.current != "" {
		if endErr := t.rec.EndSession(t.current); endErr != nil {
			t.logger.Error("record session end", zap.Error(endErr))
		}
		t.current = ""
	}
	t.next.Disconnect(err)
}
