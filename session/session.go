// ABOUTME: Session holds the state of one live connection to the simulation server.
// ABOUTME: It applies hello/update messages atomically, tracks clock skew, and emits one-way commands.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/2389-research/simwatch/pipeline"
	"github.com/2389-research/simwatch/wire"
)

var (
	// ErrClosed is returned for commands on a session whose connection ended.
	ErrClosed = errors.New("session closed")
	// ErrInvalidDepth is returned when a FIFO depth is not an integer >= 2.
	ErrInvalidDepth = errors.New("invalid fifo depth")
	// ErrUnknownFIFO is returned when a depth change names no known FIFO.
	ErrUnknownFIFO = errors.New("unknown fifo")
)

// Emitter delivers one-way commands to the server.
type Emitter interface {
	Emit(event string, payload any) error
}

// Session is created when a connection is established and closed when it
// drops. All methods are safe for concurrent use; message handlers are
// expected to be called from a single reader goroutine.
type Session struct {
	id      string
	clock   Clock
	emitter Emitter
	publish func(State)
	logger  *zap.Logger

	mu     sync.RWMutex
	state  State
	closed bool
}

func newSession(clock Clock, emitter Emitter, publish func(State), logger *zap.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		clock:   clock,
		emitter: emitter,
		publish: publish,
		logger:  logger.With(zap.String("session", id)),
		state:   State{SessionID: id, Connected: true},
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return disconnected(s.id)
	}
	return s.state
}

// ServerNow returns the current server-comparable time.
func (s *Session) ServerNow() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Skew.Now(s.clock())
}

// ApplyHello replaces every part of the state with the full snapshot. A
// hello may arrive at any time and is handled like the first one.
func (s *Session) ApplyHello(h wire.Hello) {
	st := pipeline.NewStatus(h.Status)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	next := State{
		SessionID: s.id,
		Connected: true,
		Skew:      Observe(s.clock(), h.Now),
		Status:    &st,
		Testbench: h.Testbench,
		FIFOs:     h.FIFOs.Clone(),
		Latencies: h.Latencies,
		Messages:  s.state.Messages + 1,
	}
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("applied hello",
		zap.Float64("server_now", h.Now),
		zap.Float64("delta", next.Skew.Delta),
		zap.Int("fifos", len(h.FIFOs)))
	s.publish(next)
}

// ApplyUpdate merges the fields present in u. Absent fields keep their
// previous value; explicit nulls clear them. Stage records merge key by key.
func (s *Session) ApplyUpdate(u wire.Update) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	next := s.state
	next.Skew = Observe(s.clock(), u.Now)
	next.Messages++

	if u.Status.Set {
		var base pipeline.Status
		if next.Status != nil {
			base = *next.Status
		}
		if u.Status.Valid {
			merged := base.Merge(u.Status.Value)
			next.Status = &merged
		} else {
			next.Status = nil
		}
	}
	if u.Testbench.Set {
		next.Testbench = u.Testbench.Ptr()
	}
	if u.FIFOs.Set {
		next.FIFOs = nil
		if u.FIFOs.Valid {
			next.FIFOs = u.FIFOs.Value.Clone()
		}
	}
	if u.Latencies.Set {
		next.Latencies = u.Latencies.Ptr()
	}
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("applied update",
		zap.Float64("server_now", u.Now),
		zap.Bool("status", u.Status.Set),
		zap.Bool("testbench", u.Testbench.Set),
		zap.Bool("fifos", u.FIFOs.Set),
		zap.Bool("latencies", u.Latencies.Set))
	s.publish(next)
}

// HandleEvent decodes and applies a raw inbound event. Unknown events are
// ignored.
func (s *Session) HandleEvent(event string, payload []byte) error {
	switch event {
	case wire.EventHello:
		h, err := wire.DecodeHello(payload)
		if err != nil {
			return err
		}
		s.ApplyHello(h)
	case wire.EventUpdate:
		u, err := wire.DecodeUpdate(payload)
		if err != nil {
			return err
		}
		s.ApplyUpdate(u)
	default:
		s.logger.Debug("ignoring event", zap.String("event", event))
	}
	return nil
}

// Close marks the connection as gone. Later messages and commands are
// rejected.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.logger.Debug("session closed")
	s.publish(disconnected(s.id))
}

// Rebuild asks the server to restart the pipeline.
func (s *Session) Rebuild() error {
	return s.emit(wire.CommandRebuild, nil)
}

// SkipWaitForSynthesis asks the server to stop waiting for the next C
// synthesis run.
func (s *Session) SkipWaitForSynthesis() error {
	return s.emit(wire.CommandSkipWaitForSynthesis, nil)
}

// ParseFIFODepth validates user input for a FIFO depth.
func ParseFIFODepth(input string) (int, error) {
	depth, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidDepth, input)
	}
	if depth < wire.MinFIFODepth {
		return 0, fmt.Errorf("%w: %d is below the minimum of %d", ErrInvalidDepth, depth, wire.MinFIFODepth)
	}
	return depth, nil
}

// ChangeFIFODepth validates input and requests a new depth for the named
// FIFO. Invalid input sends nothing; callers should show the last confirmed
// depth again.
func (s *Session) ChangeFIFODepth(name, input string) (int, error) {
	depths, err := s.ChangeFIFODepths(map[string]string{name: input})
	if err != nil {
		return 0, err
	}
	return depths[name], nil
}

// ChangeFIFODepths validates every entry of inputs and then sends all of
// them as a single change_fifos command. Any invalid depth or unknown name
// sends nothing.
func (s *Session) ChangeFIFODepths(inputs map[string]string) (wire.ChangeFIFOs, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no fifos given", ErrInvalidDepth)
	}
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	st := s.State()
	depths := make(wire.ChangeFIFOs, len(inputs))
	for _, name := range names {
		depth, err := ParseFIFODepth(inputs[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if _, ok := st.FIFODepth(name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFIFO, name)
		}
		depths[name] = depth
	}
	if err := s.emit(wire.CommandChangeFIFOs, depths); err != nil {
		return nil, err
	}
	return depths, nil
}

func (s *Session) emit(event string, payload any) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if err := s.emitter.Emit(event, payload); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	s.logger.Info("sent command", zap.String("command", event))
	return nil
}
