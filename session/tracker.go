// ABOUTME: Tracker owns the current Session across reconnects and fans State snapshots out to subscribers.
// ABOUTME: It is the connection handler the transport drives: connect, event, disconnect.
package session

import (
	"sync"

	"go.uber.org/zap"
)

// Tracker creates a Session per connection and forwards every published
// State to its subscribers in publication order.
type Tracker struct {
	clock  Clock
	logger *zap.Logger

	mu      sync.Mutex
	current *Session
	last    State
	subs    map[int]func(State)
	nextSub int

	// pubMu keeps subscriber callbacks ordered.
	pubMu sync.Mutex
}

// NewTracker returns a Tracker with no connection. A nil clock uses the
// monotonic clock and a nil logger discards output.
func NewTracker(clock Clock, logger *zap.Logger) *Tracker {
	if clock == nil {
		clock = NewMonotonicClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		clock:  clock,
		logger: logger,
		subs:   make(map[int]func(State)),
	}
}

// Clock returns the local clock shared by all sessions.
func (t *Tracker) Clock() Clock { return t.clock }

// Subscribe registers fn for every future State. The returned func
// unregisters it.
func (t *Tracker) Subscribe(fn func(State)) (cancel func()) {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Current returns the live session, or nil while disconnected.
func (t *Tracker) Current() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Snapshot returns the most recently published State.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Connect starts a new Session that sends commands through em. Any previous
// session is closed first.
func (t *Tracker) Connect(em Emitter) *Session {
	t.mu.Lock()
	prev := t.current
	t.current = nil
	t.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	s := newSession(t.clock, em, nil, t.logger)
	s.publish = func(st State) { t.deliver(s, st) }

	t.mu.Lock()
	t.current = s
	t.mu.Unlock()

	t.logger.Info("connected", zap.String("session", s.ID()))
	t.deliver(s, s.State())
	return s
}

// Event routes an inbound event to the live session.
func (t *Tracker) Event(event string, payload []byte) error {
	s := t.Current()
	if s == nil {
		return ErrClosed
	}
	return s.HandleEvent(event, payload)
}

// Disconnect closes the live session, if any.
func (t *Tracker) Disconnect(err error) {
	t.mu.Lock()
	s := t.current
	t.current = nil
	t.mu.Unlock()
	if s == nil {
		return
	}
	if err != nil {
		t.logger.Warn("disconnected", zap.String("session", s.ID()), zap.Error(err))
	} else {
		t.logger.Info("disconnected", zap.String("session", s.ID()))
	}
	s.Close()
}

func (t *Tracker) deliver(from *Session, st State) {
	t.pubMu.Lock()
	defer t.pubMu.Unlock()

	t.mu.Lock()
	// A closed session's final snapshot only counts while no newer session
	// has taken over.
	if st.Connected && t.current != from {
		t.mu.Unlock()
		return
	}
	if !st.Connected && t.current != nil && t.current != from {
		t.mu.Unlock()
		return
	}
	t.last = st
	subs := make([]func(State), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
