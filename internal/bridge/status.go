package bridge

import (
	"time"

	"github.com/rs/zerolog/log"
)

// State is the externally visible session state.
type State int

const (
	StateUnauthorized State = iota
	StateAuthorizing
	StateSynchronized
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUnauthorized:
		return "unauthorized"
	case StateAuthorizing:
		return "authorizing"
	case StateSynchronized:
		return "synchronized"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// SessionObserver is implemented by observers that also follow the
// session itself. Calls are made outside the writer lock.
type SessionObserver interface {
	SessionStateChanged(bridge string, state State)
	// SessionLinked is called once, when the initial load succeeds.
	SessionLinked(bridge, name string)
}

// Status is a point-in-time view of a session.
type Status struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	Linked        bool      `json:"linked"`
	Name          string    `json:"name,omitempty"`
	LastPoll      time.Time `json:"last_poll,omitempty"`
	Devices       int       `json:"devices"`
	PushConnected bool      `json:"push_connected"`
}

// Ready reports whether the session has completed its initial load.
func (s Status) Ready() bool { return s.Linked }

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Linked reports whether the initial load succeeded.
func (s *Session) Linked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.linked
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	sessionState.WithLabelValues(s.opts.ID).Set(float64(state))
	if prev != state {
		logStateChange(s.opts.ID, prev, state)
		if o, ok := s.observer.(SessionObserver); ok {
			o.SessionStateChanged(s.opts.ID, state)
		}
	}
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.writer.Lock()
	count := len(s.arena.devices)
	s.writer.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		ID:       s.opts.ID,
		State:    s.state.String(),
		Linked:   s.linked,
		Name:     s.name,
		LastPoll: s.lastPoll,
		Devices:  count,
	}
	if s.push != nil {
		st.PushConnected = s.push.Connected()
	}
	return st
}

func logStateChange(id string, from, to State) {
	event := log.Info()
	if to == StateDegraded {
		event = log.Warn()
	}
	event.Str("bridge", id).Str("from", from.String()).Str("to", to.String()).Msg("Bridge session state changed")
}
