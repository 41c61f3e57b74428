package server

import (
	"log/slog"
	"sync"

	"github.com/echowire/echowire/internal/protocol"
)

// Registry tracks the set of currently connected sessions. Membership
// mutation is mutually exclusive with the snapshot taken for broadcast;
// delivery itself happens outside the lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewRegistry initializes an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

func (r *Registry) add(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

// remove deletes the session if present. Duplicate disconnect signals
// make this a no-op the second time.
func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) snapshot() []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// broadcast delivers the frame to every registered session except
// exclude, if given. A failure to deliver to one session never affects
// the others and never propagates to the caller.
func (r *Registry) broadcast(frame protocol.Frame, exclude string) {
	for _, s := range r.snapshot() {
		if s.id == exclude {
			continue
		}
		if err := s.send(frame); err != nil {
			slog.Debug("broadcast delivery skipped", "session", s.id, "event", frame.Event, "error", err)
		}
	}
}
