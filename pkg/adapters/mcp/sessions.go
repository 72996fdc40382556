package mcp

import (
	"sync"
	"time"

	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/playback"
)

// entry is a playback session driven over MCP.
type entry struct {
	ctrl  *playback.Controller
	graph *domain.Graph

	mu      sync.Mutex
	endedAt time.Time
}

func (e *entry) markEnded(at time.Time) {
	e.mu.Lock()
	e.endedAt = at
	e.mu.Unlock()
}

// expired reports whether the session has sat in a terminal phase for at
// least retention.
func (e *entry) expired(now time.Time, retention time.Duration) bool {
	if !e.ctrl.Phase().IsTerminal() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.endedAt.IsZero() && now.Sub(e.endedAt) >= retention
}

func (e *entry) response() SessionResponse {
	snap := e.ctrl.Snapshot()
	resp := SessionResponse{
		Session:  snap,
		Choices:  []domain.Choice{},
		Terminal: snap.Phase.IsTerminal(),
	}
	if snap.Phase == domain.PhaseAwaitingChoice {
		if n := e.graph.FindNode(snap.CurrentNodeID); n != nil {
			resp.Choices = n.Choices
		}
	}
	return resp
}

type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*entry)}
}

func (r *sessionRegistry) get(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	return e, ok
}

func (r *sessionRegistry) put(id string, e *entry) {
	r.mu.Lock()
	r.sessions[id] = e
	r.mu.Unlock()
}

func (r *sessionRegistry) remove(id string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	return e, ok
}

func (r *sessionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// drain removes every session for which keep returns false, or all of them
// when keep is nil.
func (r *sessionRegistry) drain(keep func(*entry) bool) map[string]*entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*entry)
	for id, e := range r.sessions {
		if keep != nil && keep(e) {
			continue
		}
		out[id] = e
		delete(r.sessions, id)
	}
	return out
}
