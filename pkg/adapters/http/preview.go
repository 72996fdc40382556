package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/observability"
	"github.com/wavebound/storyline/pkg/playback"
)

// preview is a playback session driven over HTTP.
type preview struct {
	ctrl *playback.Controller

	mu      sync.Mutex
	last    domain.Session
	started bool
	endedAt time.Time
}

func (p *preview) markEnded(at time.Time) {
	p.mu.Lock()
	p.endedAt = at
	p.mu.Unlock()
}

// expired reports whether the session has sat in a terminal phase for at
// least retention. A restarted session is live again.
func (p *preview) expired(now time.Time, retention time.Duration) bool {
	if !p.ctrl.Phase().IsTerminal() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.endedAt.IsZero() && now.Sub(p.endedAt) >= retention
}

type previewRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*preview
}

func newPreviewRegistry() *previewRegistry {
	return &previewRegistry{sessions: make(map[string]*preview)}
}

func (r *previewRegistry) get(id string) (*preview, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.sessions[id]
	return p, ok
}

func (r *previewRegistry) put(id string, p *preview) {
	r.mu.Lock()
	r.sessions[id] = p
	r.mu.Unlock()
}

func (r *previewRegistry) remove(id string) (*preview, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.sessions[id]
	delete(r.sessions, id)
	return p, ok
}

func (r *previewRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// drain removes every session for which keep returns false, or all of them
// when keep is nil.
func (r *previewRegistry) drain(keep func(*preview) bool) map[string]*preview {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*preview)
	for id, p := range r.sessions {
		if keep != nil && keep(p) {
			continue
		}
		out[id] = p
		delete(r.sessions, id)
	}
	return out
}

// discard closes a removed session and ends its event streams.
func (s *Server) discard(id string, p *preview) {
	p.ctrl.Close()
	s.Streams.CloseSession(id)
}

// reap drops sessions that ended longer than the retention period ago.
func (s *Server) reap() {
	now := time.Now()
	gone := s.previews.drain(func(p *preview) bool {
		return !p.expired(now, s.retention)
	})
	for id, p := range gone {
		s.discard(id, p)
		s.logger.Debug("Preview session expired", "session_id", id)
	}
}

// publish broadcasts what changed since the last publish.
func (s *Server) publish(p *preview) {
	cur := p.ctrl.Snapshot()

	p.mu.Lock()
	var diff *domain.SessionDiff
	if p.started {
		diff = domain.Diff(&p.last, &cur)
	} else {
		diff = domain.Diff(nil, &cur)
		p.started = true
	}
	p.last = cur
	p.mu.Unlock()

	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("Diff encode failed", "session_id", cur.ID, "err", err)
		return
	}
	s.Streams.Broadcast(cur.ID, string(data))
}

func (s *Server) publishHooks(p *preview) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter:        func(context.Context, *domain.NodeEvent) { s.publish(p) },
		OnChoicesPresented: func(context.Context, *domain.ChoiceEvent) { s.publish(p) },
		OnChoiceResolved:   func(context.Context, *domain.ChoiceEvent) { s.publish(p) },
		OnSessionEnd: func(context.Context, *domain.SessionEvent) {
			p.markEnded(time.Now())
			s.publish(p)
		},
	}
}

type startRequest struct {
	UserID string `json:"userId"`
}

// StartPreview handles POST .../sessions. It opens the episode and starts
// a playback session for it.
func (s *Server) StartPreview(w http.ResponseWriter, r *http.Request) {
	s.reap()

	var body startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(s.body(w, r)).Decode(&body); err != nil && err != io.EOF {
			s.badBody(w, err, "Invalid request body")
			return
		}
	}

	series, episode := episodeParams(r)
	g, err := s.Episodes.Open(r.Context(), series, episode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	p := &preview{}
	opts := append([]playback.Option{}, s.playback...)
	opts = append(opts,
		playback.WithEpisode(series, episode),
		playback.WithUser(body.UserID),
		playback.WithLogger(s.logger),
		playback.WithHooks(observability.Chain(s.hooks, s.publishHooks(p))),
	)
	p.ctrl = playback.NewController(g, opts...)
	id := p.ctrl.Snapshot().ID
	s.previews.put(id, p)

	// The session outlives the request.
	if err := p.ctrl.Start(context.WithoutCancel(r.Context())); err != nil {
		s.previews.remove(id)
		p.ctrl.Close()
		s.writeError(w, err)
		return
	}
	s.logger.Info("Preview session started", "session_id", id, "series_id", series, "episode_id", episode)
	s.writeJSON(w, http.StatusCreated, p.ctrl.Snapshot())
}

func (s *Server) withPreview(w http.ResponseWriter, r *http.Request, fn func(context.Context, *playback.Controller) error) {
	id := chi.URLParam(r, "session")
	p, ok := s.previews.get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err := fn(context.WithoutCancel(r.Context()), p.ctrl); err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(p)
	s.writeJSON(w, http.StatusOK, p.ctrl.Snapshot())
}

// GetPreview handles GET /sessions/{session}.
func (s *Server) GetPreview(w http.ResponseWriter, r *http.Request) {
	p, ok := s.previews.get(chi.URLParam(r, "session"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, p.ctrl.Snapshot())
}

// ClosePreview handles DELETE /sessions/{session}. Open event streams of
// the session end.
func (s *Server) ClosePreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	p, ok := s.previews.remove(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	s.discard(id, p)
	w.WriteHeader(http.StatusNoContent)
}

type tickRequest struct {
	Elapsed float64 `json:"elapsed"`
}

// Tick handles POST /sessions/{session}/tick.
func (s *Server) Tick(w http.ResponseWriter, r *http.Request) {
	var body tickRequest
	if err := json.NewDecoder(s.body(w, r)).Decode(&body); err != nil {
		s.badBody(w, err, "Invalid request body")
		return
	}
	s.withPreview(w, r, func(ctx context.Context, c *playback.Controller) error {
		return c.Tick(ctx, body.Elapsed)
	})
}

// AudioEnded handles POST /sessions/{session}/audio-ended.
func (s *Server) AudioEnded(w http.ResponseWriter, r *http.Request) {
	s.withPreview(w, r, func(ctx context.Context, c *playback.Controller) error {
		return c.AudioEnded(ctx)
	})
}

type selectRequest struct {
	ChoiceID string `json:"choiceId"`
}

// Select handles POST /sessions/{session}/select.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	var body selectRequest
	if err := json.NewDecoder(s.body(w, r)).Decode(&body); err != nil {
		s.badBody(w, err, "Invalid request body: choiceId is required")
		return
	}
	if body.ChoiceID == "" {
		http.Error(w, "Invalid request body: choiceId is required", http.StatusBadRequest)
		return
	}
	s.withPreview(w, r, func(ctx context.Context, c *playback.Controller) error {
		return c.Select(ctx, body.ChoiceID)
	})
}

// Pause handles POST /sessions/{session}/pause.
func (s *Server) Pause(w http.ResponseWriter, r *http.Request) {
	s.withPreview(w, r, func(ctx context.Context, c *playback.Controller) error {
		return c.Pause(ctx)
	})
}

// Resume handles POST /sessions/{session}/resume.
func (s *Server) Resume(w http.ResponseWriter, r *http.Request) {
	s.withPreview(w, r, func(ctx context.Context, c *playback.Controller) error {
		return c.Resume(ctx)
	})
}

// Restart handles POST /sessions/{session}/restart.
func (s *Server) Restart(w http.ResponseWriter, r *http.Request) {
	s.withPreview(w, r, func(ctx context.Context, c *playback.Controller) error {
		return c.Restart(ctx)
	})
}

// SubscribeEvents handles GET /sessions/{session}/events (SSE). Each
// message is a JSON session diff. ?watch=node,phase,history,flags filters
// messages to those touching the listed fields.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	id := chi.URLParam(r, "session")
	if _, ok := s.previews.get(id); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	var watch []string
	if v := r.URL.Query().Get("watch"); v != "" {
		watch = strings.Split(v, ",")
	}

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !matchesWatch(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func matchesWatch(msg string, watch []string) bool {
	var diff domain.SessionDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	if diff.Reset {
		return true
	}
	for _, field := range watch {
		switch strings.TrimSpace(field) {
		case "node":
			if diff.CurrentNodeID != nil {
				return true
			}
		case "phase":
			if diff.Phase != nil {
				return true
			}
		case "history":
			if diff.History != nil {
				return true
			}
		case "flags":
			if len(diff.FlagsAdded) > 0 {
				return true
			}
		}
	}
	return false
}

// Close stops every preview session.
func (s *Server) Close() {
	for id, p := range s.previews.drain(nil) {
		s.discard(id, p)
	}
}
