// Package http exposes episode authoring and preview playback over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wavebound/storyline/internal/logging"
	"github.com/wavebound/storyline/internal/presentation/graph"
	"github.com/wavebound/storyline/pkg/authoring"
	"github.com/wavebound/storyline/pkg/codec"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/episodes"
	"github.com/wavebound/storyline/pkg/playback"
	"github.com/wavebound/storyline/pkg/validator"
)

// DefaultMaxBodyBytes bounds request bodies unless WithMaxBodyBytes says
// otherwise.
const DefaultMaxBodyBytes = 4 << 20

// DefaultPreviewRetention is how long an ended preview session stays
// readable before it is dropped.
const DefaultPreviewRetention = 10 * time.Minute

// Server serves the authoring API and preview sessions.
type Server struct {
	Episodes *episodes.Manager
	Streams  *StreamManager

	previews  *previewRegistry
	playback  []playback.Option
	hooks     domain.LifecycleHooks
	metrics   http.Handler
	maxBody   int64
	retention time.Duration
	version   string
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithPlaybackOptions applies opts to every preview session.
func WithPlaybackOptions(opts ...playback.Option) Option {
	return func(s *Server) {
		s.playback = append(s.playback, opts...)
	}
}

// WithHooks adds lifecycle hooks to every preview session.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Server) {
		s.hooks = hooks
	}
}

// WithMaxBodyBytes bounds request bodies. Larger bodies are rejected with
// 413 Request Entity Too Large.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// WithPreviewRetention sets how long ended preview sessions are kept. They
// are dropped when the next session starts.
func WithPreviewRetention(d time.Duration) Option {
	return func(s *Server) {
		s.retention = d
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a server over an episode manager.
func NewServer(m *episodes.Manager, opts ...Option) *Server {
	s := &Server{
		Episodes:  m,
		Streams:   NewStreamManager(),
		previews:  newPreviewRegistry(),
		maxBody:   DefaultMaxBodyBytes,
		retention: DefaultPreviewRetention,
		version:   "dev",
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/series/{series}/episodes", func(r chi.Router) {
		r.Get("/", s.ListEpisodes)
		r.Route("/{episode}", func(r chi.Router) {
			r.Get("/graph", s.GetGraph)
			r.Put("/graph", s.PutGraph)
			r.Get("/canvas", s.GetCanvas)
			r.Put("/canvas", s.PutCanvas)
			r.Get("/mermaid", s.GetMermaid)
			r.Get("/validate", s.Validate)
			r.Post("/sessions", s.StartPreview)
		})
	})

	r.Route("/sessions/{session}", func(r chi.Router) {
		r.Get("/", s.GetPreview)
		r.Delete("/", s.ClosePreview)
		r.Get("/events", s.SubscribeEvents)
		r.Post("/tick", s.Tick)
		r.Post("/audio-ended", s.AudioEnded)
		r.Post("/select", s.Select)
		r.Post("/pause", s.Pause)
		r.Post("/resume", s.Resume)
		r.Post("/restart", s.Restart)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// violationsResponse is returned by every write.
type violationsResponse struct {
	Violations []*domain.ValidationError `json:"violations"`
}

type reportResponse struct {
	StartNodeID string                          `json:"startNodeId"`
	Kinds       map[string]domain.EffectiveKind `json:"kinds"`
	Violations  []*domain.ValidationError       `json:"violations"`
}

func nonNil(v []*domain.ValidationError) []*domain.ValidationError {
	if v == nil {
		return []*domain.ValidationError{}
	}
	return v
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var lf *domain.LoadFailure
	switch {
	case errors.Is(err, playback.ErrUnknownChoice):
		status = http.StatusBadRequest
	case errors.Is(err, playback.ErrNotAwaitingChoice):
		status = http.StatusConflict
	case errors.Is(err, playback.ErrClosed):
		status = http.StatusGone
	case errors.As(err, &lf):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		s.logger.Error("Request failed", "err", err)
	}
	http.Error(w, err.Error(), status)
}

// body limits r.Body; reading past the limit fails with *http.MaxBytesError.
func (s *Server) body(w http.ResponseWriter, r *http.Request) io.Reader {
	return http.MaxBytesReader(w, r.Body, s.maxBody)
}

// badBody answers 413 for oversized bodies and 400 otherwise.
func (s *Server) badBody(w http.ResponseWriter, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, msg, http.StatusBadRequest)
}

func episodeParams(r *http.Request) (string, string) {
	return chi.URLParam(r, "series"), chi.URLParam(r, "episode")
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":      "storyline",
		"version":  s.version,
		"sessions": s.previews.count(),
	})
}

// ListEpisodes handles GET /series/{series}/episodes.
func (s *Server) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Episodes.List(r.Context(), chi.URLParam(r, "series"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotImplemented)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"episodes": ids})
}

// GetGraph handles GET .../graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	series, episode := episodeParams(r)
	g, err := s.Episodes.Open(r.Context(), series, episode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

// PutGraph handles PUT .../graph. The body is a YAML or JSON episode
// document. Violations are reported but never block the save.
func (s *Server) PutGraph(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(s.body(w, r))
	if err != nil {
		s.badBody(w, err, "Invalid request body")
		return
	}
	g, err := codec.Decode(data)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid episode document: %v", err), http.StatusBadRequest)
		s.logger.Warn("PutGraph: invalid document", "err", err)
		return
	}

	series, episode := episodeParams(r)
	report, err := s.Episodes.Save(r.Context(), series, episode, g)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, violationsResponse{Violations: nonNil(report.Violations)})
}

// GetCanvas handles GET .../canvas.
func (s *Server) GetCanvas(w http.ResponseWriter, r *http.Request) {
	series, episode := episodeParams(r)
	c, err := s.Episodes.Canvas(r.Context(), series, episode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

// PutCanvas handles PUT .../canvas.
func (s *Server) PutCanvas(w http.ResponseWriter, r *http.Request) {
	var c authoring.Canvas
	if err := json.NewDecoder(s.body(w, r)).Decode(&c); err != nil {
		s.badBody(w, err, "Invalid canvas")
		s.logger.Warn("PutCanvas: invalid body", "err", err)
		return
	}

	series, episode := episodeParams(r)
	res, err := s.Episodes.SaveCanvas(r.Context(), series, episode, &c)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, violationsResponse{Violations: nonNil(res.Violations)})
}

// GetMermaid handles GET .../mermaid. With ?session=<id> the preview
// session's trail is overlaid.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	series, episode := episodeParams(r)
	g, err := s.Episodes.Open(r.Context(), series, episode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session"); id != "" {
		p, ok := s.previews.get(id)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		overlay = graph.OverlayFor(p.ctrl.Snapshot())
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(g, overlay))
}

// Validate handles GET .../validate.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	series, episode := episodeParams(r)
	g, err := s.Episodes.Open(r.Context(), series, episode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report := validator.Validate(g)
	s.writeJSON(w, http.StatusOK, reportResponse{
		StartNodeID: report.StartNodeID,
		Kinds:       report.Kinds,
		Violations:  nonNil(report.Violations),
	})
}
