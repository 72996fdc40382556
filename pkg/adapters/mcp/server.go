// Package mcp exposes episode authoring and preview playback as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wavebound/storyline/internal/logging"
	"github.com/wavebound/storyline/internal/presentation/graph"
	"github.com/wavebound/storyline/pkg/codec"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/episodes"
	"github.com/wavebound/storyline/pkg/observability"
	"github.com/wavebound/storyline/pkg/playback"
	"github.com/wavebound/storyline/pkg/validator"
)

// DefaultSessionRetention is how long an ended session stays readable
// before it is dropped.
const DefaultSessionRetention = 10 * time.Minute

// SessionResponse is the result of every session tool.
type SessionResponse struct {
	Session  domain.Session  `json:"session" jsonschema_description:"Snapshot of the playback session"`
	Choices  []domain.Choice `json:"choices" jsonschema_description:"Choices on offer while awaiting a choice"`
	Terminal bool            `json:"terminal" jsonschema_description:"Whether the session has ended or failed"`
}

// ReportResponse is the result of validate_episode and put_graph.
type ReportResponse struct {
	StartNodeID string                          `json:"startNodeId" jsonschema_description:"Effective start node"`
	Kinds       map[string]domain.EffectiveKind `json:"kinds,omitempty" jsonschema_description:"Effective kind per node"`
	Violations  []*domain.ValidationError       `json:"violations" jsonschema_description:"Structural problems found"`
}

type episodeArgs struct {
	SeriesID  string `json:"series_id"`
	EpisodeID string `json:"episode_id"`
}

type putGraphArgs struct {
	episodeArgs
	Document string `json:"document"`
}

type startArgs struct {
	episodeArgs
	UserID string `json:"user_id"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type tickArgs struct {
	SessionID string  `json:"session_id"`
	Elapsed   float64 `json:"elapsed"`
}

type selectArgs struct {
	SessionID string `json:"session_id"`
	ChoiceID  string `json:"choice_id"`
}

// Server wraps an episode manager and exposes it as an MCP server.
type Server struct {
	episodes  *episodes.Manager
	sessions  *sessionRegistry
	playback  []playback.Option
	hooks     domain.LifecycleHooks
	retention time.Duration
	version   string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPlaybackOptions applies opts to every session.
func WithPlaybackOptions(opts ...playback.Option) Option {
	return func(s *Server) {
		s.playback = append(s.playback, opts...)
	}
}

// WithHooks adds lifecycle hooks to every session.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Server) {
		s.hooks = hooks
	}
}

// WithSessionRetention sets how long ended sessions are kept. They are
// dropped when the next session starts.
func WithSessionRetention(d time.Duration) Option {
	return func(s *Server) {
		s.retention = d
	}
}

// WithVersion sets the version announced to clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a new MCP server over m.
func NewServer(m *episodes.Manager, opts ...Option) *Server {
	s := &Server{
		episodes:  m,
		sessions:  newSessionRegistry(),
		retention: DefaultSessionRetention,
		version:   "dev",
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("storyline-mcp", s.version, server.WithToolCapabilities(false))
	s.registerAuthoringTools()
	s.registerSessionTools()
	return s
}

// ServeStdio serves MCP over in and out until ctx is cancelled or in is
// exhausted.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

// Close stops every session.
func (s *Server) Close() {
	for _, e := range s.sessions.drain(nil) {
		e.ctrl.Close()
	}
}

func (s *Server) registerAuthoringTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_episodes",
		mcp.WithDescription("List the stored episodes of a series."),
		mcp.WithString("series_id", mcp.Required(), mcp.Description("Series ID")),
	), s.handleListEpisodes)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the episode graph as JSON. Missing episodes are empty graphs."),
		mcp.WithString("series_id", mcp.Required(), mcp.Description("Series ID")),
		mcp.WithString("episode_id", mcp.Required(), mcp.Description("Episode ID")),
	), s.handleGetGraph)

	s.mcpServer.AddTool(mcp.NewTool("put_graph",
		mcp.WithDescription("Replace the episode graph with a YAML or JSON document. Violations are reported but never block the save."),
		mcp.WithString("series_id", mcp.Required(), mcp.Description("Series ID")),
		mcp.WithString("episode_id", mcp.Required(), mcp.Description("Episode ID")),
		mcp.WithString("document", mcp.Required(), mcp.Description("Episode document")),
		mcp.WithOutputSchema[ReportResponse](),
	), mcp.NewStructuredToolHandler(s.handlePutGraph))

	s.mcpServer.AddTool(mcp.NewTool("validate_episode",
		mcp.WithDescription("Validate the stored episode graph."),
		mcp.WithString("series_id", mcp.Required(), mcp.Description("Series ID")),
		mcp.WithString("episode_id", mcp.Required(), mcp.Description("Episode ID")),
		mcp.WithOutputSchema[ReportResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("get_mermaid",
		mcp.WithDescription("Render the episode as a Mermaid flowchart, optionally overlaid with a session's trail."),
		mcp.WithString("series_id", mcp.Required(), mcp.Description("Series ID")),
		mcp.WithString("episode_id", mcp.Required(), mcp.Description("Episode ID")),
		mcp.WithString("session_id", mcp.Description("Session whose trail is highlighted (optional)")),
	), s.handleMermaid)
}

func (s *Server) registerSessionTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Open an episode and start a playback session."),
		mcp.WithString("series_id", mcp.Required(), mcp.Description("Series ID")),
		mcp.WithString("episode_id", mcp.Required(), mcp.Description("Episode ID")),
		mcp.WithString("user_id", mcp.Description("Listener whose flags carry across episodes (optional)")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("tick",
		mcp.WithDescription("Report audio progress of the current node in seconds."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithNumber("elapsed", mcp.Required(), mcp.Description("Seconds played into the current node")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleTick))

	s.mcpServer.AddTool(mcp.NewTool("select_choice",
		mcp.WithDescription("Pick one of the choices on offer."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("choice_id", mcp.Required(), mcp.Description("Choice ID")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleSelect))

	simple := []struct {
		name, desc string
		fn         func(context.Context, *playback.Controller) error
	}{
		{"get_session", "Get the current session snapshot.", func(context.Context, *playback.Controller) error {
			return nil
		}},
		{"audio_ended", "Report that the current node's audio finished.", func(ctx context.Context, c *playback.Controller) error {
			return c.AudioEnded(ctx)
		}},
		{"pause", "Pause the session.", func(ctx context.Context, c *playback.Controller) error {
			return c.Pause(ctx)
		}},
		{"resume", "Resume a paused session.", func(ctx context.Context, c *playback.Controller) error {
			return c.Resume(ctx)
		}},
		{"restart", "Restart the session from the start node, clearing history and flags.", func(ctx context.Context, c *playback.Controller) error {
			return c.Restart(ctx)
		}},
	}
	for _, t := range simple {
		s.mcpServer.AddTool(mcp.NewTool(t.name,
			mcp.WithDescription(t.desc),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
			mcp.WithOutputSchema[SessionResponse](),
		), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (SessionResponse, error) {
			return s.withSession(ctx, args.SessionID, t.fn)
		}))
	}

	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Stop a session and forget it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleClose)
}

func (s *Server) handleListEpisodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	series, err := request.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids, err := s.episodes.List(ctx, series)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if ids == nil {
		ids = []string{}
	}
	jsonBytes, _ := json.Marshal(ids)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := s.open(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := codec.Encode(g, codec.FormatJSON)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleMermaid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := s.open(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var overlay *graph.GraphOverlay
	if id := request.GetString("session_id", ""); id != "" {
		e, ok := s.sessions.get(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("session %q not found", id)), nil
		}
		overlay = graph.OverlayFor(e.ctrl.Snapshot())
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(g, overlay)), nil
}

func (s *Server) open(ctx context.Context, request mcp.CallToolRequest) (*domain.Graph, error) {
	series, err := request.RequireString("series_id")
	if err != nil {
		return nil, err
	}
	episode, err := request.RequireString("episode_id")
	if err != nil {
		return nil, err
	}
	g, err := s.episodes.Open(ctx, series, episode)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}
	return g, nil
}

func (s *Server) handlePutGraph(ctx context.Context, _ mcp.CallToolRequest, args putGraphArgs) (ReportResponse, error) {
	g, err := codec.Decode([]byte(args.Document))
	if err != nil {
		s.logger.Warn("MCP put_graph: invalid document", "err", err)
		return ReportResponse{}, fmt.Errorf("invalid episode document: %w", err)
	}
	report, err := s.episodes.Save(ctx, args.SeriesID, args.EpisodeID, g)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("save failed: %w", err)
	}
	return toReport(report), nil
}

func (s *Server) handleValidate(ctx context.Context, _ mcp.CallToolRequest, args episodeArgs) (ReportResponse, error) {
	g, err := s.episodes.Open(ctx, args.SeriesID, args.EpisodeID)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("open failed: %w", err)
	}
	return toReport(validator.Validate(g)), nil
}

func toReport(r *validator.Report) ReportResponse {
	v := r.Violations
	if v == nil {
		v = []*domain.ValidationError{}
	}
	return ReportResponse{StartNodeID: r.StartNodeID, Kinds: r.Kinds, Violations: v}
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args startArgs) (SessionResponse, error) {
	s.reap()

	g, err := s.episodes.Open(ctx, args.SeriesID, args.EpisodeID)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("open failed: %w", err)
	}

	e := &entry{graph: g}
	opts := append([]playback.Option{}, s.playback...)
	opts = append(opts,
		playback.WithEpisode(args.SeriesID, args.EpisodeID),
		playback.WithUser(args.UserID),
		playback.WithLogger(s.logger),
		playback.WithHooks(observability.Chain(s.hooks, domain.LifecycleHooks{
			OnSessionEnd: func(context.Context, *domain.SessionEvent) { e.markEnded(time.Now()) },
		})),
	)
	e.ctrl = playback.NewController(g, opts...)
	id := e.ctrl.Snapshot().ID
	s.sessions.put(id, e)

	// The session outlives the tool call.
	if err := e.ctrl.Start(context.WithoutCancel(ctx)); err != nil {
		s.sessions.remove(id)
		e.ctrl.Close()
		return SessionResponse{}, fmt.Errorf("start failed: %w", err)
	}
	s.logger.Info("MCP session started", "session_id", id, "series_id", args.SeriesID, "episode_id", args.EpisodeID)
	return e.response(), nil
}

func (s *Server) handleTick(ctx context.Context, _ mcp.CallToolRequest, args tickArgs) (SessionResponse, error) {
	return s.withSession(ctx, args.SessionID, func(ctx context.Context, c *playback.Controller) error {
		return c.Tick(ctx, args.Elapsed)
	})
}

func (s *Server) handleSelect(ctx context.Context, _ mcp.CallToolRequest, args selectArgs) (SessionResponse, error) {
	if args.ChoiceID == "" {
		return SessionResponse{}, fmt.Errorf("choice_id is required")
	}
	return s.withSession(ctx, args.SessionID, func(ctx context.Context, c *playback.Controller) error {
		return c.Select(ctx, args.ChoiceID)
	})
}

func (s *Server) handleClose(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, ok := s.sessions.remove(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("session %q not found", id)), nil
	}
	e.ctrl.Close()
	return mcp.NewToolResultText("closed"), nil
}

func (s *Server) withSession(ctx context.Context, id string, fn func(context.Context, *playback.Controller) error) (SessionResponse, error) {
	e, ok := s.sessions.get(id)
	if !ok {
		return SessionResponse{}, fmt.Errorf("session %q not found", id)
	}
	if err := fn(context.WithoutCancel(ctx), e.ctrl); err != nil {
		return SessionResponse{}, err
	}
	return e.response(), nil
}

// reap drops sessions that ended longer than the retention period ago.
func (s *Server) reap() {
	now := time.Now()
	gone := s.sessions.drain(func(e *entry) bool {
		return !e.expired(now, s.retention)
	})
	for id, e := range gone {
		e.ctrl.Close()
		s.logger.Debug("MCP session expired", "session_id", id)
	}
}
