package storyline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wavebound/storyline/internal/logging"
	"github.com/wavebound/storyline/pkg/authoring"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/episodes"
	"github.com/wavebound/storyline/pkg/observability"
	"github.com/wavebound/storyline/pkg/playback"
	"github.com/wavebound/storyline/pkg/ports"
	"github.com/wavebound/storyline/pkg/validator"
)

// Engine is the high-level entry point for the library. It ties a graph
// store to authoring and playback.
type Engine struct {
	store    ports.GraphStore
	episodes *episodes.Manager

	memory   ports.MemoryStore
	assets   ports.AssetResolver
	locker   ports.DistributedLocker
	clock    playback.Clock
	window   time.Duration
	fallback float64
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers hooks for every playback session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMemoryStore enables cross-episode memory.
func WithMemoryStore(m ports.MemoryStore) Option {
	return func(e *Engine) {
		e.memory = m
	}
}

// WithAssetResolver sets how audio references become playable URLs.
func WithAssetResolver(r ports.AssetResolver) Option {
	return func(e *Engine) {
		e.assets = r
	}
}

// WithLocker serialises saves across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithClock replaces the wall clock used for choice windows.
func WithClock(c playback.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithChoiceWindow sets how long a decision waits before the first choice
// is taken.
func WithChoiceWindow(d time.Duration) Option {
	return func(e *Engine) {
		e.window = d
	}
}

// WithFallbackTimestamp sets the choice offset for nodes without one.
func WithFallbackTimestamp(seconds float64) Option {
	return func(e *Engine) {
		e.fallback = seconds
	}
}

// New initializes an Engine over store.
func New(store ports.GraphStore, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("storyline: a graph store is required")
	}
	e := &Engine{
		store:    store,
		window:   playback.DefaultChoiceWindow,
		fallback: playback.DefaultChoiceTimestamp,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	managerOpts := []episodes.Option{episodes.WithLogger(e.logger)}
	if e.locker != nil {
		managerOpts = append(managerOpts, episodes.WithLocker(e.locker))
	}
	e.episodes = episodes.NewManager(store, managerOpts...)
	return e, nil
}

// Episodes returns the authoring manager.
func (e *Engine) Episodes() *episodes.Manager {
	return e.episodes
}

// Open loads an episode graph. Episodes without a document open as a single
// start node.
func (e *Engine) Open(ctx context.Context, seriesID, episodeID string) (*domain.Graph, error) {
	return e.episodes.Open(ctx, seriesID, episodeID)
}

// Save stores g and reports its violations. Violations never block a save.
func (e *Engine) Save(ctx context.Context, seriesID, episodeID string, g *domain.Graph) (*validator.Report, error) {
	return e.episodes.Save(ctx, seriesID, episodeID, g)
}

// Canvas returns the visual projection of an episode.
func (e *Engine) Canvas(ctx context.Context, seriesID, episodeID string) (*authoring.Canvas, error) {
	return e.episodes.Canvas(ctx, seriesID, episodeID)
}

// SaveCanvas stores an edited canvas.
func (e *Engine) SaveCanvas(ctx context.Context, seriesID, episodeID string, c *authoring.Canvas) (*authoring.Result, error) {
	return e.episodes.SaveCanvas(ctx, seriesID, episodeID, c)
}

// Validate checks a graph without storing it.
func (e *Engine) Validate(g *domain.Graph) *validator.Report {
	return validator.Validate(g)
}

// PlayRequest selects what to play and for whom.
type PlayRequest struct {
	SeriesID  string
	EpisodeID string
	// UserID keys cross-episode memory. Empty disables it for this session.
	UserID string
	// SessionID is generated when empty.
	SessionID string
	// Hooks run after the engine's hooks.
	Hooks domain.LifecycleHooks
	// Clock overrides the engine clock for this session.
	Clock playback.Clock
}

// Play loads the episode and starts a playback session. A graph that cannot
// be loaded is a *domain.LoadFailure and no session is created.
func (e *Engine) Play(ctx context.Context, req PlayRequest) (*playback.Controller, error) {
	g, err := e.Open(ctx, req.SeriesID, req.EpisodeID)
	if err != nil {
		return nil, err
	}
	ctrl := e.NewController(g, req)
	if err := ctrl.Start(ctx); err != nil {
		ctrl.Close()
		return nil, err
	}
	return ctrl, nil
}

// PlaybackOptions returns the session settings of the engine: logger,
// choice window, fallback timestamp, clock, assets and memory. Hooks are
// not included.
func (e *Engine) PlaybackOptions() []playback.Option {
	opts := []playback.Option{
		playback.WithLogger(e.logger),
		playback.WithChoiceWindow(e.window),
		playback.WithFallbackTimestamp(e.fallback),
	}
	if e.assets != nil {
		opts = append(opts, playback.WithAssetResolver(e.assets))
	}
	if e.memory != nil {
		opts = append(opts, playback.WithMemoryStore(e.memory))
	}
	if e.clock != nil {
		opts = append(opts, playback.WithClock(e.clock))
	}
	return opts
}

// NewController prepares a session for an already loaded graph without
// starting it.
func (e *Engine) NewController(g *domain.Graph, req PlayRequest) *playback.Controller {
	opts := append(e.PlaybackOptions(),
		playback.WithEpisode(req.SeriesID, req.EpisodeID),
		playback.WithUser(req.UserID),
		playback.WithHooks(observability.Chain(e.hooks, req.Hooks)),
	)
	if req.Clock != nil {
		opts = append(opts, playback.WithClock(req.Clock))
	}
	if req.SessionID != "" {
		opts = append(opts, playback.WithSessionID(req.SessionID))
	}
	return playback.NewController(g, opts...)
}
