package episodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wavebound/storyline/internal/logging"
	"github.com/wavebound/storyline/pkg/authoring"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/ports"
	"github.com/wavebound/storyline/pkg/validator"
)

// DefaultLockTTL bounds how long a distributed save lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates episode reads and writes.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.GraphStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	layoutMu sync.RWMutex
	layouts  map[string]authoring.Layout

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the given graph store.
func NewManager(store ports.GraphStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		layouts: make(map[string]authoring.Layout),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func key(seriesID, episodeID string) string {
	return "episode:" + seriesID + ":" + episodeID
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock entry.mu, and then call release(k) after unlocking.
func (m *Manager) acquire(k string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[k]
	if !exists {
		entry = &lockEntry{}
		m.locks[k] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[k]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, k)
	}
}

// Open returns the graph of an episode. A missing document yields the empty
// episode graph; any other store failure is a *domain.LoadFailure.
func (m *Manager) Open(ctx context.Context, seriesID, episodeID string) (*domain.Graph, error) {
	g, err := m.store.Get(ctx, seriesID, episodeID)
	if err == nil {
		return g, nil
	}
	if errors.Is(err, domain.ErrGraphNotFound) {
		m.logger.Debug("episode has no document, starting empty",
			"series_id", seriesID,
			"episode_id", episodeID,
		)
		return domain.NewEmptyGraph(), nil
	}
	return nil, &domain.LoadFailure{SeriesID: seriesID, EpisodeID: episodeID, Err: err}
}

// Save validates g and replaces the stored document. Violations are returned
// alongside a successful save; they never block it.
func (m *Manager) Save(ctx context.Context, seriesID, episodeID string, g *domain.Graph) (*validator.Report, error) {
	g = orEmpty(g)
	report := validator.Validate(g)
	if !report.OK() {
		m.logger.Info("saving episode with violations",
			"series_id", seriesID,
			"episode_id", episodeID,
			"violations", len(report.Violations),
		)
	}

	err := m.WithLock(ctx, seriesID, episodeID, func(ctx context.Context) error {
		return m.store.Put(ctx, seriesID, episodeID, g)
	})
	if err != nil {
		return report, fmt.Errorf("save episode %s/%s: %w", seriesID, episodeID, err)
	}
	return report, nil
}

// Canvas projects the stored episode for the visual editor, reusing the last
// layout saved through SaveCanvas.
func (m *Manager) Canvas(ctx context.Context, seriesID, episodeID string) (*authoring.Canvas, error) {
	g, err := m.Open(ctx, seriesID, episodeID)
	if err != nil {
		return nil, err
	}
	m.layoutMu.RLock()
	layout := m.layouts[key(seriesID, episodeID)]
	m.layoutMu.RUnlock()
	return authoring.ToVisual(g, layout), nil
}

// orEmpty replaces a graph without nodes by the empty episode graph, so a
// saved episode always has a start node to play.
func orEmpty(g *domain.Graph) *domain.Graph {
	if g == nil || len(g.Nodes) == 0 {
		return domain.NewEmptyGraph()
	}
	return g
}

// SaveCanvas flattens an edited canvas and saves the resulting graph. Canvas
// problems and validation findings are reported together. A canvas without
// nodes saves the empty episode graph.
func (m *Manager) SaveCanvas(ctx context.Context, seriesID, episodeID string, c *authoring.Canvas) (*authoring.Result, error) {
	res := authoring.FromVisual(c)
	if len(res.Graph.Nodes) == 0 {
		res.Graph = orEmpty(nil)
	}
	err := m.WithLock(ctx, seriesID, episodeID, func(ctx context.Context) error {
		return m.store.Put(ctx, seriesID, episodeID, res.Graph)
	})
	if err != nil {
		return res, fmt.Errorf("save episode %s/%s: %w", seriesID, episodeID, err)
	}

	m.layoutMu.Lock()
	m.layouts[key(seriesID, episodeID)] = res.Layout
	m.layoutMu.Unlock()
	return res, nil
}

// List returns the episodes of a series when the store can enumerate them.
func (m *Manager) List(ctx context.Context, seriesID string) ([]string, error) {
	lister, ok := m.store.(ports.EpisodeLister)
	if !ok {
		return nil, fmt.Errorf("store %T cannot list episodes", m.store)
	}
	return lister.List(ctx, seriesID)
}

// WithLock executes fn while holding the lock for the episode.
func (m *Manager) WithLock(ctx context.Context, seriesID, episodeID string, fn func(context.Context) error) error {
	k := key(seriesID, episodeID)
	entry := m.acquire(k)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(k)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, k, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"episode", k,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
