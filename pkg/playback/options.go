package playback

import (
	"log/slog"
	"time"

	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/ports"
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock, typically with a FakeClock in tests.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithChoiceWindow sets how long choices wait before the first one is
// picked automatically.
func WithChoiceWindow(d time.Duration) Option {
	return func(c *Controller) {
		c.settings.ChoiceWindow = d
	}
}

// WithFallbackTimestamp sets the choice offset, in seconds, for nodes
// without a timestamp.
func WithFallbackTimestamp(seconds float64) Option {
	return func(c *Controller) {
		c.settings.FallbackTimestamp = seconds
	}
}

// WithAssetResolver configures how audio references become URLs. Without a
// resolver the reference is used as the URL.
func WithAssetResolver(r ports.AssetResolver) Option {
	return func(c *Controller) {
		c.assets = r
	}
}

// WithMemoryStore enables cross-episode memory. It only takes effect for
// sessions with a series and a user.
func WithMemoryStore(store ports.MemoryStore) Option {
	return func(c *Controller) {
		c.memory = store
	}
}

// WithHooks registers lifecycle callbacks. Hooks run while the controller
// processes an event and must not call back into it synchronously.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger configures a logger for the Controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.session.ID = id
	}
}

// WithEpisode tags the session with the episode it plays.
func WithEpisode(seriesID, episodeID string) Option {
	return func(c *Controller) {
		c.session.SeriesID = seriesID
		c.session.EpisodeID = episodeID
	}
}

// WithUser tags the session with the listening user.
func WithUser(userID string) Option {
	return func(c *Controller) {
		c.session.UserID = userID
	}
}
