package cli

import (
	"log/slog"

	"github.com/wavebound/storyline"
	"github.com/wavebound/storyline/internal/config"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/observability"
)

// NewEngine wires an engine over the configured stores. Every session logs
// its lifecycle through logger in addition to hooks.
func NewEngine(cfg config.Config, stores *Stores, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*storyline.Engine, error) {
	resolver, err := NewAssetResolver(cfg)
	if err != nil {
		return nil, err
	}

	all := append([]domain.LifecycleHooks{observability.LogHooks(logger)}, hooks...)
	opts := []storyline.Option{
		storyline.WithLogger(logger),
		storyline.WithLifecycleHooks(observability.Chain(all...)),
		storyline.WithChoiceWindow(cfg.ChoiceWindow),
		storyline.WithFallbackTimestamp(cfg.FallbackTimestamp),
	}
	if stores.Memory != nil {
		opts = append(opts, storyline.WithMemoryStore(stores.Memory))
	}
	if stores.Locker != nil {
		opts = append(opts, storyline.WithLocker(stores.Locker))
	}
	if resolver != nil {
		opts = append(opts, storyline.WithAssetResolver(resolver))
	}
	return storyline.New(stores.Graphs, opts...)
}
