package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wavebound/storyline/internal/config"
	"github.com/wavebound/storyline/pkg/adapters/assets"
	"github.com/wavebound/storyline/pkg/adapters/file"
	"github.com/wavebound/storyline/pkg/adapters/memory"
	"github.com/wavebound/storyline/pkg/adapters/redis"
	"github.com/wavebound/storyline/pkg/adapters/sqlite"
	"github.com/wavebound/storyline/pkg/ports"
)

// Stores bundles the persistence adapters selected by configuration.
type Stores struct {
	Graphs ports.GraphStore
	Memory ports.MemoryStore
	// Locker is set for backends shared between processes.
	Locker ports.DistributedLocker

	closers []func() error
}

// Close releases backend connections.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStores builds the graph and memory stores for cfg.Store.
func OpenStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	switch cfg.Store {
	case config.StoreMemory:
		s := memory.NewStore()
		return &Stores{Graphs: s, Memory: s}, nil

	case config.StoreFile, "":
		s := file.New(cfg.DataDir)
		return &Stores{Graphs: s, Memory: s}, nil

	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Stores{Graphs: s, Memory: s, closers: []func() error{s.Close}}, nil

	case config.StoreRedis:
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithPrefix(cfg.RedisPrefix))
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := s.Client().Ping(pingCtx).Err(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return &Stores{
			Graphs:  s,
			Memory:  s,
			Locker:  redis.NewLocker(s.Client(), s.Prefix()),
			closers: []func() error{s.Close},
		}, nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// NewAssetResolver picks a resolver from configuration. A base URL wins over
// a directory; with neither, references are used as URLs.
func NewAssetResolver(cfg config.Config) (ports.AssetResolver, error) {
	switch {
	case cfg.AssetBaseURL != "":
		r, err := assets.NewURLResolver(cfg.AssetBaseURL)
		if err != nil {
			return nil, err
		}
		return r, nil
	case cfg.AssetDir != "":
		return assets.NewDirResolver(cfg.AssetDir), nil
	}
	return nil, nil
}
