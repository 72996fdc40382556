// Package redis stores episode graphs and cross-episode memory in Redis and
// provides a distributed lock for authoring saves.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/wavebound/storyline/pkg/domain"
)

// Store implements ports.GraphStore and ports.MemoryStore using Redis.
//
// Keys: <prefix>graph:<series>:<episode> holds the graph JSON,
// <prefix>episodes:<series> is a ZSET index scored by last save time and
// <prefix>memory:<series>:<user> is a SET of flags.
type Store struct {
	client    *backend.Client
	prefix    string
	memoryTTL time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithMemoryTTL expires a user's series memory after a period without new
// flags. Zero keeps it forever.
func WithMemoryTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.memoryTTL = ttl
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "storyline:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to build a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the key prefix in use.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) graphKey(seriesID, episodeID string) string {
	return s.prefix + "graph:" + seriesID + ":" + episodeID
}

func (s *Store) indexKey(seriesID string) string {
	return s.prefix + "episodes:" + seriesID
}

func (s *Store) memoryKey(seriesID, userID string) string {
	return s.prefix + "memory:" + seriesID + ":" + userID
}

// Get loads the graph of an episode.
func (s *Store) Get(ctx context.Context, seriesID, episodeID string) (*domain.Graph, error) {
	val, err := s.client.Get(ctx, s.graphKey(seriesID, episodeID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrGraphNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var g domain.Graph
	if err := json.Unmarshal(val, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &g, nil
}

// Put replaces the graph and records the episode in the series index.
func (s *Store) Put(ctx context.Context, seriesID, episodeID string, g *domain.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.graphKey(seriesID, episodeID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(seriesID), backend.Z{
		Score:  float64(time.Now().Unix()),
		Member: episodeID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// List returns the episode ids of a series, sorted by id.
func (s *Store) List(ctx context.Context, seriesID string) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(seriesID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadFlags returns the flags a user has reached in a series, sorted.
func (s *Store) LoadFlags(ctx context.Context, seriesID, userID string) ([]string, error) {
	flags, err := s.client.SMembers(ctx, s.memoryKey(seriesID, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	sort.Strings(flags)
	return flags, nil
}

// MergeFlags adds flags to the user's set.
func (s *Store) MergeFlags(ctx context.Context, seriesID, userID string, flags []string) error {
	members := make([]any, 0, len(flags))
	for _, f := range flags {
		if f != "" {
			members = append(members, f)
		}
	}
	if len(members) == 0 {
		return nil
	}

	key := s.memoryKey(seriesID, userID)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	if s.memoryTTL > 0 {
		pipe.Expire(ctx, key, s.memoryTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to merge memory: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
