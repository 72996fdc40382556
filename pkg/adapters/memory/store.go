package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wavebound/storyline/pkg/domain"
)

// Store implements ports.GraphStore and ports.MemoryStore in memory.
// Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	graphs map[string]map[string]*domain.Graph
	flags  map[string]map[string]bool
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		graphs: make(map[string]map[string]*domain.Graph),
		flags:  make(map[string]map[string]bool),
	}
}

// Get returns a copy of the stored graph.
func (s *Store) Get(ctx context.Context, seriesID, episodeID string) (*domain.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.graphs[seriesID][episodeID]
	if !ok {
		return nil, domain.ErrGraphNotFound
	}
	// Copy on read so callers can't mutate stored graphs by pointer.
	return g.Clone(), nil
}

// Put stores a copy of the graph.
func (s *Store) Put(ctx context.Context, seriesID, episodeID string, g *domain.Graph) error {
	copied := g.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graphs[seriesID] == nil {
		s.graphs[seriesID] = make(map[string]*domain.Graph)
	}
	s.graphs[seriesID][episodeID] = copied
	return nil
}

// List returns the episode ids of a series, sorted.
func (s *Store) List(ctx context.Context, seriesID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.graphs[seriesID]))
	for id := range s.graphs[seriesID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func memoryKey(seriesID, userID string) string {
	return seriesID + "\x00" + userID
}

// LoadFlags returns the flags a user has reached in a series, sorted.
func (s *Store) LoadFlags(ctx context.Context, seriesID, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.flags[memoryKey(seriesID, userID)]
	if len(set) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// MergeFlags adds flags to the user's set.
func (s *Store) MergeFlags(ctx context.Context, seriesID, userID string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(seriesID, userID)
	if s.flags[key] == nil {
		s.flags[key] = make(map[string]bool)
	}
	for _, f := range flags {
		if f != "" {
			s.flags[key][f] = true
		}
	}
	return nil
}
