package ports

import (
	"context"

	"github.com/wavebound/storyline/pkg/domain"
)

// GraphStore persists episode graphs as whole documents.
type GraphStore interface {
	// Get returns the graph of an episode.
	// Returns domain.ErrGraphNotFound if the episode has no document.
	Get(ctx context.Context, seriesID, episodeID string) (*domain.Graph, error)

	// Put replaces the whole graph of an episode. No partial updates.
	Put(ctx context.Context, seriesID, episodeID string, g *domain.Graph) error
}

// EpisodeLister is implemented by stores that can enumerate episodes.
type EpisodeLister interface {
	// List returns the ids of the episodes stored for a series, sorted.
	List(ctx context.Context, seriesID string) ([]string, error)
}

// MemoryStore keeps flags reached by a user across the episodes of a series.
type MemoryStore interface {
	// LoadFlags returns the flags recorded so far. Unknown keys yield no flags.
	LoadFlags(ctx context.Context, seriesID, userID string) ([]string, error)

	// MergeFlags adds flags to the stored set.
	MergeFlags(ctx context.Context, seriesID, userID string, flags []string) error
}

// AssetResolver maps an audio reference to a playable URL.
type AssetResolver interface {
	// Resolve returns a URL or an error wrapping domain.ErrAssetUnavailable.
	Resolve(ctx context.Context, ref string) (string, error)
}

// AssetResolverFunc adapts a function to AssetResolver.
type AssetResolverFunc func(ctx context.Context, ref string) (string, error)

// Resolve calls f.
func (f AssetResolverFunc) Resolve(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}
