package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavebound/storyline/pkg/domain"
)

func contractGraph(title string) *domain.Graph {
	return &domain.Graph{
		StartNodeID: "start",
		Nodes: []domain.Node{
			{ID: "start", Kind: domain.NodeKindStart, Title: title, AudioRef: "intro.mp3", NextID: "fork"},
			{
				ID: "fork", AudioRef: "fork.mp3", Timestamp: domain.Seconds(12.5),
				Choices: []domain.Choice{
					{ID: "left", Text: "Left", LeadsToNodeID: "end"},
					{ID: "right", Text: "Right", LeadsToNodeID: "end"},
				},
			},
			{ID: "end", SetsFlags: []string{"finished"}, RequiredFlags: []string{"finished"}},
		},
	}
}

// RunGraphStoreContract runs a suite of tests to verify that a GraphStore
// implementation adheres to the defined interface contract.
func RunGraphStoreContract(t *testing.T, store GraphStore) {
	ctx := context.Background()
	series := "contract-series-" + time.Now().Format("20060102150405")

	t.Run("Put and Get", func(t *testing.T) {
		g := contractGraph("Opening")
		require.NoError(t, store.Put(ctx, series, "ep1", g))

		loaded, err := store.Get(ctx, series, "ep1")
		require.NoError(t, err)
		assert.Equal(t, g, loaded)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, series, "missing")
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("Put Replaces Whole Document", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, series, "ep2", contractGraph("First")))

		smaller := &domain.Graph{Nodes: []domain.Node{{ID: "only", Title: "Second"}}}
		require.NoError(t, store.Put(ctx, series, "ep2", smaller))

		loaded, err := store.Get(ctx, series, "ep2")
		require.NoError(t, err)
		assert.Equal(t, smaller, loaded)
	})

	t.Run("Stored Copy Is Isolated", func(t *testing.T) {
		g := contractGraph("Original")
		require.NoError(t, store.Put(ctx, series, "ep3", g))
		g.Nodes[0].Title = "Mutated after put"

		loaded, err := store.Get(ctx, series, "ep3")
		require.NoError(t, err)
		assert.Equal(t, "Original", loaded.Nodes[0].Title)

		loaded.Nodes[0].Title = "Mutated after get"
		again, err := store.Get(ctx, series, "ep3")
		require.NoError(t, err)
		assert.Equal(t, "Original", again.Nodes[0].Title)
	})

	if lister, ok := store.(EpisodeLister); ok {
		t.Run("List", func(t *testing.T) {
			listSeries := series + "-list"
			for i := 3; i >= 1; i-- {
				require.NoError(t, store.Put(ctx, listSeries, fmt.Sprintf("ep%d", i), contractGraph("x")))
			}
			require.NoError(t, store.Put(ctx, listSeries+"-other", "ep9", contractGraph("x")))

			ids, err := lister.List(ctx, listSeries)
			require.NoError(t, err)
			assert.Equal(t, []string{"ep1", "ep2", "ep3"}, ids)

			empty, err := lister.List(ctx, series+"-nothing")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

// RunMemoryStoreContract verifies the cross-episode memory contract.
func RunMemoryStoreContract(t *testing.T, store MemoryStore) {
	ctx := context.Background()
	series := "contract-series-" + time.Now().Format("20060102150405")

	t.Run("Unknown User Has No Flags", func(t *testing.T) {
		flags, err := store.LoadFlags(ctx, series, "nobody")
		require.NoError(t, err)
		assert.Empty(t, flags)
	})

	t.Run("Merge Is A Set Union", func(t *testing.T) {
		require.NoError(t, store.MergeFlags(ctx, series, "u1", []string{"met_wizard", "brave"}))
		require.NoError(t, store.MergeFlags(ctx, series, "u1", []string{"met_wizard", "lost_key"}))

		flags, err := store.LoadFlags(ctx, series, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"brave", "lost_key", "met_wizard"}, flags)
	})

	t.Run("Keys Are Isolated", func(t *testing.T) {
		require.NoError(t, store.MergeFlags(ctx, series, "u2", []string{"a"}))
		require.NoError(t, store.MergeFlags(ctx, series+"-other", "u2", []string{"b"}))

		flags, err := store.LoadFlags(ctx, series, "u2")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, flags)
	})

	t.Run("Empty Merge", func(t *testing.T) {
		require.NoError(t, store.MergeFlags(ctx, series, "u3", nil))
		flags, err := store.LoadFlags(ctx, series, "u3")
		require.NoError(t, err)
		assert.Empty(t, flags)
	})
}
