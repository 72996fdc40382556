package episodes_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavebound/storyline/pkg/adapters/memory"
	"github.com/wavebound/storyline/pkg/adapters/redis"
	"github.com/wavebound/storyline/pkg/authoring"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/episodes"
)

func sampleGraph() *domain.Graph {
	return &domain.Graph{
		Nodes: []domain.Node{
			{ID: "start", Kind: domain.NodeKindStart, AudioRef: "intro.mp3", NextID: "fork"},
			{ID: "fork", AudioRef: "fork.mp3", Choices: []domain.Choice{
				{ID: "left", Text: "Left", LeadsToNodeID: "end"},
				{ID: "right", Text: "Right", LeadsToNodeID: "end"},
			}},
			{ID: "end", AudioRef: "end.mp3"},
		},
	}
}

// slowStore simulates IO latency and counts overlapping writes.
type slowStore struct {
	*memory.Store
	mu      sync.Mutex
	active  int
	overlap bool
}

func (s *slowStore) Put(ctx context.Context, seriesID, episodeID string, g *domain.Graph) error {
	s.mu.Lock()
	s.active++
	if s.active > 1 {
		s.overlap = true
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	return s.Store.Put(ctx, seriesID, episodeID, g)
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string, string) (*domain.Graph, error) {
	return nil, f.err
}

func (f failingStore) Put(context.Context, string, string, *domain.Graph) error {
	return f.err
}

func TestManager_OpenMissingEpisodeIsEmptyGraph(t *testing.T) {
	m := episodes.NewManager(memory.NewStore())

	g, err := m.Open(context.Background(), "saga", "ep1")
	require.NoError(t, err)
	assert.Equal(t, domain.NewEmptyGraph(), g)
}

func TestManager_OpenStoreFailureIsLoadFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	m := episodes.NewManager(failingStore{err: boom})

	_, err := m.Open(context.Background(), "saga", "ep1")
	var lf *domain.LoadFailure
	require.ErrorAs(t, err, &lf)
	assert.Equal(t, "ep1", lf.EpisodeID)
	assert.ErrorIs(t, err, boom)
}

func TestManager_SaveKeepsInvalidGraphs(t *testing.T) {
	m := episodes.NewManager(memory.NewStore())
	ctx := context.Background()

	g := sampleGraph()
	g.Nodes[1].Choices[1].LeadsToNodeID = "ghost"

	report, err := m.Save(ctx, "saga", "ep1", g)
	require.NoError(t, err)
	assert.True(t, report.Has(domain.CodeDanglingChoice))

	loaded, err := m.Open(ctx, "saga", "ep1")
	require.NoError(t, err)
	assert.Equal(t, "ghost", loaded.Nodes[1].Choices[1].LeadsToNodeID)
}

func TestManager_SaveSerialisesWrites(t *testing.T) {
	store := &slowStore{Store: memory.NewStore()}
	m := episodes.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Save(ctx, "saga", "ep1", sampleGraph())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, store.overlap, "saves of one episode must not overlap")
}

func TestManager_CanvasRoundTrip(t *testing.T) {
	m := episodes.NewManager(memory.NewStore())
	ctx := context.Background()
	_, err := m.Save(ctx, "saga", "ep1", sampleGraph())
	require.NoError(t, err)

	c, err := m.Canvas(ctx, "saga", "ep1")
	require.NoError(t, err)
	require.Len(t, c.Nodes, 3)

	c.Nodes[2].Position = authoring.Position{X: 999, Y: 42}
	c.Nodes[2].Data.Title = "Finale"
	res, err := m.SaveCanvas(ctx, "saga", "ep1", c)
	require.NoError(t, err)
	assert.Empty(t, res.Violations)

	again, err := m.Canvas(ctx, "saga", "ep1")
	require.NoError(t, err)
	assert.Equal(t, authoring.Position{X: 999, Y: 42}, again.Nodes[2].Position)
	assert.Equal(t, "Finale", again.Nodes[2].Data.Title)
}

func TestManager_EmptySavesSynthesiseStartNode(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := episodes.NewManager(store)
	want := domain.NewEmptyGraph()

	_, err := m.Save(ctx, "saga", "nil", nil)
	require.NoError(t, err)
	_, err = m.Save(ctx, "saga", "bare", &domain.Graph{})
	require.NoError(t, err)
	res, err := m.SaveCanvas(ctx, "saga", "canvas", &authoring.Canvas{})
	require.NoError(t, err)
	assert.Equal(t, want, res.Graph)
	_, err = m.SaveCanvas(ctx, "saga", "nil-canvas", nil)
	require.NoError(t, err)

	for _, ep := range []string{"nil", "bare", "canvas", "nil-canvas"} {
		g, err := store.Get(ctx, "saga", ep)
		require.NoError(t, err, ep)
		require.Len(t, g.Nodes, 1, ep)
		assert.Equal(t, want.Nodes[0].ID, g.Nodes[0].ID, ep)
		assert.Equal(t, domain.NodeKindStart, g.Nodes[0].Kind, ep)
	}
}

func TestManager_List(t *testing.T) {
	m := episodes.NewManager(memory.NewStore())
	ctx := context.Background()
	for _, id := range []string{"ep2", "ep1"} {
		_, err := m.Save(ctx, "saga", id, sampleGraph())
		require.NoError(t, err)
	}

	ids, err := m.List(ctx, "saga")
	require.NoError(t, err)
	assert.Equal(t, []string{"ep1", "ep2"}, ids)

	_, err = episodes.NewManager(failingStore{}).List(ctx, "saga")
	assert.Error(t, err)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := redis.NewLocker(client, "storyline:")
	m := episodes.NewManager(memory.NewStore(), episodes.WithLocker(locker), episodes.WithLockTTL(time.Second))
	ctx := context.Background()

	err := m.WithLock(ctx, "saga", "ep1", func(ctx context.Context) error {
		assert.NotEmpty(t, mr.Keys())
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys(), "lock must be released")
}
