package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavebound/storyline/pkg/adapters/redis"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/ports"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newStore(t)
	ports.RunGraphStoreContract(t, store)
}

func TestRedisStore_MemoryContract(t *testing.T) {
	store, _ := newStore(t)
	ports.RunMemoryStoreContract(t, store)
}

func TestRedisStore_Prefix(t *testing.T) {
	store, mr := newStore(t, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "saga", "ep1", domain.NewEmptyGraph()))
	require.NoError(t, store.MergeFlags(ctx, "saga", "u1", []string{"a"}))

	assert.True(t, mr.Exists("custom:app:graph:saga:ep1"))
	assert.True(t, mr.Exists("custom:app:episodes:saga"))
	assert.True(t, mr.Exists("custom:app:memory:saga:u1"))
}

func TestRedisStore_MemoryTTL(t *testing.T) {
	store, mr := newStore(t, redis.WithMemoryTTL(time.Hour))
	ctx := context.Background()
	require.NoError(t, store.MergeFlags(ctx, "saga", "u1", []string{"a"}))

	mr.FastForward(2 * time.Hour)

	flags, err := store.LoadFlags(ctx, "saga", "u1")
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestRedisStore_CorruptDocument(t *testing.T) {
	store, mr := newStore(t)
	require.NoError(t, mr.Set("storyline:graph:saga:bad", "{not json"))

	_, err := store.Get(context.Background(), "saga", "bad")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestRedisStore_Unreachable(t *testing.T) {
	store, mr := newStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "saga", "ep1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrGraphNotFound)
}
