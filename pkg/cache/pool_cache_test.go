package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/roster-optimizer/internal/models"
)

func TestPoolKey(t *testing.T) {
	assert.Equal(t, "csv:v1", PoolKey("csv", "v1"))
	assert.Equal(t, "database:v2", PoolKey("database", "v2"))
}

// Nothing listens on port 1, so every command fails fast with a dial error.
func TestPoolCache_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	svc := NewPoolCacheService(client, logrus.New())
	ctx := context.Background()

	_, err := svc.GetPool(ctx, PoolKey("csv", "v1"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))

	assert.Error(t, svc.SetPool(ctx, "csv:v1", nil, time.Minute))
	assert.Error(t, svc.Ping(ctx))
}

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) GetPool(context.Context, string) ([]models.ScoredPlayer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []models.ScoredPlayer{{Player: models.Player{Name: "Cached"}}}, nil
}

func (f *flakyStore) SetPool(context.Context, string, []models.ScoredPlayer, time.Duration) error {
	f.calls++
	return f.err
}

func TestBreakerPoolCache_OpensAfterFailures(t *testing.T) {
	store := &flakyStore{err: errors.New("i/o timeout")}
	cache := NewBreakerPoolCache(store, 2, time.Hour, logrus.New())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cache.GetPool(ctx, "csv:v1")
		require.Error(t, err)
	}
	assert.Equal(t, "open", cache.State())

	_, err := cache.GetPool(ctx, "csv:v1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, cache.SetPool(ctx, "csv:v1", nil, time.Minute), gobreaker.ErrOpenState)
	assert.Equal(t, 2, store.calls)
}

func TestBreakerPoolCache_MissIsNotAFailure(t *testing.T) {
	store := &flakyStore{err: ErrCacheMiss}
	cache := NewBreakerPoolCache(store, 1, time.Hour, logrus.New())

	for i := 0; i < 3; i++ {
		_, err := cache.GetPool(context.Background(), "csv:v1")
		assert.ErrorIs(t, err, ErrCacheMiss)
	}
	assert.Equal(t, "closed", cache.State())

	store.err = nil
	pool, err := cache.GetPool(context.Background(), "csv:v1")
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, "Cached", pool[0].Name)
}
