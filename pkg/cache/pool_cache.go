package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/roster-optimizer/internal/models"
)

const keyPrefix = "pool:"

// ErrCacheMiss is returned when no scored pool is stored under a key.
var ErrCacheMiss = errors.New("scored pool not found in cache")

// PoolCacheService caches scored player pools. Only the input table is
// cached; solves are never cached.
type PoolCacheService struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewPoolCacheService creates a new pool cache service
func NewPoolCacheService(client *redis.Client, logger *logrus.Logger) *PoolCacheService {
	return &PoolCacheService{
		client: client,
		logger: logger,
	}
}

// PoolKey builds the cache key for a pool source and scoring version.
func PoolKey(source, version string) string {
	return fmt.Sprintf("%s:%s", source, version)
}

// GetPool retrieves a scored pool
func (c *PoolCacheService) GetPool(ctx context.Context, key string) ([]models.ScoredPlayer, error) {
	fullKey := keyPrefix + key
	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get scored pool from cache: %w", err)
	}

	var pool []models.ScoredPlayer
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scored pool: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key": fullKey,
		"players":   len(pool),
	}).Debug("Retrieved scored pool from cache")

	return pool, nil
}

// SetPool stores a scored pool
func (c *PoolCacheService) SetPool(ctx context.Context, key string, pool []models.ScoredPlayer, expiration time.Duration) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("failed to marshal scored pool: %w", err)
	}

	fullKey := keyPrefix + key
	if err := c.client.Set(ctx, fullKey, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set scored pool in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  fullKey,
		"expiration": expiration,
		"players":    len(pool),
	}).Debug("Cached scored pool")

	return nil
}

// Ping reports whether redis is reachable
func (c *PoolCacheService) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
