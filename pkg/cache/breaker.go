package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/roster-optimizer/internal/models"
)

// Store is the pool cache contract guarded by BreakerPoolCache.
type Store interface {
	GetPool(ctx context.Context, key string) ([]models.ScoredPlayer, error)
	SetPool(ctx context.Context, key string, pool []models.ScoredPlayer, expiration time.Duration) error
}

// BreakerPoolCache stops calling an unhealthy cache until timeout elapses.
// Misses are not failures.
type BreakerPoolCache struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerPoolCache wraps inner with a circuit breaker that opens after
// threshold consecutive failures.
func NewBreakerPoolCache(inner Store, threshold int, timeout time.Duration, logger *logrus.Logger) *BreakerPoolCache {
	if threshold < 1 {
		threshold = 1
	}

	settings := gobreaker.Settings{
		Name:        "pool-cache",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &BreakerPoolCache{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerPoolCache) GetPool(ctx context.Context, key string) ([]models.ScoredPlayer, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.GetPool(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	pool, _ := result.([]models.ScoredPlayer)
	return pool, nil
}

func (b *BreakerPoolCache) SetPool(ctx context.Context, key string, pool []models.ScoredPlayer, expiration time.Duration) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.inner.SetPool(ctx, key, pool, expiration)
	})
	return err
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *BreakerPoolCache) State() string {
	return b.breaker.State().String()
}
