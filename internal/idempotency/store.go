package idempotency

import (
	"context"
	"time"

	goCache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/wealthhorizon/paybridge/internal/cache"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/logger"
)

// Store remembers which keys have been processed. Claim is atomic: of any
// number of concurrent claims for one key exactly one returns true.
type Store interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// NewStore returns a redis backed store when a client is available and an
// in-memory one otherwise
func NewStore(client *redis.Client, cfg *config.Configuration, logger *logger.Logger) Store {
	if client != nil {
		logger.Infow("using redis for webhook dedupe")
		return NewRedisStore(client)
	}
	return NewInMemoryStore(cfg.Webhook.DedupeTTL)
}

// RedisStore shares dedupe state across replicas
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, cache.PrefixWebhook+key, time.Now().UTC().Unix(), ttl).Result()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Could not record webhook delivery").
			Mark(ierr.ErrSystem)
	}
	return ok, nil
}

// InMemoryStore is the single replica fallback
type InMemoryStore struct {
	cache *goCache.Cache
}

func NewInMemoryStore(defaultTTL time.Duration) *InMemoryStore {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &InMemoryStore{cache: goCache.New(defaultTTL, 10*time.Minute)}
}

func (s *InMemoryStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = goCache.DefaultExpiration
	}
	// Add fails when the key already exists
	if err := s.cache.Add(cache.PrefixWebhook+key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}
