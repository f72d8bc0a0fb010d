package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/logger"
)

const redisPingTimeout = 3 * time.Second

// NewRedisClient connects to redis when redis.enabled is set and returns nil
// otherwise
func NewRedisClient(cfg *config.Configuration, logger *logger.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, ierr.WithError(err).
			WithHintf("Could not reach redis at %s", cfg.Redis.Address).
			Mark(ierr.ErrSystem)
	}

	logger.Infow("connected to redis", "address", cfg.Redis.Address, "db", cfg.Redis.DB)
	return client, nil
}
