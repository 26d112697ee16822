package factory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liquidnya/eventsource/internal/circuitbreaker"
	"github.com/liquidnya/eventsource/internal/config"
	"github.com/liquidnya/eventsource/internal/storage"
	"github.com/liquidnya/eventsource/internal/storage/memory"
	redisstore "github.com/liquidnya/eventsource/internal/storage/redis"
	"github.com/liquidnya/eventsource/pkg/errors"
)

// CreateCheckpointStore creates the configured checkpoint store. It returns
// nil when checkpoints are disabled.
func CreateCheckpointStore(ctx context.Context, cfg *config.Checkpoint, logger *slog.Logger) (storage.CheckpointStore, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil

	case "memory":
		logger.Info("Using in-memory checkpoint store")
		return memory.NewStore(cfg.ToStoreConfig()), nil

	case "redis":
		client, err := CreateRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info("Using Redis checkpoint store", "addr", cfg.Redis.Addr)

		breakerCfg := cfg.Breaker.ToBreakerConfig()
		breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
			logger.Warn("Checkpoint store circuit changed", "from", from.String(), "to", to.String())
		}
		store := redisstore.NewStore(redisstore.NewClientAdapter(client), cfg.ToStoreConfig())
		return storage.NewGuarded(store, circuitbreaker.New(breakerCfg)), nil

	default:
		return nil, errors.NewError(errors.ErrorTypeBadRequest, fmt.Sprintf("unknown checkpoint type: %s", cfg.Type))
	}
}

// CreateRedisClient creates a Redis client and checks that it is reachable
func CreateRedisClient(ctx context.Context, cfg *config.Redis) (*redis.Client, error) {
	if cfg == nil {
		return nil, errors.NewError(errors.ErrorTypeInternal, "Redis configuration is nil")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.NewError(errors.ErrorTypeUnavailable, "failed to connect to Redis").
			WithCause(err).
			WithDetail("addr", cfg.Addr)
	}

	return client, nil
}
