package cache

import (
	"context"
	"time"

	"taskboard-api/core/config"
	"taskboard-api/core/constants"
	"taskboard-api/core/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Cache interface {
	// AcquireSyncLease takes the per-user in-flight sync guard. Returns false
	// when another sync for the same user already holds the lease.
	AcquireSyncLease(ctx context.Context, userID uuid.UUID) (bool, error)
	ReleaseSyncLease(ctx context.Context, userID uuid.UUID) error

	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)

	// AddToTokenBlacklist revokes an issued API token. The auth service's
	// logout path is the intended writer; this module only reads the
	// blacklist in the auth middleware.
	AddToTokenBlacklist(ctx context.Context, token string, ttl time.Duration) error

	Ping(ctx context.Context) error
	Close() error
}

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.Info("Redis cache initialized", "addr", cfg.Addr, "db", cfg.DB)
	return &redisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client. Used by tests.
func NewRedisCacheFromClient(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) AcquireSyncLease(ctx context.Context, userID uuid.UUID) (bool, error) {
	key := constants.RedisKeySyncLease + userID.String()
	return c.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), constants.SyncLeaseTTL).Result()
}

func (c *redisCache) ReleaseSyncLease(ctx context.Context, userID uuid.UUID) error {
	key := constants.RedisKeySyncLease + userID.String()
	return c.client.Del(ctx, key).Err()
}

func (c *redisCache) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := c.client.Exists(ctx, constants.RedisKeyTokenBlacklist+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisCache) AddToTokenBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, constants.RedisKeyTokenBlacklist+token, "1", ttl).Err()
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
