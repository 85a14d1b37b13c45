package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"hitunghpp/backend/internal/domain"
)

func NewRedisClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

type RedisSettingsCache struct {
	client *redis.Client
}

func NewRedisSettingsCache(client *redis.Client) *RedisSettingsCache {
	return &RedisSettingsCache{client: client}
}

func (c *RedisSettingsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client exposes the underlying connection so the SKU locker can share it.
func (c *RedisSettingsCache) Client() *redis.Client {
	return c.client
}

func (c *RedisSettingsCache) Close() error {
	return c.client.Close()
}

func (c *RedisSettingsCache) GetDecimalSettings(ctx context.Context, businessID string) (*domain.DecimalSettings, bool, error) {
	val, err := c.client.Get(ctx, decimalSettingsKey(businessID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var settings domain.DecimalSettings
	if err := json.Unmarshal([]byte(val), &settings); err != nil {
		return nil, false, err
	}
	return &settings, true, nil
}

func (c *RedisSettingsCache) SetDecimalSettings(ctx context.Context, value domain.DecimalSettings, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, decimalSettingsKey(value.BusinessID), payload, ttl).Err()
}

func (c *RedisSettingsCache) DeleteDecimalSettings(ctx context.Context, businessID string) error {
	return c.client.Del(ctx, decimalSettingsKey(businessID)).Err()
}
