package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	redis "github.com/redis/go-redis/v9"
)

var ErrLockNotObtained = errors.New("lock not obtained")

// Locker serializes SKU allocation across processes sharing one
// database. The repository counter stays the source of truth.
type Locker interface {
	LockSku(ctx context.Context, businessID string, kind string) (release func(context.Context) error, err error)
}

type NoopLocker struct{}

func (NoopLocker) LockSku(_ context.Context, _ string, _ string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(client),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	}
}

func (l *RedisLocker) LockSku(ctx context.Context, businessID string, kind string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, skuLockKey(businessID, kind), l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}
