package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Open parses a redis:// URL and pings the server. An empty URL yields a nil
// client; callers fall back to in-process implementations in that case.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}

// Locker hands out short-lived Redis locks. A nil *Locker is valid and
// grants every lock immediately, for deployments without Redis.
type Locker struct {
	client *redislock.Client
}

var ErrLockBusy = errors.New("lock is held by another request")

func NewLocker(rdb *redis.Client) *Locker {
	if rdb == nil {
		return nil
	}
	return &Locker{client: redislock.New(rdb)}
}

// Obtain waits up to ttl for key and returns its release func.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	backoff := redislock.LimitRetry(redislock.LinearBackoff(25*time.Millisecond), int(ttl/(25*time.Millisecond)))
	return l.obtain(ctx, key, ttl, backoff)
}

// TryObtain claims key without waiting.
func (l *Locker) TryObtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	return l.obtain(ctx, key, ttl, redislock.NoRetry())
}

func (l *Locker) obtain(ctx context.Context, key string, ttl time.Duration, retry redislock.RetryStrategy) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockBusy
	}
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release(context.WithoutCancel(ctx)) }, nil
}
