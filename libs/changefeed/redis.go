package changefeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisFeed fans changes out across service instances with Redis pub/sub.
// Delivery is at-most-once; displays re-fetch on reconnect.
type RedisFeed struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRedisFeed(rdb *redis.Client, logger *slog.Logger) *RedisFeed {
	return &RedisFeed{rdb: rdb, logger: logger}
}

// New returns a Redis backed feed, or an in-process one when rdb is nil.
func New(rdb *redis.Client, logger *slog.Logger) Feed {
	if rdb == nil {
		return NewMemoryFeed()
	}
	return NewRedisFeed(rdb, logger)
}

func (f *RedisFeed) Publish(ctx context.Context, c Change) error {
	body, err := encode(c)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, channel(c.BusinessID, c.Table), body).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, businessID, table string, fn func(Change)) (func(), error) {
	sub := f.rdb.Subscribe(ctx, channel(businessID, table))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
		})
	}

	go func() {
		defer stop()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					f.logger.Warn("changefeed: bad payload", "channel", msg.Channel, "err", err)
					continue
				}
				fn(c)
			}
		}
	}()
	return stop, nil
}
