package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/morrigan/wyrmhold/internal/runner"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Feed publishes agent activity to per-wallet Redis Streams so
// spectators can follow agents live without touching the database.
type Feed struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// New creates a Redis-backed activity feed.
func New(redisURL string, logger *zap.Logger) (*Feed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Feed{rdb: rdb, logger: logger}, nil
}

const streamPrefix = "wyrmhold:activity:"

// maxStreamLen caps each wallet's stream; spectators only need the
// recent tail, the database keeps the full history.
const maxStreamLen = 1000

// Publish appends an activity entry to the wallet's stream.
func (f *Feed) Publish(ctx context.Context, wallet string, entry runner.ActivityEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	stream := streamPrefix + wallet
	_, err = f.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}

	f.logger.Debug("published activity",
		zap.String("wallet", wallet),
		zap.String("role", entry.Role))
	return nil
}

// Subscribe listens for a wallet's activity entries. Returns a channel
// that emits entries appended after the subscription starts. Cancel the
// context to stop.
func (f *Feed) Subscribe(ctx context.Context, wallet string) <-chan runner.ActivityEntry {
	ch := make(chan runner.ActivityEntry, 16)
	stream := streamPrefix + wallet

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := f.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   10,
				Block:   2 * time.Second,
			}).Result()

			if err == redis.Nil {
				// Block window elapsed with no entries.
				continue
			}
			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return
				}
				// Redis may be down for a while; don't hot-spin.
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var entry runner.ActivityEntry
					if json.Unmarshal([]byte(data), &entry) == nil {
						ch <- entry
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (f *Feed) Close() error {
	return f.rdb.Close()
}
