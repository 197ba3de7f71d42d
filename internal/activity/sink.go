package activity

import (
	"context"
	"time"

	"github.com/morrigan/wyrmhold/internal/feed"
	"github.com/morrigan/wyrmhold/internal/runner"
	"github.com/morrigan/wyrmhold/internal/store"
	"go.uber.org/zap"
)

// Sink fans activity entries out to the durable log and the spectator
// feed. The database write is authoritative; a feed hiccup is logged and
// dropped so a Redis blip never stalls an agent's tick.
type Sink struct {
	store  *store.Store
	feed   *feed.Feed
	logger *zap.Logger
}

// NewSink creates an activity sink. feed may be nil when running without
// Redis.
func NewSink(st *store.Store, fd *feed.Feed, logger *zap.Logger) *Sink {
	return &Sink{store: st, feed: fd, logger: logger}
}

// Record implements runner.ActivitySink.
func (s *Sink) Record(ctx context.Context, wallet, role, text string) error {
	if err := s.store.AppendActivity(ctx, wallet, role, text); err != nil {
		return err
	}
	if s.feed != nil {
		entry := runner.ActivityEntry{Role: role, Text: text, Timestamp: time.Now()}
		if err := s.feed.Publish(ctx, wallet, entry); err != nil {
			s.logger.Warn("spectator feed publish failed",
				zap.String("wallet", wallet),
				zap.Error(err))
		}
	}
	return nil
}

var _ runner.ActivitySink = (*Sink)(nil)
