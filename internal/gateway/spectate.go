package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/morrigan/wyrmhold/internal/feed"
	"go.uber.org/zap"
)

// Spectator relays an agent's live activity feed into chat channels.
// A /watch command subscribes a channel to a wallet's Redis stream;
// every activity entry the agent records is forwarded as a message.
type Spectator struct {
	gateway *Gateway
	feed    *feed.Feed
	watches map[string]context.CancelFunc // platform:channel:wallet
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewSpectator creates a spectator relay. feed may be nil when running
// without Redis, in which case Watch returns an error.
func NewSpectator(gw *Gateway, fd *feed.Feed, logger *zap.Logger) *Spectator {
	return &Spectator{
		gateway: gw,
		feed:    fd,
		watches: make(map[string]context.CancelFunc),
		logger:  logger,
	}
}

func watchKey(platform, channelID, wallet string) string {
	return platform + ":" + channelID + ":" + wallet
}

// Watch starts relaying a wallet's activity into the given channel.
// Idempotent per (platform, channel, wallet).
func (s *Spectator) Watch(ctx context.Context, platform, channelID, wallet string) error {
	if s.feed == nil {
		return fmt.Errorf("spectator feed is not configured")
	}

	key := watchKey(platform, channelID, wallet)
	s.mu.Lock()
	if _, exists := s.watches[key]; exists {
		s.mu.Unlock()
		return nil
	}
	watchCtx, cancel := context.WithCancel(ctx)
	s.watches[key] = cancel
	s.mu.Unlock()

	entries := s.feed.Subscribe(watchCtx, wallet)
	go func() {
		defer s.remove(key)
		for entry := range entries {
			msg := &OutboundMessage{
				Platform:  platform,
				ChannelID: channelID,
				Wallet:    wallet,
				Content:   fmt.Sprintf("(%s) %s", entry.Role, entry.Text),
			}
			if err := s.gateway.Send(watchCtx, msg); err != nil {
				s.logger.Warn("spectator relay failed",
					zap.String("wallet", wallet),
					zap.String("channel", channelID),
					zap.Error(err))
			}
		}
	}()

	s.logger.Info("spectator watch started",
		zap.String("wallet", wallet),
		zap.String("platform", platform),
		zap.String("channel", channelID))
	return nil
}

// Unwatch stops relaying a wallet's activity into the given channel.
func (s *Spectator) Unwatch(platform, channelID, wallet string) {
	key := watchKey(platform, channelID, wallet)
	s.mu.Lock()
	cancel, ok := s.watches[key]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *Spectator) remove(key string) {
	s.mu.Lock()
	if cancel, ok := s.watches[key]; ok {
		cancel()
		delete(s.watches, key)
	}
	s.mu.Unlock()
}

// Announce broadcasts a fleet-level event to every platform.
func (s *Spectator) Announce(ctx context.Context, typ BroadcastType, title, content, wallet string) error {
	return s.gateway.Broadcast(ctx, &BroadcastMessage{
		Type:    typ,
		Title:   title,
		Content: content,
		Wallet:  wallet,
	})
}

// Close cancels all active watches.
func (s *Spectator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cancel := range s.watches {
		cancel()
		delete(s.watches, key)
	}
}
