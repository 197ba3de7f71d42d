package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Gateway owns the platform adapters. Inbound messages from every
// adapter funnel into one handler; outbound sends are routed back by
// platform name.
type Gateway struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handler  MessageHandler
	adapters map[string]Adapter
}

// NewGateway creates a gateway with no adapters attached.
func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		logger:   logger,
		adapters: make(map[string]Adapter),
	}
}

// SetHandler installs the inbound message handler. Call it before
// Register: adapters capture the handler indirection at registration.
func (g *Gateway) SetHandler(h MessageHandler) {
	g.mu.Lock()
	g.handler = h
	g.mu.Unlock()
}

// Register attaches an adapter under its platform name.
func (g *Gateway) Register(adapter Adapter) {
	platform := adapter.Platform()

	g.mu.Lock()
	if _, dup := g.adapters[platform]; dup {
		g.logger.Warn("replacing gateway adapter", zap.String("platform", platform))
	}
	g.adapters[platform] = adapter
	g.mu.Unlock()

	adapter.OnMessage(func(msg *InboundMessage) {
		g.mu.RLock()
		h := g.handler
		g.mu.RUnlock()
		if h != nil {
			h(msg)
		}
	})
	g.logger.Info("gateway adapter registered", zap.String("platform", platform))
}

// ConnectAll connects every adapter. One platform failing to come up
// does not stop the others; all failures are reported together.
func (g *Gateway) ConnectAll(ctx context.Context) error {
	var errs []error
	for platform, adapter := range g.snapshot() {
		if err := adapter.Connect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("connect %s: %w", platform, err))
			continue
		}
		g.logger.Info("gateway connected", zap.String("platform", platform))
	}
	return errors.Join(errs...)
}

// Send routes one message to its platform adapter.
func (g *Gateway) Send(ctx context.Context, msg *OutboundMessage) error {
	g.mu.RLock()
	adapter := g.adapters[msg.Platform]
	g.mu.RUnlock()

	if adapter == nil {
		return fmt.Errorf("no adapter for platform %q", msg.Platform)
	}
	return adapter.Send(ctx, msg)
}

// Broadcast fans a message out to every adapter, or only to the named
// platforms when msg.Platforms is set.
func (g *Gateway) Broadcast(ctx context.Context, msg *BroadcastMessage) error {
	adapters := g.snapshot()

	var errs []error
	for platform, adapter := range adapters {
		if len(msg.Platforms) > 0 && !contains(msg.Platforms, platform) {
			continue
		}
		if err := adapter.Broadcast(ctx, msg); err != nil {
			g.logger.Error("broadcast failed",
				zap.String("platform", platform), zap.Error(err))
			errs = append(errs, fmt.Errorf("broadcast %s: %w", platform, err))
		}
	}
	return errors.Join(errs...)
}

// Close shuts every adapter down. Close errors are logged, not
// propagated: shutdown keeps going.
func (g *Gateway) Close() error {
	for platform, adapter := range g.snapshot() {
		if err := adapter.Close(); err != nil {
			g.logger.Error("adapter close failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
	return nil
}

// Adapters lists the registered platform names.
func (g *Gateway) Adapters() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.adapters))
	for p := range g.adapters {
		names = append(names, p)
	}
	return names
}

// snapshot copies the adapter map so callers can iterate without
// holding the lock across adapter calls.
func (g *Gateway) snapshot() map[string]Adapter {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]Adapter, len(g.adapters))
	for p, a := range g.adapters {
		out[p] = a
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
