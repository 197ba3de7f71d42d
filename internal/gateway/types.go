package gateway

import (
	"context"
	"time"
)

// MessageHandler receives every inbound message, regardless of which
// platform it arrived on.
type MessageHandler func(msg *InboundMessage)

// Adapter is one chat platform attached to the gateway. Adapters
// normalize their platform's events into InboundMessage and render
// OutboundMessage back into platform-native form.
type Adapter interface {
	Platform() string
	Connect(ctx context.Context) error
	OnMessage(handler MessageHandler)
	Send(ctx context.Context, msg *OutboundMessage) error
	Broadcast(ctx context.Context, msg *BroadcastMessage) error
	Close() error
}

// InboundMessage is a platform-neutral operator message. ReplyTo is an
// opaque platform hint (Slack thread, Discord channel) that Send echoes
// back to keep replies in context.
type InboundMessage struct {
	Platform  string    `json:"platform"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ReplyTo   string    `json:"reply_to,omitempty"`
}

// OutboundMessage is one message bound for a platform channel. Wallet,
// when set, attributes the message to an agent; adapters decide how to
// render the attribution.
type OutboundMessage struct {
	Platform  string `json:"platform"`
	ChannelID string `json:"channel_id"`
	Wallet    string `json:"wallet,omitempty"`
	Content   string `json:"content"`
	ReplyTo   string `json:"reply_to,omitempty"`
}

// BroadcastType tags fleet-wide messages by origin.
type BroadcastType string

const (
	BroadcastAnnouncement BroadcastType = "announcement"
	BroadcastAgentEvent   BroadcastType = "agent_event"
	BroadcastWorldEvent   BroadcastType = "world_event"
)

// BroadcastMessage goes to every adapter, or to the listed Platforms
// when the slice is non-empty.
type BroadcastMessage struct {
	Type      BroadcastType `json:"type"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Wallet    string        `json:"wallet,omitempty"`
	Platforms []string      `json:"platforms,omitempty"`
}
