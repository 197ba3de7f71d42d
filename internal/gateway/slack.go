package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
)

// SlackAdapter speaks Slack Socket Mode, so no public ingress is needed
// to receive operator commands.
type SlackAdapter struct {
	client  *slack.Client
	socket  *socketmode.Client
	handler MessageHandler
	logger  *zap.Logger

	mu      sync.Mutex
	threads map[string]string // channel:user -> thread_ts
}

// NewSlackAdapter creates a Slack adapter from a bot token (xoxb-...)
// and an app-level token (xapp-...).
func NewSlackAdapter(botToken, appToken string, logger *zap.Logger) *SlackAdapter {
	client := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	return &SlackAdapter{
		client:  client,
		socket:  socketmode.New(client, socketmode.OptionLog(zap.NewStdLog(logger))),
		threads: make(map[string]string),
		logger:  logger,
	}
}

func (a *SlackAdapter) Platform() string           { return "slack" }
func (a *SlackAdapter) OnMessage(h MessageHandler) { a.handler = h }

// Close is a no-op: cancelling the Connect context stops the socket.
func (a *SlackAdapter) Close() error { return nil }

// Connect starts the socket-mode loop. It returns immediately; the
// connection lives until ctx is cancelled.
func (a *SlackAdapter) Connect(ctx context.Context) error {
	go func() {
		if err := a.socket.RunContext(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("slack socket stopped", zap.Error(err))
		}
	}()
	go a.eventLoop(ctx)
	a.logger.Info("slack socket mode running")
	return nil
}

func (a *SlackAdapter) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.socket.Events:
			if !ok {
				return
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			a.socket.Ack(*evt.Request)

			if apiEvent.Type != slackevents.CallbackEvent {
				continue
			}
			if msg, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
				a.receive(msg)
			}
		}
	}
}

func (a *SlackAdapter) receive(ev *slackevents.MessageEvent) {
	// Bot echoes would loop forever.
	if ev.BotID != "" || a.handler == nil {
		return
	}

	thread := ev.ThreadTimeStamp
	if thread == "" {
		thread = ev.TimeStamp
	}
	a.mu.Lock()
	a.threads[ev.Channel+":"+ev.User] = thread
	a.mu.Unlock()

	a.handler(&InboundMessage{
		Platform:  "slack",
		ChannelID: ev.Channel,
		UserID:    ev.User,
		UserName:  ev.User,
		Content:   ev.Text,
		Timestamp: time.Now(),
		ReplyTo:   thread,
	})
}

// Send posts into a channel, threading the reply when the inbound
// message carried a thread, and naming the message after the wallet so
// several agents can share one channel.
func (a *SlackAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Content, false)}
	if msg.ReplyTo != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ReplyTo))
	}
	if msg.Wallet != "" {
		opts = append(opts, slack.MsgOptionUsername(msg.Wallet))
	}

	if _, _, err := a.client.PostMessage(msg.ChannelID, opts...); err != nil {
		return fmt.Errorf("slack post to %s: %w", msg.ChannelID, err)
	}
	return nil
}

// Broadcast posts to every channel the bot is a member of.
func (a *SlackAdapter) Broadcast(_ context.Context, msg *BroadcastMessage) error {
	opts := []slack.MsgOption{
		slack.MsgOptionText(fmt.Sprintf("*[%s] %s*\n%s", msg.Type, msg.Title, msg.Content), false),
	}
	if msg.Wallet != "" {
		opts = append(opts, slack.MsgOptionUsername(msg.Wallet))
	}

	channels, _, err := a.client.GetConversationsForUser(&slack.GetConversationsForUserParameters{
		Types: []string{"public_channel", "private_channel"},
		Limit: 200,
	})
	if err != nil {
		return fmt.Errorf("slack list channels: %w", err)
	}
	for _, ch := range channels {
		if _, _, err := a.client.PostMessage(ch.ID, opts...); err != nil {
			a.logger.Warn("slack broadcast skipped channel",
				zap.String("channel", ch.ID), zap.Error(err))
		}
	}
	return nil
}
