package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordAdapter bridges the Discord bot gateway. One bot serves the
// whole fleet; per-agent output is tagged with the wallet.
type DiscordAdapter struct {
	token   string
	session *discordgo.Session
	handler MessageHandler
	logger  *zap.Logger
}

// NewDiscordAdapter creates a Discord adapter for a bot token.
func NewDiscordAdapter(token string, logger *zap.Logger) *DiscordAdapter {
	return &DiscordAdapter{token: token, logger: logger}
}

func (a *DiscordAdapter) Platform() string           { return "discord" }
func (a *DiscordAdapter) OnMessage(h MessageHandler) { a.handler = h }

// Connect opens the bot websocket and subscribes to guild and direct
// messages.
func (a *DiscordAdapter) Connect(_ context.Context) error {
	session, err := discordgo.New("Bot " + a.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages
	session.AddHandler(a.receive)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	a.session = session

	if len(session.State.Guilds) == 0 {
		a.logger.Warn("discord bot is in no guild yet, invite it to one")
	}
	a.logger.Info("discord connected",
		zap.String("bot", session.State.User.Username),
		zap.Int("guilds", len(session.State.Guilds)))
	return nil
}

func (a *DiscordAdapter) receive(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID || a.handler == nil {
		return
	}
	a.handler(&InboundMessage{
		Platform:  "discord",
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		ReplyTo:   m.ChannelID,
	})
}

// Send posts to a channel. The wallet becomes a bold prefix so several
// agents stay distinguishable in the same channel.
func (a *DiscordAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	if a.session == nil {
		return fmt.Errorf("discord not connected")
	}
	content := msg.Content
	if msg.Wallet != "" {
		content = fmt.Sprintf("**[%s]** %s", msg.Wallet, msg.Content)
	}
	if _, err := a.session.ChannelMessageSend(msg.ChannelID, content); err != nil {
		return fmt.Errorf("discord send to %s: %w", msg.ChannelID, err)
	}
	return nil
}

// Broadcast posts to the first writable text channel of each guild.
func (a *DiscordAdapter) Broadcast(_ context.Context, msg *BroadcastMessage) error {
	if a.session == nil {
		return fmt.Errorf("discord not connected")
	}
	content := fmt.Sprintf("**[%s] %s**\n%s", msg.Type, msg.Title, msg.Content)

	for _, guild := range a.session.State.Guilds {
		channels, err := a.session.GuildChannels(guild.ID)
		if err != nil {
			a.logger.Warn("discord guild channels unavailable",
				zap.String("guild", guild.ID), zap.Error(err))
			continue
		}
		for _, ch := range channels {
			if ch.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			if _, err := a.session.ChannelMessageSend(ch.ID, content); err == nil {
				break
			}
		}
	}
	return nil
}

// Close shuts the websocket down.
func (a *DiscordAdapter) Close() error {
	if a.session == nil {
		return nil
	}
	return a.session.Close()
}
