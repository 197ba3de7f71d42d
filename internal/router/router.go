package router

import (
	"context"
	"strings"

	"github.com/morrigan/wyrmhold/internal/command"
	"github.com/morrigan/wyrmhold/internal/gateway"
	"github.com/morrigan/wyrmhold/internal/runner"
	pgstore "github.com/morrigan/wyrmhold/internal/store"
	"go.uber.org/zap"
)

// MessageRouter routes inbound gateway messages to the command registry
// and records directives against the targeted agent's activity log.
type MessageRouter struct {
	fleet     *runner.Fleet
	gw        *gateway.Gateway
	store     *pgstore.Store
	sink      runner.ActivitySink
	spectator *gateway.Spectator
	commands  *command.Registry
	logger    *zap.Logger
}

// New creates a new MessageRouter.
func New(fleet *runner.Fleet, gw *gateway.Gateway, store *pgstore.Store,
	sink runner.ActivitySink, spectator *gateway.Spectator,
	commands *command.Registry, logger *zap.Logger) *MessageRouter {
	return &MessageRouter{
		fleet:     fleet,
		gw:        gw,
		store:     store,
		sink:      sink,
		spectator: spectator,
		commands:  commands,
		logger:    logger,
	}
}

// Handle routes an inbound message. Signature matches
// gateway.MessageHandler.
func (mr *MessageRouter) Handle(msg *gateway.InboundMessage) {
	ctx := context.Background()
	mr.logger.Info("routing message",
		zap.String("platform", msg.Platform),
		zap.String("channel", msg.ChannelID),
		zap.String("user", msg.UserName),
	)

	if !strings.HasPrefix(msg.Content, "/") {
		mr.sendReply(ctx, msg, "Commands start with /. Type /help for the list.")
		return
	}

	cc := &command.CommandContext{
		Platform:  msg.Platform,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		UserName:  msg.UserName,
		Fleet:     mr.fleet,
		Store:     mr.store,
		Spectator: mr.spectator,
	}

	wallet := mr.targetWallet(msg.Content)
	if wallet != "" {
		mr.record(ctx, wallet, runner.RoleDirective, msg.UserName+": "+msg.Content)
	}

	result, err := mr.commands.Dispatch(ctx, msg.Content, cc)
	if err != nil {
		mr.logger.Error("command dispatch error", zap.Error(err))
		mr.sendReply(ctx, msg, "Command error: "+err.Error())
		return
	}

	if wallet != "" {
		mr.record(ctx, wallet, runner.RoleReply, result.Content)
	}
	mr.sendReply(ctx, msg, result.Content)
}

// targetWallet extracts the wallet argument from "/cmd <wallet> ...".
// Only wallets with a registered agent count; /help and malformed input
// return empty.
func (mr *MessageRouter) targetWallet(content string) string {
	fields := strings.Fields(content)
	if len(fields) < 2 {
		return ""
	}
	wallet := fields[1]
	if _, err := mr.store.AgentConfig(context.Background(), wallet); err != nil {
		return ""
	}
	return wallet
}

func (mr *MessageRouter) record(ctx context.Context, wallet, role, text string) {
	if mr.sink == nil {
		return
	}
	if err := mr.sink.Record(ctx, wallet, role, text); err != nil {
		mr.logger.Error("activity record failed",
			zap.String("wallet", wallet), zap.Error(err))
	}
}

// sendReply sends a text reply back to the originating platform/channel.
func (mr *MessageRouter) sendReply(ctx context.Context, orig *gateway.InboundMessage, text string) {
	err := mr.gw.Send(ctx, &gateway.OutboundMessage{
		Platform:  orig.Platform,
		ChannelID: orig.ChannelID,
		Content:   text,
		ReplyTo:   orig.ReplyTo,
	})
	if err != nil {
		mr.logger.Error("send reply failed", zap.Error(err))
	}
}
