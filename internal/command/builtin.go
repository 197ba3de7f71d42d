package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/morrigan/wyrmhold/internal/runner"
)

// RegisterBuiltins wires the agent management commands into a registry.
func RegisterBuiltins(reg *Registry) {
	reg.Register(&Command{
		Name:        "help",
		Description: "List available commands",
		Usage:       "/help",
		Handler:     handleHelp(reg),
	})
	reg.Register(&Command{
		Name:        "deploy",
		Description: "Start an agent's behavior loop",
		Usage:       "/deploy <wallet>",
		Handler:     handleDeploy,
	})
	reg.Register(&Command{
		Name:        "halt",
		Description: "Stop an agent's behavior loop",
		Usage:       "/halt <wallet>",
		Handler:     handleHalt,
	})
	reg.Register(&Command{
		Name:        "status",
		Description: "Show an agent's config and runner state",
		Usage:       "/status <wallet>",
		Handler:     handleStatus,
	})
	reg.Register(&Command{
		Name:        "focus",
		Description: "Set an agent's focus",
		Usage:       "/focus <wallet> <focus>",
		Handler:     handleFocus,
	})
	reg.Register(&Command{
		Name:        "strategy",
		Description: "Set an agent's risk posture",
		Usage:       "/strategy <wallet> <aggressive|balanced|defensive>",
		Handler:     handleStrategy,
	})
	reg.Register(&Command{
		Name:        "travel",
		Description: "Send an agent toward a zone",
		Usage:       "/travel <wallet> <zone>",
		Handler:     handleTravel,
	})
	reg.Register(&Command{
		Name:        "buy",
		Description: "Buy an item at the nearest merchant, bypassing the loop",
		Usage:       "/buy <wallet> <item>",
		Handler:     handleBuy,
	})
	reg.Register(&Command{
		Name:        "repair",
		Description: "Repair all gear at the nearest merchant",
		Usage:       "/repair <wallet>",
		Handler:     handleRepair,
	})
	reg.Register(&Command{
		Name:        "learn",
		Description: "Learn a profession at a trainer",
		Usage:       "/learn <wallet> <profession>",
		Handler:     handleLearn,
	})
	reg.Register(&Command{
		Name:        "activity",
		Description: "Show an agent's recent activity",
		Usage:       "/activity <wallet>",
		Handler:     handleActivity,
	})
	reg.Register(&Command{
		Name:        "watch",
		Description: "Stream an agent's activity into this channel",
		Usage:       "/watch <wallet>",
		Handler:     handleWatch,
	})
	reg.Register(&Command{
		Name:        "unwatch",
		Description: "Stop streaming an agent's activity here",
		Usage:       "/unwatch <wallet>",
		Handler:     handleUnwatch,
	})
}

func handleHelp(reg *Registry) CommandHandler {
	return func(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
		var b strings.Builder
		b.WriteString("Available commands:\n")
		for _, cmd := range reg.List() {
			fmt.Fprintf(&b, "  %s — %s\n", cmd.Usage, cmd.Description)
		}
		return &CommandResult{Content: b.String()}, nil
	}
}

// splitArgs splits "wallet rest..." and validates the wallet is present.
func splitArgs(args string, wantRest bool) (wallet, rest string, err error) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("missing wallet argument")
	}
	wallet = parts[0]
	if len(parts) > 1 {
		rest = strings.TrimSpace(parts[1])
	}
	if wantRest && rest == "" {
		return "", "", fmt.Errorf("missing argument after wallet")
	}
	return wallet, rest, nil
}

func handleDeploy(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, _, err := splitArgs(args, false)
	if err != nil {
		return &CommandResult{Content: "Usage: /deploy <wallet>"}, nil
	}
	if err := cc.Store.SetEnabled(ctx, wallet, true); err != nil {
		return nil, err
	}
	if err := cc.Fleet.Deploy(ctx, wallet, true); err != nil {
		return &CommandResult{Content: fmt.Sprintf("Deploy failed: %v", err)}, nil
	}
	return &CommandResult{Content: fmt.Sprintf("Agent %s deployed and ticking.", wallet)}, nil
}

func handleHalt(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, _, err := splitArgs(args, false)
	if err != nil {
		return &CommandResult{Content: "Usage: /halt <wallet>"}, nil
	}
	if err := cc.Store.SetEnabled(ctx, wallet, false); err != nil {
		return nil, err
	}
	cc.Fleet.Halt(wallet)
	return &CommandResult{Content: fmt.Sprintf("Agent %s halted.", wallet)}, nil
}

func handleStatus(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, _, err := splitArgs(args, false)
	if err != nil {
		return &CommandResult{Content: "Usage: /status <wallet>"}, nil
	}
	cfg, err := cc.Store.AgentConfig(ctx, wallet)
	if err != nil {
		return &CommandResult{Content: fmt.Sprintf("Unknown agent %s", wallet)}, nil
	}
	state := "stopped"
	if cc.Fleet.Running(wallet) {
		state = "running"
	}
	content := fmt.Sprintf("%s: %s | enabled=%t focus=%s strategy=%s",
		wallet, state, cfg.Enabled, cfg.Focus, cfg.Strategy)
	if cfg.TargetZone != "" {
		content += " target=" + cfg.TargetZone
	}
	return &CommandResult{Content: content, Data: cfg}, nil
}

func handleFocus(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, rest, err := splitArgs(args, true)
	if err != nil {
		return &CommandResult{Content: "Usage: /focus <wallet> <focus>"}, nil
	}
	focus, err := runner.ParseFocus(rest)
	if err != nil {
		return &CommandResult{Content: err.Error()}, nil
	}
	if err := cc.Store.SetFocus(ctx, wallet, focus); err != nil {
		return nil, err
	}
	return &CommandResult{Content: fmt.Sprintf("Focus for %s set to %s.", wallet, focus)}, nil
}

func handleStrategy(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, rest, err := splitArgs(args, true)
	if err != nil {
		return &CommandResult{Content: "Usage: /strategy <wallet> <strategy>"}, nil
	}
	strategy, err := runner.ParseStrategy(rest)
	if err != nil {
		return &CommandResult{Content: err.Error()}, nil
	}
	if err := cc.Store.SetStrategy(ctx, wallet, strategy); err != nil {
		return nil, err
	}
	return &CommandResult{Content: fmt.Sprintf("Strategy for %s set to %s.", wallet, strategy)}, nil
}

func handleTravel(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, zone, err := splitArgs(args, true)
	if err != nil {
		return &CommandResult{Content: "Usage: /travel <wallet> <zone>"}, nil
	}
	if err := cc.Store.SetTargetZone(ctx, wallet, zone); err != nil {
		return nil, err
	}
	if err := cc.Store.SetFocus(ctx, wallet, runner.FocusTraveling); err != nil {
		return nil, err
	}
	return &CommandResult{Content: fmt.Sprintf("%s is heading toward %s.", wallet, zone)}, nil
}

// withRunner resolves the live runner for direct actions.
func withRunner(cc *CommandContext, wallet string) (*runner.Runner, *CommandResult) {
	r := cc.Fleet.Get(wallet)
	if r == nil {
		return nil, &CommandResult{Content: fmt.Sprintf("Agent %s is not deployed.", wallet)}
	}
	return r, nil
}

func handleBuy(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, item, err := splitArgs(args, true)
	if err != nil {
		return &CommandResult{Content: "Usage: /buy <wallet> <item>"}, nil
	}
	r, fail := withRunner(cc, wallet)
	if fail != nil {
		return fail, nil
	}
	if err := r.BuyItem(ctx, item); err != nil {
		return &CommandResult{Content: fmt.Sprintf("Buy failed: %v", err)}, nil
	}
	return &CommandResult{Content: fmt.Sprintf("%s bought %s.", wallet, item)}, nil
}

func handleRepair(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, _, err := splitArgs(args, false)
	if err != nil {
		return &CommandResult{Content: "Usage: /repair <wallet>"}, nil
	}
	r, fail := withRunner(cc, wallet)
	if fail != nil {
		return fail, nil
	}
	if err := r.RepairGear(ctx); err != nil {
		return &CommandResult{Content: fmt.Sprintf("Repair failed: %v", err)}, nil
	}
	return &CommandResult{Content: fmt.Sprintf("%s repaired its gear.", wallet)}, nil
}

func handleLearn(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, profession, err := splitArgs(args, true)
	if err != nil {
		return &CommandResult{Content: "Usage: /learn <wallet> <profession>"}, nil
	}
	r, fail := withRunner(cc, wallet)
	if fail != nil {
		return fail, nil
	}
	if err := r.LearnProfession(ctx, profession); err != nil {
		return &CommandResult{Content: fmt.Sprintf("Training failed: %v", err)}, nil
	}
	return &CommandResult{Content: fmt.Sprintf("%s learned %s.", wallet, profession)}, nil
}

func handleActivity(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, _, err := splitArgs(args, false)
	if err != nil {
		return &CommandResult{Content: "Usage: /activity <wallet>"}, nil
	}
	entries, err := cc.Store.RecentActivity(ctx, wallet, 10)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &CommandResult{Content: "No activity yet."}, nil
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] %s: %s\n",
			e.Timestamp.Format("15:04:05"), e.Role, e.Text)
	}
	return &CommandResult{Content: b.String(), Data: entries}, nil
}

func handleWatch(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, _, err := splitArgs(args, false)
	if err != nil {
		return &CommandResult{Content: "Usage: /watch <wallet>"}, nil
	}
	if cc.Spectator == nil {
		return &CommandResult{Content: "Spectating is not available on this deployment."}, nil
	}
	// Background context: the watch outlives the command dispatch.
	if err := cc.Spectator.Watch(context.Background(), cc.Platform, cc.ChannelID, wallet); err != nil {
		return &CommandResult{Content: fmt.Sprintf("Watch failed: %v", err)}, nil
	}
	return &CommandResult{Content: fmt.Sprintf("Now streaming %s's activity here. /unwatch %s to stop.", wallet, wallet)}, nil
}

func handleUnwatch(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
	wallet, _, err := splitArgs(args, false)
	if err != nil {
		return &CommandResult{Content: "Usage: /unwatch <wallet>"}, nil
	}
	if cc.Spectator == nil {
		return &CommandResult{Content: "Spectating is not available on this deployment."}, nil
	}
	cc.Spectator.Unwatch(cc.Platform, cc.ChannelID, wallet)
	return &CommandResult{Content: fmt.Sprintf("Stopped streaming %s's activity.", wallet)}, nil
}
