package command

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/morrigan/wyrmhold/internal/gateway"
	"github.com/morrigan/wyrmhold/internal/runner"
	"github.com/morrigan/wyrmhold/internal/store"
)

// Command is one slash command an operator can issue from any gateway.
type Command struct {
	Name        string
	Description string
	Usage       string
	Handler     CommandHandler
}

// CommandHandler executes a command. args is everything after the
// command name, already trimmed.
type CommandHandler func(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error)

// CommandContext carries the collaborators a handler may need, plus the
// identity of whoever issued the command.
type CommandContext struct {
	Platform  string
	ChannelID string
	UserID    string
	UserName  string
	Fleet     *runner.Fleet
	Store     *store.Store
	Spectator *gateway.Spectator
}

// CommandResult is what a handler hands back to the gateway.
type CommandResult struct {
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// Registry maps command names to handlers. Registration happens once at
// startup; dispatch runs concurrently from every gateway.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a command. Later registrations under the same name win.
func (r *Registry) Register(cmd *Command) {
	r.mu.Lock()
	r.commands[strings.ToLower(cmd.Name)] = cmd
	r.mu.Unlock()
}

// Lookup finds a command by name, nil if unknown.
func (r *Registry) Lookup(name string) *Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[strings.ToLower(name)]
}

// Dispatch parses "/name args..." and runs the matching handler. An
// unknown name is an answer, not an error: the reply tells the operator
// what went wrong.
func (r *Registry) Dispatch(ctx context.Context, input string, cc *CommandContext) (*CommandResult, error) {
	name, args, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")

	cmd := r.Lookup(name)
	if cmd == nil {
		return &CommandResult{
			Content: "Unknown command: /" + name + ". Type /help for available commands.",
		}, nil
	}
	return cmd.Handler(ctx, strings.TrimSpace(args), cc)
}

// List returns every registered command, sorted by name for /help.
func (r *Registry) List() []*Command {
	r.mu.RLock()
	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
