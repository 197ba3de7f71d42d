package command

import (
	"context"
	"testing"
)

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{
		Name:        "ping",
		Description: "Ping test",
		Usage:       "/ping",
		Handler: func(ctx context.Context, args string, cc *CommandContext) (*CommandResult, error) {
			return &CommandResult{Content: "pong: " + args}, nil
		},
	})

	ctx := context.Background()
	cc := &CommandContext{Platform: "test"}

	result, err := reg.Dispatch(ctx, "/ping hello", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "pong: hello" {
		t.Errorf("got %q, want %q", result.Content, "pong: hello")
	}

	result, err = reg.Dispatch(ctx, "/unknown", cc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content == "" {
		t.Error("expected error message for unknown command")
	}
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{Name: "beta"})
	reg.Register(&Command{Name: "alpha"})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("got %d commands, want 2", len(list))
	}
	if list[0].Name != "alpha" {
		t.Errorf("got %q first, want %q", list[0].Name, "alpha")
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     string
		wantRest bool
		wallet   string
		rest     string
		wantErr  bool
	}{
		{"wallet only", "0xabc", false, "0xabc", "", false},
		{"wallet and rest", "0xabc mining ", true, "0xabc", "mining", false},
		{"multi-word rest", "0xabc iron sword", true, "0xabc", "iron sword", false},
		{"empty", "", false, "", "", true},
		{"missing rest", "0xabc", true, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet, rest, err := splitArgs(tt.args, tt.wantRest)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %t", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if wallet != tt.wallet || rest != tt.rest {
				t.Errorf("got (%q, %q), want (%q, %q)", wallet, rest, tt.wallet, tt.rest)
			}
		})
	}
}
