package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("TEST_WORLD_URL", "http://world.test:7777")
	os.Unsetenv("TEST_CUSTODY_URL")

	path := writeConfig(t, `{
		"server": {"port": 3210},
		"world": {"base_url": "${TEST_WORLD_URL}"},
		"custody": {"base_url": "${TEST_CUSTODY_URL:http://localhost:7788}"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.World.BaseURL != "http://world.test:7777" {
		t.Errorf("world base_url = %q, want env value", cfg.World.BaseURL)
	}
	if cfg.Custody.BaseURL != "http://localhost:7788" {
		t.Errorf("custody base_url = %q, want the default", cfg.Custody.BaseURL)
	}
	if cfg.Server.Port != 3210 {
		t.Errorf("port = %d, want 3210", cfg.Server.Port)
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("TEST_DSN", "postgres://live")

	path := writeConfig(t, `{
		"database": {"postgres": {"dsn": "${TEST_DSN:postgres://fallback}"}}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Postgres.DSN != "postgres://live" {
		t.Errorf("dsn = %q, want the env value to win", cfg.Database.Postgres.DSN)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadBadJSON(t *testing.T) {
	path := writeConfig(t, `{"server": `)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestTickIntervalDefault(t *testing.T) {
	var r RunnerConfig
	if got := r.TickInterval(); got != time.Second {
		t.Errorf("TickInterval() = %v, want 1s default", got)
	}
	r.TickMillis = 250
	if got := r.TickInterval(); got != 250*time.Millisecond {
		t.Errorf("TickInterval() = %v, want 250ms", got)
	}
}
