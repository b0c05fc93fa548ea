package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "HOST", "ARENA_SERVER_PORT", "ARENA_WORLD_WIDTH", "ARENA_TIMING_GRACEPERIOD", "ARENA_SIM_AUTHORITATIVE"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := DefaultConfig()
	if cfg != want {
		t.Errorf("expected defaults\n got %+v\nwant %+v", cfg, want)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
}

func TestLoadConfigEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ARENA_WORLD_WIDTH", "4000")
	t.Setenv("ARENA_TIMING_GRACEPERIOD", "20s")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.WorldWidth != 4000 {
		t.Errorf("expected width 4000, got %f", cfg.WorldWidth)
	}
	if cfg.GracePeriod != 20*time.Second {
		t.Errorf("expected 20s grace, got %s", cfg.GracePeriod)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "arena.yaml")
	content := `
world:
  islands: 3
sim:
  authoritative: true
timing:
  shootCooldown: 500ms
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.IslandCount != 3 || !cfg.Authoritative || cfg.ShootCooldown != 500*time.Millisecond {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.WorldHeight != 2000 {
		t.Errorf("unset keys should keep defaults, got height %f", cfg.WorldHeight)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	clearConfigEnv(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
	t.Setenv("PORT", "0")
	if _, err := LoadConfig(""); err == nil {
		t.Error("expected error for port 0")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"world", func(c *Config) { c.WorldWidth = 0 }},
		{"islands", func(c *Config) { c.IslandCount = -1 }},
		{"heartbeat", func(c *Config) { c.HeartbeatInterval = 0 }},
		{"grace", func(c *Config) { c.GracePeriod = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
