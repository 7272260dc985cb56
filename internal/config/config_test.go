package config

import "testing"

func TestLoadRequiresArenaURLs(t *testing.T) {
	t.Setenv("ARENA_BASE_URL", "")
	t.Setenv("ARENA_WS_URL", "ws://localhost:5000/ws")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without ARENA_BASE_URL")
	}
	t.Setenv("ARENA_BASE_URL", "http://localhost:5000")
	t.Setenv("ARENA_WS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without ARENA_WS_URL")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("ARENA_BASE_URL", "http://localhost:5000/")
	t.Setenv("ARENA_WS_URL", "ws://localhost:5000/ws")
	t.Setenv("EVENT_BUFFER", "-3")
	t.Setenv("WS_MAX_RECONNECT", "0")
	t.Setenv("VIEW_TTL_SEC", "60")
	t.Setenv("WS_PING_INTERVAL_SEC", "5")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ArenaBaseURL != "http://localhost:5000" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.ArenaBaseURL)
	}
	if cfg.ListenAddr != ":5003" || cfg.EventBuffer != 256 || cfg.HTTPTimeoutSec != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.WSMaxReconnect != 0 || cfg.ViewTTL().Seconds() != 60 || cfg.PingInterval().Seconds() != 5 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
