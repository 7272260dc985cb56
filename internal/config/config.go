package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ArenaBaseURL string
	ArenaWSURL   string
	ListenAddr   string

	XUserID    string
	XSessionID string

	RedisURL   string
	ViewTTLSec int

	MessagesDir string

	EventBuffer        int
	WSMaxReconnect     int
	WSReconnectDelayMs int
	WSPingIntervalSec  int
	HTTPTimeoutSec     int
}

func (c *AppConfig) ViewTTL() time.Duration { return time.Duration(c.ViewTTLSec) * time.Second }

func (c *AppConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.WSReconnectDelayMs) * time.Millisecond
}

func (c *AppConfig) PingInterval() time.Duration {
	return time.Duration(c.WSPingIntervalSec) * time.Second
}

func (c *AppConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:         ":5003",
		ViewTTLSec:         7200,
		EventBuffer:        256,
		WSMaxReconnect:     5,
		WSReconnectDelayMs: 1000,
		WSPingIntervalSec:  30,
		HTTPTimeoutSec:     10,
	}

	cfg.ArenaBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("ARENA_BASE_URL")), "/")
	cfg.ArenaWSURL = strings.TrimSpace(os.Getenv("ARENA_WS_URL"))
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}

	cfg.XUserID = strings.TrimSpace(os.Getenv("X_USER_ID"))
	cfg.XSessionID = strings.TrimSpace(os.Getenv("X_SESSION_ID"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	positiveInt("VIEW_TTL_SEC", &cfg.ViewTTLSec)
	positiveInt("EVENT_BUFFER", &cfg.EventBuffer)
	positiveInt("WS_RECONNECT_DELAY_MS", &cfg.WSReconnectDelayMs)
	positiveInt("WS_PING_INTERVAL_SEC", &cfg.WSPingIntervalSec)
	positiveInt("HTTP_TIMEOUT_SEC", &cfg.HTTPTimeoutSec)
	// zero disables reconnect
	if v := strings.TrimSpace(os.Getenv("WS_MAX_RECONNECT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.WSMaxReconnect = n
		}
	}

	if cfg.ArenaBaseURL == "" {
		return nil, errors.New("ARENA_BASE_URL is required")
	}
	if cfg.ArenaWSURL == "" {
		return nil, errors.New("ARENA_WS_URL is required")
	}

	return cfg, nil
}

func positiveInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
	}
}
