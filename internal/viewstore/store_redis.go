package viewstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/xiangqi-arena-viewer/internal/transcript"
)

const defaultTTL = 2 * time.Hour

// Store mirrors view snapshots into Redis. Keys are session scoped and expire.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for view store")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *Store) keyView(session string) string { return "arena:view:" + strings.TrimSpace(session) }
func (s *Store) keyCurrent() string            { return "arena:view:current" }

// Save writes v under its session and points the current key at it.
// Views without a session (idle viewer) only clear the current pointer.
func (s *Store) Save(ctx context.Context, v transcript.View) error {
	id := v.Match.SessionID
	if strings.TrimSpace(id) == "" {
		return s.rdb.Del(ctx, s.keyCurrent()).Err()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyView(id), raw, s.ttl)
	pipe.Set(ctx, s.keyCurrent(), id, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save view: %w", err)
	}
	return nil
}

// Load returns nil, nil when the session has no stored view.
func (s *Store) Load(ctx context.Context, session string) (*transcript.View, error) {
	raw, err := s.rdb.Get(ctx, s.keyView(session)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v transcript.View
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode view: %w", err)
	}
	return &v, nil
}

func (s *Store) Current(ctx context.Context) (*transcript.View, error) {
	id, err := s.rdb.Get(ctx, s.keyCurrent()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, id)
}

// Clear drops the current pointer and the view it points at.
func (s *Store) Clear(ctx context.Context) error {
	id, err := s.rdb.Get(ctx, s.keyCurrent()).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	keys := []string{s.keyCurrent()}
	if id != "" {
		keys = append(keys, s.keyView(id))
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// Publish satisfies session.Publisher.
func (s *Store) Publish(ctx context.Context, v transcript.View) error { return s.Save(ctx, v) }

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
