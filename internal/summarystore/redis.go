package summarystore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/localrivet/tinysummary/internal/errortypes"
)

// DefaultRedisPrefix namespaces cache keys when no prefix is configured.
const DefaultRedisPrefix = "tinysummary:"

// RedisConfig holds connection parameters for a Redis store.
type RedisConfig struct {
	Addrs    []string
	Password string
	Prefix   string
}

// RedisStore is a Store backed by Redis via rueidis. Keys are
// <prefix>summary:<key> and expire with EX.
type RedisStore struct {
	client rueidis.Client
	prefix string
}

// NewRedisStore connects to Redis.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errortypes.ConfigError(fmt.Errorf("addrs is required"), "redis cache requires at least one address")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, errortypes.NetworkError(err, "failed to create redis client")
	}

	return NewRedisStoreWithClient(client, cfg.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client rueidis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + "summary:" + key
}

func (s *RedisStore) pattern() string {
	return s.prefix + "summary:*"
}

// Get retrieves a summary by key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	cmd := s.client.B().Get().Key(s.key(key)).Build()
	summary, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", false, nil
		}
		return "", false, errortypes.DatabaseError(err, "redis get failed")
	}
	return summary, true, nil
}

// Set stores a summary, with EX when ttl is positive.
func (s *RedisStore) Set(ctx context.Context, key, summary string, ttl time.Duration) error {
	var cmd rueidis.Completed
	if ttl > 0 {
		cmd = s.client.B().Set().Key(s.key(key)).Value(summary).Ex(ttl).Build()
	} else {
		cmd = s.client.B().Set().Key(s.key(key)).Value(summary).Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return errortypes.DatabaseError(err, "redis set failed")
	}
	return nil
}

func (s *RedisStore) scan(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match(s.pattern()).Count(100).Build()
		res, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, errortypes.DatabaseError(err, "redis scan failed")
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// Len counts cached summaries under the prefix.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	keys, err := s.scan(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Clear deletes every cached summary under the prefix.
func (s *RedisStore) Clear(ctx context.Context) (int, error) {
	keys, err := s.scan(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	cmd := s.client.B().Del().Key(keys...).Build()
	n, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, errortypes.DatabaseError(err, "redis del failed")
	}
	return int(n), nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return errortypes.NetworkError(err, "redis ping failed")
	}
	return nil
}

// Close shuts down the client.
func (s *RedisStore) Close() error {
	s.client.Close()
	return nil
}
