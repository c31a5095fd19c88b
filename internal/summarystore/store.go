// Package summarystore provides storage interfaces and implementations for
// the summaries cached by the tinysummary service.
package summarystore

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// DefaultCapacity bounds the memory backend when no capacity is configured.
const DefaultCapacity = 1000

// Store defines the interface for caching summaries.
type Store interface {
	// Get returns the cached summary for key. ok is false on a miss or when
	// the entry has expired.
	Get(ctx context.Context, key string) (summary string, ok bool, err error)

	// Set stores a summary. A zero ttl keeps the entry until it is evicted.
	Set(ctx context.Context, key, summary string, ttl time.Duration) error

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)

	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend       string
	Capacity      int
	SQLitePath    string
	RedisAddrs    []string
	RedisPassword string
	RedisPrefix   string
}

// Open builds the store named by cfg.Backend. An empty backend means memory.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(cfg.Capacity), nil
	case BackendSQLite:
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		s, err := NewRedisStore(RedisConfig{
			Addrs:    cfg.RedisAddrs,
			Password: cfg.RedisPassword,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NopStore never stores anything.
type NopStore struct{}

func (NopStore) Get(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (NopStore) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (NopStore) Len(context.Context) (int, error) {
	return 0, nil
}

func (NopStore) Clear(context.Context) (int, error) {
	return 0, nil
}

func (NopStore) Ping(context.Context) error {
	return nil
}

func (NopStore) Close() error {
	return nil
}
