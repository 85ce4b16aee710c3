package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DedupeStore is a minimal interface for per-paper idempotency storage.
// Implementations store a value under a correlation key with a TTL.
// Grounded on the teacher's own orchestrator.DedupeStore.
type DedupeStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisDedupeStore is a Redis-backed DedupeStore.
type RedisDedupeStore struct {
	client *redis.Client
}

// NewRedisDedupeStore connects to addr and pings it to validate the
// connection.
func NewRedisDedupeStore(addr string) (*RedisDedupeStore, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("orchestrator: redis ping failed: %w", err)
	}
	return &RedisDedupeStore{client: c}, nil
}

func (s *RedisDedupeStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisDedupeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the underlying Redis client.
func (s *RedisDedupeStore) Close() error { return s.client.Close() }

// MemoryDedupeStore is an in-process DedupeStore for tests and
// single-process deployments without Redis. It records only each key's
// presence and expiry: Get returns "1" for a live key, not the value that
// was Set.
type MemoryDedupeStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryDedupeStore constructs an empty in-memory store.
func NewMemoryDedupeStore() *MemoryDedupeStore {
	return &MemoryDedupeStore{entries: map[string]time.Time{}}
}

func (s *MemoryDedupeStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[key]
	if !ok {
		return "", nil
	}
	if !expiry.IsZero() && time.Now().After(expiry) {
		delete(s.entries, key)
		return "", nil
	}
	return "1", nil
}

func (s *MemoryDedupeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiry time.Time
	if ttl > 0 {
		expiry = time.Now().Add(ttl)
	}
	s.entries[key] = expiry
	return nil
}

var _ DedupeStore = (*RedisDedupeStore)(nil)
var _ DedupeStore = (*MemoryDedupeStore)(nil)
