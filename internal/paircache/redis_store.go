package paircache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"claimgraph/internal/claim"
)

// RedisStore is a Store backed by Redis, grounded on the teacher's
// orchestrator.RedisDedupeStore. Entries have no TTL: adjudication
// results are cached indefinitely once written.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr and pings it to validate the connection.
func NewRedisStore(addr string) (*RedisStore, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("paircache: redis ping failed: %w", err)
	}
	return &RedisStore{client: c}, nil
}

func (s *RedisStore) Get(key string) (claim.DebateResult, bool, error) {
	val, err := s.client.Get(context.Background(), "paircache:"+key).Result()
	if err == redis.Nil {
		return claim.DebateResult{}, false, nil
	}
	if err != nil {
		return claim.DebateResult{}, false, err
	}
	var result claim.DebateResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return claim.DebateResult{}, false, fmt.Errorf("paircache: parse cached entry: %w", err)
	}
	return result, true, nil
}

func (s *RedisStore) Set(key string, result claim.DebateResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("paircache: marshal entry: %w", err)
	}
	return s.client.Set(context.Background(), "paircache:"+key, data, 0).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
