package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces report keys in Redis.
const DefaultKeyPrefix = "movectl:report:"

// RedisStore keeps reports in Redis as JSON strings with a TTL, so several
// server processes can share one archive.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	ownClient bool
}

// NewRedisStore wraps an existing client. The caller keeps ownership of
// client; Close does not close it.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := NewRedisStore(client, DefaultKeyPrefix, time.Hour)
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// DialRedisStore creates a client for addr, checks it with PING and returns
// a store that owns the client.
func DialRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	s := NewRedisStore(client, DefaultKeyPrefix, ttl)
	s.ownClient = true
	return s, nil
}

func (s *RedisStore) key(clientName string) string {
	return s.prefix + clientName
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, r Report) error {
	if r.ClientName == "" {
		return fmt.Errorf("save report: empty client name")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := s.client.Set(ctx, s.key(r.ClientName), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, clientName string) (Report, error) {
	val, err := s.client.Get(ctx, s.key(clientName)).Result()
	if errors.Is(err, redis.Nil) {
		return Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, clientName)
	}

	if err != nil {
		return Report{}, fmt.Errorf("redis get error: %w", err)
	}

	var r Report
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return Report{}, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return r, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, clientName string) error {
	if err := s.client.Del(ctx, s.key(clientName)).Err(); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	return nil
}

// Count implements Store. It scans only keys under the store's prefix.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}

	if err := iter.Err(); err != nil {
		return count, fmt.Errorf("failed to scan reports: %w", err)
	}

	return count, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	if s.ownClient {
		return s.client.Close()
	}

	return nil
}
