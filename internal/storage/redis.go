package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each scope as a hash under "<prefix>:<sessionID>".  Writes
// refresh the hash TTL so an active browser session never expires while
// idle ones age out.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps an existing client.  A zero ttl disables expiry.
func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "sc:session"
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis) Scope(sessionID string) Storage {
	return &redisScope{r: r, id: sessionID}
}

func (r *Redis) Close() error { return r.rdb.Close() }

type redisScope struct {
	r  *Redis
	id string
}

func (s *redisScope) key() string { return s.r.prefix + ":" + s.id }

func (s *redisScope) Get(ctx context.Context, key string) (string, bool, error) {
	if s.id == "" {
		return "", false, ErrEmptyScope
	}
	v, err := s.r.rdb.HGet(ctx, s.key(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, true, nil
}

func (s *redisScope) Set(ctx context.Context, values map[string]string) error {
	if s.id == "" {
		return ErrEmptyScope
	}
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	// MULTI/EXEC so the pair lands atomically.
	_, err := s.r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.key(), args...)
		if s.r.ttl > 0 {
			p.Expire(ctx, s.key(), s.r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *redisScope) Delete(ctx context.Context, keys ...string) error {
	if s.id == "" {
		return ErrEmptyScope
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.r.rdb.HDel(ctx, s.key(), keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}
