package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "campusevents/internal/domain/session"
)

const redisKeyPrefix = "campus:session:"

// RedisStore implements Store with one Redis hash per sid and a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redis with short timeouts.
func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sid string) string {
	return redisKeyPrefix + sid
}

// Get reads the hash for sid and extends its TTL.
// POST: Returns the zero Session when the key does not exist
func (s *RedisStore) Get(ctx context.Context, sid string) (domain.Session, error) {
	key := redisKey(sid)
	var fields *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		fields = p.HGetAll(ctx, key)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	m := fields.Val()
	return domain.Session{Token: m["token"], Role: m["role"], UserID: m["user_id"]}, nil
}

// Set replaces the hash for sid in one MULTI block so readers never see a partial session.
func (s *RedisStore) Set(ctx context.Context, sid string, value domain.Session) error {
	key := redisKey(sid)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "token", value.Token, "role", value.Role, "user_id", value.UserID)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Clear deletes the hash for sid.
func (s *RedisStore) Clear(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, redisKey(sid)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Healthy pings redis.
func (s *RedisStore) Healthy(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
