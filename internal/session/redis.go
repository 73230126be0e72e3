package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/atendeai/core/internal/core/error"
	logx "github.com/atendeai/core/pkg/logger"
)

// RedisStore keeps sessions as JSON values with a TTL extended on touch.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisStore builds a session store over the given Redis client.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) sessionKey(key Key) string {
	return fmt.Sprintf("session:%s", key.String())
}

// Get loads a session; a missing key yields a fresh session, never an error.
func (r *RedisStore) Get(ctx context.Context, key Key) (*Session, error) {
	raw, err := r.rdb.Get(ctx, r.sessionKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return NewSession(), nil
		}
		logx.Error().Err(err).Str("key", r.sessionKey(key)).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		logx.Error().Err(err).Str("key", r.sessionKey(key)).Msg("failed to unmarshal session, starting fresh")
		return NewSession(), nil
	}
	if s.Order.State == "" {
		s.Order = NewOrderSession()
	}
	return &s, nil
}

// Set stores the session and extends the TTL.
func (r *RedisStore) Set(ctx context.Context, key Key, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		logx.Error().Err(err).Str("key", r.sessionKey(key)).Msg("failed to marshal session")
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.sessionKey(key), b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", r.sessionKey(key)).Msg("failed to store session in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// Clear removes the session.
func (r *RedisStore) Clear(ctx context.Context, key Key) error {
	if err := r.rdb.Del(ctx, r.sessionKey(key)).Err(); err != nil {
		logx.Error().Err(err).Str("key", r.sessionKey(key)).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)

// RedisCurrentAgentStore tracks conversation ownership per (tenant, phone).
type RedisCurrentAgentStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisCurrentAgentStore builds a current-agent store over Redis.
func NewRedisCurrentAgentStore(rdb redis.Cmdable, ttl time.Duration) *RedisCurrentAgentStore {
	return &RedisCurrentAgentStore{rdb: rdb, ttl: ttl}
}

func (r *RedisCurrentAgentStore) agentKey(tenantID, phone string) string {
	return fmt.Sprintf("current-agent:%s:%s", tenantID, phone)
}

// Get returns the recorded owner agent id, or "" when none is recorded.
func (r *RedisCurrentAgentStore) Get(ctx context.Context, tenantID, phone string) (string, error) {
	v, err := r.rdb.Get(ctx, r.agentKey(tenantID, phone)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		logx.Error().Err(err).Str("key", r.agentKey(tenantID, phone)).Msg("failed to load current agent from redis")
		return "", errx.WrapRedis(err)
	}
	return v, nil
}

// Set records agentID as the conversation owner.
func (r *RedisCurrentAgentStore) Set(ctx context.Context, tenantID, phone, agentID string) error {
	if err := r.rdb.Set(ctx, r.agentKey(tenantID, phone), agentID, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", r.agentKey(tenantID, phone)).Msg("failed to store current agent in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// Clear removes the ownership record.
func (r *RedisCurrentAgentStore) Clear(ctx context.Context, tenantID, phone string) error {
	if err := r.rdb.Del(ctx, r.agentKey(tenantID, phone)).Err(); err != nil {
		logx.Error().Err(err).Str("key", r.agentKey(tenantID, phone)).Msg("failed to delete current agent from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ CurrentAgentStore = (*RedisCurrentAgentStore)(nil)
