package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/state"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "onboarding:session:"

var _ state.Storage = &SessionRedis{}

// SessionRedis keeps conversation state in Redis. Every write refreshes the ttl; a zero ttl stores keys without expiry.
type SessionRedis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRedis(client *redis.Client, ttl time.Duration) *SessionRedis {
	if ttl < 0 {
		ttl = 0
	}
	return &SessionRedis{client: client, ttl: ttl}
}

func sessionKey(telegramID int64) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, telegramID)
}

func (r *SessionRedis) Get(ctx context.Context, telegramID int64) (*state.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(telegramID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, entity.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get redis session: %w", err)
	}

	var sess state.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode redis session: %w", err)
	}
	return &sess, nil
}

func (r *SessionRedis) Set(ctx context.Context, sess *state.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode redis session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(sess.TelegramID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set redis session: %w", err)
	}
	return nil
}

func (r *SessionRedis) Delete(ctx context.Context, telegramID int64) error {
	if err := r.client.Del(ctx, sessionKey(telegramID)).Err(); err != nil {
		return fmt.Errorf("delete redis session: %w", err)
	}
	return nil
}
