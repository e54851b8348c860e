package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/state"
	"github.com/patrickmn/go-cache"
)

var _ state.Storage = &SessionMemory{}

// SessionMemory keeps conversation state in process memory.
// Used with mocks and in single-instance deployments without Redis.
type SessionMemory struct {
	cache *cache.Cache
}

// NewSessionMemory stores sessions for ttl after the last write; ttl <= 0 never expires them.
func NewSessionMemory(ttl time.Duration) *SessionMemory {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &SessionMemory{cache: cache.New(ttl, time.Hour)}
}

func (r *SessionMemory) Get(_ context.Context, telegramID int64) (*state.Session, error) {
	v, ok := r.cache.Get(strconv.FormatInt(telegramID, 10))
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	sess := v.(state.Session)
	return &sess, nil
}

func (r *SessionMemory) Set(_ context.Context, sess *state.Session) error {
	r.cache.SetDefault(strconv.FormatInt(sess.TelegramID, 10), *sess)
	return nil
}

func (r *SessionMemory) Delete(_ context.Context, telegramID int64) error {
	r.cache.Delete(strconv.FormatInt(telegramID, 10))
	return nil
}
