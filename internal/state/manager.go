// Package state persists the typed conversation state of each trainee.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/futig/onboarding-bot/internal/entity"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const stateKey contextKey = "session_state"

// StateFromContext retrieves the session state cached for the current turn
func StateFromContext(ctx context.Context) (*entity.SessionState, bool) {
	st, ok := ctx.Value(stateKey).(*entity.SessionState)
	return st, ok
}

// ContextWithState attaches session state to context for request-scoped caching
func ContextWithState(ctx context.Context, st *entity.SessionState) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

// Manager loads and saves entity.SessionState through a Storage
type Manager struct {
	storage Storage
	now     func() time.Time
}

func NewManager(storage Storage) *Manager {
	return &Manager{
		storage: storage,
		now:     time.Now,
	}
}

// Load returns the state of the user. A user without a stored session gets an idle state.
// State cached in ctx takes precedence over storage.
func (m *Manager) Load(ctx context.Context, telegramID int64) (*entity.SessionState, error) {
	if st, ok := StateFromContext(ctx); ok {
		return st, nil
	}

	session, err := m.storage.Get(ctx, telegramID)
	if err != nil {
		if errors.Is(err, entity.ErrSessionNotFound) {
			return &entity.SessionState{Version: entity.SessionStateCurrentVersion}, nil
		}
		return nil, fmt.Errorf("get session from storage: %w", err)
	}

	return decode(session.StateData)
}

func decode(raw json.RawMessage) (*entity.SessionState, error) {
	if len(raw) == 0 {
		return &entity.SessionState{Version: entity.SessionStateCurrentVersion}, nil
	}

	var st entity.SessionState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}

	// Auto-upgrade from documents written before the version field existed
	if st.Version == 0 {
		st.Version = entity.SessionStateCurrentVersion
	}

	return &st, nil
}

// Save stores the state, keeping the original creation time of the session
func (m *Manager) Save(ctx context.Context, telegramID int64, st *entity.SessionState) error {
	st.Version = entity.SessionStateCurrentVersion

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	now := m.now()
	session, err := m.storage.Get(ctx, telegramID)
	switch {
	case errors.Is(err, entity.ErrSessionNotFound):
		session = &Session{TelegramID: telegramID, CreatedAt: now}
	case err != nil:
		return fmt.Errorf("get session from storage: %w", err)
	}

	session.StateData = data
	session.UpdatedAt = now

	if err := m.storage.Set(ctx, session); err != nil {
		return fmt.Errorf("save session to storage: %w", err)
	}

	// Keep the turn cache in step with storage
	if cached, ok := StateFromContext(ctx); ok && cached != st {
		*cached = *st
	}
	return nil
}

// Clear removes the stored session
func (m *Manager) Clear(ctx context.Context, telegramID int64) error {
	if err := m.storage.Delete(ctx, telegramID); err != nil {
		return fmt.Errorf("delete session from storage: %w", err)
	}

	if cached, ok := StateFromContext(ctx); ok {
		*cached = entity.SessionState{Version: entity.SessionStateCurrentVersion}
	}
	return nil
}
