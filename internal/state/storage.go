package state

import (
	"context"
	"encoding/json"
	"time"
)

// Session is the stored conversation document of one Telegram user.
type Session struct {
	TelegramID int64           `json:"telegram_id"`
	StateData  json.RawMessage `json:"state_data,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Storage defines the interface for session persistence
type Storage interface {
	// Get retrieves a session by Telegram user ID.
	// Returns entity.ErrSessionNotFound when nothing is stored.
	Get(ctx context.Context, telegramID int64) (*Session, error)

	// Set saves a session, replacing any previous document
	Set(ctx context.Context, session *Session) error

	// Delete removes a session; deleting a missing session is not an error
	Delete(ctx context.Context, telegramID int64) error
}
