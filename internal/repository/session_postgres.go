package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/state"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ state.Storage = &SessionPostgres{}

// SessionPostgres keeps conversation state in the telegram_sessions table
type SessionPostgres struct {
	db *pgxpool.Pool
}

func NewSessionPostgres(db *pgxpool.Pool) *SessionPostgres {
	return &SessionPostgres{db: db}
}

func (r *SessionPostgres) Get(ctx context.Context, telegramID int64) (*state.Session, error) {
	var sess state.Session
	err := r.db.QueryRow(ctx,
		`SELECT telegram_id, state_data, created_at, updated_at FROM telegram_sessions WHERE telegram_id = $1`,
		telegramID,
	).Scan(&sess.TelegramID, &sess.StateData, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrSessionNotFound
		}
		return nil, fmt.Errorf("query telegram session: %w", err)
	}
	return &sess, nil
}

// Set upserts the session; created_at of an existing row is kept.
func (r *SessionPostgres) Set(ctx context.Context, sess *state.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO telegram_sessions (telegram_id, state_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE
		SET state_data = EXCLUDED.state_data, updated_at = EXCLUDED.updated_at`,
		sess.TelegramID, []byte(sess.StateData), sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert telegram session: %w", err)
	}
	return nil
}

func (r *SessionPostgres) Delete(ctx context.Context, telegramID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM telegram_sessions WHERE telegram_id = $1`, telegramID); err != nil {
		return fmt.Errorf("delete telegram session: %w", err)
	}
	return nil
}
