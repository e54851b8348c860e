package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository defines the interface for trainee and reviewer persistence
type UserRepository interface {
	UpsertUser(ctx context.Context, telegramID int64, username *string, fullName string) (*entity.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error)
	GetUserByID(ctx context.Context, id string) (*entity.User, error)
	SetRole(ctx context.Context, telegramID int64, role entity.Role) (*entity.User, error)
}

var _ UserRepository = &UserPostgres{}

// UserPostgres implements UserRepository using PostgreSQL
type UserPostgres struct {
	db *pgxpool.Pool
}

func NewUserPostgres(db *pgxpool.Pool) *UserPostgres {
	return &UserPostgres{db: db}
}

const userColumns = `id, telegram_id, username, full_name, role, created_at`

// UpsertUser creates the user on first registration and refreshes the name on later ones.
// The role of an existing user is kept.
func (r *UserPostgres) UpsertUser(ctx context.Context, telegramID int64, username *string, fullName string) (*entity.User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (id, telegram_id, username, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username, full_name = EXCLUDED.full_name
		RETURNING `+userColumns,
		uuid.New(), telegramID, username, fullName, string(entity.RoleStudent),
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

func (r *UserPostgres) GetUserByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return user, nil
}

func (r *UserPostgres) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q", entity.ErrInvalidParameter, id)
	}

	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserPostgres) SetRole(ctx context.Context, telegramID int64, role entity.Role) (*entity.User, error) {
	if err := role.Validate(); err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx,
		`UPDATE users SET role = $2 WHERE telegram_id = $1 RETURNING `+userColumns,
		telegramID, string(role),
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrUserNotFound
		}
		return nil, fmt.Errorf("set user role: %w", err)
	}
	return user, nil
}
