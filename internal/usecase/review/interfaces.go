package review

import (
	"context"

	"github.com/futig/onboarding-bot/internal/entity"
)

type SessionStore interface {
	Load(ctx context.Context, telegramID int64) (*entity.SessionState, error)
	Save(ctx context.Context, telegramID int64, st *entity.SessionState) error
	Clear(ctx context.Context, telegramID int64) error
}

type Notifier interface {
	SubmissionReviewed(ctx context.Context, data *entity.CallbackSubmissionData)
}
