package trainee

import (
	"context"

	"github.com/futig/onboarding-bot/internal/entity"
)

type OnboardingUsecase interface {
	Progress(ctx context.Context, telegramID int64) (*entity.Progress, error)
	Report(ctx context.Context, telegramID int64) (*entity.ReportFile, error)
	Summary(ctx context.Context, telegramID int64) (string, error)
}

// SummaryRenderer turns the plain-text progress summary into a file
type SummaryRenderer interface {
	Render(format entity.ResultFormat, base, title, text string) (*entity.ReportFile, string, error)
}
