package handlers

import (
	"context"

	"github.com/futig/onboarding-bot/internal/entity"
)

// OnboardingUsecase defines the onboarding operations used by the Telegram bot handlers
type OnboardingUsecase interface {
	BeginRegistration(ctx context.Context, telegramID int64) (*entity.User, error)
	CompleteRegistration(ctx context.Context, telegramID int64, username *string, fullName string) (*entity.User, error)
	Start(ctx context.Context, telegramID int64) (*entity.Turn, error)
	Submit(ctx context.Context, telegramID int64, reply entity.Reply) (*entity.Turn, error)
	Report(ctx context.Context, telegramID int64) (*entity.ReportFile, error)
	Summary(ctx context.Context, telegramID int64) (string, error)
	Reset(ctx context.Context, telegramID int64) error
}

// ReviewUsecase defines the expert review operations available in chat
type ReviewUsecase interface {
	List(ctx context.Context, reviewerID int64) ([]*entity.SubmissionDetails, error)
	Open(ctx context.Context, reviewerID int64, submissionID string) (*entity.SubmissionDetails, error)
	Grade(ctx context.Context, reviewerID int64, text string) (*entity.SubmissionDetails, error)
	Cancel(ctx context.Context, reviewerID int64) error
}

// SummaryRenderer turns the plain-text progress summary into a file
type SummaryRenderer interface {
	Render(format entity.ResultFormat, base, title, text string) (*entity.ReportFile, string, error)
}

// FileReader loads stored uploads, so experts can see the file they grade
type FileReader interface {
	Read(path string) ([]byte, error)
}
