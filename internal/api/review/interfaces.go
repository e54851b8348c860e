package review

import (
	"context"

	"github.com/futig/onboarding-bot/internal/entity"
)

type ReviewUsecase interface {
	Queue(ctx context.Context, statuses []entity.SubmissionStatus, limit int) ([]*entity.SubmissionDetails, error)
	Review(ctx context.Context, submissionID string, req *entity.ReviewRequest) (*entity.SubmissionDetails, error)
}
