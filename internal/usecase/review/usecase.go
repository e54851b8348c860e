package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/pkg/validator"
	"github.com/futig/onboarding-bot/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ApprovalScore is the lowest expert score that approves a submission.
const ApprovalScore = 3

const defaultQueueLimit = 20

// QueueStatuses are the statuses an expert is expected to look at.
var QueueStatuses = []entity.SubmissionStatus{
	entity.SubmissionStatusPending,
	entity.SubmissionStatusChecked,
}

// ReviewUsecase lets experts grade submissions, from the bot or through the API.
type ReviewUsecase struct {
	userRepo       repository.UserRepository
	submissionRepo repository.SubmissionRepository
	sessions       SessionStore
	validator      *validator.Validator
	notifier       Notifier
}

func NewUsecase(
	userRepo repository.UserRepository,
	submissionRepo repository.SubmissionRepository,
	sessions SessionStore,
	validator *validator.Validator,
	notifier Notifier,
) *ReviewUsecase {
	return &ReviewUsecase{
		userRepo:       userRepo,
		submissionRepo: submissionRepo,
		sessions:       sessions,
		validator:      validator,
		notifier:       notifier,
	}
}

// Queue lists submissions in any of statuses, oldest first. An empty statuses means QueueStatuses.
func (uc *ReviewUsecase) Queue(
	ctx context.Context, statuses []entity.SubmissionStatus, limit int,
) ([]*entity.SubmissionDetails, error) {
	if len(statuses) == 0 {
		statuses = QueueStatuses
	}
	for _, s := range statuses {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	items, err := uc.submissionRepo.ListByStatus(ctx, statuses, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions by status: %w", err)
	}
	return items, nil
}

// List returns the review queue for an expert chatting with the bot.
func (uc *ReviewUsecase) List(ctx context.Context, reviewerID int64) ([]*entity.SubmissionDetails, error) {
	if _, err := uc.reviewer(ctx, reviewerID); err != nil {
		return nil, err
	}
	return uc.Queue(ctx, QueueStatuses, defaultQueueLimit)
}

// Open shows a submission and waits for the grade in the next message of the expert.
func (uc *ReviewUsecase) Open(ctx context.Context, reviewerID int64, submissionID string) (*entity.SubmissionDetails, error) {
	if _, err := uc.reviewer(ctx, reviewerID); err != nil {
		return nil, err
	}

	details, err := uc.submissionRepo.GetSubmissionDetails(ctx, strings.TrimSpace(submissionID))
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if details.Submission.Status.IsTerminal() {
		return nil, entity.ErrTerminalStatus
	}

	st, err := uc.sessions.Load(ctx, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	st.Phase = entity.PhaseExpertGrading
	st.Review = &entity.ReviewCursor{SubmissionID: details.Submission.ID}
	if err := uc.sessions.Save(ctx, reviewerID, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return details, nil
}

// Grade parses "<score 1-5> <comment>" for the submission opened by the expert.
func (uc *ReviewUsecase) Grade(ctx context.Context, reviewerID int64, text string) (*entity.SubmissionDetails, error) {
	st, err := uc.sessions.Load(ctx, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if st.Phase != entity.PhaseExpertGrading || st.Review == nil {
		return nil, entity.ErrSessionExpired
	}

	score, comment, err := validator.ParseGrade(text)
	if err != nil {
		return nil, err
	}

	details, err := uc.Review(ctx, st.Review.SubmissionID, &entity.ReviewRequest{
		ReviewerTelegramID: reviewerID,
		Score:              score,
		Comment:            comment,
	})
	if err != nil {
		if errors.Is(err, entity.ErrTerminalStatus) || errors.Is(err, entity.ErrSubmissionNotFound) {
			_ = uc.sessions.Clear(ctx, reviewerID)
		}
		return nil, err
	}

	if err := uc.sessions.Clear(ctx, reviewerID); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}
	return details, nil
}

// Cancel leaves the grading phase without storing anything.
func (uc *ReviewUsecase) Cancel(ctx context.Context, reviewerID int64) error {
	if err := uc.sessions.Clear(ctx, reviewerID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Review stores an expert grade. Scores from ApprovalScore up approve the submission, lower ones reject it.
func (uc *ReviewUsecase) Review(
	ctx context.Context, submissionID string, req *entity.ReviewRequest,
) (*entity.SubmissionDetails, error) {
	ctx = logger.WithAction(ctx, "review_submission")

	if err := uc.validator.ValidateReview(req); err != nil {
		return nil, err
	}
	if _, err := uc.reviewer(ctx, req.ReviewerTelegramID); err != nil {
		return nil, err
	}

	status := entity.SubmissionStatusRejected
	if req.Score >= ApprovalScore {
		status = entity.SubmissionStatusApproved
	}

	comment := strings.TrimSpace(req.Comment)
	if _, err := uc.submissionRepo.UpdateReview(ctx, submissionID, req.Score, comment, status); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	details, err := uc.submissionRepo.GetSubmissionDetails(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	score := req.Score
	uc.notifier.SubmissionReviewed(ctx, &entity.CallbackSubmissionData{
		SubmissionID: details.Submission.ID,
		TelegramID:   details.User.TelegramID,
		FullName:     details.User.FullName,
		StepOrder:    details.Step.Order,
		StepTitle:    details.Step.Title,
		Status:       details.Submission.Status,
		Score:        details.Submission.EvaluationScore,
		ExpertScore:  &score,
		Comment:      comment,
	})

	ctxzap.Info(ctx, "submission reviewed",
		zap.String("submission_id", submissionID),
		zap.Int("expert_score", req.Score),
		zap.String("status", string(status)),
	)
	return details, nil
}

func (uc *ReviewUsecase) reviewer(ctx context.Context, telegramID int64) (*entity.User, error) {
	user, err := uc.userRepo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, entity.ErrForbidden
		}
		return nil, fmt.Errorf("get reviewer: %w", err)
	}
	if !user.Role.CanReview() {
		return nil, entity.ErrForbidden
	}
	return user, nil
}
