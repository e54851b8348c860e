package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/validator"
	"github.com/futig/onboarding-bot/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Uploads groups the collaborators of the file upload step.
type Uploads struct {
	Validator *validator.Validator
	Inspector FileInspector
	Checker   SearchMapChecker
	Fetcher   FileFetcher
	Store     FileStore
}

// OnboardingUsecase drives a trainee through the step catalog
type OnboardingUsecase struct {
	userRepo       repository.UserRepository
	stepRepo       repository.StepRepository
	submissionRepo repository.SubmissionRepository
	sessions       SessionStore
	evaluator      Evaluator
	uploads        Uploads
	reports        ReportGenerator
	notifier       Notifier
	logger         *zap.Logger
	now            func() time.Time
}

// NewUsecase creates a new onboarding use case
func NewUsecase(
	userRepo repository.UserRepository,
	stepRepo repository.StepRepository,
	submissionRepo repository.SubmissionRepository,
	sessions SessionStore,
	evaluator Evaluator,
	uploads Uploads,
	reports ReportGenerator,
	notifier Notifier,
	logger *zap.Logger,
) *OnboardingUsecase {
	return &OnboardingUsecase{
		userRepo:       userRepo,
		stepRepo:       stepRepo,
		submissionRepo: submissionRepo,
		sessions:       sessions,
		evaluator:      evaluator,
		uploads:        uploads,
		reports:        reports,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
	}
}

// BeginRegistration waits for the full name of the trainee in the next message.
// It returns the existing user, if any.
func (uc *OnboardingUsecase) BeginRegistration(ctx context.Context, telegramID int64) (*entity.User, error) {
	user, err := uc.userRepo.GetUserByTelegramID(ctx, telegramID)
	if err != nil && !errors.Is(err, entity.ErrUserNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	st := &entity.SessionState{Phase: entity.PhaseAwaitingName}
	if err := uc.sessions.Save(ctx, telegramID, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return user, nil
}

// CompleteRegistration stores the full name and ends the registration phase.
func (uc *OnboardingUsecase) CompleteRegistration(
	ctx context.Context, telegramID int64, username *string, fullName string,
) (*entity.User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name", entity.ErrMissingField)
	}

	user, err := uc.userRepo.UpsertUser(ctx, telegramID, username, fullName)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	if err := uc.sessions.Clear(ctx, telegramID); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}

	ctxzap.Info(ctx, "trainee registered", zap.String("user_id", user.ID))
	return user, nil
}

// Start presents the next unattempted step, or reports that the curriculum is done.
func (uc *OnboardingUsecase) Start(ctx context.Context, telegramID int64) (*entity.Turn, error) {
	user, err := uc.registeredUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	next, err := uc.NextStep(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	turn := &entity.Turn{}
	if next == nil {
		turn.Completed = true
		turn.Add(entity.Notice{Kind: entity.NoticeOnboardingComplete})
		return turn, nil
	}

	st, err := uc.sessions.Load(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	turn.Next = uc.Present(st, next)
	if err := uc.sessions.Save(ctx, telegramID, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return turn, nil
}

// Reset drops the conversation state. Submissions are kept.
func (uc *OnboardingUsecase) Reset(ctx context.Context, telegramID int64) error {
	if err := uc.sessions.Clear(ctx, telegramID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Report builds the xlsx report of a trainee on demand.
func (uc *OnboardingUsecase) Report(ctx context.Context, telegramID int64) (*entity.ReportFile, error) {
	user, err := uc.registeredUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	file, err := uc.reports.Generate(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	return file, nil
}

// Progress summarizes the position of a trainee in the curriculum.
func (uc *OnboardingUsecase) Progress(ctx context.Context, telegramID int64) (*entity.Progress, error) {
	user, err := uc.userRepo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	steps, err := uc.stepRepo.ListSteps(ctx)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}

	subs, err := uc.submissionRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	progress := &entity.Progress{
		User:        user,
		TotalSteps:  len(steps),
		Submissions: subs,
	}

	attempted := make(map[int64]struct{})
	var scoreSum float64
	var scored int
	for _, sub := range subs {
		if sub.Status.Attempted() {
			attempted[sub.StepID] = struct{}{}
		}
		if sub.EvaluationScore != nil {
			scoreSum += *sub.EvaluationScore
			scored++
		}
		switch sub.TimeWarning {
		case entity.TimeWarningTooFast:
			progress.TooFast++
		case entity.TimeWarningTooSlow:
			progress.TooSlow++
		}
	}
	progress.AttemptedSteps = len(attempted)
	progress.NextStep = firstUnattempted(steps, attempted)
	if scored > 0 {
		avg := scoreSum / float64(scored)
		progress.AverageLiveScore = &avg
	}
	return progress, nil
}

func (uc *OnboardingUsecase) registeredUser(ctx context.Context, telegramID int64) (*entity.User, error) {
	user, err := uc.userRepo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, entity.ErrUserNotRegistered
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
