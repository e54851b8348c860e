package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/llmparse"
	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/pkg/metrics"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Reply texts equivalent to the step buttons.
const (
	AcknowledgeText = "Готово ✅"
	EvaluateText    = "Оценить результат"
	SkipText        = "Пропустить"
)

const (
	completedAnswer = "Completed"
	skippedNotes    = "Оценка пропущена пользователем"
	noAnswerComment = "Нет ответа для оценки"

	tooFastRatio = 0.3
	tooSlowRatio = 3.0
)

// Submit processes one reply of the trainee to the armed step.
// Input errors come back as notices in the turn; only infrastructure failures are returned as errors.
// The trainee may retry after such a failure: a step is never stored twice.
func (uc *OnboardingUsecase) Submit(ctx context.Context, telegramID int64, reply entity.Reply) (*entity.Turn, error) {
	ctx = logger.WithAction(ctx, "submit_step")

	st, err := uc.sessions.Load(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if st.Step == nil {
		return expiredTurn(), nil
	}
	if reply.StepID != 0 && reply.StepID != st.Step.StepID {
		ctxzap.Info(ctx, "button of another step ignored",
			zap.Int64("button_step_id", reply.StepID),
			zap.Int64("armed_step_id", st.Step.StepID),
		)
		return rejected(entity.NoticeStaleButton), nil
	}

	user, err := uc.registeredUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	step, err := uc.stepRepo.GetStepByID(ctx, st.Step.StepID)
	if err != nil {
		if errors.Is(err, entity.ErrStepNotFound) {
			return uc.expire(ctx, telegramID)
		}
		return nil, fmt.Errorf("get step: %w", err)
	}
	ctx = logger.WithStep(ctx, step)

	answered, err := uc.alreadyAnswered(ctx, user.ID, step.ID)
	if err != nil {
		return nil, err
	}
	if answered {
		ctxzap.Warn(ctx, "armed step already has a submission, moving the session on")
		turn := &entity.Turn{}
		turn.Add(entity.Notice{Kind: entity.NoticeAlreadyRecorded})
		return uc.advance(ctx, telegramID, user, st, turn)
	}

	switch st.Phase {
	case entity.PhaseCollecting:
		return uc.collect(ctx, telegramID, user, step, st, reply)
	case entity.PhaseAwaitingStep:
	default:
		return uc.expire(ctx, telegramID)
	}

	draft := &entity.Submission{
		UserID: user.ID,
		StepID: step.ID,
		Status: entity.SubmissionStatusChecked,
	}
	turn := &entity.Turn{}
	var notices []entity.Notice

	switch step.Type.Expectation() {
	case entity.ExpectAcknowledge:
		if !isAcknowledge(reply) {
			return rejected(entity.NoticeAcknowledgeRequired), nil
		}
		draft.TextAnswer = optionalString(completedAnswer)

	case entity.ExpectFreeText:
		if strings.TrimSpace(reply.Text) == "" {
			return rejected(entity.NoticeTextRequired), nil
		}
		draft.TextAnswer = optionalString(reply.Text)
		st.LastTextAnswer = reply.Text
		notices = append(notices, entity.Notice{Kind: entity.NoticeAnswerSaved})

	case entity.ExpectEvaluate:
		notices = uc.evaluateAnswer(ctx, st.LastTextAnswer, step, reply, draft)

	case entity.ExpectDocument:
		var reject *entity.Notice
		reject, notices, err = uc.processUpload(ctx, user, step, reply.Document, draft)
		if err != nil {
			return nil, err
		}
		if reject != nil {
			return rejectedWith(*reject), nil
		}

	default:
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidStepType, step.Type)
	}

	sub, err := uc.record(ctx, st, draft, turn)
	if err != nil {
		return nil, err
	}
	for _, n := range notices {
		turn.Add(n)
	}
	if sub.Status == entity.SubmissionStatusPending && sub.FilePath != nil {
		uc.notifier.SubmissionNeedsReview(ctx, callbackData(user, step, sub))
	}

	return uc.advance(ctx, telegramID, user, st, turn)
}

// alreadyAnswered reports whether stepID counts as attempted. That happens when a turn
// stored its submission but failed before the session moved to the next step.
func (uc *OnboardingUsecase) alreadyAnswered(ctx context.Context, userID string, stepID int64) (bool, error) {
	attempted, err := uc.submissionRepo.AttemptedStepIDs(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("get attempted steps: %w", err)
	}
	_, ok := attempted[stepID]
	return ok, nil
}

// evaluateAnswer fills draft for an evaluation step, which grades the previous free-text answer.
func (uc *OnboardingUsecase) evaluateAnswer(
	ctx context.Context, answer string, step *entity.Step, reply entity.Reply, draft *entity.Submission,
) []entity.Notice {
	draft.TextAnswer = optionalString(answer)

	if isSkip(reply) {
		draft.Status = entity.SubmissionStatusPending
		draft.EvaluationNotes = optionalString(skippedNotes)
		return []entity.Notice{{Kind: entity.NoticeEvaluationSkipped}}
	}

	if strings.TrimSpace(answer) == "" {
		draft.EvaluationNotes = optionalString(noAnswerComment)
		draft.AutoCheckResult = optionalString(noAnswerComment)
		return []entity.Notice{{Kind: entity.NoticeEvaluated, Text: noAnswerComment}}
	}

	result, err := uc.evaluator.ScoreAnswer(ctx, answer, step.Description)
	if err != nil {
		ctxzap.Warn(ctx, "live evaluation degraded", zap.Error(err))
		comment := "LLM недоступен: " + err.Error()
		draft.EvaluationNotes = optionalString(comment)
		draft.AutoCheckResult = optionalString(comment)
		return []entity.Notice{{Kind: entity.NoticeEvaluationUnavailable, Text: comment}}
	}

	var score *float64
	if result.Score != nil {
		v := llmparse.ClampLive(*result.Score)
		score = &v
	}
	draft.EvaluationScore = score
	draft.EvaluationNotes = optionalString(result.Comment)
	draft.AutoCheckResult = optionalString(result.Comment)
	return []entity.Notice{{Kind: entity.NoticeEvaluated, Score: score, Text: result.Comment}}
}

// record applies the timing policy to draft and persists it.
func (uc *OnboardingUsecase) record(
	ctx context.Context, st *entity.SessionState, draft *entity.Submission, turn *entity.Turn,
) (*entity.Submission, error) {
	now := uc.now()
	draft.CreatedAt = now
	if st.Step != nil && !st.Step.StartedAt.IsZero() {
		started := st.Step.StartedAt
		draft.StartedAt = &started
	}

	warning, notice := timingWarning(st.Step, now)
	draft.TimeWarning = warning
	if notice != nil {
		turn.Add(*notice)
		metrics.TimeWarningsTotal.WithLabelValues(string(warning)).Inc()
	}

	sub, err := uc.submissionRepo.CreateSubmission(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	metrics.SubmissionsTotal.WithLabelValues(string(st.Step.StepType), string(sub.Status)).Inc()
	ctxzap.Info(ctx, "submission recorded",
		zap.String("submission_id", sub.ID),
		zap.String("status", string(sub.Status)),
		zap.String("time_warning", string(sub.TimeWarning)),
	)
	return sub, nil
}

// timingWarning flags replies given much faster or slower than the estimate. It never blocks.
func timingWarning(active *entity.ActiveStep, now time.Time) (entity.TimeWarning, *entity.Notice) {
	if active == nil || active.StartedAt.IsZero() || active.EstimatedDuration <= 0 {
		return entity.TimeWarningNone, nil
	}

	elapsed := now.Sub(active.StartedAt).Minutes()
	estimate := float64(active.EstimatedDuration)
	switch {
	case elapsed < estimate*tooFastRatio:
		return entity.TimeWarningTooFast, &entity.Notice{
			Kind: entity.NoticeTooFast, Elapsed: elapsed, Estimate: active.EstimatedDuration,
		}
	case elapsed > estimate*tooSlowRatio:
		return entity.TimeWarningTooSlow, &entity.Notice{
			Kind: entity.NoticeTooSlow, Elapsed: elapsed, Estimate: active.EstimatedDuration,
		}
	}
	return entity.TimeWarningNone, nil
}

// advance presents the next step, or finishes the curriculum and builds the report.
func (uc *OnboardingUsecase) advance(
	ctx context.Context, telegramID int64, user *entity.User, st *entity.SessionState, turn *entity.Turn,
) (*entity.Turn, error) {
	next, err := uc.NextStep(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if next != nil {
		turn.Next = uc.Present(st, next)
		if err := uc.sessions.Save(ctx, telegramID, st); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		return turn, nil
	}

	turn.Completed = true
	turn.Add(entity.Notice{Kind: entity.NoticeOnboardingComplete})

	report, err := uc.reports.Generate(ctx, user)
	if err != nil {
		ctxzap.Error(ctx, "completion report failed", zap.Error(err))
		turn.Add(entity.Notice{Kind: entity.NoticeReportUnavailable, Text: err.Error()})
	} else {
		turn.Report = report
	}

	if progress, err := uc.Progress(ctx, telegramID); err == nil {
		uc.notifier.OnboardingCompleted(ctx, &entity.CallbackCompletionData{
			TelegramID:  user.TelegramID,
			FullName:    user.FullName,
			Submissions: len(progress.Submissions),
			TotalSteps:  progress.TotalSteps,
		})
	} else {
		ctxzap.Warn(ctx, "failed to summarize completed onboarding", zap.Error(err))
	}

	if err := uc.sessions.Clear(ctx, telegramID); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}
	ctxzap.Info(ctx, "onboarding completed")
	return turn, nil
}

// expire drops a session that no longer matches the catalog and asks for a restart.
func (uc *OnboardingUsecase) expire(ctx context.Context, telegramID int64) (*entity.Turn, error) {
	ctxzap.Warn(ctx, "session state does not match any armed step")
	if err := uc.sessions.Clear(ctx, telegramID); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}
	return expiredTurn(), nil
}

func expiredTurn() *entity.Turn {
	return rejected(entity.NoticeSessionExpired)
}

func rejected(kind entity.NoticeKind) *entity.Turn {
	return rejectedWith(entity.Notice{Kind: kind})
}

func rejectedWith(n entity.Notice) *entity.Turn {
	metrics.RejectedRepliesTotal.WithLabelValues(string(n.Kind)).Inc()
	return &entity.Turn{Notices: []entity.Notice{n}}
}

func isAcknowledge(reply entity.Reply) bool {
	return reply.Signal == entity.SignalDone || reply.Text == AcknowledgeText
}

func isSkip(reply entity.Reply) bool {
	if reply.Signal == entity.SignalSkip {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(reply.Text)) {
	case "/skip", strings.ToLower(SkipText):
		return true
	}
	return false
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func callbackData(user *entity.User, step *entity.Step, sub *entity.Submission) *entity.CallbackSubmissionData {
	return &entity.CallbackSubmissionData{
		SubmissionID: sub.ID,
		TelegramID:   user.TelegramID,
		FullName:     user.FullName,
		StepOrder:    step.Order,
		StepTitle:    step.Title,
		Status:       sub.Status,
		Score:        sub.EvaluationScore,
	}
}
