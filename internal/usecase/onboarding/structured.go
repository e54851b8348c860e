package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/llmparse"
	"github.com/futig/onboarding-bot/internal/usecase/collection"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	defaultStructuredScore = 5.0
	noEvaluationFeedback   = "Задание принято. Оценка не требуется."
	degradedFeedback       = "Автоматическая оценка недоступна, ответ сохранён для эксперта: "
)

// collect feeds a reply to the collection dialogue of step and finalizes it when complete.
func (uc *OnboardingUsecase) collect(
	ctx context.Context, telegramID int64, user *entity.User, step *entity.Step, st *entity.SessionState, reply entity.Reply,
) (*entity.Turn, error) {
	if !step.HasCollection() {
		return uc.expire(ctx, telegramID)
	}

	text := strings.TrimSpace(reply.Text)
	if text == "" {
		return rejected(entity.NoticeTextRequired), nil
	}

	out, err := collection.Advance(step.Collection, st.Collection, text)
	if err != nil {
		if errors.Is(err, entity.ErrSessionExpired) {
			return uc.expire(ctx, telegramID)
		}
		return nil, fmt.Errorf("advance collection: %w", err)
	}

	turn := &entity.Turn{Notices: out.Notices}
	st.Collection = out.Cursor

	if !out.Done {
		turn.Ask = out.Ask
		if err := uc.sessions.Save(ctx, telegramID, st); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		return turn, nil
	}

	return uc.finishCollection(ctx, telegramID, user, step, st, out, turn)
}

// finishCollection persists the collected data, then evaluates it.
func (uc *OnboardingUsecase) finishCollection(
	ctx context.Context, telegramID int64, user *entity.User, step *entity.Step,
	st *entity.SessionState, out *collection.Outcome, turn *entity.Turn,
) (*entity.Turn, error) {
	data, answer := out.Data, out.Raw
	if step.Collection.Kind == entity.CollectionTextParse {
		data = uc.evaluator.ParseStructured(ctx, out.Raw, step.Collection.TextParse.ParseInstruction)
	} else {
		answer = string(data)
	}

	sub, err := uc.record(ctx, st, &entity.Submission{
		UserID:         user.ID,
		StepID:         step.ID,
		Status:         entity.SubmissionStatusChecked,
		TextAnswer:     optionalString(answer),
		StructuredData: data,
	}, turn)
	if err != nil {
		return nil, err
	}

	eval, notice := uc.evaluateStructured(ctx, step, data)
	updated, err := uc.submissionRepo.UpdateEvaluation(ctx, sub.ID, eval)
	if err != nil {
		// The answer stays stored as checked, as with an unavailable evaluator.
		ctxzap.Error(ctx, "failed to store structured evaluation", zap.String("submission_id", sub.ID), zap.Error(err))
		feedback := degradedFeedback + err.Error()
		notice = entity.Notice{
			Kind:   entity.NoticeEvaluationUnavailable,
			Status: sub.Status,
			Text:   feedback,
			Data:   data,
		}
	} else {
		sub = updated
	}
	turn.Add(notice)

	if sub.Status == entity.SubmissionStatusNeedsImprovement || sub.Status == entity.SubmissionStatusPending {
		uc.notifier.SubmissionNeedsReview(ctx, callbackData(user, step, sub))
	}

	return uc.advance(ctx, telegramID, user, st, turn)
}

// evaluateStructured grades collected data. Evaluator failure leaves the status untouched.
func (uc *OnboardingUsecase) evaluateStructured(
	ctx context.Context, step *entity.Step, data json.RawMessage,
) (entity.SubmissionEvaluation, entity.Notice) {
	var result *entity.StructuredEvaluation
	if step.EvaluationPrompt == nil || strings.TrimSpace(*step.EvaluationPrompt) == "" || len(step.EvaluationCriteria) == 0 {
		result = &entity.StructuredEvaluation{Score: defaultStructuredScore, Feedback: noEvaluationFeedback}
	} else {
		var err error
		result, err = uc.evaluator.EvaluateStructured(ctx, step, data)
		if err != nil {
			ctxzap.Warn(ctx, "structured evaluation degraded", zap.Error(err))
			feedback := degradedFeedback + err.Error()
			return entity.SubmissionEvaluation{
					Feedback:        &feedback,
					EvaluationNotes: &feedback,
				}, entity.Notice{
					Kind:   entity.NoticeEvaluationUnavailable,
					Status: entity.SubmissionStatusChecked,
					Text:   feedback,
					Data:   data,
				}
		}
	}

	result.Score = llmparse.ClampLive(result.Score)
	status := entity.SubmissionStatusNeedsImprovement
	if result.Score >= step.PassingScore {
		status = entity.SubmissionStatusApproved
	}

	score := result.Score
	feedback := result.Feedback
	notes := asJSON(result)
	return entity.SubmissionEvaluation{
			Status:          &status,
			EvaluationScore: &score,
			EvaluationNotes: &notes,
			Feedback:        &feedback,
		}, entity.Notice{
			Kind:   entity.NoticeStructuredResult,
			Status: status,
			Score:  &score,
			Text:   feedback,
			Data:   data,
		}
}
