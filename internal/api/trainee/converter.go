package trainee

import (
	"encoding/json"

	"github.com/futig/onboarding-bot/internal/entity"
)

// toProgressDTO converts a progress snapshot to its API shape
func toProgressDTO(p *entity.Progress) *entity.ProgressDTO {
	dto := &entity.ProgressDTO{
		TelegramID:       p.User.TelegramID,
		FullName:         p.User.FullName,
		TotalSteps:       p.TotalSteps,
		AttemptedSteps:   p.AttemptedSteps,
		Completed:        p.Completed(),
		AverageLiveScore: p.AverageLiveScore,
		TooFast:          p.TooFast,
		TooSlow:          p.TooSlow,
		Submissions:      make([]entity.SubmissionDTO, 0, len(p.Submissions)),
	}
	if p.NextStep != nil {
		dto.NextStep = toStepDTO(p.NextStep)
	}
	for _, sub := range p.Submissions {
		dto.Submissions = append(dto.Submissions, toSubmissionDTO(sub))
	}
	return dto
}

func toStepDTO(step *entity.Step) *entity.StepDTO {
	dto := &entity.StepDTO{
		ID:                step.ID,
		Order:             step.Order,
		Day:               step.Day(),
		Title:             step.Title,
		Description:       step.Description,
		Type:              step.Type,
		EstimatedDuration: step.EstimatedDuration,
		ContentURL:        step.ContentURL,
		Competency:        step.Competency,
	}
	if step.Collection != nil {
		dto.Collection = string(step.Collection.Kind)
	}
	return dto
}

func toSubmissionDTO(sub *entity.Submission) entity.SubmissionDTO {
	dto := entity.SubmissionDTO{
		ID:              sub.ID,
		StepID:          sub.StepID,
		Status:          sub.Status,
		TextAnswer:      sub.TextAnswer,
		AutoCheckResult: sub.AutoCheckResult,
		EvaluationScore: sub.EvaluationScore,
		EvaluationNotes: sub.EvaluationNotes,
		Feedback:        sub.Feedback,
		ExpertScore:     sub.ExpertScore,
		ExpertComment:   sub.ExpertComment,
		TimeWarning:     sub.TimeWarning,
		CompletionMin:   sub.CompletionMinutes(),
		CreatedAt:       sub.CreatedAt,
	}
	if len(sub.StructuredData) > 0 {
		dto.StructuredData = json.RawMessage(sub.StructuredData)
	}
	return dto
}
