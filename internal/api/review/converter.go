package review

import (
	"encoding/json"

	"github.com/futig/onboarding-bot/internal/entity"
)

// toSubmissionDTO flattens a submission with its step and trainee
func toSubmissionDTO(d *entity.SubmissionDetails) entity.SubmissionDTO {
	sub := d.Submission
	dto := entity.SubmissionDTO{
		ID:              sub.ID,
		StepID:          sub.StepID,
		Status:          sub.Status,
		TextAnswer:      sub.TextAnswer,
		FilePath:        sub.FilePath,
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
	if d.Step != nil {
		dto.StepOrder = d.Step.Order
		dto.StepTitle = d.Step.Title
	}
	if d.User != nil {
		dto.TelegramID = d.User.TelegramID
		dto.FullName = d.User.FullName
	}
	return dto
}

func toSubmissionDTOs(items []*entity.SubmissionDetails) []entity.SubmissionDTO {
	out := make([]entity.SubmissionDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toSubmissionDTO(item))
	}
	return out
}
