package entity

import (
	"fmt"
	"strings"
	"time"
)

type ResultFormat string

const (
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

// ParseResultFormat accepts the format names and the "md" alias. Empty means Markdown.
func ParseResultFormat(s string) (ResultFormat, error) {
	switch f := ResultFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "md":
		return FormatMarkdown, nil
	default:
		if !f.IsValid() {
			return "", fmt.Errorf("%w: format must be one of md, docx, pdf, got %q", ErrInvalidFormat, s)
		}
		return f, nil
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type StepDTO struct {
	ID                int64    `json:"id"`
	Order             int      `json:"order"`
	Day               int      `json:"day"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Type              StepType `json:"step_type"`
	EstimatedDuration int      `json:"estimated_duration"`
	ContentURL        *string  `json:"content_url,omitempty"`
	Collection        string   `json:"collection,omitempty"`
	Competency        string   `json:"competency,omitempty"`
}

type SubmissionDTO struct {
	ID              string           `json:"id"`
	StepID          int64            `json:"step_id"`
	StepOrder       int              `json:"step_order,omitempty"`
	StepTitle       string           `json:"step_title,omitempty"`
	TelegramID      int64            `json:"telegram_id,omitempty"`
	FullName        string           `json:"full_name,omitempty"`
	Status          SubmissionStatus `json:"status"`
	TextAnswer      *string          `json:"text_answer,omitempty"`
	FilePath        *string          `json:"file_path,omitempty"`
	StructuredData  any              `json:"structured_data,omitempty"`
	AutoCheckResult *string          `json:"auto_check_result,omitempty"`
	EvaluationScore *float64         `json:"evaluation_score,omitempty"`
	EvaluationNotes *string          `json:"evaluation_notes,omitempty"`
	Feedback        *string          `json:"feedback,omitempty"`
	ExpertScore     *int             `json:"expert_score,omitempty"`
	ExpertComment   *string          `json:"expert_comment,omitempty"`
	TimeWarning     TimeWarning      `json:"time_warning"`
	CompletionMin   *float64         `json:"completion_minutes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

type ProgressDTO struct {
	TelegramID       int64           `json:"telegram_id"`
	FullName         string          `json:"full_name"`
	TotalSteps       int             `json:"total_steps"`
	AttemptedSteps   int             `json:"attempted_steps"`
	Completed        bool            `json:"completed"`
	NextStep         *StepDTO        `json:"next_step,omitempty"`
	AverageLiveScore *float64        `json:"average_live_score,omitempty"`
	TooFast          int             `json:"too_fast"`
	TooSlow          int             `json:"too_slow"`
	Submissions      []SubmissionDTO `json:"submissions"`
}

type ReviewRequest struct {
	ReviewerTelegramID int64  `json:"reviewer_telegram_id"`
	Score              int    `json:"score"`
	Comment            string `json:"comment"`
}
