package entity

// CallbackEventType represents the type of callback event
type CallbackEventType string

const (
	CallbackEventNeedsReview         CallbackEventType = "submission_needs_review"
	CallbackEventReviewed            CallbackEventType = "submission_reviewed"
	CallbackEventOnboardingCompleted CallbackEventType = "onboarding_completed"
)

// CallbackEvent represents a callback event
type CallbackEvent struct {
	Event     CallbackEventType `json:"event"`
	Timestamp string            `json:"timestamp"` // ISO-8601 UTC
	Data      any               `json:"data"`
}

// CallbackSubmissionData describes a submission in needs_review and reviewed events
type CallbackSubmissionData struct {
	SubmissionID string           `json:"submission_id"`
	TelegramID   int64            `json:"telegram_id"`
	FullName     string           `json:"full_name"`
	StepOrder    int              `json:"step_order"`
	StepTitle    string           `json:"step_title"`
	Status       SubmissionStatus `json:"status"`
	Score        *float64         `json:"score,omitempty"`
	ExpertScore  *int             `json:"expert_score,omitempty"`
	Comment      string           `json:"comment,omitempty"`
}

// CallbackCompletionData describes a trainee who finished the curriculum
type CallbackCompletionData struct {
	TelegramID  int64  `json:"telegram_id"`
	FullName    string `json:"full_name"`
	Submissions int    `json:"submissions"`
	TotalSteps  int    `json:"total_steps"`
}
