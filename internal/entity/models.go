package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

type StepType string

// Step types of the curriculum. Each type determines the reply the trainee must give.
const (
	StepTypeContent      StepType = "content"
	StepTypeFileUpload   StepType = "file_upload"
	StepTypeTextInput    StepType = "text_input"
	StepTypeOffline      StepType = "offline"
	StepTypeQuestion     StepType = "question"
	StepTypeSelfReport   StepType = "self_report"
	StepTypeEvaluation   StepType = "evaluation"
	StepTypeConfirmation StepType = "confirmation"
)

func (t StepType) Validate() error {
	switch t {
	case StepTypeContent, StepTypeFileUpload, StepTypeTextInput, StepTypeOffline,
		StepTypeQuestion, StepTypeSelfReport, StepTypeEvaluation, StepTypeConfirmation:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStepType, t)
	}
}

// Expectation describes the reply shape a presented step waits for.
type Expectation string

const (
	ExpectAcknowledge Expectation = "acknowledge"
	ExpectFreeText    Expectation = "free_text"
	ExpectEvaluate    Expectation = "evaluate"
	ExpectDocument    Expectation = "document"
	ExpectCollection  Expectation = "collection"
)

// Expectation maps a step type to the reply it expects.
// Unknown types are rejected when the catalog is loaded, so the mapping is total.
func (t StepType) Expectation() Expectation {
	switch t {
	case StepTypeContent, StepTypeOffline, StepTypeConfirmation:
		return ExpectAcknowledge
	case StepTypeEvaluation:
		return ExpectEvaluate
	case StepTypeFileUpload:
		return ExpectDocument
	default:
		return ExpectFreeText
	}
}

// IsFreeText reports whether the step stores the reply verbatim.
func (t StepType) IsFreeText() bool {
	return t.Expectation() == ExpectFreeText
}

const DefaultPassingScore = 3.0

// Day boundaries of the three-day curriculum, by step order.
const (
	dayOneLastOrder = 13
	dayTwoLastOrder = 26
)

type Step struct {
	ID                 int64             `json:"id"`
	Order              int               `json:"order"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Type               StepType          `json:"step_type"`
	EstimatedDuration  int               `json:"estimated_duration"`
	ContentURL         *string           `json:"content_url,omitempty"`
	Collection         *CollectionFlow   `json:"collection_flow,omitempty"`
	EvaluationPrompt   *string           `json:"evaluation_prompt,omitempty"`
	EvaluationCriteria map[string]string `json:"evaluation_criteria,omitempty"`
	PassingScore       float64           `json:"passing_score"`
	Competency         string            `json:"competency,omitempty"`
}

// Day returns the curriculum day (1-3) the step belongs to.
func (s *Step) Day() int {
	switch {
	case s.Order <= dayOneLastOrder:
		return 1
	case s.Order <= dayTwoLastOrder:
		return 2
	default:
		return 3
	}
}

func (s *Step) HasCollection() bool {
	return s.Collection != nil
}

// Validate checks the invariants required before a step enters the catalog.
func (s *Step) Validate() error {
	if s.Order <= 0 {
		return fmt.Errorf("%w: order must be positive, got %d", ErrInvalidParameter, s.Order)
	}
	if s.Title == "" {
		return fmt.Errorf("%w: title of step %d", ErrMissingField, s.Order)
	}
	if err := s.Type.Validate(); err != nil {
		return fmt.Errorf("step %d: %w", s.Order, err)
	}
	if s.EstimatedDuration < 0 {
		return fmt.Errorf("%w: negative estimated duration in step %d", ErrInvalidParameter, s.Order)
	}
	if s.Collection != nil {
		if err := s.Collection.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", s.Order, err)
		}
	}
	return nil
}

type SubmissionStatus string

const (
	SubmissionStatusPending          SubmissionStatus = "pending"
	SubmissionStatusChecked          SubmissionStatus = "checked"
	SubmissionStatusApproved         SubmissionStatus = "approved"
	SubmissionStatusRejected         SubmissionStatus = "rejected"
	SubmissionStatusNeedsImprovement SubmissionStatus = "needs_improvement"
)

// AttemptedStatuses are the statuses that advance progression.
var AttemptedStatuses = []SubmissionStatus{
	SubmissionStatusChecked,
	SubmissionStatusApproved,
	SubmissionStatusPending,
}

func (s SubmissionStatus) Validate() error {
	switch s {
	case SubmissionStatusPending, SubmissionStatusChecked, SubmissionStatusApproved,
		SubmissionStatusRejected, SubmissionStatusNeedsImprovement:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected
}

func (s SubmissionStatus) Attempted() bool {
	for _, st := range AttemptedStatuses {
		if st == s {
			return true
		}
	}
	return false
}

type TimeWarning string

const (
	TimeWarningNone    TimeWarning = "none"
	TimeWarningTooFast TimeWarning = "too_fast"
	TimeWarningTooSlow TimeWarning = "too_slow"
)

type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	StepID          int64            `json:"step_id"`
	Status          SubmissionStatus `json:"status"`
	TextAnswer      *string          `json:"text_answer,omitempty"`
	FilePath        *string          `json:"file_path,omitempty"`
	StructuredData  json.RawMessage  `json:"structured_data,omitempty"`
	AutoCheckResult *string          `json:"auto_check_result,omitempty"`
	EvaluationScore *float64         `json:"evaluation_score,omitempty"`
	EvaluationNotes *string          `json:"evaluation_notes,omitempty"`
	Feedback        *string          `json:"feedback,omitempty"`
	ExpertScore     *int             `json:"expert_score,omitempty"`
	ExpertComment   *string          `json:"expert_comment,omitempty"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	TimeWarning     TimeWarning      `json:"time_warning"`
}

// CompletionMinutes returns created_at - started_at in minutes, or nil without a start time.
func (s *Submission) CompletionMinutes() *float64 {
	if s.StartedAt == nil || s.StartedAt.IsZero() {
		return nil
	}
	minutes := s.CreatedAt.Sub(*s.StartedAt).Minutes()
	return &minutes
}

// SubmissionEvaluation is a partial update written after evaluation.
// Nil fields are left untouched.
type SubmissionEvaluation struct {
	Status          *SubmissionStatus
	EvaluationScore *float64
	EvaluationNotes *string
	Feedback        *string
	AutoCheckResult *string
}

// SubmissionDetails joins a submission with its step and owner.
type SubmissionDetails struct {
	Submission *Submission
	Step       *Step
	User       *User
}

type Role string

const (
	RoleStudent Role = "student"
	RoleExpert  Role = "expert"
	RoleAdmin   Role = "admin"
)

func (r Role) Validate() error {
	switch r {
	case RoleStudent, RoleExpert, RoleAdmin:
		return nil
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidParameter, r)
	}
}

func (r Role) CanReview() bool {
	return r == RoleExpert || r == RoleAdmin
}

type User struct {
	ID         string    `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   *string   `json:"username,omitempty"`
	FullName   string    `json:"full_name"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayUsername returns "@username" or an empty string.
func (u *User) DisplayUsername() string {
	if u.Username == nil || *u.Username == "" {
		return ""
	}
	return "@" + *u.Username
}
