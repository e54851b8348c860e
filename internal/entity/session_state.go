package entity

import "time"

// SessionStateCurrentVersion is bumped whenever the stored shape changes.
const SessionStateCurrentVersion = 1

type Phase string

// Conversation phases. The chat layer routes replies by phase.
const (
	PhaseIdle          Phase = ""
	PhaseAwaitingName  Phase = "awaiting_name"
	PhaseAwaitingStep  Phase = "awaiting_step"
	PhaseCollecting    Phase = "collecting"
	PhaseExpertGrading Phase = "expert_grading"
)

// SessionState is the per-trainee conversation state persisted between turns.
type SessionState struct {
	Version        int               `json:"version,omitempty"`
	Phase          Phase             `json:"phase,omitempty"`
	Step           *ActiveStep       `json:"step,omitempty"`
	LastTextAnswer string            `json:"last_text_answer,omitempty"`
	Collection     *CollectionCursor `json:"collection,omitempty"`
	Review         *ReviewCursor     `json:"review,omitempty"`
}

// ActiveStep is armed by the presenter when a step is shown.
type ActiveStep struct {
	StepID            int64     `json:"step_id"`
	StepType          StepType  `json:"step_type"`
	StartedAt         time.Time `json:"started_at"`
	EstimatedDuration int       `json:"estimated_duration"`
}

// CollectionCursor is a union keyed by Kind. Text parse needs no cursor beyond the kind.
type CollectionCursor struct {
	Kind       CollectionKind    `json:"kind"`
	Sequential *SequentialCursor `json:"sequential,omitempty"`
	Dialogue   *DialogueCursor   `json:"dialogue,omitempty"`
}

type SequentialCursor struct {
	VariantIndex int             `json:"variant_index"`
	Collected    []VariantAnswer `json:"collected,omitempty"`
}

type VariantAnswer struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	Length int    `json:"length"`
}

type DialogueCursor struct {
	SectionIndex     int                `json:"section_index"`
	Items            []DialogueItem     `json:"items,omitempty"`
	ItemIndex        int                `json:"item_index"`
	FollowUpIndex    int                `json:"follow_up_index"`
	AwaitingFollowUp bool               `json:"awaiting_follow_up"`
	Sections         []CollectedSection `json:"sections,omitempty"`
}

type DialogueItem struct {
	Name    string           `json:"name"`
	Answers []FollowUpAnswer `json:"answers,omitempty"`
}

type FollowUpAnswer struct {
	Field  string `json:"field"`
	Answer string `json:"answer"`
}

// CollectedSection is a finished section. Items carry answers only when
// the section declares follow-ups.
type CollectedSection struct {
	Name         string         `json:"name"`
	HasFollowUps bool           `json:"has_follow_ups"`
	Items        []DialogueItem `json:"items"`
}

type ReviewCursor struct {
	SubmissionID string `json:"submission_id"`
}

// ArmStep resets step-scoped state and records the presented step.
func (s *SessionState) ArmStep(step *Step, now time.Time) {
	s.Phase = PhaseAwaitingStep
	s.Step = &ActiveStep{
		StepID:            step.ID,
		StepType:          step.Type,
		StartedAt:         now,
		EstimatedDuration: step.EstimatedDuration,
	}
	s.Collection = nil
	s.Review = nil
}

// ClearStep drops the active step but keeps the last free-text answer
// for a following evaluation step.
func (s *SessionState) ClearStep() {
	s.Phase = PhaseIdle
	s.Step = nil
	s.Collection = nil
}
