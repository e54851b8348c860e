package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Row holders keep scan targets for one table so joined queries can concatenate them.

type userRow struct {
	u    entity.User
	id   uuid.UUID
	role string
}

func (r *userRow) dest() []any {
	return []any{&r.id, &r.u.TelegramID, &r.u.Username, &r.u.FullName, &r.role, &r.u.CreatedAt}
}

func (r *userRow) build() *entity.User {
	r.u.ID = r.id.String()
	r.u.Role = entity.Role(r.role)
	return &r.u
}

type stepRow struct {
	s        entity.Step
	stepType string
	flow     *string
	criteria *string
}

func (r *stepRow) dest() []any {
	return []any{
		&r.s.ID, &r.s.Order, &r.s.Title, &r.s.Description, &r.stepType, &r.s.EstimatedDuration,
		&r.s.ContentURL, &r.flow, &r.s.EvaluationPrompt, &r.criteria, &r.s.PassingScore, &r.s.Competency,
	}
}

func (r *stepRow) build() (*entity.Step, error) {
	r.s.Type = entity.StepType(r.stepType)

	if r.flow != nil {
		parsed, err := entity.ParseCollectionFlow([]byte(*r.flow))
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", r.s.Order, err)
		}
		r.s.Collection = parsed
	}
	if r.criteria != nil && *r.criteria != "" {
		if err := json.Unmarshal([]byte(*r.criteria), &r.s.EvaluationCriteria); err != nil {
			return nil, fmt.Errorf("step %d: decode evaluation criteria: %w", r.s.Order, err)
		}
	}
	return &r.s, nil
}

type submissionRow struct {
	sub        entity.Submission
	id, userID uuid.UUID
	status     string
	structured *string
	warning    string
}

func (r *submissionRow) dest() []any {
	return []any{
		&r.id, &r.userID, &r.sub.StepID, &r.status, &r.sub.TextAnswer, &r.sub.FilePath, &r.structured,
		&r.sub.AutoCheckResult, &r.sub.EvaluationScore, &r.sub.EvaluationNotes, &r.sub.Feedback, &r.sub.ExpertScore,
		&r.sub.ExpertComment, &r.sub.StartedAt, &r.sub.CreatedAt, &r.warning,
	}
}

func (r *submissionRow) build() *entity.Submission {
	r.sub.ID = r.id.String()
	r.sub.UserID = r.userID.String()
	r.sub.Status = entity.SubmissionStatus(r.status)
	r.sub.TimeWarning = entity.TimeWarning(r.warning)
	if r.structured != nil && *r.structured != "" {
		r.sub.StructuredData = json.RawMessage(*r.structured)
	}
	return &r.sub
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var r userRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.build(), nil
}

func scanStep(row pgx.Row) (*entity.Step, error) {
	var r stepRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.build()
}

func scanSubmission(row pgx.Row) (*entity.Submission, error) {
	var r submissionRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.build(), nil
}

func scanSubmissionDetails(row pgx.Row) (*entity.SubmissionDetails, error) {
	var (
		sub  submissionRow
		step stepRow
		user userRow
	)
	dest := append(sub.dest(), step.dest()...)
	dest = append(dest, user.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	s, err := step.build()
	if err != nil {
		return nil, err
	}
	return &entity.SubmissionDetails{Submission: sub.build(), Step: s, User: user.build()}, nil
}

// stepBlobs serializes the JSON text columns of a step.
func stepBlobs(s *entity.Step) (flow, criteria *string, err error) {
	if s.Collection != nil {
		data, err := json.Marshal(s.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("encode collection flow: %w", err)
		}
		v := string(data)
		flow = &v
	}
	if len(s.EvaluationCriteria) > 0 {
		data, err := json.Marshal(s.EvaluationCriteria)
		if err != nil {
			return nil, nil, fmt.Errorf("encode evaluation criteria: %w", err)
		}
		v := string(data)
		criteria = &v
	}
	return flow, criteria, nil
}

func optionalText(data json.RawMessage) *string {
	if len(data) == 0 {
		return nil
	}
	v := string(data)
	return &v
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
