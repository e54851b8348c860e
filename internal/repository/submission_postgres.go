package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository defines the interface for submission persistence.
// Rows are never deleted; terminal statuses are never overwritten.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *entity.Submission) (*entity.Submission, error)
	GetSubmission(ctx context.Context, id string) (*entity.Submission, error)
	GetSubmissionDetails(ctx context.Context, id string) (*entity.SubmissionDetails, error)
	UpdateEvaluation(ctx context.Context, id string, eval entity.SubmissionEvaluation) (*entity.Submission, error)
	UpdateReview(ctx context.Context, id string, score int, comment string, status entity.SubmissionStatus) (*entity.Submission, error)
	AttemptedStepIDs(ctx context.Context, userID string) (map[int64]struct{}, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Submission, error)
	ListByStatus(ctx context.Context, statuses []entity.SubmissionStatus, limit int) ([]*entity.SubmissionDetails, error)
}

var _ SubmissionRepository = &SubmissionPostgres{}

// SubmissionPostgres implements SubmissionRepository using PostgreSQL
type SubmissionPostgres struct {
	db *pgxpool.Pool
}

func NewSubmissionPostgres(db *pgxpool.Pool) *SubmissionPostgres {
	return &SubmissionPostgres{db: db}
}

const submissionColumns = `s.id, s.user_id, s.step_id, s.status, s.text_answer, s.file_path, s.structured_data,
	s.auto_check_result, s.evaluation_score, s.evaluation_notes, s.feedback, s.expert_score,
	s.expert_comment, s.started_at, s.created_at, s.time_warning`

const detailsQuery = `SELECT ` + submissionColumns + `,
	st.id, st."order", st.title, st.description, st.step_type, st.estimated_duration, st.content_url,
	st.collection_flow, st.evaluation_prompt, st.evaluation_criteria, st.passing_score, st.competency,
	u.id, u.telegram_id, u.username, u.full_name, u.role, u.created_at
	FROM submissions s
	JOIN steps st ON st.id = s.step_id
	JOIN users u ON u.id = s.user_id`

const terminalGuard = `s.status NOT IN ('approved', 'rejected')`

// CreateSubmission inserts a new attempt. An empty status defaults to checked
// and a zero CreatedAt to the database clock.
func (r *SubmissionPostgres) CreateSubmission(ctx context.Context, sub *entity.Submission) (*entity.Submission, error) {
	userID, err := uuid.Parse(sub.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q", entity.ErrInvalidParameter, sub.UserID)
	}

	status := sub.Status
	if status == "" {
		status = entity.SubmissionStatusChecked
	}
	if err := status.Validate(); err != nil {
		return nil, err
	}
	warning := sub.TimeWarning
	if warning == "" {
		warning = entity.TimeWarningNone
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO submissions AS s (id, user_id, step_id, status, text_answer, file_path, structured_data,
			auto_check_result, evaluation_score, evaluation_notes, feedback, started_at, time_warning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, NOW()))
		RETURNING `+submissionColumns,
		uuid.New(), userID, sub.StepID, string(status), sub.TextAnswer, sub.FilePath, optionalText(sub.StructuredData),
		sub.AutoCheckResult, sub.EvaluationScore, sub.EvaluationNotes, sub.Feedback, sub.StartedAt, string(warning),
		optionalTime(sub.CreatedAt),
	)

	created, err := scanSubmission(row)
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return created, nil
}

func (r *SubmissionPostgres) GetSubmission(ctx context.Context, id string) (*entity.Submission, error) {
	subID, err := uuid.Parse(id)
	if err != nil {
		return nil, entity.ErrSubmissionNotFound
	}

	row := r.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions s WHERE s.id = $1`, subID)

	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

func (r *SubmissionPostgres) GetSubmissionDetails(ctx context.Context, id string) (*entity.SubmissionDetails, error) {
	subID, err := uuid.Parse(id)
	if err != nil {
		return nil, entity.ErrSubmissionNotFound
	}

	details, err := scanSubmissionDetails(r.db.QueryRow(ctx, detailsQuery+` WHERE s.id = $1`, subID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("get submission details: %w", err)
	}
	return details, nil
}

// UpdateEvaluation patches the non-nil fields of eval unless the submission is terminal.
func (r *SubmissionPostgres) UpdateEvaluation(ctx context.Context, id string, eval entity.SubmissionEvaluation) (*entity.Submission, error) {
	subID, err := uuid.Parse(id)
	if err != nil {
		return nil, entity.ErrSubmissionNotFound
	}

	var status *string
	if eval.Status != nil {
		if err := eval.Status.Validate(); err != nil {
			return nil, err
		}
		v := string(*eval.Status)
		status = &v
	}

	row := r.db.QueryRow(ctx, `
		UPDATE submissions AS s SET
			status = COALESCE($2, s.status),
			evaluation_score = COALESCE($3, s.evaluation_score),
			evaluation_notes = COALESCE($4, s.evaluation_notes),
			feedback = COALESCE($5, s.feedback),
			auto_check_result = COALESCE($6, s.auto_check_result)
		WHERE s.id = $1 AND `+terminalGuard+`
		RETURNING `+submissionColumns,
		subID, status, eval.EvaluationScore, eval.EvaluationNotes, eval.Feedback, eval.AutoCheckResult,
	)

	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.guardError(ctx, id)
		}
		return nil, fmt.Errorf("update submission evaluation: %w", err)
	}
	return sub, nil
}

// UpdateReview stores an expert grade and moves the submission to status.
func (r *SubmissionPostgres) UpdateReview(
	ctx context.Context, id string, score int, comment string, status entity.SubmissionStatus,
) (*entity.Submission, error) {
	subID, err := uuid.Parse(id)
	if err != nil {
		return nil, entity.ErrSubmissionNotFound
	}
	if err := status.Validate(); err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		UPDATE submissions AS s SET
			status = $2,
			expert_score = $3,
			expert_comment = NULLIF($4, '')
		WHERE s.id = $1 AND `+terminalGuard+`
		RETURNING `+submissionColumns,
		subID, string(status), score, comment,
	)

	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.guardError(ctx, id)
		}
		return nil, fmt.Errorf("update submission review: %w", err)
	}
	return sub, nil
}

// guardError tells a missing row apart from one blocked by the terminal guard.
func (r *SubmissionPostgres) guardError(ctx context.Context, id string) error {
	if _, err := r.GetSubmission(ctx, id); err != nil {
		return err
	}
	return entity.ErrTerminalStatus
}

// AttemptedStepIDs returns the steps the user has at least one attempted submission for.
func (r *SubmissionPostgres) AttemptedStepIDs(ctx context.Context, userID string) (map[int64]struct{}, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q", entity.ErrInvalidParameter, userID)
	}

	statuses := make([]string, len(entity.AttemptedStatuses))
	for i, s := range entity.AttemptedStatuses {
		statuses[i] = string(s)
	}

	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT step_id FROM submissions WHERE user_id = $1 AND status = ANY($2)`,
		uid, statuses,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempted steps: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect attempted steps: %w", err)
	}

	attempted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		attempted[id] = struct{}{}
	}
	return attempted, nil
}

// ListByUser returns every submission of the user, oldest first.
func (r *SubmissionPostgres) ListByUser(ctx context.Context, userID string) ([]*entity.Submission, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q", entity.ErrInvalidParameter, userID)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions s WHERE s.user_id = $1 ORDER BY s.created_at, s.id`,
		uid,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*entity.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

// ListByStatus returns submissions in any of statuses with their step and owner, oldest first.
func (r *SubmissionPostgres) ListByStatus(
	ctx context.Context, statuses []entity.SubmissionStatus, limit int,
) ([]*entity.SubmissionDetails, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		values[i] = string(s)
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		detailsQuery+` WHERE s.status = ANY($1) ORDER BY s.created_at LIMIT $2`,
		values, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions by status: %w", err)
	}
	defer rows.Close()

	var out []*entity.SubmissionDetails
	for rows.Next() {
		details, err := scanSubmissionDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission details: %w", err)
		}
		out = append(out, details)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission details: %w", err)
	}
	return out, nil
}
