package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StepRepository defines the interface for the step catalog
type StepRepository interface {
	UpsertSteps(ctx context.Context, steps []entity.Step) (int, error)
	ListSteps(ctx context.Context) ([]*entity.Step, error)
	GetStepByID(ctx context.Context, id int64) (*entity.Step, error)
}

var _ StepRepository = &StepPostgres{}

// StepPostgres implements StepRepository using PostgreSQL
type StepPostgres struct {
	db *pgxpool.Pool
}

func NewStepPostgres(db *pgxpool.Pool) *StepPostgres {
	return &StepPostgres{db: db}
}

const stepColumns = `id, "order", title, description, step_type, estimated_duration, content_url,
	collection_flow, evaluation_prompt, evaluation_criteria, passing_score, competency`

// UpsertSteps writes the catalog keyed by order in a single transaction.
func (r *StepPostgres) UpsertSteps(ctx context.Context, steps []entity.Step) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range steps {
		step := &steps[i]
		if err := step.Validate(); err != nil {
			return 0, err
		}
		flow, criteria, err := stepBlobs(step)
		if err != nil {
			return 0, fmt.Errorf("step %d: %w", step.Order, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO steps ("order", title, description, step_type, estimated_duration, content_url,
				collection_flow, evaluation_prompt, evaluation_criteria, passing_score, competency)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT ("order") DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				step_type = EXCLUDED.step_type,
				estimated_duration = EXCLUDED.estimated_duration,
				content_url = EXCLUDED.content_url,
				collection_flow = EXCLUDED.collection_flow,
				evaluation_prompt = EXCLUDED.evaluation_prompt,
				evaluation_criteria = EXCLUDED.evaluation_criteria,
				passing_score = EXCLUDED.passing_score,
				competency = EXCLUDED.competency`,
			step.Order, step.Title, step.Description, string(step.Type), step.EstimatedDuration, step.ContentURL,
			flow, step.EvaluationPrompt, criteria, step.PassingScore, step.Competency,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert step %d: %w", step.Order, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(steps), nil
}

// ListSteps returns the catalog ordered by ascending order.
func (r *StepPostgres) ListSteps(ctx context.Context) ([]*entity.Step, error) {
	rows, err := r.db.Query(ctx, `SELECT `+stepColumns+` FROM steps ORDER BY "order"`)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []*entity.Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

func (r *StepPostgres) GetStepByID(ctx context.Context, id int64) (*entity.Step, error) {
	row := r.db.QueryRow(ctx, `SELECT `+stepColumns+` FROM steps WHERE id = $1`, id)

	step, err := scanStep(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrStepNotFound
		}
		return nil, fmt.Errorf("get step: %w", err)
	}
	return step, nil
}
