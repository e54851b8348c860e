package onboarding

import (
	"context"
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/usecase/collection"
)

// NextStep returns the first catalog step, by order, without an attempted submission.
// It returns nil when every step has been attempted.
func (uc *OnboardingUsecase) NextStep(ctx context.Context, userID string) (*entity.Step, error) {
	attempted, err := uc.submissionRepo.AttemptedStepIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get attempted steps: %w", err)
	}

	steps, err := uc.stepRepo.ListSteps(ctx)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}

	return firstUnattempted(steps, attempted), nil
}

// firstUnattempted expects steps sorted by ascending order.
func firstUnattempted(steps []*entity.Step, attempted map[int64]struct{}) *entity.Step {
	for _, step := range steps {
		if _, ok := attempted[step.ID]; !ok {
			return step
		}
	}
	return nil
}

// Present arms st for step and returns what the trainee should see.
// Steps with a collection flow open the collection dialogue right away.
func (uc *OnboardingUsecase) Present(st *entity.SessionState, step *entity.Step) *entity.Prompt {
	st.ArmStep(step, uc.now())

	prompt := &entity.Prompt{Step: step, Expect: step.Type.Expectation()}
	if step.HasCollection() {
		cursor, lead := collection.Start(step.Collection)
		st.Phase = entity.PhaseCollecting
		st.Collection = cursor
		prompt.Expect = entity.ExpectCollection
		prompt.Lead = lead
	}
	return prompt
}
