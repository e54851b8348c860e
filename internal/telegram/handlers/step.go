package handlers

import (
	"context"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/state"
	"github.com/futig/onboarding-bot/internal/telegram/keyboard"
	"go.uber.org/zap"
)

// StepHandler handles replies to a presented step. The same handler type
// serves the awaiting_step and collecting phases.
type StepHandler struct {
	flows
}

// NewStepHandler creates a step handler for the awaiting_step phase
func NewStepHandler(bot API, onboardingUC OnboardingUsecase, kb *keyboard.Builder, logger *zap.Logger) *StepHandler {
	return &StepHandler{
		flows: newFlows(HandlerStateAwaitingStep, bot, onboardingUC, nil, nil, nil, kb, logger),
	}
}

// NewCollectionHandler creates a step handler for the collecting phase
func NewCollectionHandler(bot API, onboardingUC OnboardingUsecase, kb *keyboard.Builder, logger *zap.Logger) *StepHandler {
	return &StepHandler{
		flows: newFlows(HandlerStateCollecting, bot, onboardingUC, nil, nil, nil, kb, logger),
	}
}

// Handle submits text or a document to the armed step
func (h *StepHandler) Handle(ctx context.Context, msg *Message) error {
	return h.submit(logger.WithAction(ctx, "submit_step"), msg, msg.Reply(), isSlowTurn(ctx, msg))
}

// isSlowTurn reports whether the reply will wait for the LLM
func isSlowTurn(ctx context.Context, msg *Message) bool {
	if msg.Document != nil {
		return true
	}
	st, ok := state.StateFromContext(ctx)
	if !ok || st.Step == nil {
		return false
	}
	return st.Phase == entity.PhaseCollecting || st.Step.StepType == entity.StepTypeEvaluation
}
