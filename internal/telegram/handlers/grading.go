package handlers

import (
	"context"
	"fmt"

	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/telegram/keyboard"
	"github.com/futig/onboarding-bot/internal/telegram/render"
	"go.uber.org/zap"
)

// GradingHandler handles the "<score> <comment>" message of an expert
type GradingHandler struct {
	flows
}

// NewGradingHandler creates a new grading handler
func NewGradingHandler(bot API, reviewUC ReviewUsecase, kb *keyboard.Builder, logger *zap.Logger) *GradingHandler {
	return &GradingHandler{
		flows: newFlows(HandlerStateExpertGrading, bot, nil, reviewUC, nil, nil, kb, logger),
	}
}

// Handle stores the grade of the opened submission. A malformed grade keeps the phase for another try.
func (h *GradingHandler) Handle(ctx context.Context, msg *Message) error {
	ctx = logger.WithAction(ctx, "grade_submission")

	details, err := h.reviewUC.Grade(ctx, msg.UserID, msg.Text)
	if err != nil {
		h.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	score := 0
	if details.Submission.ExpertScore != nil {
		score = *details.Submission.ExpertScore
	}
	h.sendMessage(msg.ChatID, fmt.Sprintf(render.MsgGraded, score, render.StatusLabel(details.Submission.Status)), nil)
	return nil
}
