package handlers

import (
	"context"
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/telegram/keyboard"
	"github.com/futig/onboarding-bot/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CallbackHandler handles all callback button clicks
type CallbackHandler struct {
	flows
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(
	bot API,
	onboardingUC OnboardingUsecase,
	reviewUC ReviewUsecase,
	summaries SummaryRenderer,
	files FileReader,
	kb *keyboard.Builder,
	logger *zap.Logger,
) *CallbackHandler {
	return &CallbackHandler{
		flows: newFlows(HandlerStateCallback, bot, onboardingUC, reviewUC, summaries, files, kb, logger),
	}
}

// Handle routes callback queries to appropriate actions
func (h *CallbackHandler) Handle(ctx context.Context, msg *Message) error {
	data, err := keyboard.ParseCallback(msg.CallbackData)
	if err != nil {
		ctxzap.Error(ctx, "failed to parse callback",
			zap.Error(err),
			zap.String("data", msg.CallbackData),
		)
		return fmt.Errorf("parse callback: %w", err)
	}

	ctxzap.Info(ctx, "handling callback",
		zap.String("action", data.Action),
		zap.String("value", data.Value),
	)

	switch data.Action {
	case keyboard.ActionStep:
		return h.handleStep(ctx, msg, data)
	case keyboard.ActionReview:
		if data.Value == keyboard.ReviewCancel {
			return h.cancelReview(ctx, msg)
		}
		return h.openSubmission(ctx, msg, data.Value)
	case keyboard.ActionMenu:
		return h.handleMenu(ctx, msg, data.Value)
	default:
		ctxzap.Warn(ctx, "unknown callback action", zap.String("action", data.Action))
		h.sendMessage(msg.ChatID, render.ErrGeneric, nil)
		return nil
	}
}

// handleStep turns a step button into a signal reply tagged with the step the button was shown for.
func (h *CallbackHandler) handleStep(ctx context.Context, msg *Message, data *keyboard.CallbackData) error {
	signal, stepID, ok := data.StepSignal()
	if !ok {
		return fmt.Errorf("unknown step signal %q", data.Value)
	}
	return h.submit(ctx, msg, entity.Reply{Signal: signal, StepID: stepID}, signal == entity.SignalEvaluate)
}

func (h *CallbackHandler) handleMenu(ctx context.Context, msg *Message, value string) error {
	switch value {
	case keyboard.MenuOnboarding:
		return h.continueOnboarding(ctx, msg)
	case keyboard.MenuReport:
		return h.sendReport(ctx, msg)
	case keyboard.MenuSummary:
		return h.sendSummary(ctx, msg, "")
	case keyboard.MenuExpert:
		return h.listQueue(ctx, msg)
	default:
		ctxzap.Warn(ctx, "unknown menu action", zap.String("value", value))
		h.sendMessage(msg.ChatID, render.ErrGeneric, nil)
		return nil
	}
}
