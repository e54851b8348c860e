package handlers

import (
	"context"
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/state"
	"github.com/futig/onboarding-bot/internal/telegram/keyboard"
	"github.com/futig/onboarding-bot/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CommandHandler handles slash commands. Commands work in any phase.
type CommandHandler struct {
	flows
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	bot API,
	onboardingUC OnboardingUsecase,
	reviewUC ReviewUsecase,
	summaries SummaryRenderer,
	files FileReader,
	kb *keyboard.Builder,
	logger *zap.Logger,
) *CommandHandler {
	return &CommandHandler{
		flows: newFlows("", bot, onboardingUC, reviewUC, summaries, files, kb, logger),
	}
}

// Handle runs command with its raw arguments
func (h *CommandHandler) Handle(ctx context.Context, msg *Message, command, args string) error {
	ctxzap.Info(ctx, "command received", zap.String("command", command))

	switch command {
	case "start":
		return h.handleStart(ctx, msg)
	case "onboarding", "labs":
		return h.continueOnboarding(ctx, msg)
	case "get_report", "report":
		return h.sendReport(ctx, msg)
	case "summary":
		return h.sendSummary(ctx, msg, args)
	case "reset":
		return h.handleReset(ctx, msg)
	case "expert":
		return h.listQueue(ctx, msg)
	case "review":
		return h.openSubmission(ctx, msg, args)
	case "cancel":
		return h.handleCancel(ctx, msg)
	case "help":
		h.sendMessage(msg.ChatID, render.MsgHelp, nil)
		return nil
	default:
		h.sendMessage(msg.ChatID, render.ErrUnknownCommand, nil)
		return nil
	}
}

// handleStart greets a known trainee by name and asks a new one for the full name
func (h *CommandHandler) handleStart(ctx context.Context, msg *Message) error {
	ctx = logger.WithAction(ctx, "start")

	user, err := h.onboardingUC.BeginRegistration(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}

	if user != nil {
		h.sendMessage(msg.ChatID, fmt.Sprintf(render.MsgWelcomeBack, user.FullName), nil)
		return nil
	}
	h.sendMessage(msg.ChatID, render.MsgWelcome, nil)
	return nil
}

func (h *CommandHandler) handleReset(ctx context.Context, msg *Message) error {
	ctx = logger.WithAction(ctx, "reset")

	if err := h.onboardingUC.Reset(ctx, msg.UserID); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	h.sendMessage(msg.ChatID, render.MsgReset, h.keyboard.StartKeyboard())
	return nil
}

// handleCancel leaves the grading phase of an expert, otherwise it behaves like /reset
func (h *CommandHandler) handleCancel(ctx context.Context, msg *Message) error {
	if st, ok := state.StateFromContext(ctx); ok && st.Phase == entity.PhaseExpertGrading {
		return h.cancelReview(ctx, msg)
	}
	return h.handleReset(ctx, msg)
}
