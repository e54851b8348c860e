package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/telegram/keyboard"
	"github.com/futig/onboarding-bot/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// RegistrationHandler handles the awaiting_name phase started by /start
type RegistrationHandler struct {
	flows
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(
	bot API,
	onboardingUC OnboardingUsecase,
	kb *keyboard.Builder,
	logger *zap.Logger,
) *RegistrationHandler {
	return &RegistrationHandler{
		flows: newFlows(HandlerStateAwaitingName, bot, onboardingUC, nil, nil, nil, kb, logger),
	}
}

// Handle stores the full name and presents the next step
func (h *RegistrationHandler) Handle(ctx context.Context, msg *Message) error {
	ctx = logger.WithAction(ctx, "register")

	fullName := strings.TrimSpace(msg.Text)
	if fullName == "" {
		h.sendMessage(msg.ChatID, render.MsgWelcome, nil)
		return nil
	}

	var username *string
	if msg.Username != "" {
		username = &msg.Username
	}

	user, err := h.onboardingUC.CompleteRegistration(ctx, msg.UserID, username, fullName)
	if err != nil {
		return fmt.Errorf("complete registration: %w", err)
	}

	ctxzap.Info(ctx, "registration completed", zap.String("user_id", user.ID))
	h.sendMessage(msg.ChatID, fmt.Sprintf(render.MsgRegistered, user.FullName), nil)

	return h.continueOnboarding(ctx, msg)
}
