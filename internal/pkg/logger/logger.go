// Package logger carries request-scoped zap loggers through context.Context.
package logger

import (
	"context"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// AddFields adds fields to the logger in context and returns new context
func AddFields(ctx context.Context, fields ...zap.Field) context.Context {
	logger := ctxzap.Extract(ctx)
	return ctxzap.ToContext(ctx, logger.With(fields...))
}

// WithAction names the flow being run: a command, an API handler or a use case step
func WithAction(ctx context.Context, action string) context.Context {
	return AddFields(ctx, zap.String("action", action))
}

// WithUser adds the Telegram id of the current user to the context logger
func WithUser(ctx context.Context, telegramID int64) context.Context {
	return AddFields(ctx, zap.Int64("telegram_id", telegramID))
}

// WithStep tags the turn with the catalog step it answers
func WithStep(ctx context.Context, step *entity.Step) context.Context {
	return AddFields(ctx,
		zap.Int("step_order", step.Order),
		zap.String("step_type", string(step.Type)),
	)
}

func WithSubmission(ctx context.Context, submissionID string) context.Context {
	return AddFields(ctx, zap.String("submission_id", submissionID))
}
