package handlers

import (
	"context"
	"errors"
	"net"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/metrics"
	"github.com/futig/onboarding-bot/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityWarning ErrorSeverity = iota
	SeverityError
	SeverityCritical
)

func (s ErrorSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// HandlerError is a failed turn: what the trainee is told and what gets logged.
type HandlerError struct {
	Err         error
	UserMessage string
	LogMessage  string
	Severity    ErrorSeverity
}

// expectedErrors are mistakes of the user or of the catalog author, in match order.
var expectedErrors = []struct {
	target   error
	log      string
	severity ErrorSeverity
}{
	{entity.ErrUserNotRegistered, "user not registered", SeverityWarning},
	{entity.ErrUserNotFound, "user not registered", SeverityWarning},
	{entity.ErrForbidden, "role may not review", SeverityWarning},
	{entity.ErrSubmissionNotFound, "submission not found", SeverityWarning},
	{entity.ErrTerminalStatus, "submission already reviewed", SeverityWarning},
	{entity.ErrInvalidScore, "invalid grade", SeverityWarning},
	{entity.ErrMissingField, "invalid grade", SeverityWarning},
	{entity.ErrInvalidFormat, "invalid summary format", SeverityWarning},
	{entity.ErrNoSubmissions, "no submissions for report", SeverityWarning},
	{entity.ErrSessionExpired, "session phase mismatch", SeverityWarning},
	{entity.ErrEmptyCatalog, "step catalog is empty", SeverityCritical},
}

// classifyHandlerError picks the notice and log severity of a failed turn
func classifyHandlerError(err error) *HandlerError {
	if err == nil {
		return &HandlerError{
			UserMessage: render.ErrGeneric,
			LogMessage:  "unknown error",
			Severity:    SeverityWarning,
		}
	}

	for _, e := range expectedErrors {
		if !errors.Is(err, e.target) {
			continue
		}
		msg := render.ClassifyError(err)
		switch e.target {
		case entity.ErrMissingField:
			msg = render.ErrInvalidGrade
		case entity.ErrEmptyCatalog:
			msg = render.ErrGeneric
		}
		return &HandlerError{Err: err, UserMessage: msg, LogMessage: e.log, Severity: e.severity}
	}

	logMessage := "handler error"
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		logMessage = "operation timed out"
	case errors.As(err, &netErr):
		logMessage = "network error"
	}

	return &HandlerError{
		Err:         err,
		UserMessage: render.ClassifyError(err),
		LogMessage:  logMessage,
		Severity:    SeverityError,
	}
}

// HandleError logs err by severity and sends the trainee a notice. The session is left untouched.
func (h *BaseHandler) HandleError(ctx context.Context, chatID int64, err error) {
	if err == nil {
		return
	}

	handlerErr := classifyHandlerError(err)
	metrics.TelegramHandlerErrorsTotal.WithLabelValues(handlerErr.Severity.String()).Inc()

	fields := []zap.Field{
		zap.Error(handlerErr.Err),
		zap.Int64("chat_id", chatID),
	}
	if handlerErr.Severity == SeverityWarning {
		ctxzap.Warn(ctx, handlerErr.LogMessage, fields...)
	} else {
		ctxzap.Error(ctx, handlerErr.LogMessage,
			append(fields, zap.String("severity", handlerErr.Severity.String()))...)
	}

	h.sendMessage(chatID, handlerErr.UserMessage, nil)
}
