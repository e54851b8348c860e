package middleware

import (
	"time"

	"github.com/futig/onboarding-bot/internal/pkg/metrics"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// LoggingMiddleware logs all incoming updates
type LoggingMiddleware struct {
	logger *zap.Logger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger *zap.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger: logger,
	}
}

// Handle logs the update
func (m *LoggingMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	start := time.Now()

	userID, chatID, _ := updateIDs(update)
	kind := UpdateKind(update)
	metrics.TelegramUpdatesTotal.WithLabelValues(kind).Inc()

	m.logger.Info("telegram update received",
		zap.Int64("telegram_id", userID),
		zap.Int64("chat_id", chatID),
		zap.String("type", kind),
		zap.Int("update_id", update.UpdateID),
	)

	// Call next handler
	next(update)

	m.logger.Info("telegram update processed",
		zap.Int64("telegram_id", userID),
		zap.Int64("chat_id", chatID),
		zap.Duration("duration", time.Since(start)),
	)
}

// UpdateKind classifies an update for logs and metrics
func UpdateKind(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message == nil:
		return "other"
	case update.Message.IsCommand():
		return "command"
	case update.Message.Document != nil:
		return "document"
	case update.Message.Text != "":
		return "text"
	default:
		return "other"
	}
}
