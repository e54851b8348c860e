package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/futig/onboarding-bot/internal/pkg/metrics"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const panicMessage = "❌ Произошла ошибка. Попробуйте ещё раз или нажмите /onboarding"

// RecoveryMiddleware turns a panicking turn into a failure notice.
// The session state of the trainee is left as the turn last saved it.
type RecoveryMiddleware struct {
	logger *zap.Logger
	bot    Sender
}

func NewRecoveryMiddleware(logger *zap.Logger, bot Sender) *RecoveryMiddleware {
	return &RecoveryMiddleware{
		logger: logger,
		bot:    bot,
	}
}

func (m *RecoveryMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		kind := UpdateKind(update)
		metrics.TelegramPanicsTotal.WithLabelValues(kind).Inc()

		userID, chatID, ok := updateIDs(update)
		m.logger.Error("panic recovered in telegram handler",
			zap.String("panic", fmt.Sprint(r)),
			zap.ByteString("stack", debug.Stack()),
			zap.Int("update_id", update.UpdateID),
			zap.String("type", kind),
			zap.Int64("telegram_id", userID),
		)
		if !ok {
			return
		}

		if _, err := m.bot.Send(tgbotapi.NewMessage(chatID, panicMessage)); err != nil {
			m.logger.Error("failed to send panic notice",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
			)
		}
	}()

	next(update)
}
