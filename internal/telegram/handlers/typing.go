package handlers

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// typingInterval stays below the 5 second lifetime of a chat action
const typingInterval = 4 * time.Second

// TypingNotifier sends periodic chat actions while a slow turn is processed
type TypingNotifier struct {
	bot      API
	chatID   int64
	action   string
	interval time.Duration
	done     chan struct{}
	logger   *zap.Logger
	once     sync.Once
}

// NewTypingNotifier creates a "typing" indicator
func NewTypingNotifier(bot API, chatID int64, logger *zap.Logger) *TypingNotifier {
	return newChatActionNotifier(bot, chatID, tgbotapi.ChatTyping, logger)
}

// NewUploadNotifier shows that a document is being prepared
func NewUploadNotifier(bot API, chatID int64, logger *zap.Logger) *TypingNotifier {
	return newChatActionNotifier(bot, chatID, tgbotapi.ChatUploadDocument, logger)
}

func newChatActionNotifier(bot API, chatID int64, action string, logger *zap.Logger) *TypingNotifier {
	return &TypingNotifier{
		bot:      bot,
		chatID:   chatID,
		action:   action,
		interval: typingInterval,
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Start sends the action immediately and then every interval until Stop or ctx is done
func (t *TypingNotifier) Start(ctx context.Context) {
	t.send()

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.send()
			case <-t.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops sending chat actions. It is safe to call more than once.
func (t *TypingNotifier) Stop() {
	t.once.Do(func() { close(t.done) })
}

func (t *TypingNotifier) send() {
	if _, err := t.bot.Request(tgbotapi.NewChatAction(t.chatID, t.action)); err != nil {
		t.logger.Warn("failed to send chat action",
			zap.Error(err),
			zap.String("action", t.action),
			zap.Int64("chat_id", t.chatID),
		)
	}
}
