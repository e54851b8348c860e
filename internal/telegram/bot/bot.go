package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/state"
	"github.com/futig/onboarding-bot/internal/telegram/handlers"
	"github.com/futig/onboarding-bot/internal/telegram/middleware"
	"github.com/futig/onboarding-bot/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const msgNoActiveStep = "Нет активного шага. Нажми /onboarding, чтобы продолжить."

// StateLoader reads the conversation state of a user
type StateLoader interface {
	Load(ctx context.Context, telegramID int64) (*entity.SessionState, error)
}

// CommandHandler runs slash commands
type CommandHandler interface {
	Handle(ctx context.Context, msg *handlers.Message, command, args string) error
}

// Bot represents the Telegram bot
type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         *config.TelegramConfig
	states      StateLoader
	handlers    map[string]handlers.Handler
	commands    CommandHandler
	logger      *zap.Logger
	loggingMW   *middleware.LoggingMiddleware
	recoveryMW  *middleware.RecoveryMiddleware
	rateLimitMW *middleware.RateLimiterMiddleware
	serializeMW *middleware.SerializeMiddleware
	updatesChan tgbotapi.UpdatesChannel
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// New creates a new Telegram bot on an authorized API client
func New(
	api *tgbotapi.BotAPI,
	cfg *config.TelegramConfig,
	states StateLoader,
	logger *zap.Logger,
) *Bot {
	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	bot := &Bot{
		api:      api,
		cfg:      cfg,
		states:   states,
		logger:   logger,
		handlers: make(map[string]handlers.Handler),
		stopChan: make(chan struct{}),
	}

	bot.loggingMW = middleware.NewLoggingMiddleware(logger)
	bot.recoveryMW = middleware.NewRecoveryMiddleware(logger, api)
	bot.rateLimitMW = middleware.NewRateLimiterMiddleware(
		cfg.RateLimitPerMinute,
		cfg.RateLimitBurst,
		logger,
		api,
	)
	bot.serializeMW = middleware.NewSerializeMiddleware()

	return bot
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	b.updatesChan = b.api.GetUpdatesChan(u)

	ctx = ctxzap.ToContext(ctx, b.logger)
	go b.processUpdates(ctx)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops the bot gracefully with timeout
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	close(b.stopChan)
	b.api.StopReceivingUpdates()
	defer b.rateLimitMW.Close()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	shutdownTimeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed",
			zap.Duration("timeout", shutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

// processUpdates processes incoming updates
func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update := <-b.updatesChan:
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdateWithMiddleware(u)
			}(update)
		}
	}
}

// handleUpdateWithMiddleware processes update through middleware chain.
// Updates of one user are handled one at a time, in arrival order of the lock.
func (b *Bot) handleUpdateWithMiddleware(update tgbotapi.Update) {
	b.rateLimitMW.Handle(update, func(u tgbotapi.Update) {
		b.loggingMW.Handle(u, func(u2 tgbotapi.Update) {
			b.recoveryMW.Handle(u2, func(u3 tgbotapi.Update) {
				b.serializeMW.Handle(u3, func(u4 tgbotapi.Update) {
					b.handleUpdate(u4)
				})
			})
		})
	})
}

// handleUpdate routes update to appropriate handler
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	ctx := ctxzap.ToContext(context.Background(), b.logger)

	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message != nil && update.Message.From != nil {
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage handles incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID
	ctx = logger.WithUser(ctx, userID)

	st, err := b.states.Load(ctx, userID)
	if err != nil {
		ctxzap.Error(ctx, "failed to load session state", zap.Error(err))
		b.sendError(chatID, render.ErrGeneric)
		return
	}
	ctx = state.ContextWithState(ctx, st)

	msg := &handlers.Message{
		ChatID:    chatID,
		UserID:    userID,
		Username:  message.From.UserName,
		MessageID: message.MessageID,
		Text:      message.Text,
		Document:  message.Document,
	}
	if msg.Text == "" {
		msg.Text = message.Caption
	}

	if message.IsCommand() {
		if err := b.commands.Handle(ctx, msg, message.Command(), message.CommandArguments()); err != nil {
			ctxzap.Error(ctx, "command error",
				zap.Error(err),
				zap.String("command", message.Command()),
			)
			b.sendError(chatID, render.ErrGeneric)
		}
		return
	}

	if st.Phase == entity.PhaseIdle {
		b.sendError(chatID, msgNoActiveStep)
		return
	}

	handler, exists := b.handlers[string(st.Phase)]
	if !exists {
		ctxzap.Warn(ctx, "no handler for state", zap.String("state", string(st.Phase)))
		b.sendError(chatID, render.ErrInvalidState)
		return
	}

	if err := handler.Handle(ctx, msg); err != nil {
		ctxzap.Error(ctx, "handler error",
			zap.Error(err),
			zap.String("state", string(st.Phase)),
		)
		b.sendError(chatID, render.ErrGeneric)
	}
}

// handleCallbackQuery answers the button click right away, then handles it
// inside the per-user lock so it cannot race a message of the same user.
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		b.answerCallback(query.ID, "")
		return
	}

	userID := query.From.ID
	chatID := query.Message.Chat.ID
	ctx = logger.WithUser(ctx, userID)

	handler, exists := b.handlers[handlers.HandlerStateCallback]
	if !exists {
		ctxzap.Warn(ctx, "callback handler not registered")
		b.answerCallback(query.ID, "❌ Обработчик не найден")
		return
	}

	b.answerCallback(query.ID, "⏳ Обрабатываю запрос...")

	st, err := b.states.Load(ctx, userID)
	if err != nil {
		ctxzap.Error(ctx, "failed to load session state", zap.Error(err))
		b.sendError(chatID, render.ErrGeneric)
		return
	}
	ctx = state.ContextWithState(ctx, st)

	msg := &handlers.Message{
		ChatID:       chatID,
		UserID:       userID,
		Username:     query.From.UserName,
		MessageID:    query.Message.MessageID,
		CallbackData: query.Data,
		CallbackID:   query.ID,
	}

	if err := handler.Handle(ctx, msg); err != nil {
		ctxzap.Error(ctx, "callback handler error", zap.Error(err))
		b.sendError(chatID, render.ErrGeneric)
	}
}

// sendError sends an error message
func (b *Bot) sendError(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

// answerCallback answers a callback query
func (b *Bot) answerCallback(callbackID string, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Error("failed to answer callback",
			zap.Error(err),
			zap.String("callback_id", callbackID),
		)
	}
}

// RegisterHandler registers a handler for a state
func (b *Bot) RegisterHandler(handler handlers.Handler) {
	stateName := handler.GetState()

	if !handlers.IsValidState(stateName) {
		b.logger.Fatal("invalid handler state",
			zap.String("state", stateName),
		)
	}

	b.handlers[stateName] = handler
	b.logger.Info("handler registered",
		zap.String("state", stateName),
	)
}

// RegisterCommands sets the slash command handler
func (b *Bot) RegisterCommands(commands CommandHandler) {
	b.commands = commands
}

// GetAPI returns the bot API instance (for handlers)
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}
