package telegram

import (
	"context"

	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/telegram/bot"
	"github.com/futig/onboarding-bot/internal/telegram/handlers"
	"github.com/futig/onboarding-bot/internal/telegram/keyboard"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// Deps groups the collaborators of the chat handlers
type Deps struct {
	States     bot.StateLoader
	Onboarding handlers.OnboardingUsecase
	Review     handlers.ReviewUsecase
	Summaries  handlers.SummaryRenderer
	Files      handlers.FileReader
}

// NewBot initializes the telegram bot with all dependencies
func NewBot(
	cfg *config.TelegramConfig,
	api *tgbotapi.BotAPI,
	deps Deps,
	logger *zap.Logger,
) Bot {
	b := bot.New(api, cfg, deps.States, logger)

	registerHandlers(b, deps, logger)

	logger.Info("telegram bot initialized successfully")

	return b
}

// registerHandlers registers all handlers with the bot
func registerHandlers(b *bot.Bot, deps Deps, logger *zap.Logger) {
	api := b.GetAPI()
	kb := keyboard.NewBuilder()

	// Buttons
	b.RegisterHandler(handlers.NewCallbackHandler(api, deps.Onboarding, deps.Review, deps.Summaries, deps.Files, kb, logger))

	// Full name after /start
	b.RegisterHandler(handlers.NewRegistrationHandler(api, deps.Onboarding, kb, logger))

	// Replies to a presented step
	b.RegisterHandler(handlers.NewStepHandler(api, deps.Onboarding, kb, logger))
	b.RegisterHandler(handlers.NewCollectionHandler(api, deps.Onboarding, kb, logger))

	// "<score> <comment>" of an expert
	b.RegisterHandler(handlers.NewGradingHandler(api, deps.Review, kb, logger))

	b.RegisterCommands(handlers.NewCommandHandler(api, deps.Onboarding, deps.Review, deps.Summaries, deps.Files, kb, logger))

	logger.Info("telegram handlers registered",
		zap.Int("handler_count", 5),
	)
}
