package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/onboarding-bot/internal/api"
	reviewapi "github.com/futig/onboarding-bot/internal/api/review"
	traineeapi "github.com/futig/onboarding-bot/internal/api/trainee"
	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/integration/telegramfile"
	pkglogger "github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := pkglogger.New(cfg.LogCfg)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	core, err := NewCore(ctx, cfg, logger, nil)
	if err != nil {
		return nil, err
	}

	if err := core.Prepare(ctx); err != nil {
		core.Close()
		return nil, err
	}

	// Setup API handlers
	traineeHandler := traineeapi.NewHandler(core.Onboarding, core.Formatter)
	reviewHandler := reviewapi.NewHandler(core.Review)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(traineeHandler, reviewHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server. Report builds score every answer, so writes get a long timeout.
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		core:   core,
		logger: logger,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot() (telegram.Bot, *Core, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateTelegram(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger, err := pkglogger.New(cfg.LogCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building Telegram bot",
		zap.String("environment", cfg.Environment),
	)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramCfg.BotToken)
	if err != nil {
		return nil, nil, fmt.Errorf("create bot API: %w", err)
	}

	fetcher := telegramfile.NewConnector(api, cfg.TelegramCfg.BotToken, cfg.TelegramCfg.FileClient, logger)

	core, err := NewCore(ctx, cfg, logger, fetcher)
	if err != nil {
		return nil, nil, err
	}

	if err := core.Prepare(ctx); err != nil {
		core.Close()
		return nil, nil, err
	}

	bot := telegram.NewBot(&cfg.TelegramCfg, api, telegram.Deps{
		States:     core.States,
		Onboarding: core.Onboarding,
		Review:     core.Review,
		Summaries:  core.Formatter,
		Files:      core.Files,
	}, logger)

	logger.Info("Telegram bot built successfully",
		zap.String("environment", cfg.Environment),
	)

	return bot, core, nil
}
