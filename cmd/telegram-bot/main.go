package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/futig/onboarding-bot/internal/builder"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Println("telegram bot:", err)
		os.Exit(1)
	}
}

// run polls Telegram until SIGINT/SIGTERM or a polling failure.
func run() error {
	bot, core, err := builder.BuildTelegramBot()
	if err != nil {
		return err
	}
	logger := core.Logger
	defer func() {
		core.Close()
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("onboarding bot polling",
			zap.String("state_backend", core.Config.StateCfg.Backend),
			zap.Bool("mocks", core.Config.EnableMocks))
		if err := bot.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested, draining in-flight turns")
		if err := bot.Stop(); err != nil {
			logger.Error("stop bot", zap.Error(err))
		}
		logger.Info("onboarding bot stopped")
		return nil
	case err := <-errChan:
		logger.Error("polling failed", zap.Error(err))
		return err
	}
}
