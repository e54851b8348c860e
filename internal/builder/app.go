package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// shutdownTimeout covers an in-flight report build.
const shutdownTimeout = 90 * time.Second

// App is the HTTP API process: the server plus the storage it reads.
type App struct {
	server *http.Server
	core   *Core
	logger *zap.Logger
}

// Run serves until SIGINT/SIGTERM or a server failure, then shuts down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errChan:
		a.logger.Error("Server error", zap.Error(runErr))
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer func() { _ = a.logger.Sync() }()

	a.logger.Info("Shutting down server gracefully")
	err := a.server.Shutdown(ctx)
	if err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
	}

	a.logger.Info("Closing storage connections")
	a.core.Close()

	if err == nil {
		a.logger.Info("Application stopped gracefully")
	}
	return err
}
