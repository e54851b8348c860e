// Package cli implements onboardctl, the admin command line of the onboarding bot.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/futig/onboarding-bot/internal/builder"
	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/entity"
	pkglogger "github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"
)

// backend is what the commands need from storage and the use cases
type backend interface {
	Migrate(ctx context.Context) (uint, error)
	SeedCatalog(ctx context.Context) (int, error)
	Progress(ctx context.Context, telegramID int64) (*entity.Progress, error)
	Report(ctx context.Context, telegramID int64) (*entity.ReportFile, error)
	Close()
}

type opener func(ctx context.Context, env string) (backend, error)

type app struct {
	env    string
	open   opener
	stdout io.Writer
	stderr io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(openCore, os.Stdout, os.Stderr)
}

func newRootCommand(open opener, out, errOut io.Writer) *cobra.Command {
	a := &app{
		open:   open,
		stdout: out,
		stderr: errOut,
	}

	cmd := &cobra.Command{
		Use:           "onboardctl",
		Short:         "Admin tool of the trainee onboarding bot",
		Long:          "onboardctl migrates the database, seeds the step catalog and inspects the progress of trainees.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.PersistentFlags().StringVar(&a.env, "env", "local", "environment to load (local, prod, or custom)")

	cmd.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newNextCmd(a),
		newReportCmd(a),
	)
	return cmd
}

// withBackend opens the backend for a single command and closes it afterwards
func (a *app) withBackend(ctx context.Context, run func(b backend) error) error {
	b, err := a.open(ctx, a.env)
	if err != nil {
		return err
	}
	defer b.Close()
	return run(b)
}

// coreBackend adapts builder.Core to the commands
type coreBackend struct {
	*builder.Core
}

func (c coreBackend) Progress(ctx context.Context, telegramID int64) (*entity.Progress, error) {
	return c.Onboarding.Progress(ctx, telegramID)
}

func (c coreBackend) Report(ctx context.Context, telegramID int64) (*entity.ReportFile, error) {
	return c.Onboarding.Report(ctx, telegramID)
}

func (c coreBackend) Close() {
	c.Core.Close()
	_ = c.Logger.Sync()
}

func openCore(ctx context.Context, env string) (backend, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Commands print their own results, so only warnings go to the log.
	logCfg := cfg.LogCfg
	logCfg.Level = "warn"
	logCfg.Format = "console"
	logger, err := pkglogger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	core, err := builder.NewCore(ctxzap.ToContext(ctx, logger), cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	return coreBackend{Core: core}, nil
}
