package builder

import (
	"context"
	"fmt"

	"github.com/futig/onboarding-bot/internal/catalog"
	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/integration/callback"
	"github.com/futig/onboarding-bot/internal/integration/llm"
	"github.com/futig/onboarding-bot/internal/pkg/filestore"
	"github.com/futig/onboarding-bot/internal/pkg/formatter"
	"github.com/futig/onboarding-bot/internal/pkg/validator"
	"github.com/futig/onboarding-bot/internal/repository"
	"github.com/futig/onboarding-bot/internal/state"
	"github.com/futig/onboarding-bot/internal/usecase/onboarding"
	"github.com/futig/onboarding-bot/internal/usecase/report"
	"github.com/futig/onboarding-bot/internal/usecase/review"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// evaluator is everything the LLM connectors provide
type evaluator interface {
	onboarding.Evaluator
	onboarding.SearchMapChecker
	report.Scorer
}

// notifier is everything the callback connectors provide
type notifier interface {
	onboarding.Notifier
	review.Notifier
}

// Core holds the storage and use cases shared by every binary
type Core struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *pgxpool.Pool
	Steps      repository.StepRepository
	States     *state.Manager
	Files      *filestore.Store
	Formatter  *formatter.Factory
	Onboarding *onboarding.OnboardingUsecase
	Review     *review.ReviewUsecase

	redis *redis.Client
}

// NewCore connects to storage and wires the use cases. fetcher downloads
// documents sent to the bot and may be nil for binaries that never accept uploads.
func NewCore(ctx context.Context, cfg *config.Config, logger *zap.Logger, fetcher onboarding.FileFetcher) (*Core, error) {
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	c := &Core{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Formatter: formatter.NewFactory(formatter.WithPDFFont(cfg.ReportCfg.PDFFont)),
	}

	// Initialize repositories
	userRepo := repository.NewUserPostgres(db)
	submissionRepo := repository.NewSubmissionPostgres(db)
	c.Steps = repository.NewStepCache(repository.NewStepPostgres(db), cfg.CatalogCacheTTL)

	storage, err := c.setupStateStorage(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.States = state.NewManager(storage)
	logger.Info("Repositories initialized",
		zap.String("state_backend", cfg.StateCfg.Backend),
	)

	// Initialize external service connectors (with mock support)
	var llmConnector evaluator
	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		llmConnector = llm.NewMockConnector(logger)
	} else {
		providers := llm.NewProviders(cfg.LLMCfg, logger)
		logger.Info("Using real connectors for external services",
			zap.Int("llm_providers", len(providers)),
		)
		llmConnector = llm.NewConnector(llm.NewClient(providers, cfg.LLMCfg.Retry), logger)
	}

	var events notifier = callback.NopNotifier{}
	if cfg.CallbackCfg.Enabled {
		events = callback.NewConnector(cfg.CallbackCfg, logger)
	}

	// Initialize validators
	fileValidator := validator.NewFileValidator(cfg.UploadCfg)
	c.Files = filestore.New(cfg.UploadCfg.Dir)

	// Initialize use cases
	reportUC := report.NewUsecase(
		c.Steps,
		submissionRepo,
		llmConnector,
		report.NewXLSXBuilder(),
		cfg.ReportCfg.ScoringWorkers,
	)

	c.Onboarding = onboarding.NewUsecase(
		userRepo,
		c.Steps,
		submissionRepo,
		c.States,
		llmConnector,
		onboarding.Uploads{
			Validator: fileValidator,
			Inspector: validator.NewSearchMapInspector(),
			Checker:   llmConnector,
			Fetcher:   fetcher,
			Store:     c.Files,
		},
		reportUC,
		events,
		logger,
	)

	c.Review = review.NewUsecase(
		userRepo,
		submissionRepo,
		c.States,
		fileValidator,
		events,
	)
	logger.Info("Use cases initialized")

	return c, nil
}

func (c *Core) setupStateStorage(ctx context.Context) (state.Storage, error) {
	cfg := c.Config
	switch cfg.StateCfg.Backend {
	case config.StateBackendRedis:
		client, err := setupRedis(ctx, cfg.RedisCfg, cfg.ConnectRetry, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("setup redis: %w", err)
		}
		c.redis = client
		return repository.NewSessionRedis(client, cfg.StateCfg.TTL), nil
	case config.StateBackendMemory:
		return repository.NewSessionMemory(cfg.StateCfg.TTL), nil
	default:
		return repository.NewSessionPostgres(c.DB), nil
	}
}

// Migrate applies the schema migrations and returns the resulting version.
func (c *Core) Migrate(ctx context.Context) (uint, error) {
	c.Logger.Info("Running database migrations")
	if err := repository.RunMigrations(c.Config.DatabaseURL); err != nil {
		return 0, fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := repository.MigrationVersion(c.Config.DatabaseURL)
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("migration %d is dirty", version)
	}

	c.Logger.Info("Database migrations completed successfully", zap.Uint("version", version))
	return version, nil
}

// Prepare migrates the schema and seeds the step catalog. Both are idempotent.
func (c *Core) Prepare(ctx context.Context) error {
	if _, err := c.Migrate(ctx); err != nil {
		return err
	}
	if _, err := c.SeedCatalog(ctx); err != nil {
		return err
	}
	return nil
}

// SeedCatalog upserts the embedded curriculum into the steps table.
func (c *Core) SeedCatalog(ctx context.Context) (int, error) {
	steps, err := catalog.Load()
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}

	n, err := c.Steps.UpsertSteps(ctx, steps)
	if err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}

	c.Logger.Info("Step catalog seeded", zap.Int("steps", n))
	return n, nil
}

// Close releases the storage connections
func (c *Core) Close() {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.Logger.Warn("Redis close error", zap.Error(err))
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
