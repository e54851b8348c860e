package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/onboarding-bot/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// State backends
const (
	StateBackendPostgres = "postgres"
	StateBackendRedis    = "redis"
	StateBackendMemory   = "memory"
)

// LLM provider selection
const (
	LLMProviderOpenAI  = "openai"
	LLMProviderGateway = "gateway"
	LLMProviderAuto    = "auto"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Startup connection retries for postgres and redis
	ConnectRetry pkgRetry.RetryConfig `envPrefix:"CONNECT_RETRY_"`

	// External service configurations
	LLMCfg      LLMConfig               `envPrefix:"LLM_"`
	CallbackCfg CallbackConnectorConfig `envPrefix:"CALLBACK_"`

	// Conversation state storage
	StateCfg StateConfig `envPrefix:"STATE_"`
	RedisCfg RedisConfig `envPrefix:"REDIS_"`

	LogCfg    LogConfig    `envPrefix:"LOG_"`
	UploadCfg UploadConfig `envPrefix:"UPLOAD_"`
	ReportCfg ReportConfig `envPrefix:"REPORT_"`

	// Step catalog cache
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"10m"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string           `env:"BOT_TOKEN"`
	UpdateTimeout      int              `env:"UPDATE_TIMEOUT" envDefault:"60"`
	RateLimitPerMinute int              `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	RateLimitBurst     int              `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int              `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
	FileClient         HTTPClientConfig `envPrefix:"FILE_"`
}

// LLMConfig configures the primary OpenAI-compatible provider and the HTTP gateway fallback.
type LLMConfig struct {
	Provider    string               `env:"PROVIDER" envDefault:"auto"`
	APIKey      string               `env:"API_KEY"`
	BaseURL     string               `env:"BASE_URL"`
	Model       string               `env:"MODEL" envDefault:"gpt-4o-mini"`
	Temperature float32              `env:"TEMPERATURE" envDefault:"0.3"`
	Gateway     LLMGatewayConfig     `envPrefix:"GATEWAY_"`
	Retry       pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type LLMGatewayConfig struct {
	HTTPClientConfig
	CompleteEndpoint string `env:"COMPLETE_ENDPOINT" envDefault:"/v1/complete"`
}

type CallbackConnectorConfig struct {
	HTTPClientConfig
	Enabled          bool                 `env:"ENABLED" envDefault:"false"`
	CallbackEndpoint string               `env:"ENDPOINT"`
	Retry            pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"5s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"30s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

type StateConfig struct {
	Backend string `env:"BACKEND" envDefault:"postgres"`
	// TTL evicts idle sessions. Zero keeps them until completion or /reset.
	TTL time.Duration `env:"TTL" envDefault:"0"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	Format     string `env:"FORMAT" envDefault:"json"` // json or console
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"30"`
}

// UploadConfig holds file upload limits
type UploadConfig struct {
	Dir         string `env:"DIR" envDefault:"uploads"`
	MaxFileSize int64  `env:"MAX_FILE_SIZE" envDefault:"20971520"` // 20 MiB, Telegram getFile limit
}

type ReportConfig struct {
	ScoringWorkers int    `env:"SCORING_WORKERS" envDefault:"4"`
	PDFFont        string `env:"PDF_FONT"` // UTF-8 TrueType font for PDF summaries
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	return Load(*envFlag)
}

// Load reads the env file of the given environment and parses the process environment.
func Load(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	// Validate Telegram configuration
	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}

	if cfg.TelegramCfg.RateLimitBurst < 1 || cfg.TelegramCfg.RateLimitBurst > 20 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_BURST must be between 1 and 20, got %d", cfg.TelegramCfg.RateLimitBurst))
	}

	if cfg.TelegramCfg.ShutdownTimeout < 1 || cfg.TelegramCfg.ShutdownTimeout > 300 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_SHUTDOWN_TIMEOUT must be between 1 and 300 seconds, got %d", cfg.TelegramCfg.ShutdownTimeout))
	}

	// Validate Database configuration
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	switch cfg.StateCfg.Backend {
	case StateBackendPostgres, StateBackendRedis, StateBackendMemory:
	default:
		errors = append(errors, fmt.Sprintf("STATE_BACKEND must be one of postgres, redis, memory, got %q", cfg.StateCfg.Backend))
	}

	switch cfg.LLMCfg.Provider {
	case LLMProviderOpenAI, LLMProviderGateway, LLMProviderAuto:
	default:
		errors = append(errors, fmt.Sprintf("LLM_PROVIDER must be one of openai, gateway, auto, got %q", cfg.LLMCfg.Provider))
	}

	if !cfg.EnableMocks {
		if cfg.LLMCfg.Provider == LLMProviderOpenAI && cfg.LLMCfg.APIKey == "" {
			errors = append(errors, "LLM_API_KEY is required for the openai provider")
		}
		if cfg.LLMCfg.Provider == LLMProviderGateway && cfg.LLMCfg.Gateway.Url == "" {
			errors = append(errors, "LLM_GATEWAY_SERVICE_URL is required for the gateway provider")
		}
		if cfg.LLMCfg.Provider == LLMProviderAuto && cfg.LLMCfg.APIKey == "" && cfg.LLMCfg.Gateway.Url == "" {
			errors = append(errors, "either LLM_API_KEY or LLM_GATEWAY_SERVICE_URL must be set")
		}
	}

	if cfg.LLMCfg.Temperature < 0 || cfg.LLMCfg.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("LLM_TEMPERATURE must be between 0 and 2, got %.2f", cfg.LLMCfg.Temperature))
	}

	if cfg.CallbackCfg.Enabled && cfg.CallbackCfg.CallbackEndpoint == "" {
		errors = append(errors, "CALLBACK_ENDPOINT is required when CALLBACK_ENABLED is set")
	}

	if cfg.UploadCfg.MaxFileSize < 1 {
		errors = append(errors, fmt.Sprintf("UPLOAD_MAX_FILE_SIZE must be positive, got %d", cfg.UploadCfg.MaxFileSize))
	}

	if cfg.ReportCfg.ScoringWorkers < 1 || cfg.ReportCfg.ScoringWorkers > 32 {
		errors = append(errors, fmt.Sprintf("REPORT_SCORING_WORKERS must be between 1 and 32, got %d", cfg.ReportCfg.ScoringWorkers))
	}

	if cfg.LogCfg.Format != "json" && cfg.LogCfg.Format != "console" {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be json or console, got %q", cfg.LogCfg.Format))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// ValidateTelegram checks the settings only the bot binary needs.
func (c *Config) ValidateTelegram() error {
	if c.TelegramCfg.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
