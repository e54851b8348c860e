package telegramfile

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/integration/common"
	pkghttp "github.com/futig/onboarding-bot/pkg/http"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// FileLocator resolves a Telegram file id into a downloadable path.
type FileLocator interface {
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

// Connector downloads documents sent to the bot.
type Connector struct {
	locator   FileLocator
	connector *pkghttp.Connector
	link      func(tgbotapi.File) string
	secure    bool
}

func NewConnector(locator FileLocator, token string, cfg config.HTTPClientConfig, logger *zap.Logger) *Connector {
	return &Connector{
		locator:   locator,
		connector: common.NewBaseConnector(common.ServiceTelegramFile, cfg, logger),
		link:      func(f tgbotapi.File) string { return f.Link(token) },
		secure:    true,
	}
}

// Fetch downloads the file, refusing anything larger than maxBytes with entity.ErrFileTooLarge.
func (c *Connector) Fetch(ctx context.Context, fileID string, maxBytes int64) ([]byte, error) {
	file, err := c.locator.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file info: %w", err)
	}

	if maxBytes > 0 && int64(file.FileSize) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", entity.ErrFileTooLarge, file.FileSize, maxBytes)
	}

	fileURL := c.link(file)
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return nil, fmt.Errorf("invalid file URL: %w", err)
	}
	if c.secure && parsed.Scheme != "https" {
		return nil, fmt.Errorf("insecure URL scheme: %s (expected https)", parsed.Scheme)
	}

	data, err := c.connector.Download(ctx, "", maxBytes, pkghttp.WithURL(fileURL))
	if err != nil {
		if errors.Is(err, pkghttp.ErrResponseTooLarge) {
			return nil, fmt.Errorf("%w: %v", entity.ErrFileTooLarge, err)
		}
		return nil, fmt.Errorf("download file: %w", err)
	}

	ctxzap.Debug(ctx, "telegram file downloaded", zap.String("file_path", file.FilePath), zap.Int("bytes", len(data)))
	return data, nil
}
