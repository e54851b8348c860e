// Package common builds the HTTP connectors shared by the outbound integrations.
package common

import (
	"strconv"
	"time"

	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/pkg/metrics"
	pkgHTTP "github.com/futig/onboarding-bot/pkg/http"
	"go.uber.org/zap"
)

// Upstream names used as metric labels.
const (
	ServiceLLMGateway   = "llm_gateway"
	ServiceCallback     = "callback"
	ServiceTelegramFile = "telegram_file"
)

// NewBaseConnector builds a connector for service from its client settings.
func NewBaseConnector(service string, cfg config.HTTPClientConfig, logger *zap.Logger) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		Logger:  logger.With(zap.String("upstream", service)),
		BaseURL: cfg.Url,
	}

	return pkgHTTP.NewConnector(
		connCfg,
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithAuthToken(cfg.Token),
		pkgHTTP.WithRequestLogging(),
		pkgHTTP.WithObserver(observer(service)),
	)
}

func observer(service string) pkgHTTP.Observer {
	return func(_ string, status int, elapsed time.Duration, err error) {
		code := "error"
		if err == nil {
			code = strconv.Itoa(status)
		}
		metrics.OutboundRequestsTotal.WithLabelValues(service, code).Inc()
		metrics.OutboundRequestDurationSeconds.WithLabelValues(service).Observe(elapsed.Seconds())
	}
}
