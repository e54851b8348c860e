package callback

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/integration/common"
	"github.com/futig/onboarding-bot/internal/pkg/metrics"
	pkghttp "github.com/futig/onboarding-bot/pkg/http"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Connector posts onboarding events to an external webhook.
// Delivery is best effort: failures are logged and never returned to the caller.
type Connector struct {
	config    config.CallbackConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.CallbackConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(common.ServiceCallback, cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// SubmissionNeedsReview announces a submission left for an expert.
func (c *Connector) SubmissionNeedsReview(ctx context.Context, data *entity.CallbackSubmissionData) {
	c.deliver(ctx, &entity.CallbackEvent{
		Event: entity.CallbackEventNeedsReview,
		Data:  data,
	})
}

// SubmissionReviewed announces an expert grade.
func (c *Connector) SubmissionReviewed(ctx context.Context, data *entity.CallbackSubmissionData) {
	c.deliver(ctx, &entity.CallbackEvent{
		Event: entity.CallbackEventReviewed,
		Data:  data,
	})
}

// OnboardingCompleted announces a trainee who attempted every step.
func (c *Connector) OnboardingCompleted(ctx context.Context, data *entity.CallbackCompletionData) {
	c.deliver(ctx, &entity.CallbackEvent{
		Event: entity.CallbackEventOnboardingCompleted,
		Data:  data,
	})
}

func (c *Connector) deliver(ctx context.Context, event *entity.CallbackEvent) {
	requestID := uuid.NewString()
	err := c.config.Retry.Do(ctx, func() error {
		return c.Send(ctx, c.config.CallbackEndpoint, requestID, event)
	}, pkghttp.IsRetryable)

	outcome := "success"
	if err != nil {
		outcome = "error"
		ctxzap.Error(ctx, "failed to send callback",
			zap.String("event_type", string(event.Event)),
			zap.Error(err),
		)
	}
	metrics.CallbacksTotal.WithLabelValues(string(event.Event), outcome).Inc()
}

func (c *Connector) Send(ctx context.Context, callbackURL string, requestID string, event *entity.CallbackEvent) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	ctxzap.Debug(ctx, "sending callback event",
		zap.String("event_type", string(event.Event)),
		zap.String("callback_url", callbackURL),
		zap.String("request_id", requestID),
		zap.String("timestamp", event.Timestamp),
	)

	opts := []pkghttp.RequestOpt{
		pkghttp.WithHeader("X-Request-ID", requestID),
		pkghttp.WithURL(callbackURL),
	}

	err := c.connector.DoRequest(ctx, http.MethodPost, "", event, nil, opts...)
	if err != nil {
		return fmt.Errorf("failed to send callback, event_type: %s, url: %s, error: %w", string(event.Event), callbackURL, err)
	}

	ctxzap.Info(ctx, "callback sent successfully",
		zap.String("event_type", string(event.Event)),
		zap.String("request_id", requestID),
	)
	return nil
}

// NopNotifier drops every event. Used when callbacks are disabled.
type NopNotifier struct{}

func (NopNotifier) SubmissionNeedsReview(context.Context, *entity.CallbackSubmissionData) {}
func (NopNotifier) SubmissionReviewed(context.Context, *entity.CallbackSubmissionData)    {}
func (NopNotifier) OnboardingCompleted(context.Context, *entity.CallbackCompletionData)   {}
