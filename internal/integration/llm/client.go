package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/futig/onboarding-bot/internal/pkg/metrics"
	pkgRetry "github.com/futig/onboarding-bot/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ErrNoProviders is returned when no completion backend is configured.
var ErrNoProviders = errors.New("no LLM provider configured")

// Client runs a prompt through the provider chain. Each provider is retried
// on transient failures before the next one is tried.
type Client struct {
	providers []Provider
	retry     pkgRetry.RetryConfig
}

func NewClient(providers []Provider, retry pkgRetry.RetryConfig) *Client {
	return &Client{providers: providers, retry: retry}
}

// Generate returns the first successful completion. operation labels metrics and logs.
func (c *Client) Generate(ctx context.Context, operation, prompt string) (string, error) {
	if len(c.providers) == 0 {
		return "", ErrNoProviders
	}

	var errs []error
	for _, p := range c.providers {
		text, err := c.try(ctx, p, operation, prompt)
		if err == nil {
			return text, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil {
			break
		}
		ctxzap.Warn(ctx, "LLM provider failed, trying next",
			zap.String("operation", operation),
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
	}

	return "", errors.Join(errs...)
}

func (c *Client) try(ctx context.Context, p Provider, operation, prompt string) (string, error) {
	var text string
	start := time.Now()

	err := c.retry.Do(ctx, func() error {
		var err error
		text, err = p.Complete(ctx, prompt)
		return err
	}, isRetryable)

	metrics.LLMRequestDurationSeconds.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.LLMRequestsTotal.WithLabelValues(operation, p.Name(), outcome).Inc()

	return text, err
}
