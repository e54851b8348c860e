package handlers

import (
	"context"
	"errors"
	"time"

	pkgRetry "github.com/futig/onboarding-bot/internal/pkg/retry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// criticalRetry is used for messages that must be delivered, such as reports
var criticalRetry = &pkgRetry.RetryConfig{
	Attempts: 3,
	Delay:    500 * time.Millisecond,
	MaxDelay: 3 * time.Second,
}

// sendCritical sends c, retrying everything except client errors reported by Telegram
func sendCritical(ctx context.Context, bot API, c tgbotapi.Chattable) error {
	return criticalRetry.Do(ctx, func() error {
		_, err := bot.Send(c)
		return err
	}, isRetryableSendError)
}

func isRetryableSendError(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		// 429 carries a retry hint, other 4xx will not get better
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return true
}
