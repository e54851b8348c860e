package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/futig/onboarding-bot/internal/config"
	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	log, err := New(config.LogConfig{Level: "debug", Format: "json", File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	require.NoError(t, err)

	log.Info("hello", zap.Int64("telegram_id", 42))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"telegram_id":42`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "chatty", Format: "json"})
	assert.Error(t, err)
}

func TestContextFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := ctxzap.ToContext(context.Background(), zap.New(core))

	ctx = WithAction(ctx, "submit_step")
	ctx = WithStep(ctx, &entity.Step{Order: 3, Type: entity.StepTypeTextInput})
	ctx = WithUser(ctx, 42)
	ctx = WithSubmission(ctx, "sub-1")
	ctxzap.Info(ctx, "processed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "submit_step", fields["action"])
	assert.Equal(t, int64(3), fields["step_order"])
	assert.Equal(t, "text_input", fields["step_type"])
	assert.Equal(t, int64(42), fields["telegram_id"])
	assert.Equal(t, "sub-1", fields["submission_id"])
}
