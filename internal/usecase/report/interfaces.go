package report

import (
	"context"

	"github.com/futig/onboarding-bot/internal/entity"
)

// Scorer grades answers on the 1-10 report scale.
type Scorer interface {
	ScoreForReport(ctx context.Context, step *entity.Step, answer string) (*entity.ReportScore, error)
}

// Builder renders an aggregated report into a file.
type Builder interface {
	Build(report *entity.Report) ([]byte, error)
}
