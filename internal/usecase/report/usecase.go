package report

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/llmparse"
	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/pkg/metrics"
	"github.com/futig/onboarding-bot/internal/pkg/validator"
	"github.com/futig/onboarding-bot/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	completedAnswer  = "Completed"
	minScoredRunes   = 3
	defaultScore     = 5.0
	degradedFeedback = "Оценка недоступна (ошибка LLM: %v)"

	reportFileTime = "20060102_1504"
)

// ReportUsecase re-scores the latest answers of a trainee and renders the onboarding report.
type ReportUsecase struct {
	stepRepo       repository.StepRepository
	submissionRepo repository.SubmissionRepository
	scorer         Scorer
	builder        Builder
	workers        int
	now            func() time.Time
}

func NewUsecase(
	stepRepo repository.StepRepository,
	submissionRepo repository.SubmissionRepository,
	scorer Scorer,
	builder Builder,
	workers int,
) *ReportUsecase {
	if workers < 1 {
		workers = 1
	}
	return &ReportUsecase{
		stepRepo:       stepRepo,
		submissionRepo: submissionRepo,
		scorer:         scorer,
		builder:        builder,
		workers:        workers,
		now:            time.Now,
	}
}

// Generate builds the xlsx report of user. It fails only when the user has no submissions
// or storage is unavailable; scoring failures degrade to a default score.
func (uc *ReportUsecase) Generate(ctx context.Context, user *entity.User) (*entity.ReportFile, error) {
	ctx = logger.WithAction(ctx, "build_report")
	started := time.Now()

	file, err := uc.generate(ctx, user)
	metrics.ReportBuildDurationSeconds.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.ReportBuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ReportBuildsTotal.WithLabelValues("success").Inc()
	return file, nil
}

func (uc *ReportUsecase) generate(ctx context.Context, user *entity.User) (*entity.ReportFile, error) {
	report, err := uc.Compose(ctx, user)
	if err != nil {
		return nil, err
	}

	data, err := uc.builder.Build(report)
	if err != nil {
		return nil, fmt.Errorf("build workbook: %w", err)
	}

	ctxzap.Info(ctx, "report generated",
		zap.Int("completed_steps", report.CompletedSteps),
		zap.Int("scored_answers", report.ScoredAnswers),
	)
	return &entity.ReportFile{
		FileName: FileName(user, report.GeneratedAt),
		Data:     data,
		Caption:  Caption(report),
	}, nil
}

// Compose loads the latest submission per step, scores the answers and aggregates them.
func (uc *ReportUsecase) Compose(ctx context.Context, user *entity.User) (*entity.Report, error) {
	steps, err := uc.stepRepo.ListSteps(ctx)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}

	subs, err := uc.submissionRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	entries := latestEntries(steps, subs)
	if len(entries) == 0 {
		return nil, entity.ErrNoSubmissions
	}

	if err := uc.score(ctx, entries); err != nil {
		return nil, err
	}

	return Aggregate(user, steps, entries, uc.now()), nil
}

// score fills Score of every entry with a gradable answer, at most uc.workers calls at a time.
func (uc *ReportUsecase) score(ctx context.Context, entries []entity.ReportEntry) error {
	var g errgroup.Group
	g.SetLimit(uc.workers)

	for i := range entries {
		answer, ok := gradableAnswer(entries[i].Submission)
		if !ok {
			continue
		}
		entry := &entries[i]
		g.Go(func() error {
			entry.Score = uc.scoreOne(ctx, entry.Step, answer)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("score answers: %w", err)
	}
	return nil
}

func (uc *ReportUsecase) scoreOne(ctx context.Context, step *entity.Step, answer string) *entity.ReportScore {
	result, err := uc.scorer.ScoreForReport(ctx, step, answer)
	if err != nil {
		ctxzap.Warn(ctx, "report scoring degraded", zap.Int("step_order", step.Order), zap.Error(err))
		return &entity.ReportScore{
			Score:    defaultScore,
			Feedback: fmt.Sprintf(degradedFeedback, err),
			Degraded: true,
		}
	}
	result.Score = llmparse.ClampReport(result.Score)
	return result
}

// latestEntries keeps the newest submission of every known step, ordered by step order.
func latestEntries(steps []*entity.Step, subs []*entity.Submission) []entity.ReportEntry {
	latest := make(map[int64]*entity.Submission, len(subs))
	for _, sub := range subs {
		prev, ok := latest[sub.StepID]
		if !ok || !sub.CreatedAt.Before(prev.CreatedAt) {
			latest[sub.StepID] = sub
		}
	}

	entries := make([]entity.ReportEntry, 0, len(latest))
	for _, step := range steps {
		if sub, ok := latest[step.ID]; ok {
			entries = append(entries, entity.ReportEntry{Step: step, Submission: sub})
		}
	}
	return entries
}

func gradableAnswer(sub *entity.Submission) (string, bool) {
	if sub.TextAnswer == nil {
		return "", false
	}
	answer := *sub.TextAnswer
	if answer == "" || answer == completedAnswer {
		return "", false
	}
	if utf8.RuneCountInString(strings.TrimSpace(answer)) < minScoredRunes {
		return "", false
	}
	return answer, true
}

// FileName returns the download name of the report of user generated at t.
func FileName(user *entity.User, t time.Time) string {
	name := validator.SanitizeFilename(strings.ReplaceAll(strings.TrimSpace(user.FullName), " ", "_"))
	if name == "" {
		name = fmt.Sprintf("%d", user.TelegramID)
	}
	return fmt.Sprintf("Отчет_онбординг_%s_%s.xlsx", name, t.Format(reportFileTime))
}

// Caption is the short text sent together with the report file.
func Caption(r *entity.Report) string {
	overall := "нет оценок"
	if r.Overall != nil {
		overall = fmt.Sprintf("%.1f / 10", *r.Overall)
	}
	return fmt.Sprintf("📊 Отчёт по онбордингу: %s\nОбщая оценка: %s\nВыполнено шагов: %d из %d",
		r.User.FullName, overall, r.CompletedSteps, r.TotalSteps)
}
