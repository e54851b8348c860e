package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/telegram/keyboard"
	"github.com/futig/onboarding-bot/internal/telegram/render"
	"github.com/futig/onboarding-bot/internal/usecase/onboarding"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const summaryFileBase = "progress"

// flows holds the operations reachable both from commands and from buttons
type flows struct {
	BaseHandler
	bot          API
	onboardingUC OnboardingUsecase
	reviewUC     ReviewUsecase
	summaries    SummaryRenderer
	files        FileReader
	keyboard     *keyboard.Builder
	logger       *zap.Logger
}

func newFlows(
	state string,
	bot API,
	onboardingUC OnboardingUsecase,
	reviewUC ReviewUsecase,
	summaries SummaryRenderer,
	files FileReader,
	kb *keyboard.Builder,
	logger *zap.Logger,
) flows {
	return flows{
		BaseHandler: BaseHandler{
			stateName:     state,
			messageSender: NewMessageSender(bot, kb, logger),
		},
		bot:          bot,
		onboardingUC: onboardingUC,
		reviewUC:     reviewUC,
		summaries:    summaries,
		files:        files,
		keyboard:     kb,
		logger:       logger,
	}
}

// continueOnboarding presents the next step of the trainee
func (f *flows) continueOnboarding(ctx context.Context, msg *Message) error {
	ctx = logger.WithAction(ctx, "start_onboarding")

	turn, err := f.onboardingUC.Start(ctx, msg.UserID)
	if err != nil {
		f.HandleError(ctx, msg.ChatID, err)
		return nil
	}
	return f.messageSender.SendTurn(ctx, msg.ChatID, turn)
}

// submit feeds a reply to the armed step and delivers the resulting turn
func (f *flows) submit(ctx context.Context, msg *Message, reply entity.Reply, slow bool) error {
	if slow {
		typing := NewTypingNotifier(f.bot, msg.ChatID, f.logger)
		typing.Start(ctx)
		defer typing.Stop()
	}

	turn, err := f.onboardingUC.Submit(ctx, msg.UserID, reply)
	if err != nil {
		f.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	if turn.Completed {
		upload := NewUploadNotifier(f.bot, msg.ChatID, f.logger)
		upload.Start(ctx)
		defer upload.Stop()
	}
	return f.messageSender.SendTurn(ctx, msg.ChatID, turn)
}

// sendReport builds the xlsx report on demand
func (f *flows) sendReport(ctx context.Context, msg *Message) error {
	ctx = logger.WithAction(ctx, "get_report")

	f.sendMessage(msg.ChatID, render.MsgGeneratingReport, nil)

	upload := NewUploadNotifier(f.bot, msg.ChatID, f.logger)
	upload.Start(ctx)
	defer upload.Stop()

	file, err := f.onboardingUC.Report(ctx, msg.UserID)
	if err != nil {
		if !errors.Is(err, entity.ErrNoSubmissions) && !errors.Is(err, entity.ErrUserNotRegistered) {
			ctxzap.Error(ctx, "report generation failed", zap.Error(err))
			f.sendMessage(msg.ChatID, render.ErrReportFailed, nil)
			return nil
		}
		f.HandleError(ctx, msg.ChatID, err)
		return nil
	}
	return f.messageSender.SendDocument(ctx, msg.ChatID, file, nil)
}

// sendSummary renders the progress summary in the requested format
func (f *flows) sendSummary(ctx context.Context, msg *Message, rawFormat string) error {
	ctx = logger.WithAction(ctx, "get_summary")

	format, err := entity.ParseResultFormat(rawFormat)
	if err != nil {
		f.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	text, err := f.onboardingUC.Summary(ctx, msg.UserID)
	if err != nil {
		f.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	if format == entity.FormatMarkdown {
		return f.messageSender.Send(msg.ChatID, text, nil)
	}

	file, _, err := f.summaries.Render(format, summaryFileBase, onboarding.SummaryTitle, text)
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return f.messageSender.SendDocument(ctx, msg.ChatID, file, nil)
}

// listQueue shows the submissions waiting for an expert
func (f *flows) listQueue(ctx context.Context, msg *Message) error {
	ctx = logger.WithAction(ctx, "review_queue")

	items, err := f.reviewUC.List(ctx, msg.UserID)
	if err != nil {
		f.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	var markup interface{}
	if len(items) > 0 {
		markup = f.keyboard.ReviewQueueKeyboard(items)
	}
	return f.messageSender.Send(msg.ChatID, render.RenderReviewQueue(items), markup)
}

// openSubmission shows one submission, with its file when there is one, and waits for the grade
func (f *flows) openSubmission(ctx context.Context, msg *Message, submissionID string) error {
	ctx = logger.WithAction(ctx, "open_submission")

	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		f.sendMessage(msg.ChatID, render.MsgReviewUsage, nil)
		return nil
	}

	details, err := f.reviewUC.Open(ctx, msg.UserID, submissionID)
	if err != nil {
		f.HandleError(ctx, msg.ChatID, err)
		return nil
	}

	text := render.RenderSubmission(details)
	if path := details.Submission.FilePath; path != nil && f.files != nil {
		data, err := f.files.Read(*path)
		if err == nil {
			file := &entity.ReportFile{FileName: filepath.Base(*path), Data: data}
			if err := f.messageSender.SendDocument(ctx, msg.ChatID, file, nil); err != nil {
				return err
			}
		} else {
			ctxzap.Warn(ctx, "submission file is not available", zap.Error(err), zap.String("path", *path))
		}
	}

	if err := f.messageSender.Send(msg.ChatID, text, nil); err != nil {
		return err
	}
	return f.messageSender.Send(msg.ChatID, render.MsgGradePrompt, f.keyboard.GradingKeyboard())
}

// cancelReview leaves the grading phase
func (f *flows) cancelReview(ctx context.Context, msg *Message) error {
	if err := f.reviewUC.Cancel(ctx, msg.UserID); err != nil {
		return fmt.Errorf("cancel review: %w", err)
	}
	f.sendMessage(msg.ChatID, render.MsgReviewCancel, nil)
	return nil
}
