package trainee

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/pkg/response"
	"github.com/futig/onboarding-bot/internal/usecase/onboarding"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase   OnboardingUsecase
	summaries SummaryRenderer
}

func NewHandler(usecase OnboardingUsecase, summaries SummaryRenderer) *Handler {
	return &Handler{
		usecase:   usecase,
		summaries: summaries,
	}
}

// GetProgress handles GET /trainees/{telegram_id}/progress
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, telegramID, ok := h.traineeContext(w, r, "GetProgress")
	if !ok {
		return
	}

	progress, err := h.usecase.Progress(ctx, telegramID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Debug(ctx, "progress fetched",
		zap.Int("attempted_steps", progress.AttemptedSteps),
		zap.Int("total_steps", progress.TotalSteps),
	)
	response.Success(w, toProgressDTO(progress))
}

// GetReport handles GET /trainees/{telegram_id}/report - xlsx download
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx, telegramID, ok := h.traineeContext(w, r, "GetReport")
	if !ok {
		return
	}

	file, err := h.usecase.Report(ctx, telegramID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "report generated", zap.Int("bytes", len(file.Data)))
	response.File(w, xlsxContentType, file)
}

// GetSummary handles GET /trainees/{telegram_id}/summary?format=md|docx|pdf
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, telegramID, ok := h.traineeContext(w, r, "GetSummary")
	if !ok {
		return
	}

	format, err := entity.ParseResultFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid format parameter", err)
		return
	}
	ctx = logger.AddFields(ctx, zap.String("format", string(format)))

	text, err := h.usecase.Summary(ctx, telegramID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	file, contentType, err := h.summaries.Render(format, fmt.Sprintf("progress-%d", telegramID), onboarding.SummaryTitle, text)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to format summary", err)
		return
	}

	ctxzap.Info(ctx, "summary rendered")
	response.File(w, contentType, file)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// traineeContext parses the telegram_id path parameter and adds it to the request logger
func (h *Handler) traineeContext(w http.ResponseWriter, r *http.Request, action string) (context.Context, int64, bool) {
	ctx := logger.WithAction(r.Context(), action)

	raw := chi.URLParam(r, "telegram_id")
	telegramID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || telegramID <= 0 {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid telegram_id",
			fmt.Errorf("%w: telegram_id %q", entity.ErrInvalidParameter, raw))
		return ctx, 0, false
	}
	return logger.WithUser(ctx, telegramID), telegramID, true
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message, zap.Error(err))
	}
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrUserNotFound) || errors.Is(err, entity.ErrUserNotRegistered):
		h.respondError(ctx, w, http.StatusNotFound, "trainee not found", err)
	case errors.Is(err, entity.ErrNoSubmissions):
		h.respondError(ctx, w, http.StatusNotFound, "trainee has no submissions", err)
	case errors.Is(err, entity.ErrInvalidParameter) || errors.Is(err, entity.ErrInvalidFormat):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
