package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/logger"
	"github.com/futig/onboarding-bot/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Handler struct {
	usecase ReviewUsecase
}

func NewHandler(usecase ReviewUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// ListSubmissions handles GET /submissions?status=pending,checked&limit=50
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListSubmissions")

	statuses := parseStatuses(r.URL.Query().Get("status"))

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLimit {
			h.respondError(ctx, w, http.StatusBadRequest, "invalid limit",
				fmt.Errorf("%w: limit must be between 1 and %d", entity.ErrInvalidParameter, maxLimit))
			return
		}
		limit = n
	}

	items, err := h.usecase.Queue(ctx, statuses, limit)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Debug(ctx, "submissions listed", zap.Int("count", len(items)))
	response.Success(w, toSubmissionDTOs(items))
}

// ReviewSubmission handles POST /submissions/{id}/review
func (h *Handler) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "id")
	ctx := logger.WithSubmission(logger.WithAction(r.Context(), "ReviewSubmission"), submissionID)

	var req entity.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	details, err := h.usecase.Review(ctx, submissionID, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "submission reviewed via API", zap.String("status", string(details.Submission.Status)))
	response.Success(w, toSubmissionDTO(details))
}

// parseStatuses splits a comma separated status filter. Empty means the default queue.
func parseStatuses(raw string) []entity.SubmissionStatus {
	var out []entity.SubmissionStatus
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, entity.SubmissionStatus(part))
		}
	}
	return out
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
	case errors.Is(err, entity.ErrSubmissionNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "submission not found", err)
	case errors.Is(err, entity.ErrForbidden):
		h.respondError(ctx, w, http.StatusForbidden, "reviewer may not review submissions", err)
	case errors.Is(err, entity.ErrTerminalStatus):
		h.respondError(ctx, w, http.StatusConflict, "submission already reviewed", err)
	case errors.Is(err, entity.ErrInvalidStatus) || errors.Is(err, entity.ErrInvalidScore) ||
		errors.Is(err, entity.ErrMissingField) || errors.Is(err, entity.ErrInvalidParameter):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
