package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	maxShownIssues      = 3
	maxShownSuggestions = 2

	noSheetDataIssue = "Could not extract data from file"
)

// processUpload validates, stores and checks a search map.
// A non-nil reject means the reply is not accepted and nothing must be persisted.
func (uc *OnboardingUsecase) processUpload(
	ctx context.Context, user *entity.User, step *entity.Step, doc *entity.Document, draft *entity.Submission,
) (reject *entity.Notice, notices []entity.Notice, err error) {
	if doc == nil {
		return &entity.Notice{Kind: entity.NoticeDocumentRequired}, nil, nil
	}

	if err := uc.uploads.Validator.ValidateDocument(doc); err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidExtension):
			return &entity.Notice{Kind: entity.NoticeExcelRequired, Text: doc.FileName}, nil, nil
		case errors.Is(err, entity.ErrFileTooLarge):
			return &entity.Notice{Kind: entity.NoticeFileTooLarge, Text: doc.FileName}, nil, nil
		default:
			return &entity.Notice{Kind: entity.NoticeDocumentRequired}, nil, nil
		}
	}

	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(zap.String("file_name", doc.FileName)))

	data, err := uc.uploads.Fetcher.Fetch(ctx, doc.FileID, uc.uploads.Validator.MaxFileSize())
	if err != nil {
		if errors.Is(err, entity.ErrFileTooLarge) {
			return &entity.Notice{Kind: entity.NoticeFileTooLarge, Text: doc.FileName}, nil, nil
		}
		return nil, nil, fmt.Errorf("download document: %w", err)
	}

	path, err := uc.uploads.Store.Save(user.ID, step.ID, doc.FileName, data)
	if err != nil {
		return nil, nil, fmt.Errorf("save document: %w", err)
	}

	structure, err := uc.uploads.Inspector.ValidateStructure(path)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidFile) {
			ctxzap.Info(ctx, "uploaded workbook is unreadable", zap.Error(err))
			return &entity.Notice{Kind: entity.NoticeFileUnreadable, Text: err.Error()}, nil, nil
		}
		return nil, nil, fmt.Errorf("validate structure: %w", err)
	}

	semantic := uc.semanticCheck(ctx, path)

	draft.FilePath = &path
	draft.AutoCheckResult = optionalString(fmt.Sprintf("Basic check: %s\nLLM check: %s", asJSON(structure), asJSON(semantic)))

	if structure.Valid && semantic.Valid {
		return nil, []entity.Notice{{Kind: entity.NoticeFileAccepted}}, nil
	}

	draft.Status = entity.SubmissionStatusPending
	notice := entity.Notice{Kind: entity.NoticeFileNeedsReview, Status: entity.SubmissionStatusPending}
	if !structure.Valid {
		notice.Issues = append(notice.Issues, structure.Errors...)
	}
	if !semantic.Valid {
		notice.Issues = append(notice.Issues, head(semantic.Issues, maxShownIssues)...)
		notice.Suggestions = head(semantic.Suggestions, maxShownSuggestions)
	}
	return nil, []entity.Notice{notice}, nil
}

// semanticCheck runs the LLM consistency check. Failures never block the upload.
func (uc *OnboardingUsecase) semanticCheck(ctx context.Context, path string) *entity.SemanticCheck {
	dump, err := uc.uploads.Inspector.ReadSheets(path)
	if err != nil || !hasSheetData(dump) {
		return &entity.SemanticCheck{Valid: false, Issues: []string{noSheetDataIssue}}
	}

	check, err := uc.uploads.Checker.ValidateSearchMap(ctx, dump)
	if err != nil {
		ctxzap.Warn(ctx, "search map LLM check degraded", zap.Error(err))
		return &entity.SemanticCheck{Valid: true, Issues: []string{"Validation error: " + err.Error()}}
	}
	return check
}

func hasSheetData(dump entity.SheetDump) bool {
	for _, sheet := range dump {
		if len(sheet.Columns) > 0 {
			return true
		}
	}
	return false
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func asJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
