package onboarding

import (
	"context"
	"encoding/json"

	"github.com/futig/onboarding-bot/internal/entity"
)

// SessionStore keeps the conversation state of a trainee between turns.
type SessionStore interface {
	Load(ctx context.Context, telegramID int64) (*entity.SessionState, error)
	Save(ctx context.Context, telegramID int64, st *entity.SessionState) error
	Clear(ctx context.Context, telegramID int64) error
}

// Evaluator grades answers and turns free text into structured data.
type Evaluator interface {
	ScoreAnswer(ctx context.Context, answer, criteria string) (*entity.AnswerScore, error)
	// ParseStructured never fails; malformed output is wrapped as {"raw_text", "parse_error"}.
	ParseStructured(ctx context.Context, raw, instruction string) json.RawMessage
	EvaluateStructured(ctx context.Context, step *entity.Step, data json.RawMessage) (*entity.StructuredEvaluation, error)
}

type SearchMapChecker interface {
	ValidateSearchMap(ctx context.Context, dump entity.SheetDump) (*entity.SemanticCheck, error)
}

type FileInspector interface {
	ValidateStructure(path string) (*entity.StructureCheck, error)
	ReadSheets(path string) (entity.SheetDump, error)
}

type FileFetcher interface {
	Fetch(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

type FileStore interface {
	Save(userID string, stepID int64, filename string, data []byte) (string, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, user *entity.User) (*entity.ReportFile, error)
}

type Notifier interface {
	SubmissionNeedsReview(ctx context.Context, data *entity.CallbackSubmissionData)
	OnboardingCompleted(ctx context.Context, data *entity.CallbackCompletionData)
}
