package llm

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector - мок-реализация LLM коннектора для локального запуска без модели
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

// ScoreAnswer - длинные ответы получают 4, короткие 2
func (m *MockConnector) ScoreAnswer(ctx context.Context, answer, criteria string) (*entity.AnswerScore, error) {
	ctxzap.Info(ctx, "[MOCK] scoring answer")

	score := 2.0
	comment := "Оценка: 2\nКомментарий: ответ слишком краткий, раскройте мысль."
	if utf8.RuneCountInString(answer) >= 40 {
		score = 4.0
		comment = "Оценка: 4\nКомментарий: ответ по существу, добавьте пример из практики."
	}
	return &entity.AnswerScore{Score: &score, Comment: comment}, nil
}

// ParseStructured - складывает непустые строки ответа в список
func (m *MockConnector) ParseStructured(ctx context.Context, raw, instruction string) json.RawMessage {
	ctxzap.Info(ctx, "[MOCK] parsing structured data")

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	data, _ := json.Marshal(map[string]any{"строки": lines})
	return data
}

func (m *MockConnector) EvaluateStructured(ctx context.Context, step *entity.Step, data json.RawMessage) (*entity.StructuredEvaluation, error) {
	ctxzap.Info(ctx, "[MOCK] evaluating structured submission", zap.Int("step_order", step.Order))

	scores := make(map[string]float64, len(step.EvaluationCriteria))
	for name := range step.EvaluationCriteria {
		scores[name] = 4
	}
	return &entity.StructuredEvaluation{
		Score:          4.0,
		Feedback:       "Хорошая работа. Проверьте формулировки перед отправкой заказчику.",
		CriteriaScores: scores,
	}, nil
}

func (m *MockConnector) ValidateSearchMap(ctx context.Context, dump entity.SheetDump) (*entity.SemanticCheck, error) {
	ctxzap.Info(ctx, "[MOCK] validating search map", zap.Int("sheets", len(dump)))
	return &entity.SemanticCheck{Valid: true}, nil
}

func (m *MockConnector) ScoreForReport(ctx context.Context, step *entity.Step, answer string) (*entity.ReportScore, error) {
	ctxzap.Info(ctx, "[MOCK] scoring answer for report", zap.Int("step_order", step.Order))
	return &entity.ReportScore{
		Score:    7.0,
		Feedback: "Оценка: 7\nОтзыв: уверенный ответ, не хватает конкретики.",
	}, nil
}
