package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/llmparse"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Operation names used as metric labels.
const (
	opScoreAnswer        = "score_answer"
	opParseStructured    = "parse_structured"
	opEvaluateStructured = "evaluate_structured"
	opValidateSearchMap  = "validate_search_map"
	opScoreForReport     = "score_for_report"
)

const (
	unparsedEvaluationScore = 3.0
	evaluationSnippetLen    = 200
)

type generator interface {
	Generate(ctx context.Context, operation, prompt string) (string, error)
}

// Connector turns onboarding questions into prompts and model replies into domain values.
type Connector struct {
	llm    generator
	logger *zap.Logger
}

func NewConnector(llm generator, logger *zap.Logger) *Connector {
	return &Connector{
		llm:    llm,
		logger: logger,
	}
}

// ScoreAnswer asks for a 1-5 grade of a free-text answer. The comment is the full model reply.
func (c *Connector) ScoreAnswer(ctx context.Context, answer, criteria string) (*entity.AnswerScore, error) {
	ctxzap.Info(ctx, "scoring answer via LLM", zap.Int("answer_length", len(answer)))

	text, err := c.llm.Generate(ctx, opScoreAnswer, scoreAnswerPrompt(answer, criteria))
	if err != nil {
		return nil, fmt.Errorf("score answer failed: %w", err)
	}

	return &entity.AnswerScore{
		Score:   llmparse.ExtractLiveScore(text),
		Comment: text,
	}, nil
}

type parseFallback struct {
	RawText    string `json:"raw_text"`
	ParseError string `json:"parse_error"`
}

// ParseStructured converts free text into a JSON object. It never fails:
// a provider error or malformed reply yields {"raw_text", "parse_error"}.
func (c *Connector) ParseStructured(ctx context.Context, raw, instruction string) json.RawMessage {
	text, err := c.llm.Generate(ctx, opParseStructured, parseStructuredPrompt(raw, instruction))
	if err != nil {
		ctxzap.Error(ctx, "structured parse failed", zap.Error(err))
		return fallbackJSON(raw, err)
	}

	var obj map[string]any
	if err := llmparse.DecodeJSON(text, &obj); err != nil {
		ctxzap.Warn(ctx, "LLM reply is not a JSON object", zap.String("reply", llmparse.Truncate(text, evaluationSnippetLen)))
		return fallbackJSON(raw, err)
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return fallbackJSON(raw, err)
	}
	return data
}

func fallbackJSON(raw string, cause error) json.RawMessage {
	data, _ := json.Marshal(parseFallback{RawText: raw, ParseError: cause.Error()})
	return data
}

type evaluationReply struct {
	Score          *float64           `json:"score"`
	Feedback       *string            `json:"feedback"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
}

// EvaluateStructured grades collected data against the step criteria.
// An unparsable reply degrades to a neutral score with the reply excerpt as feedback.
func (c *Connector) EvaluateStructured(ctx context.Context, step *entity.Step, data json.RawMessage) (*entity.StructuredEvaluation, error) {
	ctxzap.Info(ctx, "evaluating structured submission via LLM", zap.Int("step_order", step.Order))

	text, err := c.llm.Generate(ctx, opEvaluateStructured, evaluateStructuredPrompt(step, data))
	if err != nil {
		return nil, fmt.Errorf("evaluate structured failed: %w", err)
	}

	var reply evaluationReply
	if err := llmparse.DecodeJSON(text, &reply); err != nil {
		ctxzap.Warn(ctx, "failed to parse evaluation reply", zap.Error(err))
		return &entity.StructuredEvaluation{
			Score:          unparsedEvaluationScore,
			Feedback:       "Оценка обработана. " + llmparse.Truncate(text, evaluationSnippetLen),
			CriteriaScores: map[string]float64{},
		}, nil
	}

	result := &entity.StructuredEvaluation{
		Score:          unparsedEvaluationScore,
		Feedback:       "Evaluation completed.",
		CriteriaScores: reply.CriteriaScores,
	}
	if reply.Score != nil {
		result.Score = *reply.Score
	}
	if reply.Feedback != nil {
		result.Feedback = *reply.Feedback
	}
	if result.CriteriaScores == nil {
		result.CriteriaScores = map[string]float64{}
	}
	return result, nil
}

// ValidateSearchMap checks a workbook dump for logical inconsistencies.
func (c *Connector) ValidateSearchMap(ctx context.Context, dump entity.SheetDump) (*entity.SemanticCheck, error) {
	text, err := c.llm.Generate(ctx, opValidateSearchMap, searchMapPrompt(dump))
	if err != nil {
		return nil, fmt.Errorf("validate search map failed: %w", err)
	}

	var check entity.SemanticCheck
	if err := llmparse.DecodeJSON(text, &check); err != nil {
		return nil, fmt.Errorf("decode search map verdict: %w", err)
	}
	return &check, nil
}

// ScoreForReport grades an answer on the 1-10 report scale.
func (c *Connector) ScoreForReport(ctx context.Context, step *entity.Step, answer string) (*entity.ReportScore, error) {
	text, err := c.llm.Generate(ctx, opScoreForReport, reportScorePrompt(step, answer))
	if err != nil {
		return nil, fmt.Errorf("score for report failed: %w", err)
	}

	return &entity.ReportScore{
		Score:    llmparse.ExtractReportScore(text),
		Feedback: text,
	}, nil
}
