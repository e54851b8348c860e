package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/futig/onboarding-bot/internal/entity"
	pkgRetry "github.com/futig/onboarding-bot/internal/pkg/retry"
	pkghttp "github.com/futig/onboarding-bot/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, _ string, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func evaluatedStep() *entity.Step {
	prompt := "Оцени запрос"
	return &entity.Step{
		Order:              19,
		Title:              "Запрос для Google",
		Description:        "Напишите запрос",
		Type:               entity.StepTypeTextInput,
		EvaluationPrompt:   &prompt,
		EvaluationCriteria: map[string]string{"операторы": "2+ оператора", "релевантность": "по вакансии"},
		PassingScore:       3,
	}
}

func TestScoreAnswerExtractsScore(t *testing.T) {
	gen := &stubGenerator{reply: "Оценка: 4\nКомментарий: хорошо"}
	c := NewConnector(gen, zap.NewNop())

	res, err := c.ScoreAnswer(context.Background(), "ответ", "описание шага")
	require.NoError(t, err)
	require.NotNil(t, res.Score)
	assert.Equal(t, 4.0, *res.Score)
	assert.Equal(t, gen.reply, res.Comment)
	assert.Contains(t, gen.prompts[0], "описание шага")
}

func TestScoreAnswerPropagatesError(t *testing.T) {
	c := NewConnector(&stubGenerator{err: errors.New("boom")}, zap.NewNop())

	_, err := c.ScoreAnswer(context.Background(), "ответ", "шаг")
	assert.Error(t, err)
}

func TestParseStructured(t *testing.T) {
	t.Run("fenced json", func(t *testing.T) {
		c := NewConnector(&stubGenerator{reply: "```json\n{\"запрос\": \"site:hh.ru\"}\n```"}, zap.NewNop())
		data := c.ParseStructured(context.Background(), "site:hh.ru", "извлеки")
		assert.JSONEq(t, `{"запрос": "site:hh.ru"}`, string(data))
	})

	t.Run("malformed reply keeps input", func(t *testing.T) {
		c := NewConnector(&stubGenerator{reply: "не JSON"}, zap.NewNop())
		data := c.ParseStructured(context.Background(), "мой ответ", "извлеки")

		var fb map[string]string
		require.NoError(t, json.Unmarshal(data, &fb))
		assert.Equal(t, "мой ответ", fb["raw_text"])
		assert.NotEmpty(t, fb["parse_error"])
	})

	t.Run("provider failure keeps input", func(t *testing.T) {
		c := NewConnector(&stubGenerator{err: errors.New("unavailable")}, zap.NewNop())
		data := c.ParseStructured(context.Background(), "мой ответ", "извлеки")

		var fb map[string]string
		require.NoError(t, json.Unmarshal(data, &fb))
		assert.Equal(t, "мой ответ", fb["raw_text"])
		assert.Equal(t, "unavailable", fb["parse_error"])
	})
}

func TestEvaluateStructured(t *testing.T) {
	step := evaluatedStep()

	t.Run("full reply", func(t *testing.T) {
		gen := &stubGenerator{reply: `{"score": 4.5, "criteria_scores": {"операторы": 5}, "feedback": "ok"}`}
		res, err := NewConnector(gen, zap.NewNop()).EvaluateStructured(context.Background(), step, json.RawMessage(`{"a":1}`))
		require.NoError(t, err)
		assert.Equal(t, 4.5, res.Score)
		assert.Equal(t, "ok", res.Feedback)
		assert.Equal(t, 5.0, res.CriteriaScores["операторы"])
		assert.Contains(t, gen.prompts[0], "- операторы: 2+ оператора")
	})

	t.Run("missing fields", func(t *testing.T) {
		gen := &stubGenerator{reply: `{}`}
		res, err := NewConnector(gen, zap.NewNop()).EvaluateStructured(context.Background(), step, json.RawMessage(`{}`))
		require.NoError(t, err)
		assert.Equal(t, 3.0, res.Score)
		assert.Equal(t, "Evaluation completed.", res.Feedback)
		assert.NotNil(t, res.CriteriaScores)
	})

	t.Run("unparsable reply", func(t *testing.T) {
		gen := &stubGenerator{reply: strings.Repeat("я", 300)}
		res, err := NewConnector(gen, zap.NewNop()).EvaluateStructured(context.Background(), step, json.RawMessage(`{}`))
		require.NoError(t, err)
		assert.Equal(t, 3.0, res.Score)
		assert.True(t, strings.HasPrefix(res.Feedback, "Оценка обработана. "))
		assert.Equal(t, len([]rune("Оценка обработана. "))+200, len([]rune(res.Feedback)))
	})
}

func TestScoreForReportClamps(t *testing.T) {
	c := NewConnector(&stubGenerator{reply: "Оценка: 12\nОтзыв: отлично"}, zap.NewNop())

	res, err := c.ScoreForReport(context.Background(), evaluatedStep(), "ответ")
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Score)
}

type fakeProvider struct {
	name  string
	calls int
	errs  []error
	reply string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(context.Context, string) (string, error) {
	p.calls++
	if len(p.errs) >= p.calls {
		return "", p.errs[p.calls-1]
	}
	return p.reply, nil
}

func TestClientRetriesThenFallsBack(t *testing.T) {
	retry := pkgRetry.RetryConfig{Attempts: 2, Delay: 1, MaxDelay: 1}

	primary := &fakeProvider{name: "primary", errs: []error{
		&pkghttp.HTTPError{StatusCode: 503},
		&pkghttp.HTTPError{StatusCode: 503},
	}}
	secondary := &fakeProvider{name: "secondary", reply: "ok"}

	text, err := NewClient([]Provider{primary, secondary}, retry).Generate(context.Background(), "test", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestClientDoesNotRetryPermanentErrors(t *testing.T) {
	retry := pkgRetry.RetryConfig{Attempts: 3, Delay: 1, MaxDelay: 1}
	p := &fakeProvider{name: "only", errs: []error{&pkghttp.HTTPError{StatusCode: 400}}}

	_, err := NewClient([]Provider{p}, retry).Generate(context.Background(), "test", "prompt")
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestClientWithoutProviders(t *testing.T) {
	_, err := NewClient(nil, *pkgRetry.DefaultRetryConfig()).Generate(context.Background(), "test", "prompt")
	assert.ErrorIs(t, err, ErrNoProviders)
}
