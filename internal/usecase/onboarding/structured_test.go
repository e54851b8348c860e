package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectingStep(t *testing.T, id int64, order int, spec entity.CollectionFlowSpec) *entity.Step {
	t.Helper()
	flow, err := spec.Build()
	require.NoError(t, err)
	s := step(id, order, entity.StepTypeTextInput, 0)
	s.Collection = flow
	return s
}

func evaluated(s *entity.Step) *entity.Step {
	s.EvaluationPrompt = ptr("Оцени профиль")
	s.EvaluationCriteria = map[string]string{"полнота": "все секции заполнены"}
	return s
}

// Follow-ups are asked per item in configuration order before the next section.
func TestDialogueAsksFollowUpsPerItem(t *testing.T) {
	profile := collectingStep(t, 6, 6, entity.CollectionFlowSpec{
		Type: "sequential_dialogue",
		Sections: []entity.SectionSpec{
			{Name: "soft_skills", Prompt: "Soft skills?", FollowUp: []string{"indicators", "question"}},
			{Name: "hard_skills", Prompt: "Hard skills?"},
			{Name: "cutoffs", Prompt: "Cutoffs?"},
		},
	})
	h := newHarness(profile, step(7, 7, entity.StepTypeContent, 0))
	ctx := context.Background()

	turn, err := h.uc.Start(ctx, traineeID)
	require.NoError(t, err)
	assert.Equal(t, entity.ExpectCollection, turn.Next.Expect)
	assert.Equal(t, "Soft skills?", turn.Next.Lead)

	asks := []string{}
	for _, reply := range []string{"Communication, Teamwork", "i1", "q1", "i2", "q2"} {
		turn, err = h.uc.Submit(ctx, traineeID, entity.Reply{Text: reply})
		require.NoError(t, err)
		asks = append(asks, turn.Ask)
	}
	assert.Equal(t, []string{
		"Для 'Communication' - indicators?",
		"Для 'Communication' - question?",
		"Для 'Teamwork' - indicators?",
		"Для 'Teamwork' - question?",
		"Hard skills?",
	}, asks)
	assert.Empty(t, h.subs.rows)

	st, err := h.sessions.Load(ctx, traineeID)
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseCollecting, st.Phase)
	assert.Equal(t, 1, st.Collection.Dialogue.SectionIndex)

	_, err = h.uc.Submit(ctx, traineeID, entity.Reply{Text: "Excel"})
	require.NoError(t, err)
	turn, err = h.uc.Submit(ctx, traineeID, entity.Reply{Text: "нет опыта"})
	require.NoError(t, err)

	require.Len(t, h.subs.rows, 1)
	sub := h.subs.rows[0]
	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(sub.StructuredData, &data))
	assert.JSONEq(t, `["Excel"]`, string(data["hard_skills"]))
	assert.Equal(t, entity.SubmissionStatusApproved, sub.Status)
	assert.Equal(t, 5.0, *sub.EvaluationScore)
	assert.Equal(t, "Задание принято. Оценка не требуется.", *sub.Feedback)

	kinds := []entity.NoticeKind{}
	for _, n := range turn.Notices {
		kinds = append(kinds, n.Kind)
	}
	assert.Equal(t, []entity.NoticeKind{entity.NoticeCollectionSummary, entity.NoticeStructuredResult}, kinds)
	assert.Equal(t, 7, turn.Next.Step.Order)
}

func TestTextParseApproved(t *testing.T) {
	vacancy := evaluated(collectingStep(t, 5, 5, entity.CollectionFlowSpec{
		Type: "text_parse", Prompt: "Опиши вакансию", ParseInstruction: "Верни {position, city}",
	}))
	h := newHarness(vacancy, step(6, 6, entity.StepTypeContent, 0))
	h.evaluator.parsed = json.RawMessage(`{"position":"Рекрутер","city":"Москва"}`)
	h.evaluator.structured = &entity.StructuredEvaluation{Score: 9, Feedback: "Отлично"}
	ctx := context.Background()

	_, err := h.uc.Start(ctx, traineeID)
	require.NoError(t, err)
	turn, err := h.uc.Submit(ctx, traineeID, entity.Reply{Text: "Рекрутер в Москве"})
	require.NoError(t, err)

	sub := h.subs.rows[0]
	assert.Equal(t, "Рекрутер в Москве", h.evaluator.parsedInput)
	assert.Equal(t, "Рекрутер в Москве", *sub.TextAnswer)
	assert.JSONEq(t, `{"position":"Рекрутер","city":"Москва"}`, string(sub.StructuredData))
	assert.Equal(t, entity.SubmissionStatusApproved, sub.Status)
	assert.Equal(t, 5.0, *sub.EvaluationScore, "live scores are clamped to 5")
	assert.Equal(t, 6, turn.Next.Step.Order)
}

func TestTextParseNeedsImprovementRepresentsStep(t *testing.T) {
	vacancy := evaluated(collectingStep(t, 5, 5, entity.CollectionFlowSpec{Type: "text_parse", Prompt: "Опиши вакансию"}))
	h := newHarness(vacancy, step(6, 6, entity.StepTypeContent, 0))
	h.evaluator.structured = &entity.StructuredEvaluation{Score: 2, Feedback: "Мало деталей"}
	ctx := context.Background()

	_, err := h.uc.Start(ctx, traineeID)
	require.NoError(t, err)
	turn, err := h.uc.Submit(ctx, traineeID, entity.Reply{Text: "Рекрутер"})
	require.NoError(t, err)

	assert.Equal(t, entity.SubmissionStatusNeedsImprovement, h.subs.rows[0].Status)
	assert.Equal(t, 5, turn.Next.Step.Order)
	assert.Equal(t, "Опиши вакансию", turn.Next.Lead)
	require.Len(t, h.notifier.needsReview, 1)
}

func TestStructuredEvaluatorFailureKeepsChecked(t *testing.T) {
	vacancy := evaluated(collectingStep(t, 5, 5, entity.CollectionFlowSpec{Type: "text_parse", Prompt: "Опиши вакансию"}))
	h := newHarness(vacancy, step(6, 6, entity.StepTypeContent, 0))
	h.evaluator.evalErr = errors.New("rate limited")
	ctx := context.Background()

	_, err := h.uc.Start(ctx, traineeID)
	require.NoError(t, err)
	turn, err := h.uc.Submit(ctx, traineeID, entity.Reply{Text: "Рекрутер"})
	require.NoError(t, err)

	sub := h.subs.rows[0]
	assert.Equal(t, entity.SubmissionStatusChecked, sub.Status)
	assert.Nil(t, sub.EvaluationScore)
	assert.Contains(t, *sub.Feedback, "rate limited")
	assert.Contains(t, string(sub.StructuredData), "parse_error")
	assert.Equal(t, 6, turn.Next.Step.Order)
}

func TestStructuredEvaluationStoreFailureKeepsCheckedAndAdvances(t *testing.T) {
	vacancy := evaluated(collectingStep(t, 5, 5, entity.CollectionFlowSpec{Type: "text_parse", Prompt: "Опиши вакансию"}))
	h := newHarness(vacancy, step(6, 6, entity.StepTypeContent, 0))
	h.subs.failUpdate = true
	ctx := context.Background()

	_, err := h.uc.Start(ctx, traineeID)
	require.NoError(t, err)
	turn, err := h.uc.Submit(ctx, traineeID, entity.Reply{Text: "Рекрутер в Москве"})
	require.NoError(t, err)

	require.Len(t, h.subs.rows, 1)
	assert.Equal(t, entity.SubmissionStatusChecked, h.subs.rows[0].Status)
	assert.Nil(t, h.subs.rows[0].EvaluationScore)

	kinds := []entity.NoticeKind{}
	for _, n := range turn.Notices {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, entity.NoticeEvaluationUnavailable)
	require.NotNil(t, turn.Next)
	assert.Equal(t, 6, turn.Next.Step.Order)

	st, err := h.sessions.Load(ctx, traineeID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), st.Step.StepID)
	assert.Equal(t, entity.PhaseAwaitingStep, st.Phase)
}

func TestCollectionRetryAfterSessionFailureKeepsOneRow(t *testing.T) {
	vacancy := collectingStep(t, 5, 5, entity.CollectionFlowSpec{Type: "text_parse", Prompt: "Опиши вакансию"})
	h := newHarness(vacancy, step(6, 6, entity.StepTypeContent, 0))
	ctx := context.Background()

	_, err := h.uc.Start(ctx, traineeID)
	require.NoError(t, err)

	h.store.failSet = true
	_, err = h.uc.Submit(ctx, traineeID, entity.Reply{Text: "Рекрутер"})
	require.Error(t, err)
	require.Len(t, h.subs.rows, 1)

	h.store.failSet = false
	turn, err := h.uc.Submit(ctx, traineeID, entity.Reply{Text: "Рекрутер"})
	require.NoError(t, err)
	assert.Len(t, h.subs.rows, 1)
	require.Len(t, turn.Notices, 1)
	assert.Equal(t, entity.NoticeAlreadyRecorded, turn.Notices[0].Kind)
	assert.Equal(t, 6, turn.Next.Step.Order)
}

func TestSequentialFinalizesLikeTextParse(t *testing.T) {
	variants := collectingStep(t, 8, 8, entity.CollectionFlowSpec{
		Type: "sequential",
		Variants: []entity.VariantSpec{
			{Name: "короткий", Prompt: "Короткий текст"},
			{Name: "длинный", Prompt: "Длинный текст"},
		},
	})
	h := newHarness(variants, step(9, 9, entity.StepTypeContent, 0))
	ctx := context.Background()

	_, err := h.uc.Start(ctx, traineeID)
	require.NoError(t, err)
	turn, err := h.uc.Submit(ctx, traineeID, entity.Reply{Text: "Привет"})
	require.NoError(t, err)
	assert.Equal(t, "Длинный текст", turn.Ask)
	assert.Equal(t, entity.NoticeVariantRecorded, turn.Notices[0].Kind)

	turn, err = h.uc.Submit(ctx, traineeID, entity.Reply{Text: "Ищем рекрутера"})
	require.NoError(t, err)
	require.Len(t, h.subs.rows, 1)
	assert.JSONEq(t,
		`{"короткий":{"текст":"Привет","длина":6},"длинный":{"текст":"Ищем рекрутера","длина":14}}`,
		string(h.subs.rows[0].StructuredData))
	assert.Equal(t, 9, turn.Next.Step.Order)
}

func TestCollectingRejectsEmptyReply(t *testing.T) {
	vacancy := collectingStep(t, 5, 5, entity.CollectionFlowSpec{Type: "text_parse", Prompt: "Опиши вакансию"})
	h := newHarness(vacancy)
	ctx := context.Background()
	_, err := h.uc.Start(ctx, traineeID)
	require.NoError(t, err)

	turn, err := h.uc.Submit(ctx, traineeID, entity.Reply{Document: &entity.Document{FileName: "a.xlsx"}})
	require.NoError(t, err)
	assert.Equal(t, entity.NoticeTextRequired, turn.Notices[0].Kind)
	assert.Empty(t, h.subs.rows)
}
