package keyboard

import (
	"testing"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	data, err := ParseCallback("review:7f1c2d")
	require.NoError(t, err)
	assert.Equal(t, ActionReview, data.Action)
	assert.Equal(t, "7f1c2d", data.Value)

	for _, raw := range []string{"", "step", "step:", ":done"} {
		_, err := ParseCallback(raw)
		assert.Error(t, err, raw)
	}
}

func TestCallbackStepSignal(t *testing.T) {
	tests := []struct {
		data   string
		signal entity.Signal
		stepID int64
		ok     bool
	}{
		{"step:done:7", entity.SignalDone, 7, true},
		{"step:evaluate:12", entity.SignalEvaluate, 12, true},
		{"step:skip:12", entity.SignalSkip, 12, true},
		{"step:done", entity.SignalNone, 0, false},
		{"step:done:x", entity.SignalNone, 0, false},
		{"step:done:0", entity.SignalNone, 0, false},
		{"step:jump:3", entity.SignalNone, 0, false},
		{"action:done:3", entity.SignalNone, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			data, err := ParseCallback(tt.data)
			require.NoError(t, err)
			signal, stepID, ok := data.StepSignal()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.signal, signal)
			assert.Equal(t, tt.stepID, stepID)
		})
	}
}

func TestStepKeyboard(t *testing.T) {
	b := NewBuilder()

	prompt := func(id int64, expect entity.Expectation) *entity.Prompt {
		return &entity.Prompt{Step: &entity.Step{ID: id}, Expect: expect}
	}

	ack := b.StepKeyboard(prompt(7, entity.ExpectAcknowledge))
	require.NotNil(t, ack)
	require.Len(t, ack.InlineKeyboard, 1)
	assert.Equal(t, LabelDone, ack.InlineKeyboard[0][0].Text)
	assert.Equal(t, "step:done:7", *ack.InlineKeyboard[0][0].CallbackData)

	eval := b.StepKeyboard(prompt(12, entity.ExpectEvaluate))
	require.NotNil(t, eval)
	require.Len(t, eval.InlineKeyboard[0], 2)
	assert.Equal(t, "step:evaluate:12", *eval.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "step:skip:12", *eval.InlineKeyboard[0][1].CallbackData)

	assert.Nil(t, b.StepKeyboard(prompt(3, entity.ExpectFreeText)))
	assert.Nil(t, b.StepKeyboard(prompt(12, entity.ExpectDocument)))
	assert.Nil(t, b.StepKeyboard(prompt(5, entity.ExpectCollection)))
}

func TestReviewQueueKeyboardIsBounded(t *testing.T) {
	items := make([]*entity.SubmissionDetails, 12)
	for i := range items {
		items[i] = &entity.SubmissionDetails{
			Submission: &entity.Submission{ID: string(rune('a' + i))},
			Step:       &entity.Step{Order: 12, Title: "Карта поиска"},
			User:       &entity.User{FullName: "Анна Петрова"},
		}
	}

	markup := NewBuilder().ReviewQueueKeyboard(items)
	require.Len(t, markup.InlineKeyboard, maxQueueButtons)
	assert.Equal(t, "12. Анна Петрова: Карта поиска", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "review:a", *markup.InlineKeyboard[0][0].CallbackData)
}
