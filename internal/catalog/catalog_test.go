package catalog

import (
	"errors"
	"testing"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCurriculum(t *testing.T) {
	steps, err := Load()
	require.NoError(t, err)
	require.Len(t, steps, 36)

	for i, step := range steps {
		assert.Equal(t, i+1, step.Order, "steps must be sorted and contiguous")
		assert.NoError(t, step.Type.Validate())
		assert.NotEmpty(t, step.Competency, "step %d has no competency", step.Order)
	}

	byOrder := func(order int) *entity.Step { return &steps[order-1] }

	assert.Equal(t, entity.StepTypeTextInput, byOrder(3).Type)
	assert.Nil(t, byOrder(3).Collection)

	dialogue := byOrder(6).Collection
	require.NotNil(t, dialogue)
	require.Equal(t, entity.CollectionSequentialDialogue, dialogue.Kind)
	require.Len(t, dialogue.Dialogue.Sections, 3)
	assert.Equal(t, []string{"индикаторы", "вопрос"}, dialogue.Dialogue.Sections[0].FollowUps)
	assert.False(t, dialogue.Dialogue.Sections[2].HasFollowUps())

	assert.Equal(t, entity.StepTypeEvaluation, byOrder(10).Type)
	assert.Equal(t, entity.StepTypeFileUpload, byOrder(12).Type)

	parse := byOrder(19).Collection
	require.NotNil(t, parse)
	assert.Equal(t, entity.CollectionTextParse, parse.Kind)
	assert.NotEmpty(t, parse.TextParse.ParseInstruction)
	assert.Len(t, byOrder(19).EvaluationCriteria, 3)

	seq := byOrder(28).Collection
	require.NotNil(t, seq)
	assert.Equal(t, entity.CollectionSequential, seq.Kind)
	assert.Len(t, seq.Sequential.Variants, 3)

	assert.Equal(t, 1, byOrder(13).Day())
	assert.Equal(t, 2, byOrder(14).Day())
	assert.Equal(t, 3, byOrder(27).Day())
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "empty",
			doc:     "steps: []",
			wantErr: entity.ErrEmptyCatalog,
		},
		{
			name: "unknown step type",
			doc: `steps:
  - order: 1
    title: Intro
    type: video`,
			wantErr: entity.ErrInvalidStepType,
		},
		{
			name: "duplicate order",
			doc: `steps:
  - {order: 1, title: A, type: content}
  - {order: 1, title: B, type: content}`,
			wantErr: entity.ErrInvalidParameter,
		},
		{
			name: "sequential without variants",
			doc: `steps:
  - order: 1
    title: A
    type: text_input
    collection_flow:
      type: sequential`,
			wantErr: entity.ErrInvalidCollectionFlow,
		},
		{
			name: "unknown collection type",
			doc: `steps:
  - order: 1
    title: A
    type: text_input
    collection_flow:
      type: table`,
			wantErr: entity.ErrInvalidCollectionFlow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestParseDefaults(t *testing.T) {
	steps, err := Parse([]byte(`steps:
  - order: 2
    title: B
    type: text_input
    collection_flow:
      prompt: ""
  - order: 1
    title: A
    type: content`))
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, 1, steps[0].Order)
	assert.Equal(t, entity.DefaultPassingScore, steps[1].PassingScore)
	require.NotNil(t, steps[1].Collection)
	assert.Equal(t, entity.CollectionTextParse, steps[1].Collection.Kind)
	assert.Equal(t, "Введите данные:", steps[1].Collection.FirstPrompt())
}
