package state

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStorage struct {
	sessions map[int64]*Session
}

func newMapStorage() *mapStorage {
	return &mapStorage{sessions: make(map[int64]*Session)}
}

func (s *mapStorage) Get(_ context.Context, id int64) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *mapStorage) Set(_ context.Context, sess *Session) error {
	cp := *sess
	s.sessions[sess.TelegramID] = &cp
	return nil
}

func (s *mapStorage) Delete(_ context.Context, id int64) error {
	delete(s.sessions, id)
	return nil
}

func TestLoadMissingSessionIsIdle(t *testing.T) {
	m := NewManager(newMapStorage())

	st, err := m.Load(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseIdle, st.Phase)
	assert.Equal(t, entity.SessionStateCurrentVersion, st.Version)
	assert.Nil(t, st.Step)
}

func TestSaveLoadRoundTripKeepsCreatedAt(t *testing.T) {
	storage := newMapStorage()
	m := NewManager(storage)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return first }

	st := &entity.SessionState{}
	st.ArmStep(&entity.Step{ID: 6, Type: entity.StepTypeTextInput, EstimatedDuration: 15}, first)
	st.Phase = entity.PhaseCollecting
	st.Collection = &entity.CollectionCursor{
		Kind: entity.CollectionSequentialDialogue,
		Dialogue: &entity.DialogueCursor{
			Items:            []entity.DialogueItem{{Name: "Коммуникация"}},
			AwaitingFollowUp: true,
		},
	}
	require.NoError(t, m.Save(context.Background(), 7, st))

	m.now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, m.Save(context.Background(), 7, st))

	stored := storage.sessions[7]
	assert.Equal(t, first, stored.CreatedAt)
	assert.Equal(t, first.Add(time.Hour), stored.UpdatedAt)

	loaded, err := m.Load(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseCollecting, loaded.Phase)
	require.NotNil(t, loaded.Collection.Dialogue)
	assert.True(t, loaded.Collection.Dialogue.AwaitingFollowUp)
	assert.Equal(t, "Коммуникация", loaded.Collection.Dialogue.Items[0].Name)
}

func TestLoadUpgradesUnversionedDocument(t *testing.T) {
	storage := newMapStorage()
	storage.sessions[7] = &Session{TelegramID: 7, StateData: json.RawMessage(`{"phase":"awaiting_name"}`)}

	st, err := NewManager(storage).Load(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStateCurrentVersion, st.Version)
	assert.Equal(t, entity.PhaseAwaitingName, st.Phase)
}

func TestLoadPrefersContextCache(t *testing.T) {
	cached := &entity.SessionState{Phase: entity.PhaseExpertGrading}
	ctx := ContextWithState(context.Background(), cached)

	st, err := NewManager(newMapStorage()).Load(ctx, 7)
	require.NoError(t, err)
	assert.Same(t, cached, st)
}

func TestClear(t *testing.T) {
	storage := newMapStorage()
	m := NewManager(storage)
	require.NoError(t, m.Save(context.Background(), 7, &entity.SessionState{Phase: entity.PhaseAwaitingStep}))

	require.NoError(t, m.Clear(context.Background(), 7))
	assert.Empty(t, storage.sessions)
}

func TestSaveAndClearRefreshContextCache(t *testing.T) {
	m := NewManager(newMapStorage())
	cached := &entity.SessionState{Phase: entity.PhaseAwaitingName}
	ctx := ContextWithState(context.Background(), cached)

	require.NoError(t, m.Save(ctx, 7, &entity.SessionState{Phase: entity.PhaseExpertGrading}))
	assert.Equal(t, entity.PhaseExpertGrading, cached.Phase)

	require.NoError(t, m.Clear(ctx, 7))
	assert.Equal(t, entity.PhaseIdle, cached.Phase)

	st, err := m.Load(ctx, 7)
	require.NoError(t, err)
	assert.Same(t, cached, st)
}
