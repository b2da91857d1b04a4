package gamecore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/repository/memory"
)

// ============================================================================
// Моки и окружение для тестов игрового ядра
// ============================================================================

// MockPublisherForGameCore реализует Publisher
type MockPublisherForGameCore struct {
	mock.Mock
}

func (m *MockPublisherForGameCore) Publish(topic string, eventType string, data interface{}) {
	m.Called(topic, eventType, data)
}

func (m *MockPublisherForGameCore) SendToPlayer(playerID string, eventType string, data interface{}) {
	m.Called(playerID, eventType, data)
}

type testEnv struct {
	store *memory.Store
	clock *clockwork.FakeClock
	pub   *MockPublisherForGameCore
	deps  *Dependencies
}

var testEpoch = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	clock := clockwork.NewFakeClockAt(testEpoch)
	pub := &MockPublisherForGameCore{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return()
	pub.On("SendToPlayer", mock.Anything, mock.Anything, mock.Anything).Return()

	return &testEnv{
		store: store,
		clock: clock,
		pub:   pub,
		deps: &Dependencies{
			GameStateRepo:   store.GameStates,
			QuestionRepo:    store.Questions,
			PlayerRepo:      store.Players,
			AnswerRepo:      store.Answers,
			EliminationRepo: store.Eliminations,
			Publisher:       pub,
			Clock:           clock,
			Config:          DefaultConfig(),
		},
	}
}

func (e *testEnv) addQuestion(t *testing.T) *entity.Question {
	t.Helper()
	q := &entity.Question{
		Type: entity.QuestionTypeChoice4,
		Text: "Сколько лап у паука?",
		Options: entity.QuestionOptions{
			{ID: "a", Label: "6"},
			{ID: "b", Label: "8"},
			{ID: "c", Label: "10"},
			{ID: "d", Label: "12"},
		},
		CorrectAnswer: entity.CorrectAnswer{Choice: "b"},
		TimeLimitSec:  10,
	}
	require.NoError(t, e.store.Questions.Create(context.Background(), q))
	return q
}

func (e *testEnv) addPlayer(t *testing.T, name string, eligible bool) uuid.UUID {
	t.Helper()
	p := &entity.Player{DisplayName: name, IsEligible: eligible}
	require.NoError(t, e.store.Players.Create(context.Background(), p))
	return p.ID
}

func (e *testEnv) addAnswer(t *testing.T, playerID uuid.UUID, questionID uint, choice string, latencyMs int64) {
	t.Helper()
	a := &entity.Answer{
		PlayerID:    playerID,
		QuestionID:  questionID,
		AnswerValue: entity.AnswerValue{Choice: choice},
		LatencyMs:   latencyMs,
		CreatedAt:   testEpoch.Add(time.Duration(latencyMs) * time.Millisecond),
	}
	require.NoError(t, e.store.Answers.Create(context.Background(), a))
}

func activeSnapshot(q *entity.Question, start int64) *Snapshot {
	id := q.ID
	return &Snapshot{
		State: entity.GameState{
			ID:                entity.GameStateID,
			Phase:             entity.PhaseActive,
			CurrentQuestionID: &id,
			StartTimestamp:    start,
			Period:            1,
		},
		Question: q,
	}
}
