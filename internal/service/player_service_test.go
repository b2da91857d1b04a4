package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/internal/service/gamecore"
)

func TestPlayerService_Register(t *testing.T) {
	env := newControllerEnv(t)
	env.start(t)
	svc := NewPlayerService(env.store.Players, env.store.Answers, env.gc, env.pub)

	tests := []struct {
		name        string
		displayName string
		wantErr     error
	}{
		{name: "обычное имя", displayName: "  Аня  "},
		{name: "пустое имя", displayName: "   ", wantErr: apperrors.ErrValidation},
		{name: "слишком длинное", displayName: strings.Repeat("я", 51), wantErr: apperrors.ErrValidation},
		{name: "ровно 50 символов", displayName: strings.Repeat("я", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player, err := svc.Register(context.Background(), tt.displayName, "Анна Петрова")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.displayName), player.DisplayName)
			assert.True(t, player.IsEligible, "Новый игрок допущен к игре")
		})
	}

	env.pub.AssertCalled(t, "Publish", gamecore.TopicPlayers, gamecore.EventPlayerUpdated, mock.Anything)
}

func TestPlayerService_RestoreStateHidesCorrectnessUntilReveal(t *testing.T) {
	// Arrange
	env := newControllerEnv(t)
	ctx := context.Background()
	q := env.question(t)
	p := env.player(t, "Аня")
	gc := env.start(t)
	svc := NewPlayerService(env.store.Players, env.store.Answers, env.gc, env.pub)

	_, err := gc.SelectQuestion(ctx, q.ID)
	require.NoError(t, err)
	env.advance(t, entity.PhaseActive)

	// Act: во время окна ответа
	env.clock.Advance(4 * time.Second)
	during, err := svc.RestoreState(ctx, p)
	require.NoError(t, err)

	env.answer(t, p, q.ID, "yes", time.Second)
	env.advance(t, entity.PhaseLocked)
	env.advance(t, entity.PhaseDistribution)
	scored, err := svc.RestoreState(ctx, p)
	require.NoError(t, err)

	env.advance(t, entity.PhaseReveal)
	revealed, err := svc.RestoreState(ctx, p)
	require.NoError(t, err)

	// Assert
	assert.Nil(t, during.Answer, "Ответа еще нет")
	assert.InDelta(t, 6.0, during.RemainingSeconds, 0.001)
	assert.Equal(t, entity.PhaseActive, during.Game.Phase)

	require.NotNil(t, scored.Answer)
	assert.Nil(t, scored.Answer.IsCorrect, "До REVEAL оценка скрыта")
	assert.Zero(t, scored.RemainingSeconds)

	require.NotNil(t, revealed.Answer)
	require.NotNil(t, revealed.Answer.IsCorrect)
	assert.True(t, *revealed.Answer.IsCorrect)
	assert.NotNil(t, revealed.Game.Question.CorrectAnswer)
}

func TestPlayerService_RestoreStateOnAnotherInstance(t *testing.T) {
	// Arrange: раунд открыт на A, клиент переподключился к B
	env := newControllerEnv(t)
	ctx := context.Background()
	q := env.question(t)
	p := env.player(t, "Аня")
	a := env.start(t)
	b := env.peer(t)
	svc := NewPlayerService(env.store.Players, env.store.Answers, b, env.pub)

	_, err := a.SelectQuestion(ctx, q.ID)
	require.NoError(t, err)
	env.advance(t, entity.PhaseActive)

	// Act
	restored, err := svc.RestoreState(ctx, p)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseActive, restored.Game.Phase, "Фаза берется из хранилища")
	assert.InDelta(t, 10.0, restored.RemainingSeconds, 0.001)
}
