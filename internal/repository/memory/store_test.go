package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
)

func TestAnswerRepo_CreateRejectsDuplicate(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := NewStore()
	playerID := uuid.New()

	// Act
	err1 := s.Answers.Create(ctx, &entity.Answer{PlayerID: playerID, QuestionID: 1})
	err2 := s.Answers.Create(ctx, &entity.Answer{PlayerID: playerID, QuestionID: 1})
	err3 := s.Answers.Create(ctx, &entity.Answer{PlayerID: playerID, QuestionID: 2})

	// Assert
	require.NoError(t, err1)
	assert.ErrorIs(t, err2, apperrors.ErrConflict, "Второй ответ на тот же вопрос должен отклоняться")
	assert.NoError(t, err3, "Ответ на другой вопрос допустим")
}

func TestAnswerRepo_ApplyScoresOnlyOnce(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := NewStore()
	player := &entity.Player{DisplayName: "Аня", IsEligible: true}
	require.NoError(t, s.Players.Create(ctx, player))
	answer := &entity.Answer{PlayerID: player.ID, QuestionID: 1}
	require.NoError(t, s.Answers.Create(ctx, answer))
	scores := []entity.AnswerScore{{AnswerID: answer.ID, PlayerID: player.ID, IsCorrect: true, Points: 80}}

	// Act
	first, err := s.Answers.ApplyScores(ctx, scores)
	require.NoError(t, err)
	second, err := s.Answers.ApplyScores(ctx, scores)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second, "Повторная оценка не должна применяться")
	p, err := s.Players.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, p.Score, "Очки начисляются один раз")
}

func TestEliminationRepo_ApplyIsOneShotPerPeriod(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := NewStore()
	victim := &entity.Player{DisplayName: "Боря", IsEligible: true}
	require.NoError(t, s.Players.Create(ctx, victim))

	// Act
	_, err1 := s.Eliminations.Apply(ctx, &entity.EliminationRound{QuestionID: 1, Period: 1, EliminatedCount: 1}, []uuid.UUID{victim.ID})
	existing, err2 := s.Eliminations.Apply(ctx, &entity.EliminationRound{QuestionID: 1, Period: 1}, nil)
	_, err3 := s.Eliminations.Apply(ctx, &entity.EliminationRound{QuestionID: 1, Period: 2}, nil)

	// Assert
	require.NoError(t, err1)
	assert.ErrorIs(t, err2, repository.ErrEliminationApplied)
	assert.Equal(t, 1, existing.EliminatedCount, "Возвращается ранее записанный раунд")
	assert.NoError(t, err3, "В новом периоде выбывание снова доступно")

	p, err := s.Players.GetByID(ctx, victim.ID)
	require.NoError(t, err)
	assert.False(t, p.IsEligible)
}

func TestQuestionRepo_DeleteWithAnswersConflicts(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := NewStore()
	q := &entity.Question{Type: entity.QuestionTypeChoice2, Text: "Да или нет?"}
	require.NoError(t, s.Questions.Create(ctx, q))
	require.NoError(t, s.Answers.Create(ctx, &entity.Answer{PlayerID: uuid.New(), QuestionID: q.ID}))

	// Act
	errWithAnswers := s.Questions.Delete(ctx, q.ID)
	_, err := s.Answers.DeleteByQuestion(ctx, q.ID)
	require.NoError(t, err)
	errAfterReset := s.Questions.Delete(ctx, q.ID)

	// Assert
	assert.ErrorIs(t, errWithAnswers, apperrors.ErrConflict, "Вопрос с ответами не удаляется")
	assert.NoError(t, errAfterReset, "После сброса ответов вопрос удаляется")
	assert.ErrorIs(t, s.Questions.Delete(ctx, q.ID), apperrors.ErrNotFound)
}

func TestGameStateRepo_SaveRejectsStaleRevision(t *testing.T) {
	// Arrange: два экземпляра прочитали одну и ту же ревизию
	ctx := context.Background()
	s := NewStore()
	first, err := s.GameStates.Get(ctx)
	require.NoError(t, err)
	second, err := s.GameStates.Get(ctx)
	require.NoError(t, err)

	// Act
	first.Phase = entity.PhaseIntro
	errFirst := s.GameStates.Save(ctx, first)
	second.Phase = entity.PhaseActive
	errSecond := s.GameStates.Save(ctx, second)

	// Assert
	require.NoError(t, errFirst)
	assert.Equal(t, int64(1), first.Revision, "Запись поднимает ревизию")
	assert.ErrorIs(t, errSecond, repository.ErrStaleGameState, "Запись по устаревшей ревизии отклоняется")
	stored, err := s.GameStates.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseIntro, stored.Phase, "Проигравшая запись не затирает состояние")
}
