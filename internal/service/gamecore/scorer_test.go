package gamecore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorer_ScoresAnswersAndAwardsPoints(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	q := env.addQuestion(t)
	fast := env.addPlayer(t, "Аня", true)
	slow := env.addPlayer(t, "Боря", true)
	wrong := env.addPlayer(t, "Вика", true)
	env.addAnswer(t, fast, q.ID, "b", 0)
	env.addAnswer(t, slow, q.ID, "b", 5000)
	env.addAnswer(t, wrong, q.ID, "c", 100)
	scorer := NewScorer(env.deps)

	// Act
	res, err := scorer.Score(ctx, q)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, res.CorrectCount)
	assert.Equal(t, 3, res.NewlyScored)

	scores := map[string]int{}
	p, err := env.store.Players.GetByID(ctx, fast)
	require.NoError(t, err)
	scores["fast"] = p.Score
	p, err = env.store.Players.GetByID(ctx, slow)
	require.NoError(t, err)
	scores["slow"] = p.Score
	p, err = env.store.Players.GetByID(ctx, wrong)
	require.NoError(t, err)
	scores["wrong"] = p.Score

	assert.Equal(t, 100, scores["fast"], "Мгновенный правильный ответ дает 100")
	assert.Equal(t, 75, scores["slow"], "Ответ на половине лимита дает 75")
	assert.Equal(t, 0, scores["wrong"], "Неправильный ответ дает 0")

	a, err := env.store.Answers.GetByPlayerAndQuestion(ctx, wrong, q.ID)
	require.NoError(t, err)
	require.NotNil(t, a.IsCorrect)
	assert.False(t, *a.IsCorrect)
}

func TestScorer_IsIdempotent(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	q := env.addQuestion(t)
	player := env.addPlayer(t, "Аня", true)
	env.addAnswer(t, player, q.ID, "b", 2000)
	scorer := NewScorer(env.deps)

	// Act
	first, err := scorer.Score(ctx, q)
	require.NoError(t, err)
	second, err := scorer.Score(ctx, q)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, first.CorrectCount, second.CorrectCount, "Повторный вызов возвращает тот же результат")
	assert.Equal(t, 0, second.NewlyScored, "Повторный вызов ничего не оценивает")
	p, err := env.store.Players.GetByID(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, 90, p.Score, "Очки начислены один раз")
}

func TestScorer_NoAnswers(t *testing.T) {
	env := newTestEnv(t)
	q := env.addQuestion(t)

	res, err := NewScorer(env.deps).Score(context.Background(), q)

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.CorrectCount)
}
