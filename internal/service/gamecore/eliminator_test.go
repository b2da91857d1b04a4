package gamecore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
)

func planAnswer(playerID uuid.UUID, questionID uint, choice string, latencyMs int64) entity.Answer {
	return entity.Answer{
		PlayerID:    playerID,
		QuestionID:  questionID,
		AnswerValue: entity.AnswerValue{Choice: choice},
		LatencyMs:   latencyMs,
		CreatedAt:   testEpoch.Add(time.Duration(latencyMs) * time.Millisecond),
	}
}

func TestPlanElimination_WrongAndSlowestSurvivorLeave(t *testing.T) {
	// Arrange: A, B, C ответили верно, D ошибся
	q := &entity.Question{ID: 1, Type: entity.QuestionTypeChoice2, CorrectAnswer: entity.CorrectAnswer{Choice: "yes"}}
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	answers := []entity.Answer{
		planAnswer(a, 1, "yes", 1200),
		planAnswer(b, 1, "yes", 800),
		planAnswer(c, 1, "yes", 2000),
		planAnswer(d, 1, "no", 500),
	}

	// Act
	plan := PlanElimination([]uuid.UUID{a, b, c, d}, answers, q)

	// Assert
	assert.ElementsMatch(t, []uuid.UUID{d, c}, plan.Victims, "Выбывают ошибившийся и самый медленный")
	assert.ElementsMatch(t, []uuid.UUID{a, b}, plan.Survivors)
	require.NotNil(t, plan.SlowestSurvivor)
	assert.Equal(t, c, *plan.SlowestSurvivor)
}

func TestPlanElimination_SingleSurvivorStays(t *testing.T) {
	q := &entity.Question{ID: 1, Type: entity.QuestionTypeChoice2, CorrectAnswer: entity.CorrectAnswer{Choice: "yes"}}
	a, b := uuid.New(), uuid.New()

	plan := PlanElimination([]uuid.UUID{a, b}, []entity.Answer{planAnswer(a, 1, "yes", 9000)}, q)

	assert.Equal(t, []uuid.UUID{b}, plan.Victims, "Молчавший выбывает")
	assert.Equal(t, []uuid.UUID{a}, plan.Survivors, "Единственный выживший не штрафуется за скорость")
	assert.Nil(t, plan.SlowestSurvivor)
}

func TestPlanElimination_TwoSurvivorsLeaveOne(t *testing.T) {
	q := &entity.Question{ID: 1, Type: entity.QuestionTypeChoice2, CorrectAnswer: entity.CorrectAnswer{Choice: "yes"}}
	a, b := uuid.New(), uuid.New()

	plan := PlanElimination([]uuid.UUID{a, b}, []entity.Answer{
		planAnswer(a, 1, "yes", 300),
		planAnswer(b, 1, "yes", 301),
	}, q)

	assert.Equal(t, []uuid.UUID{b}, plan.Victims)
	assert.Equal(t, []uuid.UUID{a}, plan.Survivors)
}

func TestPlanElimination_NobodyCorrect(t *testing.T) {
	q := &entity.Question{ID: 1, Type: entity.QuestionTypeChoice2, CorrectAnswer: entity.CorrectAnswer{Choice: "yes"}}
	a, b := uuid.New(), uuid.New()

	plan := PlanElimination([]uuid.UUID{a, b}, []entity.Answer{planAnswer(a, 1, "no", 300)}, q)

	assert.ElementsMatch(t, []uuid.UUID{a, b}, plan.Victims)
	assert.Empty(t, plan.Survivors)
}

func TestPlanElimination_TieBreakIsDeterministic(t *testing.T) {
	// Arrange: одинаковая задержка и время записи
	q := &entity.Question{ID: 1, Type: entity.QuestionTypeChoice2, CorrectAnswer: entity.CorrectAnswer{Choice: "yes"}}
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	answers := []entity.Answer{planAnswer(b, 1, "yes", 500), planAnswer(a, 1, "yes", 500)}

	// Act
	plan1 := PlanElimination([]uuid.UUID{a, b}, answers, q)
	plan2 := PlanElimination([]uuid.UUID{b, a}, []entity.Answer{answers[1], answers[0]}, q)

	// Assert
	assert.Equal(t, []uuid.UUID{b}, plan1.Victims, "При равенстве выбывает больший id")
	assert.Equal(t, plan1.Victims, plan2.Victims, "Порядок входа не влияет на результат")
}

func TestPlanElimination_UsesStoredCorrectness(t *testing.T) {
	q := &entity.Question{ID: 1, Type: entity.QuestionTypeChoice2, CorrectAnswer: entity.CorrectAnswer{Choice: "yes"}}
	a := uuid.New()
	correct := true
	ans := planAnswer(a, 1, "no", 100)
	ans.IsCorrect = &correct

	plan := PlanElimination([]uuid.UUID{a}, []entity.Answer{ans}, q)

	assert.Equal(t, []uuid.UUID{a}, plan.Survivors, "Сохраненная оценка важнее пересчета")
}

func TestAnsweredCorrectly(t *testing.T) {
	q := &entity.Question{ID: 1, Type: entity.QuestionTypeChoice2, CorrectAnswer: entity.CorrectAnswer{Choice: "yes"}}
	yes, no := true, false

	tests := []struct {
		name   string
		choice string
		stored *bool
		want   bool
	}{
		{"без оценки, верный вариант", "yes", nil, true},
		{"без оценки, неверный вариант", "no", nil, false},
		{"оценка верно перекрывает вариант", "no", &yes, true},
		{"оценка неверно перекрывает вариант", "yes", &no, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ans := planAnswer(uuid.New(), 1, tt.choice, 100)
			ans.IsCorrect = tt.stored

			assert.Equal(t, tt.want, AnsweredCorrectly(ans, q))
		})
	}
}

func TestEliminator_AppliesOnceAndIsReplaySafe(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	q := env.addQuestion(t)
	a := env.addPlayer(t, "Аня", true)
	b := env.addPlayer(t, "Боря", true)
	c := env.addPlayer(t, "Вика", true)
	d := env.addPlayer(t, "Гоша", true)
	env.addAnswer(t, a, q.ID, "b", 1200)
	env.addAnswer(t, b, q.ID, "b", 800)
	env.addAnswer(t, c, q.ID, "b", 2000)
	env.addAnswer(t, d, q.ID, "a", 500)
	eliminator := NewEliminator(env.deps)

	// Act
	first, err := eliminator.Eliminate(ctx, q, 1)
	require.NoError(t, err)
	second, err := eliminator.Eliminate(ctx, q, 1)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 2, first.EliminatedCount)
	assert.Equal(t, 2, first.RemainingCount)
	assert.True(t, second.AlreadyApplied, "Повтор не применяется")
	assert.Equal(t, first.EliminatedCount, second.EliminatedCount, "Повтор возвращает исходные числа")

	eligible, err := env.store.Players.ListEligibleIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, eligible, "После повтора в игре те же двое")
}
