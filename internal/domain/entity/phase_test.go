package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase_Next_FollowsCycle(t *testing.T) {
	// Arrange
	expected := map[Phase]Phase{
		PhaseIdle:         PhaseIntro,
		PhaseIntro:        PhaseActive,
		PhaseActive:       PhaseLocked,
		PhaseLocked:       PhaseDistribution,
		PhaseDistribution: PhaseReveal,
		PhaseReveal:       PhaseRanking,
	}

	for from, to := range expected {
		// Act
		next, ok := from.Next()

		// Assert
		assert.True(t, ok, "Из %s должен быть переход", from)
		assert.Equal(t, to, next, "Неверная фаза после %s", from)
	}
}

func TestPhase_Next_RankingHasNoPlainTransition(t *testing.T) {
	// Act
	next, ok := PhaseRanking.Next()

	// Assert: выход из RANKING только через выбывание
	assert.False(t, ok, "RANKING не должен иметь обычного перехода")
	assert.Empty(t, next)
}

func TestPhase_Next_LegacyPhasesAreOutsideCycle(t *testing.T) {
	for _, p := range []Phase{PhaseReading, PhaseCountdown, PhaseResult} {
		_, ok := p.Next()
		assert.False(t, ok, "Фаза %s не входит в цикл", p)
		assert.True(t, p.IsValid(), "Фаза %s должна считаться известной", p)
		assert.False(t, p.InCycle())
	}
}

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase(" active ")
	require.NoError(t, err)
	assert.Equal(t, PhaseActive, p)

	_, err = ParsePhase("PAUSED")
	assert.Error(t, err, "Неизвестная фаза должна давать ошибку")
}

func TestPhase_AcceptsAnswersOnlyInActive(t *testing.T) {
	for _, p := range phaseCycle {
		assert.Equal(t, p == PhaseActive, p.AcceptsAnswers(), "Фаза %s", p)
	}
}
