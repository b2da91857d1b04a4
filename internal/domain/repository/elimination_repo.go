package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
)

// EliminationRepository применяет выбывание одним пакетом
type EliminationRepository interface {
	// Apply фиксирует раунд и снимает с игры проигравших в одной транзакции.
	// Если раунд для (вопрос, период) уже есть, возвращает его и ErrEliminationApplied.
	Apply(ctx context.Context, round *entity.EliminationRound, victims []uuid.UUID) (*entity.EliminationRound, error)

	// DeleteByQuestion снимает отметку о выбывании, чтобы вопрос можно было провести заново
	DeleteByQuestion(ctx context.Context, questionID uint, period int) error

	DeleteAll(ctx context.Context) error
}
