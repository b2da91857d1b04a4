package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
)

// AnswerRepository определяет методы для работы с ответами
type AnswerRepository interface {
	// Create записывает ответ. Повтор для той же пары (игрок, вопрос) возвращает ErrConflict.
	Create(ctx context.Context, answer *entity.Answer) error

	GetByPlayerAndQuestion(ctx context.Context, playerID uuid.UUID, questionID uint) (*entity.Answer, error)
	ListByQuestion(ctx context.Context, questionID uint) ([]entity.Answer, error)
	CountByQuestion(ctx context.Context, questionID uint) (int64, error)

	// ApplyScores в одной транзакции записывает оценки и начисляет очки игрокам.
	// Ответы, уже имеющие оценку, пропускаются. Возвращает число реально оцененных ответов.
	ApplyScores(ctx context.Context, scores []entity.AnswerScore) (int, error)

	DeleteByQuestion(ctx context.Context, questionID uint) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}
