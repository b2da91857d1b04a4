package repository

import (
	"context"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с библиотекой вопросов
type QuestionRepository interface {
	Create(ctx context.Context, question *entity.Question) error
	CreateBatch(ctx context.Context, questions []entity.Question) error
	GetByID(ctx context.Context, id uint) (*entity.Question, error)
	List(ctx context.Context) ([]entity.Question, error)
	Update(ctx context.Context, question *entity.Question) error
	Delete(ctx context.Context, id uint) error
}
