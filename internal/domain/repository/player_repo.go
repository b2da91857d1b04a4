package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
)

// PlayerRepository определяет методы для работы с игроками
type PlayerRepository interface {
	Create(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Player, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Player, error)

	// ListEligibleIDs возвращает id всех игроков, которые еще в игре
	ListEligibleIDs(ctx context.Context) ([]uuid.UUID, error)

	// ListStandings возвращает всех игроков по убыванию очков
	ListStandings(ctx context.Context) ([]entity.Player, error)

	// ReviveAll возвращает всех выбывших в игру и сообщает, сколько их было
	ReviveAll(ctx context.Context) (int64, error)

	// ResetAll обнуляет очки и возвращает всех в игру
	ResetAll(ctx context.Context) (int64, error)

	// DeleteAll удаляет всех игроков
	DeleteAll(ctx context.Context) (int64, error)
}
