package repository

import (
	"context"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
)

// GameStateRepository хранит единственную строку состояния игры
type GameStateRepository interface {
	// Get возвращает состояние, создавая начальное, если строки еще нет
	Get(ctx context.Context) (*entity.GameState, error)

	// Save записывает состояние, если ревизия в хранилище равна state.Revision,
	// и увеличивает state.Revision. Иначе возвращает ErrStaleGameState.
	Save(ctx context.Context, state *entity.GameState) error
}
