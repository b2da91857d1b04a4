package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
)

// GameStateRepo реализует repository.GameStateRepository
type GameStateRepo struct {
	db *gorm.DB
}

// NewGameStateRepo создает новый репозиторий состояния игры
func NewGameStateRepo(db *gorm.DB) *GameStateRepo {
	return &GameStateRepo{db: db}
}

// Get возвращает строку состояния, создавая начальную при первом обращении
func (r *GameStateRepo) Get(ctx context.Context) (*entity.GameState, error) {
	var state entity.GameState
	err := r.db.WithContext(ctx).First(&state, entity.GameStateID).Error
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	initial := entity.NewGameState()
	// Параллельный экземпляр мог успеть создать строку
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(initial).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).First(&state, entity.GameStateID).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// Save записывает состояние с проверкой ревизии
func (r *GameStateRepo) Save(ctx context.Context, state *entity.GameState) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&entity.GameState{}).
		Where("id = ? AND revision = ?", entity.GameStateID, state.Revision).
		Updates(map[string]interface{}{
			"phase":               state.Phase,
			"current_question_id": state.CurrentQuestionID,
			"start_timestamp":     state.StartTimestamp,
			"period":              state.Period,
			"revision":            gorm.Expr("revision + 1"),
			"updated_at":          now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrStaleGameState
	}
	state.ID = entity.GameStateID
	state.Revision++
	state.UpdatedAt = now
	return nil
}
