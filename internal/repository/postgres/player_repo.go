package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
)

// PlayerRepo реализует repository.PlayerRepository
type PlayerRepo struct {
	db *gorm.DB
}

// NewPlayerRepo создает новый репозиторий игроков
func NewPlayerRepo(db *gorm.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// Create регистрирует игрока
func (r *PlayerRepo) Create(ctx context.Context, player *entity.Player) error {
	if player.ID == uuid.Nil {
		player.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(player).Error
	if err != nil && isUniqueViolation(err) {
		return apperrors.ErrConflict
	}
	return err
}

// GetByID возвращает игрока по ID
func (r *PlayerRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Player, error) {
	var player entity.Player
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &player, nil
}

// GetByIDs возвращает игроков из списка. Отсутствующие id пропускаются.
func (r *PlayerRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Player, error) {
	if len(ids) == 0 {
		return []entity.Player{}, nil
	}
	var players []entity.Player
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&players).Error
	return players, err
}

// ListEligibleIDs возвращает id игроков, которые еще в игре
func (r *PlayerRepo) ListEligibleIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.Player{}).
		Where("is_eligible = ?", true).
		Pluck("id", &ids).Error
	return ids, err
}

// ListStandings возвращает всех игроков по убыванию очков
func (r *PlayerRepo) ListStandings(ctx context.Context) ([]entity.Player, error) {
	var players []entity.Player
	err := r.db.WithContext(ctx).
		Order("score DESC").
		Order("created_at ASC").
		Find(&players).Error
	return players, err
}

// ReviveAll возвращает выбывших в игру одним UPDATE
func (r *PlayerRepo) ReviveAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Player{}).
		Where("is_eligible = ?", false).
		Updates(map[string]interface{}{
			"is_eligible": true,
			"updated_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}

// ResetAll обнуляет очки и возвращает всех в игру
func (r *PlayerRepo) ResetAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&entity.Player{}).
		Updates(map[string]interface{}{
			"score":       0,
			"is_eligible": true,
			"updated_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}

// DeleteAll удаляет всех игроков
func (r *PlayerRepo) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&entity.Player{})
	return result.RowsAffected, result.Error
}
