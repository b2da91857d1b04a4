package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
)

// EliminationRepo реализует repository.EliminationRepository
type EliminationRepo struct {
	db *gorm.DB
}

// NewEliminationRepo создает новый репозиторий выбываний
func NewEliminationRepo(db *gorm.DB) *EliminationRepo {
	return &EliminationRepo{db: db}
}

// Apply фиксирует раунд и снимает проигравших с игры одной транзакцией.
// Уникальный индекс (question_id, period) не дает применить выбывание дважды.
func (r *EliminationRepo) Apply(ctx context.Context, round *entity.EliminationRound, victims []uuid.UUID) (*entity.EliminationRound, error) {
	tx := r.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if tx.Error != nil {
		return nil, tx.Error
	}

	if err := tx.Create(round).Error; err != nil {
		tx.Rollback()
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("record elimination round: %w", err)
		}
		var existing entity.EliminationRound
		if err := r.db.WithContext(ctx).
			Where("question_id = ? AND period = ?", round.QuestionID, round.Period).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, repository.ErrEliminationApplied
	}

	if len(victims) > 0 {
		err := tx.Model(&entity.Player{}).
			Where("id IN ? AND is_eligible = ?", victims, true).
			Updates(map[string]interface{}{
				"is_eligible": false,
				"updated_at":  time.Now(),
			}).Error
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("eliminate players: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return round, nil
}

// DeleteByQuestion снимает отметку о выбывании по вопросу в периоде
func (r *EliminationRepo) DeleteByQuestion(ctx context.Context, questionID uint, period int) error {
	return r.db.WithContext(ctx).
		Where("question_id = ? AND period = ?", questionID, period).
		Delete(&entity.EliminationRound{}).Error
}

// DeleteAll удаляет историю выбываний
func (r *EliminationRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&entity.EliminationRound{}).Error
}
