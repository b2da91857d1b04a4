package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
)

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// Create записывает ответ. Уникальный индекс (player_id, question_id) отсекает повторы.
func (r *AnswerRepo) Create(ctx context.Context, answer *entity.Answer) error {
	err := r.db.WithContext(ctx).Create(answer).Error
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// GetByPlayerAndQuestion возвращает ответ игрока на вопрос
func (r *AnswerRepo) GetByPlayerAndQuestion(ctx context.Context, playerID uuid.UUID, questionID uint) (*entity.Answer, error) {
	var answer entity.Answer
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND question_id = ?", playerID, questionID).
		First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &answer, nil
}

// ListByQuestion возвращает ответы на вопрос в порядке поступления
func (r *AnswerRepo) ListByQuestion(ctx context.Context, questionID uint) ([]entity.Answer, error) {
	var answers []entity.Answer
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&answers).Error
	return answers, err
}

// CountByQuestion возвращает число ответов на вопрос
func (r *AnswerRepo) CountByQuestion(ctx context.Context, questionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Answer{}).
		Where("question_id = ?", questionID).
		Count(&count).Error
	return count, err
}

// ApplyScores записывает оценки и начисляет очки в одной транзакции.
// Условие is_correct IS NULL не дает начислить очки за один ответ дважды.
func (r *AnswerRepo) ApplyScores(ctx context.Context, scores []entity.AnswerScore) (int, error) {
	if len(scores) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if tx.Error != nil {
		return 0, tx.Error
	}

	applied := 0
	for _, s := range scores {
		result := tx.Model(&entity.Answer{}).
			Where("id = ? AND is_correct IS NULL", s.AnswerID).
			Updates(map[string]interface{}{
				"is_correct":     s.IsCorrect,
				"points_awarded": s.Points,
			})
		if result.Error != nil {
			tx.Rollback()
			return 0, fmt.Errorf("score answer #%d: %w", s.AnswerID, result.Error)
		}
		if result.RowsAffected == 0 {
			continue
		}
		applied++

		if s.Points == 0 {
			continue
		}
		err := tx.Model(&entity.Player{}).
			Where("id = ?", s.PlayerID).
			UpdateColumn("score", gorm.Expr("score + ?", s.Points)).Error
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("award player %s: %w", s.PlayerID, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return applied, nil
}

// DeleteByQuestion удаляет все ответы на вопрос
func (r *AnswerRepo) DeleteByQuestion(ctx context.Context, questionID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Delete(&entity.Answer{})
	return result.RowsAffected, result.Error
}

// DeleteAll удаляет все ответы
func (r *AnswerRepo) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&entity.Answer{})
	return result.RowsAffected, result.Error
}
