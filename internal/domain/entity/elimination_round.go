package entity

import "time"

// EliminationRound фиксирует примененное выбывание по вопросу в рамках периода.
// Повторное выбывание по тому же вопросу в том же периоде не выполняется.
type EliminationRound struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	QuestionID      uint      `gorm:"not null;uniqueIndex:idx_elimination_question_period" json:"question_id"`
	Period          int       `gorm:"not null;uniqueIndex:idx_elimination_question_period" json:"period"`
	EliminatedCount int       `gorm:"not null;default:0" json:"eliminated_count"`
	RemainingCount  int       `gorm:"not null;default:0" json:"remaining_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (EliminationRound) TableName() string {
	return "elimination_rounds"
}
