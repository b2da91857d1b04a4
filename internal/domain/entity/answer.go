package entity

import (
	"time"

	"github.com/google/uuid"
)

// Answer - ответ игрока на вопрос. Не более одного на пару (игрок, вопрос).
type Answer struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	PlayerID         uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_answers_player_question" json:"player_id"`
	QuestionID       uint        `gorm:"not null;index;uniqueIndex:idx_answers_player_question" json:"question_id"`
	AnswerValue      AnswerValue `gorm:"type:jsonb;not null" json:"answer_value"`
	ClientTimestamp  int64       `gorm:"not null" json:"client_timestamp"`
	ServerReceivedAt int64       `gorm:"not null" json:"server_received_at"`
	LatencyMs        int64       `gorm:"not null" json:"latency_ms"`
	IsCorrect        *bool       `json:"is_correct"`
	PointsAwarded    int         `gorm:"not null;default:0" json:"points_awarded"`
	CreatedAt        time.Time   `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Answer) TableName() string {
	return "answers"
}

// IsScored - ответ уже оценен
func (a *Answer) IsScored() bool {
	return a.IsCorrect != nil
}

// AnswerScore - результат оценки одного ответа
type AnswerScore struct {
	AnswerID  uint
	PlayerID  uuid.UUID
	IsCorrect bool
	Points    int
}
