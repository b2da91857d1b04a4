package entity

import (
	"fmt"
	"time"
)

// GameStateID - идентификатор единственной строки состояния игры
const GameStateID = 1

// GameState - глобальное состояние игры, одна строка на инсталляцию
type GameState struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	Phase             Phase     `gorm:"size:20;not null;default:IDLE" json:"phase"`
	CurrentQuestionID *uint     `json:"current_question_id"`
	StartTimestamp    int64     `gorm:"not null;default:0" json:"start_timestamp"`
	Period            int       `gorm:"not null;default:1" json:"period"`
	// Revision растет с каждой записью; запись с устаревшей ревизией отклоняется
	Revision  int64     `gorm:"not null;default:0" json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (GameState) TableName() string {
	return "game_state"
}

// NewGameState возвращает начальное состояние
func NewGameState() *GameState {
	return &GameState{
		ID:     GameStateID,
		Phase:  PhaseIdle,
		Period: 1,
	}
}

// Validate проверяет инварианты состояния
func (s *GameState) Validate() error {
	if !s.Phase.IsValid() {
		return fmt.Errorf("invalid phase %q", s.Phase)
	}
	if s.Phase != PhaseIdle && s.CurrentQuestionID == nil {
		return fmt.Errorf("phase %s requires current question", s.Phase)
	}
	if s.Phase == PhaseActive && s.StartTimestamp <= 0 {
		return fmt.Errorf("phase %s requires start timestamp", s.Phase)
	}
	return nil
}

// IsCurrentQuestion сообщает, является ли вопрос текущим
func (s *GameState) IsCurrentQuestion(id uint) bool {
	return s.CurrentQuestionID != nil && *s.CurrentQuestionID == id
}

// QuestionID возвращает id текущего вопроса или 0
func (s *GameState) QuestionID() uint {
	if s.CurrentQuestionID == nil {
		return 0
	}
	return *s.CurrentQuestionID
}

// Clone возвращает копию, не разделяющую указатели с оригиналом
func (s *GameState) Clone() *GameState {
	c := *s
	if s.CurrentQuestionID != nil {
		id := *s.CurrentQuestionID
		c.CurrentQuestionID = &id
	}
	return &c
}

// Equal сравнивает игровые поля, без ревизии и времени записи
func (s *GameState) Equal(o *GameState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Phase == o.Phase &&
		s.QuestionID() == o.QuestionID() &&
		s.StartTimestamp == o.StartTimestamp &&
		s.Period == o.Period
}
