package dto

import (
	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
)

// AdvancePhaseRequest - нажатие оператора "далее"
type AdvancePhaseRequest struct {
	// From - фаза, которую видел оператор. Повтор с устаревшей фазой ничего не меняет.
	From    *string `json:"from,omitempty"`
	Confirm bool    `json:"confirm"`
}

// ResetGameRequest - полный сброс игры
type ResetGameRequest struct {
	WipePlayers bool `json:"wipe_players"`
}

// SessionRequest - вход оператора по ключу
type SessionRequest struct {
	Key string `json:"key"`
}

// SessionResponse - выданный билет подключения
type SessionResponse struct {
	Ticket    string `json:"ticket"`
	Role      string `json:"role"`
	SubjectID string `json:"subject_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// RegisterPlayerRequest - самостоятельная регистрация игрока
type RegisterPlayerRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	RealName    string `json:"real_name"`
}

// RegisterPlayerResponse - ID игрока и билет для WebSocket
type RegisterPlayerResponse struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Ticket      string    `json:"ticket"`
	ExpiresIn   int64     `json:"expires_in"`
}

// SubmitAnswerRequest - ответ игрока через HTTP.
// PlayerID необязателен: игрок берется из билета, несовпадение отклоняется.
type SubmitAnswerRequest struct {
	PlayerID        string             `json:"player_id"`
	QuestionID      uint               `json:"question_id" binding:"required"`
	AnswerValue     entity.AnswerValue `json:"answer_value"`
	ClientTimestamp int64              `json:"client_timestamp" binding:"required"`
}

// ServerTimeResponse - серверное время в мс от эпохи
type ServerTimeResponse struct {
	ServerTime int64 `json:"server_time"`
}

// PresenceResponse - присутствующие игроки
type PresenceResponse struct {
	Players []string `json:"players"`
	Count   int      `json:"count"`
}
