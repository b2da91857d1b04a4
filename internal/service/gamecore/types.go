package gamecore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
)

// Темы шины событий
const (
	TopicGameState = "game_state"
	TopicQuestions = "questions"
	TopicPlayers   = "players"
	TopicAnswers   = "answers"
	TopicPresence  = "presence"
)

// Типы событий для клиентов
const (
	EventGameState          = "game:state"
	EventQuestionUpdated    = "question:updated"
	EventPlayerUpdated      = "player:updated"
	EventPlayersBulkUpdated = "players:bulk_updated"
	EventAnswerAccepted     = "answer:accepted"
	EventAnswersChanged     = "answers:changed"
	EventPresenceSync       = "presence:sync"
	EventPresenceJoin       = "presence:join"
	EventPresenceLeave      = "presence:leave"
)

// AnswersTopic возвращает тему ответов конкретного вопроса
func AnswersTopic(questionID uint) string {
	return fmt.Sprintf("%s:%d", TopicAnswers, questionID)
}

// Config содержит настройки игрового ядра
type Config struct {
	AutoLockGrace          time.Duration // Запас после лимита времени перед автоблокировкой
	DefaultTimeLimitSec    int           // Лимит для вопросов без своего значения
	PresenceTTL            time.Duration // Сколько живет отметка присутствия без heartbeat
	RankingPageSize        int           // Размер страницы рейтинга на экране
	StateBroadcastInterval time.Duration // Период повторной рассылки состояния, 0 - выключено
	CommandBuffer          int           // Размер очереди команд контроллера
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		AutoLockGrace:       time.Second,
		DefaultTimeLimitSec: entity.DefaultTimeLimitSec,
		PresenceTTL:         30 * time.Second,
		RankingPageSize:     10,
		CommandBuffer:       64,
	}
}

// PresenceWindow возвращает срок жизни отметки присутствия, без настройки берется 30с
func (c *Config) PresenceWindow() time.Duration {
	if c == nil || c.PresenceTTL <= 0 {
		return DefaultConfig().PresenceTTL
	}
	return c.PresenceTTL
}

// Publisher доставляет события клиентам всех экземпляров
type Publisher interface {
	Publish(topic string, eventType string, data interface{})
	SendToPlayer(playerID string, eventType string, data interface{})
}

// Dependencies содержит зависимости игрового ядра
type Dependencies struct {
	GameStateRepo   repository.GameStateRepository
	QuestionRepo    repository.QuestionRepository
	PlayerRepo      repository.PlayerRepository
	AnswerRepo      repository.AnswerRepository
	EliminationRepo repository.EliminationRepository
	Publisher       Publisher
	Clock           clockwork.Clock
	Config          *Config
}

// Snapshot - неизменяемый снимок состояния для читателей
type Snapshot struct {
	State    entity.GameState
	Question *entity.Question
}

// AnswerOutcome - результат приема ответа. Отказы не являются ошибками.
type AnswerOutcome string

const (
	OutcomeAccepted           AnswerOutcome = "accepted"
	OutcomeRejectedPhase      AnswerOutcome = "rejected_phase"
	OutcomeRejectedIneligible AnswerOutcome = "rejected_ineligible"
	OutcomeRejectedDuplicate  AnswerOutcome = "rejected_duplicate"
	OutcomeRejectedQuestion   AnswerOutcome = "rejected_question"
)

// Submission - ответ, пришедший от клиента
type Submission struct {
	PlayerID        uuid.UUID          `json:"player_id"`
	QuestionID      uint               `json:"question_id"`
	Value           entity.AnswerValue `json:"answer_value"`
	ClientTimestamp int64              `json:"client_timestamp"`
}

// IntakeResult - что произошло с ответом
type IntakeResult struct {
	Outcome AnswerOutcome  `json:"outcome"`
	Answer  *entity.Answer `json:"answer,omitempty"`
}

// ScoreResult - итог оценки вопроса
type ScoreResult struct {
	Success      bool `json:"success"`
	QuestionID   uint `json:"question_id"`
	CorrectCount int  `json:"correct_count"`
	TotalAnswers int  `json:"total_answers"`
	NewlyScored  int  `json:"newly_scored"`
}

// EliminationResult - итог выбывания по вопросу
type EliminationResult struct {
	Success         bool        `json:"success"`
	QuestionID      uint        `json:"question_id"`
	EliminatedCount int         `json:"eliminated_count"`
	RemainingCount  int         `json:"remaining_count"`
	AlreadyApplied  bool        `json:"already_applied"`
	Victims         []uuid.UUID `json:"victims,omitempty"`
}
