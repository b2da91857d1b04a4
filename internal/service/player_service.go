package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/internal/service/gamecore"
)

const maxDisplayNameLength = 50

// PlayerState - все, что нужно клиенту игрока после переподключения
type PlayerState struct {
	Player           *entity.Player     `json:"player"`
	Game             gamecore.StateView `json:"game"`
	Answer           *entity.Answer     `json:"answer,omitempty"`
	RemainingSeconds float64            `json:"remaining_seconds"`
}

// PlayerService управляет регистрацией игроков
type PlayerService struct {
	playerRepo repository.PlayerRepository
	answerRepo repository.AnswerRepository
	controller *GameController
	publisher  gamecore.Publisher
}

// NewPlayerService создает сервис игроков
func NewPlayerService(
	playerRepo repository.PlayerRepository,
	answerRepo repository.AnswerRepository,
	controller *GameController,
	publisher gamecore.Publisher,
) *PlayerService {
	return &PlayerService{
		playerRepo: playerRepo,
		answerRepo: answerRepo,
		controller: controller,
		publisher:  publisher,
	}
}

// Register создает игрока, сразу допущенного к игре
func (s *PlayerService) Register(ctx context.Context, displayName, realName string) (*entity.Player, error) {
	displayName = strings.TrimSpace(displayName)
	realName = strings.TrimSpace(realName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return nil, fmt.Errorf("%w: display name is longer than %d characters", apperrors.ErrValidation, maxDisplayNameLength)
	}

	player := &entity.Player{
		ID:          uuid.New(),
		DisplayName: displayName,
		RealName:    realName,
		IsEligible:  true,
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to register player: %w", err)
	}

	s.publisher.Publish(gamecore.TopicPlayers, gamecore.EventPlayerUpdated, player)
	return player, nil
}

// GetPlayer возвращает игрока по ID
func (s *PlayerService) GetPlayer(ctx context.Context, id uuid.UUID) (*entity.Player, error) {
	return s.playerRepo.GetByID(ctx, id)
}

// RestoreState собирает состояние игрока для переподключившегося клиента
func (s *PlayerService) RestoreState(ctx context.Context, id uuid.UUID) (*PlayerState, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Клиент мог переподключиться к экземпляру, еще не получившему смену фазы
	snap, err := s.controller.StoredSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	serverTime := s.controller.ServerTime()
	state := &PlayerState{
		Player: player,
		Game:   snap.View(serverTime),
	}

	if qid := snap.State.QuestionID(); qid != 0 {
		answer, err := s.answerRepo.GetByPlayerAndQuestion(ctx, id, qid)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("load own answer: %w", err)
		}
		if answer != nil && !snap.State.Phase.RevealsAnswer() {
			// Оценка не раскрывается до REVEAL
			answer.IsCorrect = nil
			answer.PointsAwarded = 0
		}
		state.Answer = answer
	}

	if snap.State.Phase == entity.PhaseActive && snap.Question != nil {
		state.RemainingSeconds = gamecore.RemainingSeconds(
			snap.State.StartTimestamp,
			snap.Question.EffectiveTimeLimitSec(),
			serverTime,
			0,
		)
	}
	return state, nil
}
