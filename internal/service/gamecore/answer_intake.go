package gamecore

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
)

// AnswerIntake принимает ответы игроков.
// Гонки (не та фаза, выбывший игрок, повтор) молча отбрасываются без ошибки.
type AnswerIntake struct {
	playerRepo repository.PlayerRepository
	answerRepo repository.AnswerRepository
	publisher  Publisher
	clock      clockwork.Clock
}

// NewAnswerIntake создает приемник ответов
func NewAnswerIntake(deps *Dependencies) *AnswerIntake {
	return &AnswerIntake{
		playerRepo: deps.PlayerRepo,
		answerRepo: deps.AnswerRepo,
		publisher:  deps.Publisher,
		clock:      deps.Clock,
	}
}

// Submit проверяет ответ по снимку состояния и записывает его
func (ai *AnswerIntake) Submit(ctx context.Context, snap *Snapshot, sub Submission) (*IntakeResult, error) {
	state := snap.State
	if !state.Phase.AcceptsAnswers() {
		return &IntakeResult{Outcome: OutcomeRejectedPhase}, nil
	}
	if snap.Question == nil || !state.IsCurrentQuestion(sub.QuestionID) {
		return &IntakeResult{Outcome: OutcomeRejectedQuestion}, nil
	}
	if err := snap.Question.ValidateAnswer(sub.Value); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	player, err := ai.playerRepo.GetByID(ctx, sub.PlayerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[AnswerIntake] Ответ от неизвестного игрока %s отброшен", sub.PlayerID)
			return &IntakeResult{Outcome: OutcomeRejectedIneligible}, nil
		}
		return nil, fmt.Errorf("load player %s: %w", sub.PlayerID, err)
	}
	if !player.IsEligible {
		return &IntakeResult{Outcome: OutcomeRejectedIneligible}, nil
	}

	now := ai.clock.Now()
	answer := &entity.Answer{
		PlayerID:         sub.PlayerID,
		QuestionID:       sub.QuestionID,
		AnswerValue:      sub.Value,
		ClientTimestamp:  sub.ClientTimestamp,
		ServerReceivedAt: now.UnixMilli(),
		LatencyMs:        LatencyMs(state.StartTimestamp, sub.ClientTimestamp),
		CreatedAt:        now,
	}
	if err := ai.answerRepo.Create(ctx, answer); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return &IntakeResult{Outcome: OutcomeRejectedDuplicate}, nil
		}
		return nil, fmt.Errorf("save answer: %w", err)
	}

	ai.publisher.SendToPlayer(sub.PlayerID.String(), EventAnswerAccepted, map[string]interface{}{
		"question_id":  answer.QuestionID,
		"answer_value": answer.AnswerValue,
		"latency_ms":   answer.LatencyMs,
	})
	ai.publisher.Publish(AnswersTopic(answer.QuestionID), EventAnswersChanged, map[string]interface{}{
		"question_id": answer.QuestionID,
	})

	return &IntakeResult{Outcome: OutcomeAccepted, Answer: answer}, nil
}
