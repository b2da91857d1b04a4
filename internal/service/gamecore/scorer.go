package gamecore

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
)

// Scorer оценивает ответы на вопрос и начисляет очки.
// Повторный вызов не начисляет очки второй раз и возвращает то же число правильных.
type Scorer struct {
	answerRepo repository.AnswerRepository
}

// NewScorer создает оценщик
func NewScorer(deps *Dependencies) *Scorer {
	return &Scorer{answerRepo: deps.AnswerRepo}
}

// Score оценивает все ответы на вопрос
func (s *Scorer) Score(ctx context.Context, question *entity.Question) (*ScoreResult, error) {
	answers, err := s.answerRepo.ListByQuestion(ctx, question.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers for question #%d: %w", question.ID, err)
	}

	correct := 0
	pending := make([]entity.AnswerScore, 0, len(answers))
	for _, a := range answers {
		isCorrect := question.IsCorrect(a.AnswerValue)
		if isCorrect {
			correct++
		}
		if a.IsScored() {
			continue
		}
		pending = append(pending, entity.AnswerScore{
			AnswerID:  a.ID,
			PlayerID:  a.PlayerID,
			IsCorrect: isCorrect,
			Points:    question.CalculatePoints(isCorrect, a.LatencyMs),
		})
	}

	applied, err := s.answerRepo.ApplyScores(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("apply scores for question #%d: %w", question.ID, err)
	}

	log.Printf("[Scorer] Вопрос #%d: ответов %d, правильных %d, оценено сейчас %d",
		question.ID, len(answers), correct, applied)

	return &ScoreResult{
		Success:      true,
		QuestionID:   question.ID,
		CorrectCount: correct,
		TotalAnswers: len(answers),
		NewlyScored:  applied,
	}, nil
}
