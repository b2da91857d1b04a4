package gamecore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
)

// EliminationPlan - кто остается и кто выбывает по итогам вопроса
type EliminationPlan struct {
	Survivors       []uuid.UUID
	Victims         []uuid.UUID
	SlowestSurvivor *uuid.UUID
}

// PlanElimination считает выбывание.
// Выбывают все участники без правильного ответа. Если выживших больше одного,
// выбывает еще и самый медленный из них.
func PlanElimination(eligible []uuid.UUID, answers []entity.Answer, question *entity.Question) EliminationPlan {
	byPlayer := make(map[uuid.UUID]entity.Answer, len(answers))
	for _, a := range answers {
		if a.QuestionID == question.ID {
			byPlayer[a.PlayerID] = a
		}
	}

	var survivors []entity.Answer
	var victims []uuid.UUID
	for _, id := range eligible {
		a, ok := byPlayer[id]
		if ok && AnsweredCorrectly(a, question) {
			survivors = append(survivors, a)
			continue
		}
		victims = append(victims, id)
	}

	// Самый медленный - последний: задержка, затем время записи, затем id
	sort.SliceStable(survivors, func(i, j int) bool {
		if survivors[i].LatencyMs != survivors[j].LatencyMs {
			return survivors[i].LatencyMs < survivors[j].LatencyMs
		}
		if !survivors[i].CreatedAt.Equal(survivors[j].CreatedAt) {
			return survivors[i].CreatedAt.Before(survivors[j].CreatedAt)
		}
		return survivors[i].PlayerID.String() < survivors[j].PlayerID.String()
	})

	plan := EliminationPlan{Victims: victims}
	if len(survivors) > 1 {
		slowest := survivors[len(survivors)-1].PlayerID
		plan.SlowestSurvivor = &slowest
		plan.Victims = append(plan.Victims, slowest)
		survivors = survivors[:len(survivors)-1]
	}
	for _, a := range survivors {
		plan.Survivors = append(plan.Survivors, a.PlayerID)
	}
	return plan
}

// AnsweredCorrectly берет оценку ответа, а до оценки сверяет его с вопросом
func AnsweredCorrectly(a entity.Answer, question *entity.Question) bool {
	if a.IsCorrect != nil {
		return *a.IsCorrect
	}
	return question.IsCorrect(a.AnswerValue)
}

// Eliminator применяет выбывание одним пакетом, не более раза на вопрос в периоде
type Eliminator struct {
	playerRepo      repository.PlayerRepository
	answerRepo      repository.AnswerRepository
	eliminationRepo repository.EliminationRepository
}

// NewEliminator создает движок выбывания
func NewEliminator(deps *Dependencies) *Eliminator {
	return &Eliminator{
		playerRepo:      deps.PlayerRepo,
		answerRepo:      deps.AnswerRepo,
		eliminationRepo: deps.EliminationRepo,
	}
}

// Eliminate снимает с игры проигравших по вопросу
func (e *Eliminator) Eliminate(ctx context.Context, question *entity.Question, period int) (*EliminationResult, error) {
	eligible, err := e.playerRepo.ListEligibleIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible players: %w", err)
	}
	answers, err := e.answerRepo.ListByQuestion(ctx, question.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers for question #%d: %w", question.ID, err)
	}

	plan := PlanElimination(eligible, answers, question)
	round := &entity.EliminationRound{
		QuestionID:      question.ID,
		Period:          period,
		EliminatedCount: len(plan.Victims),
		RemainingCount:  len(eligible) - len(plan.Victims),
	}

	applied, err := e.eliminationRepo.Apply(ctx, round, plan.Victims)
	if err != nil {
		if errors.Is(err, repository.ErrEliminationApplied) && applied != nil {
			log.Printf("[Eliminator] Выбывание по вопросу #%d в периоде %d уже применено", question.ID, period)
			return &EliminationResult{
				Success:         true,
				QuestionID:      question.ID,
				EliminatedCount: applied.EliminatedCount,
				RemainingCount:  applied.RemainingCount,
				AlreadyApplied:  true,
			}, nil
		}
		return nil, fmt.Errorf("apply elimination for question #%d: %w", question.ID, err)
	}

	log.Printf("[Eliminator] Вопрос #%d: выбыло %d, осталось %d", question.ID, applied.EliminatedCount, applied.RemainingCount)

	return &EliminationResult{
		Success:         true,
		QuestionID:      question.ID,
		EliminatedCount: applied.EliminatedCount,
		RemainingCount:  applied.RemainingCount,
		Victims:         plan.Victims,
	}, nil
}
