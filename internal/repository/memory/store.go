// Package memory хранит игру в памяти процесса.
// Используется для локального запуска без Postgres (database.driver: memory) и в тестах сервисов.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
)

// Store - общее хранилище, на которое смотрят все репозитории пакета
type Store struct {
	mu sync.Mutex

	state        *entity.GameState
	questions    map[uint]entity.Question
	players      map[uuid.UUID]entity.Player
	answers      map[uint]entity.Answer
	eliminations map[eliminationKey]entity.EliminationRound
	presence     map[string]time.Time

	nextQuestionID    uint
	nextAnswerID      uint
	nextEliminationID uint

	GameStates   *GameStateRepo
	Questions    *QuestionRepo
	Players      *PlayerRepo
	Answers      *AnswerRepo
	Eliminations *EliminationRepo
	Presence     *PresenceRepo
}

type eliminationKey struct {
	questionID uint
	period     int
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	s := &Store{
		questions:    make(map[uint]entity.Question),
		players:      make(map[uuid.UUID]entity.Player),
		answers:      make(map[uint]entity.Answer),
		eliminations: make(map[eliminationKey]entity.EliminationRound),
		presence:     make(map[string]time.Time),
	}
	s.GameStates = &GameStateRepo{s: s}
	s.Questions = &QuestionRepo{s: s}
	s.Players = &PlayerRepo{s: s}
	s.Answers = &AnswerRepo{s: s}
	s.Eliminations = &EliminationRepo{s: s}
	s.Presence = &PresenceRepo{s: s}
	return s
}

// ==== GameState ====

// GameStateRepo реализует repository.GameStateRepository
type GameStateRepo struct{ s *Store }

func (r *GameStateRepo) Get(ctx context.Context) (*entity.GameState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.state == nil {
		r.s.state = entity.NewGameState()
	}
	return r.s.state.Clone(), nil
}

func (r *GameStateRepo) Save(ctx context.Context, state *entity.GameState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.state == nil {
		r.s.state = entity.NewGameState()
	}
	if r.s.state.Revision != state.Revision {
		return repository.ErrStaleGameState
	}
	state.ID = entity.GameStateID
	state.Revision++
	state.UpdatedAt = time.Now()
	r.s.state = state.Clone()
	return nil
}

// ==== Questions ====

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct{ s *Store }

func (r *QuestionRepo) Create(ctx context.Context, question *entity.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.createLocked(question)
	return nil
}

func (r *QuestionRepo) createLocked(question *entity.Question) {
	if question.ID == 0 {
		r.s.nextQuestionID++
		question.ID = r.s.nextQuestionID
	} else if question.ID > r.s.nextQuestionID {
		r.s.nextQuestionID = question.ID
	}
	now := time.Now()
	question.CreatedAt = now
	question.UpdatedAt = now
	r.s.questions[question.ID] = *question
}

func (r *QuestionRepo) CreateBatch(ctx context.Context, questions []entity.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range questions {
		r.createLocked(&questions[i])
	}
	return nil
}

func (r *QuestionRepo) GetByID(ctx context.Context, id uint) (*entity.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.questions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &q, nil
}

func (r *QuestionRepo) List(ctx context.Context) ([]entity.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]entity.Question, 0, len(r.s.questions))
	for _, q := range r.s.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *QuestionRepo) Update(ctx context.Context, question *entity.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.questions[question.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	question.CreatedAt = existing.CreatedAt
	question.UpdatedAt = time.Now()
	r.s.questions[question.ID] = *question
	return nil
}

func (r *QuestionRepo) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.questions[id]; !ok {
		return apperrors.ErrNotFound
	}
	// Как и внешний ключ в Postgres: вопрос с ответами не удаляется
	for _, a := range r.s.answers {
		if a.QuestionID == id {
			return apperrors.ErrConflict
		}
	}
	delete(r.s.questions, id)
	return nil
}

// ==== Players ====

// PlayerRepo реализует repository.PlayerRepository
type PlayerRepo struct{ s *Store }

func (r *PlayerRepo) Create(ctx context.Context, player *entity.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if player.ID == uuid.Nil {
		player.ID = uuid.New()
	}
	if _, exists := r.s.players[player.ID]; exists {
		return apperrors.ErrConflict
	}
	now := time.Now()
	player.CreatedAt = now
	player.UpdatedAt = now
	r.s.players[player.ID] = *player
	return nil
}

func (r *PlayerRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.players[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r *PlayerRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]entity.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.players[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PlayerRepo) ListEligibleIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range r.s.players {
		if p.IsEligible {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *PlayerRepo) ListStandings(ctx context.Context) ([]entity.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]entity.Player, 0, len(r.s.players))
	for _, p := range r.s.players {
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *PlayerRepo) ReviveAll(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, p := range r.s.players {
		if !p.IsEligible {
			p.IsEligible = true
			p.UpdatedAt = time.Now()
			r.s.players[id] = p
			n++
		}
	}
	return n, nil
}

func (r *PlayerRepo) ResetAll(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.players {
		p.Score = 0
		p.IsEligible = true
		p.UpdatedAt = time.Now()
		r.s.players[id] = p
	}
	return int64(len(r.s.players)), nil
}

func (r *PlayerRepo) DeleteAll(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.players))
	r.s.players = make(map[uuid.UUID]entity.Player)
	return n, nil
}

// ==== Answers ====

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct{ s *Store }

func (r *AnswerRepo) Create(ctx context.Context, answer *entity.Answer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.answers {
		if a.PlayerID == answer.PlayerID && a.QuestionID == answer.QuestionID {
			return apperrors.ErrConflict
		}
	}
	r.s.nextAnswerID++
	answer.ID = r.s.nextAnswerID
	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = time.Now()
	}
	r.s.answers[answer.ID] = *answer
	return nil
}

func (r *AnswerRepo) GetByPlayerAndQuestion(ctx context.Context, playerID uuid.UUID, questionID uint) (*entity.Answer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.answers {
		if a.PlayerID == playerID && a.QuestionID == questionID {
			return &a, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *AnswerRepo) ListByQuestion(ctx context.Context, questionID uint) ([]entity.Answer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Answer
	for _, a := range r.s.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *AnswerRepo) CountByQuestion(ctx context.Context, questionID uint) (int64, error) {
	answers, err := r.ListByQuestion(ctx, questionID)
	return int64(len(answers)), err
}

func (r *AnswerRepo) ApplyScores(ctx context.Context, scores []entity.AnswerScore) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	applied := 0
	for _, sc := range scores {
		a, ok := r.s.answers[sc.AnswerID]
		if !ok || a.IsCorrect != nil {
			continue
		}
		correct := sc.IsCorrect
		a.IsCorrect = &correct
		a.PointsAwarded = sc.Points
		r.s.answers[a.ID] = a
		applied++

		if p, ok := r.s.players[sc.PlayerID]; ok && sc.Points > 0 {
			p.Score += sc.Points
			r.s.players[p.ID] = p
		}
	}
	return applied, nil
}

func (r *AnswerRepo) DeleteByQuestion(ctx context.Context, questionID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, a := range r.s.answers {
		if a.QuestionID == questionID {
			delete(r.s.answers, id)
			n++
		}
	}
	return n, nil
}

func (r *AnswerRepo) DeleteAll(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.answers))
	r.s.answers = make(map[uint]entity.Answer)
	return n, nil
}

// ==== Eliminations ====

// EliminationRepo реализует repository.EliminationRepository
type EliminationRepo struct{ s *Store }

func (r *EliminationRepo) Apply(ctx context.Context, round *entity.EliminationRound, victims []uuid.UUID) (*entity.EliminationRound, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := eliminationKey{questionID: round.QuestionID, period: round.Period}
	if existing, ok := r.s.eliminations[key]; ok {
		return &existing, repository.ErrEliminationApplied
	}
	r.s.nextEliminationID++
	round.ID = r.s.nextEliminationID
	round.CreatedAt = time.Now()
	r.s.eliminations[key] = *round

	for _, id := range victims {
		if p, ok := r.s.players[id]; ok && p.IsEligible {
			p.IsEligible = false
			p.UpdatedAt = time.Now()
			r.s.players[id] = p
		}
	}
	return round, nil
}

func (r *EliminationRepo) DeleteByQuestion(ctx context.Context, questionID uint, period int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.eliminations, eliminationKey{questionID: questionID, period: period})
	return nil
}

func (r *EliminationRepo) DeleteAll(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.eliminations = make(map[eliminationKey]entity.EliminationRound)
	return nil
}

// ==== Presence ====

// PresenceRepo реализует repository.PresenceRepository
type PresenceRepo struct{ s *Store }

func (r *PresenceRepo) Touch(ctx context.Context, playerID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, existed := r.s.presence[playerID]
	r.s.presence[playerID] = at
	return !existed, nil
}

func (r *PresenceRepo) Remove(ctx context.Context, playerID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, existed := r.s.presence[playerID]
	delete(r.s.presence, playerID)
	return existed, nil
}

func (r *PresenceRepo) Online(ctx context.Context, since time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for id, at := range r.s.presence {
		if !at.Before(since) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *PresenceRepo) Prune(ctx context.Context, before time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for id, at := range r.s.presence {
		if at.Before(before) {
			delete(r.s.presence, id)
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

var (
	_ repository.GameStateRepository   = (*GameStateRepo)(nil)
	_ repository.QuestionRepository    = (*QuestionRepo)(nil)
	_ repository.PlayerRepository      = (*PlayerRepo)(nil)
	_ repository.AnswerRepository      = (*AnswerRepo)(nil)
	_ repository.EliminationRepository = (*EliminationRepo)(nil)
	_ repository.PresenceRepository    = (*PresenceRepo)(nil)
)
