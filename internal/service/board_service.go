package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/internal/service/gamecore"
)

// boardCacheTTL - короткий кеш, чтобы десятки экранов не били в базу одновременно
const boardCacheTTL = time.Second

// Distribution - число ответов по вариантам среди присутствующих
type Distribution struct {
	QuestionID uint           `json:"question_id"`
	Phase      entity.Phase   `json:"phase"`
	Counts     map[string]int `json:"counts"`
	Total      int            `json:"total"`
}

// RankingEntry - строка рейтинга быстрых правильных ответов
type RankingEntry struct {
	Rank        int       `json:"rank"`
	PlayerID    uuid.UUID `json:"player_id"`
	DisplayName string    `json:"display_name"`
	LatencyMs   int64     `json:"latency_ms"`
}

// RankingPage - страница рейтинга
type RankingPage struct {
	QuestionID uint           `json:"question_id"`
	Page       int            `json:"page"`
	Pages      int            `json:"pages"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	Entries    []RankingEntry `json:"entries"`
}

// BoardService строит данные для большого экрана
type BoardService struct {
	controller   *GameController
	answerRepo   repository.AnswerRepository
	playerRepo   repository.PlayerRepository
	presenceRepo repository.PresenceRepository
	cacheRepo    repository.BoardCacheRepository
	config       *gamecore.Config
}

// NewBoardService создает сервис экрана. cacheRepo может быть nil.
func NewBoardService(
	controller *GameController,
	answerRepo repository.AnswerRepository,
	playerRepo repository.PlayerRepository,
	presenceRepo repository.PresenceRepository,
	cacheRepo repository.BoardCacheRepository,
	config *gamecore.Config,
) *BoardService {
	return &BoardService{
		controller:   controller,
		answerRepo:   answerRepo,
		playerRepo:   playerRepo,
		presenceRepo: presenceRepo,
		cacheRepo:    cacheRepo,
		config:       config,
	}
}

// OnlinePlayers возвращает id игроков, присутствующих сейчас
func (s *BoardService) OnlinePlayers(ctx context.Context) ([]string, error) {
	since := s.controller.clock.Now().Add(-s.config.PresenceWindow())
	online, err := s.presenceRepo.Online(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load presence: %w", err)
	}
	if online == nil {
		online = []string{}
	}
	return online, nil
}

// Distribution считает ответы по вариантам. Вне DISTRIBUTION/REVEAL возвращает пустую карту.
func (s *BoardService) Distribution(ctx context.Context) (*Distribution, error) {
	snap := s.controller.Snapshot()
	res := &Distribution{
		QuestionID: snap.State.QuestionID(),
		Phase:      snap.State.Phase,
		Counts:     map[string]int{},
	}
	if !snap.State.Phase.ShowsDistribution() || snap.Question == nil {
		return res, nil
	}

	key := repository.BoardKey{View: "distribution", QuestionID: res.QuestionID, StartTimestamp: snap.State.StartTimestamp}
	if s.fromCache(ctx, key, res) {
		res.Phase = snap.State.Phase
		return res, nil
	}

	answers, present, err := s.presentAnswers(ctx, res.QuestionID)
	if err != nil {
		return nil, err
	}
	for _, opt := range snap.Question.Options {
		res.Counts[opt.ID] = 0
	}
	for _, a := range answers {
		if _, ok := present[a.PlayerID.String()]; !ok {
			continue
		}
		res.Counts[entity.OptionKey(a.AnswerValue)]++
		res.Total++
	}

	s.toCache(ctx, key, res)
	return res, nil
}

// Ranking возвращает страницу правильных ответов по возрастанию задержки.
// Доступен только в REVEAL и RANKING.
func (s *BoardService) Ranking(ctx context.Context, page int) (*RankingPage, error) {
	snap := s.controller.Snapshot()
	pageSize := s.config.RankingPageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if page < 1 {
		page = 1
	}
	res := &RankingPage{
		QuestionID: snap.State.QuestionID(),
		Page:       page,
		PageSize:   pageSize,
		Entries:    []RankingEntry{},
	}
	// До REVEAL рейтинг выдал бы правильный ответ
	if snap.Question == nil || !snap.State.Phase.RevealsAnswer() {
		return res, nil
	}

	key := repository.BoardKey{View: "ranking", QuestionID: res.QuestionID, StartTimestamp: snap.State.StartTimestamp, Page: page}
	if s.fromCache(ctx, key, res) {
		return res, nil
	}

	answers, present, err := s.presentAnswers(ctx, res.QuestionID)
	if err != nil {
		return nil, err
	}

	var correct []entity.Answer
	for _, a := range answers {
		if _, ok := present[a.PlayerID.String()]; !ok {
			continue
		}
		if gamecore.AnsweredCorrectly(a, snap.Question) {
			correct = append(correct, a)
		}
	}
	sort.SliceStable(correct, func(i, j int) bool {
		if correct[i].LatencyMs != correct[j].LatencyMs {
			return correct[i].LatencyMs < correct[j].LatencyMs
		}
		return correct[i].CreatedAt.Before(correct[j].CreatedAt)
	})

	res.Total = len(correct)
	res.Pages = (len(correct) + pageSize - 1) / pageSize
	from := (page - 1) * pageSize
	if from >= len(correct) {
		s.toCache(ctx, key, res)
		return res, nil
	}
	to := from + pageSize
	if to > len(correct) {
		to = len(correct)
	}
	slice := correct[from:to]

	ids := make([]uuid.UUID, len(slice))
	for i, a := range slice {
		ids[i] = a.PlayerID
	}
	players, err := s.playerRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load ranking players: %w", err)
	}
	names := make(map[uuid.UUID]string, len(players))
	for _, p := range players {
		names[p.ID] = p.DisplayName
	}

	for i, a := range slice {
		res.Entries = append(res.Entries, RankingEntry{
			Rank:        from + i + 1,
			PlayerID:    a.PlayerID,
			DisplayName: names[a.PlayerID],
			LatencyMs:   a.LatencyMs,
		})
	}

	s.toCache(ctx, key, res)
	return res, nil
}

func (s *BoardService) presentAnswers(ctx context.Context, questionID uint) ([]entity.Answer, map[string]struct{}, error) {
	answers, err := s.answerRepo.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load answers: %w", err)
	}
	online, err := s.OnlinePlayers(ctx)
	if err != nil {
		return nil, nil, err
	}
	present := make(map[string]struct{}, len(online))
	for _, id := range online {
		present[id] = struct{}{}
	}
	return answers, present, nil
}

func (s *BoardService) fromCache(ctx context.Context, key repository.BoardKey, dest interface{}) bool {
	if s.cacheRepo == nil {
		return false
	}
	err := s.cacheRepo.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		log.Printf("[BoardService] Ошибка чтения кеша %s/%d: %v", key.View, key.QuestionID, err)
	}
	return false
}

func (s *BoardService) toCache(ctx context.Context, key repository.BoardKey, value interface{}) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Put(ctx, key, value, boardCacheTTL); err != nil {
		log.Printf("[BoardService] Ошибка записи кеша %s/%d: %v", key.View, key.QuestionID, err)
	}
}
