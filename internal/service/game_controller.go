package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/domain/repository"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/internal/service/gamecore"
)

// commandTimeout ограничивает одну команду контроллера
const commandTimeout = 30 * time.Second

// AdvanceRequest - запрос оператора на следующую фазу
type AdvanceRequest struct {
	// From - фаза, из которой оператор нажал "далее". Несовпадение делает вызов пустым.
	From *entity.Phase
	// Confirm подтверждает выход из RANKING с выбыванием
	Confirm bool
}

// AdvanceResult - итог перехода
type AdvanceResult struct {
	Success       bool                        `json:"success"`
	Changed       bool                        `json:"changed"`
	PreviousPhase entity.Phase                `json:"previous_phase"`
	Phase         entity.Phase                `json:"phase"`
	Score         *gamecore.ScoreResult       `json:"score,omitempty"`
	Elimination   *gamecore.EliminationResult `json:"elimination,omitempty"`
	State         gamecore.StateView          `json:"state"`
}

// ReviveResult - итог возврата выбывших
type ReviveResult struct {
	Success      bool  `json:"success"`
	RevivedCount int64 `json:"revived_count"`
}

// ResetResult - итог сброса игры
type ResetResult struct {
	Success         bool  `json:"success"`
	WipedPlayers    bool  `json:"wiped_players"`
	AffectedPlayers int64 `json:"affected_players"`
	DeletedAnswers  int64 `json:"deleted_answers"`
}

// ResetAnswersResult - итог сброса ответов одного вопроса
type ResetAnswersResult struct {
	Success        bool  `json:"success"`
	QuestionID     uint  `json:"question_id"`
	DeletedAnswers int64 `json:"deleted_answers"`
}

// GameController ведет состояние игры.
// Команды выполняются по одной в горутине цикла, читатели получают снимок.
// Строка состояния в хранилище общая для всех экземпляров: каждая команда начинается
// с ее перечитывания, а запись проходит только при совпадении ревизии.
type GameController struct {
	deps       *gamecore.Dependencies
	config     *gamecore.Config
	clock      clockwork.Clock
	intake     *gamecore.AnswerIntake
	scorer     *gamecore.Scorer
	eliminator *gamecore.Eliminator
	autoLock   *gamecore.AutoLock

	commands chan func()
	snapshot atomic.Pointer[gamecore.Snapshot]
	started  atomic.Bool

	resyncPending atomic.Bool

	// Принадлежат горутине цикла
	state    *entity.GameState
	question *entity.Question

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewGameController создает контроллер. Работа начинается после Start.
func NewGameController(deps *gamecore.Dependencies) *GameController {
	if deps.Config == nil {
		deps.Config = gamecore.DefaultConfig()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())

	gc := &GameController{
		deps:       deps,
		config:     deps.Config,
		clock:      deps.Clock,
		intake:     gamecore.NewAnswerIntake(deps),
		scorer:     gamecore.NewScorer(deps),
		eliminator: gamecore.NewEliminator(deps),
		commands:   make(chan func(), deps.Config.CommandBuffer),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	gc.autoLock = gamecore.NewAutoLock(deps.Clock, deps.Config.AutoLockGrace, gc.onAutoLock)
	return gc
}

// Start загружает сохраненное состояние, восстанавливает таймер и запускает цикл
func (gc *GameController) Start(ctx context.Context) error {
	if !gc.started.CompareAndSwap(false, true) {
		return fmt.Errorf("game controller already started")
	}

	state, err := gc.deps.GameStateRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("load game state: %w", err)
	}

	question, err := gc.loadQuestion(ctx, state)
	if err != nil {
		return err
	}
	if state.CurrentQuestionID != nil && question == nil {
		log.Printf("[GameController] Текущий вопрос #%d не найден, состояние сброшено в IDLE", *state.CurrentQuestionID)
		state.Phase = entity.PhaseIdle
		state.CurrentQuestionID = nil
		state.StartTimestamp = 0
		err := gc.deps.GameStateRepo.Save(ctx, state)
		if errors.Is(err, repository.ErrStaleGameState) {
			// Другой экземпляр успел записать свое состояние, берем его
			if state, err = gc.deps.GameStateRepo.Get(ctx); err == nil {
				question, err = gc.loadQuestion(ctx, state)
			}
		}
		if err != nil {
			return fmt.Errorf("repair game state: %w", err)
		}
	}

	gc.state = state
	gc.question = question
	gc.storeSnapshot()

	// Таймер взводится до старта цикла: его срабатывание дождется очереди команд
	gc.reconcileTimer()
	go gc.loop()

	if gc.config.StateBroadcastInterval > 0 {
		go gc.resyncLoop(gc.config.StateBroadcastInterval)
	}

	log.Printf("[GameController] Запущен: фаза %s, вопрос #%d, период %d", state.Phase, state.QuestionID(), state.Period)
	return nil
}

// Shutdown останавливает цикл и таймер
func (gc *GameController) Shutdown() {
	gc.cancel()
	gc.autoLock.Cancel()
	if gc.started.Load() {
		<-gc.done
	}
	log.Println("[GameController] Остановлен")
}

func (gc *GameController) loop() {
	defer close(gc.done)
	for {
		select {
		case <-gc.ctx.Done():
			return
		case cmd := <-gc.commands:
			cmd()
		}
	}
}

// exec выполняет fn в горутине цикла и ждет результата.
// Команда доводится до конца, даже если вызывающий перестал ждать.
func (gc *GameController) exec(ctx context.Context, fn func(ctx context.Context) error) error {
	errCh := make(chan error, 1)
	cmd := func() {
		cmdCtx, cancel := context.WithTimeout(gc.ctx, commandTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[GameController] PANIC в команде: %v\n%s", r, debug.Stack())
				errCh <- fmt.Errorf("command panicked: %v", r)
			}
		}()
		if err := gc.reload(cmdCtx); err != nil {
			errCh <- err
			return
		}
		errCh <- fn(cmdCtx)
	}

	select {
	case gc.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-gc.ctx.Done():
		return apperrors.ErrUnavailable
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-gc.done:
		return apperrors.ErrUnavailable
	}
}

// Snapshot возвращает текущий снимок состояния
func (gc *GameController) Snapshot() *gamecore.Snapshot {
	if s := gc.snapshot.Load(); s != nil {
		return s
	}
	return &gamecore.Snapshot{State: *entity.NewGameState()}
}

// State возвращает состояние для клиентов
func (gc *GameController) State() gamecore.StateView {
	return gc.Snapshot().View(gc.ServerTime())
}

// CurrentPhase возвращает фазу из последнего снимка
func (gc *GameController) CurrentPhase() entity.Phase {
	return gc.Snapshot().State.Phase
}

// ServerTime - серверное время в мс от эпохи
func (gc *GameController) ServerTime() int64 {
	return gamecore.ServerTimeMs(gc.clock)
}

// SubmitAnswer принимает ответ, минуя очередь команд.
// Фаза сверяется со строкой в хранилище: раунд мог открыть другой экземпляр.
func (gc *GameController) SubmitAnswer(ctx context.Context, sub gamecore.Submission) (*gamecore.IntakeResult, error) {
	snap, err := gc.StoredSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return gc.intake.Submit(ctx, snap, sub)
}

// Resync перечитывает состояние из хранилища и ждет завершения
func (gc *GameController) Resync(ctx context.Context) error {
	return gc.exec(ctx, func(ctx context.Context) error { return nil })
}

// RequestResync ставит перечитывание в очередь без ожидания.
// Повторные запросы, пока предыдущий не выполнен, склеиваются.
func (gc *GameController) RequestResync() {
	if !gc.resyncPending.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer gc.resyncPending.Store(false)
		err := gc.Resync(gc.ctx)
		if err != nil && !errors.Is(err, apperrors.ErrUnavailable) && !errors.Is(err, context.Canceled) {
			log.Printf("[GameController] Не удалось перечитать состояние: %v", err)
		}
	}()
}

// StoredSnapshot возвращает снимок по строке из хранилища.
// Если ревизия совпадает с локальной, используется готовый снимок.
func (gc *GameController) StoredSnapshot(ctx context.Context) (*gamecore.Snapshot, error) {
	snap := gc.Snapshot()
	stored, err := gc.deps.GameStateRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load game state: %w", err)
	}
	if stored.Revision == snap.State.Revision {
		return snap, nil
	}

	gc.RequestResync()
	question, err := gc.loadQuestion(ctx, stored)
	if err != nil {
		return nil, err
	}
	return &gamecore.Snapshot{State: *stored, Question: question}, nil
}

// AdvancePhase переводит игру в следующую фазу цикла.
// Вход в DISTRIBUTION запускает оценку, выход из RANKING - выбывание и IDLE.
func (gc *GameController) AdvancePhase(ctx context.Context, req AdvanceRequest) (*AdvanceResult, error) {
	var result *AdvanceResult
	err := gc.exec(ctx, func(ctx context.Context) error {
		cur := gc.state
		res := &AdvanceResult{Success: true, PreviousPhase: cur.Phase, Phase: cur.Phase}

		if req.From != nil && *req.From != cur.Phase {
			// Повтор уже выполненного нажатия
			res.State = gc.viewLocked()
			result = res
			return nil
		}
		if !cur.Phase.InCycle() {
			return fmt.Errorf("%w: phase %s is outside the round cycle", apperrors.ErrConflict, cur.Phase)
		}

		if cur.Phase == entity.PhaseRanking {
			if !req.Confirm {
				return apperrors.ErrConfirmationRequired
			}
			if gc.question == nil {
				return fmt.Errorf("%w: no current question to eliminate on", apperrors.ErrConflict)
			}
			elim, err := gc.eliminator.Eliminate(ctx, gc.question, cur.Period)
			if err != nil {
				return err
			}
			gc.notifyElimination(elim)

			next := cur.Clone()
			next.Phase = entity.PhaseIdle
			next.CurrentQuestionID = nil
			next.StartTimestamp = 0
			if err := gc.commit(ctx, next, nil); err != nil {
				return err
			}
			res.Changed = true
			res.Phase = next.Phase
			res.Elimination = elim
			res.State = gc.viewLocked()
			result = res
			return nil
		}

		nextPhase, ok := cur.Phase.Next()
		if !ok {
			return fmt.Errorf("%w: no transition from %s", apperrors.ErrConflict, cur.Phase)
		}
		if gc.question == nil {
			return fmt.Errorf("%w: select a question first", apperrors.ErrConflict)
		}

		if nextPhase == entity.PhaseDistribution {
			// При ошибке оценки фаза остается LOCKED
			score, err := gc.scorer.Score(ctx, gc.question)
			if err != nil {
				return err
			}
			res.Score = score
			gc.notifyScored(score)
		}

		next := cur.Clone()
		next.Phase = nextPhase
		if nextPhase == entity.PhaseActive {
			next.StartTimestamp = gc.ServerTime()
		}
		if err := gc.commit(ctx, next, gc.question); err != nil {
			return err
		}
		res.Changed = true
		res.Phase = nextPhase
		res.State = gc.viewLocked()
		result = res
		return nil
	})
	return result, err
}

// SelectQuestion делает вопрос текущим, сбрасывает его ответы и переводит игру в INTRO
func (gc *GameController) SelectQuestion(ctx context.Context, questionID uint) (*gamecore.StateView, error) {
	var view gamecore.StateView
	err := gc.exec(ctx, func(ctx context.Context) error {
		question, err := gc.deps.QuestionRepo.GetByID(ctx, questionID)
		if err != nil {
			return err
		}
		if _, err := gc.purgeAnswers(ctx, questionID); err != nil {
			return err
		}

		id := question.ID
		next := gc.state.Clone()
		next.Phase = entity.PhaseIntro
		next.CurrentQuestionID = &id
		next.StartTimestamp = 0
		if err := gc.commit(ctx, next, question); err != nil {
			return err
		}
		view = gc.viewLocked()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Score оценивает ответы на вопрос. Повторный вызов безопасен.
func (gc *GameController) Score(ctx context.Context, questionID uint) (*gamecore.ScoreResult, error) {
	var result *gamecore.ScoreResult
	err := gc.exec(ctx, func(ctx context.Context) error {
		question, err := gc.questionLocked(ctx, questionID)
		if err != nil {
			return err
		}
		result, err = gc.scorer.Score(ctx, question)
		if err != nil {
			return err
		}
		gc.notifyScored(result)
		return nil
	})
	return result, err
}

// Eliminate применяет выбывание по вопросу, не более раза в периоде
func (gc *GameController) Eliminate(ctx context.Context, questionID uint) (*gamecore.EliminationResult, error) {
	var result *gamecore.EliminationResult
	err := gc.exec(ctx, func(ctx context.Context) error {
		question, err := gc.questionLocked(ctx, questionID)
		if err != nil {
			return err
		}
		result, err = gc.eliminator.Eliminate(ctx, question, gc.state.Period)
		if err != nil {
			return err
		}
		gc.notifyElimination(result)
		return nil
	})
	return result, err
}

// ReviveAll возвращает всех выбывших в игру и открывает новый период
func (gc *GameController) ReviveAll(ctx context.Context) (*ReviveResult, error) {
	var result *ReviveResult
	err := gc.exec(ctx, func(ctx context.Context) error {
		n, err := gc.deps.PlayerRepo.ReviveAll(ctx)
		if err != nil {
			return fmt.Errorf("revive players: %w", err)
		}
		next := gc.state.Clone()
		next.Period++
		if err := gc.commit(ctx, next, gc.question); err != nil {
			return err
		}
		log.Printf("[GameController] Возвращено игроков: %d, период %d", n, next.Period)
		gc.deps.Publisher.Publish(gamecore.TopicPlayers, gamecore.EventPlayersBulkUpdated, map[string]interface{}{
			"reason":        "revived",
			"revived_count": n,
		})
		result = &ReviveResult{Success: true, RevivedCount: n}
		return nil
	})
	return result, err
}

// ResetGame очищает ответы, обнуляет или удаляет игроков и возвращает игру в IDLE
func (gc *GameController) ResetGame(ctx context.Context, wipePlayers bool) (*ResetResult, error) {
	var result *ResetResult
	err := gc.exec(ctx, func(ctx context.Context) error {
		deleted, err := gc.deps.AnswerRepo.DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("delete answers: %w", err)
		}
		if err := gc.deps.EliminationRepo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("delete elimination rounds: %w", err)
		}

		var affected int64
		if wipePlayers {
			affected, err = gc.deps.PlayerRepo.DeleteAll(ctx)
		} else {
			affected, err = gc.deps.PlayerRepo.ResetAll(ctx)
		}
		if err != nil {
			return fmt.Errorf("reset players: %w", err)
		}

		next := gc.state.Clone()
		next.Phase = entity.PhaseIdle
		next.CurrentQuestionID = nil
		next.StartTimestamp = 0
		next.Period++
		if err := gc.commit(ctx, next, nil); err != nil {
			return err
		}

		reason := "reset"
		if wipePlayers {
			reason = "wiped"
		}
		log.Printf("[GameController] Игра сброшена (%s): игроков %d, ответов удалено %d", reason, affected, deleted)
		gc.deps.Publisher.Publish(gamecore.TopicPlayers, gamecore.EventPlayersBulkUpdated, map[string]interface{}{
			"reason": reason,
		})
		result = &ResetResult{Success: true, WipedPlayers: wipePlayers, AffectedPlayers: affected, DeletedAnswers: deleted}
		return nil
	})
	return result, err
}

// ResetQuestionAnswers удаляет ответы на вопрос, не меняя фазу
func (gc *GameController) ResetQuestionAnswers(ctx context.Context, questionID uint) (*ResetAnswersResult, error) {
	var result *ResetAnswersResult
	err := gc.exec(ctx, func(ctx context.Context) error {
		if _, err := gc.questionLocked(ctx, questionID); err != nil {
			return err
		}
		deleted, err := gc.purgeAnswers(ctx, questionID)
		if err != nil {
			return err
		}
		result = &ResetAnswersResult{Success: true, QuestionID: questionID, DeletedAnswers: deleted}
		return nil
	})
	return result, err
}

// EditQuestion выполняет apply, если вопрос не участвует в идущем раунде.
// apply возвращает новую версию вопроса или nil, если вопрос удален.
func (gc *GameController) EditQuestion(ctx context.Context, questionID uint, apply func(ctx context.Context) (*entity.Question, error)) error {
	return gc.exec(ctx, func(ctx context.Context) error {
		if gc.state.IsCurrentQuestion(questionID) && gc.state.Phase != entity.PhaseIdle {
			return fmt.Errorf("%w: question #%d is in play (%s)", apperrors.ErrConflict, questionID, gc.state.Phase)
		}
		updated, err := apply(ctx)
		if err != nil {
			return err
		}
		if !gc.state.IsCurrentQuestion(questionID) {
			return nil
		}
		next := gc.state.Clone()
		if updated == nil {
			next.CurrentQuestionID = nil
		}
		// Запись поднимает ревизию, и остальные экземпляры перечитают вопрос
		return gc.commit(ctx, next, updated)
	})
}

// ==== внутреннее, только из горутины цикла ====

// commit сохраняет состояние и только после успешной записи делает его текущим
func (gc *GameController) commit(ctx context.Context, next *entity.GameState, question *entity.Question) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConflict, err)
	}
	if err := gc.deps.GameStateRepo.Save(ctx, next); err != nil {
		if errors.Is(err, repository.ErrStaleGameState) {
			if reloadErr := gc.reload(ctx); reloadErr != nil {
				log.Printf("[GameController] Не удалось перечитать состояние после конфликта: %v", reloadErr)
			}
			return fmt.Errorf("%w: game state was changed by another instance, retry", apperrors.ErrConflict)
		}
		return fmt.Errorf("save game state: %w", err)
	}

	prev := gc.state
	gc.state = next
	gc.question = question
	gc.storeSnapshot()
	gc.reconcileTimer()

	if prev == nil || prev.Phase != next.Phase || prev.QuestionID() != next.QuestionID() {
		log.Printf("[GameController] Фаза %s → %s (вопрос #%d)", phaseOf(prev), next.Phase, next.QuestionID())
	}
	gc.broadcastState()
	return nil
}

// reload подхватывает состояние, записанное другим экземпляром
func (gc *GameController) reload(ctx context.Context) error {
	stored, err := gc.deps.GameStateRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("load game state: %w", err)
	}
	if gc.state != nil && stored.Revision == gc.state.Revision {
		return nil
	}
	question, err := gc.loadQuestion(ctx, stored)
	if err != nil {
		return err
	}

	if gc.state != nil && !gc.state.Equal(stored) {
		log.Printf("[GameController] Состояние изменено другим экземпляром: %s → %s (вопрос #%d)", gc.state.Phase, stored.Phase, stored.QuestionID())
	}
	gc.state = stored
	gc.question = question
	gc.storeSnapshot()
	gc.reconcileTimer()
	return nil
}

func (gc *GameController) loadQuestion(ctx context.Context, state *entity.GameState) (*entity.Question, error) {
	if state.CurrentQuestionID == nil {
		return nil, nil
	}
	question, err := gc.deps.QuestionRepo.GetByID(ctx, *state.CurrentQuestionID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load current question: %w", err)
	}
	return question, nil
}

func (gc *GameController) storeSnapshot() {
	gc.snapshot.Store(&gamecore.Snapshot{
		State:    *gc.state.Clone(),
		Question: gc.question,
	})
}

func (gc *GameController) viewLocked() gamecore.StateView {
	return gc.Snapshot().View(gc.ServerTime())
}

func (gc *GameController) broadcastState() {
	gc.deps.Publisher.Publish(gamecore.TopicGameState, gamecore.EventGameState, gc.viewLocked())
}

// reconcileTimer держит таймер в соответствии с состоянием: взведен только в ACTIVE
func (gc *GameController) reconcileTimer() {
	if gc.state.Phase == entity.PhaseActive && gc.question != nil {
		gc.autoLock.Arm(gamecore.LockKey{
			QuestionID:     gc.question.ID,
			StartTimestamp: gc.state.StartTimestamp,
		}, gc.question.TimeLimit())
		return
	}
	gc.autoLock.Cancel()
}

// onAutoLock вызывается таймером из своей горутины
func (gc *GameController) onAutoLock(key gamecore.LockKey) {
	err := gc.exec(gc.ctx, func(ctx context.Context) error {
		cur := gc.state
		if cur.Phase != entity.PhaseActive || !cur.IsCurrentQuestion(key.QuestionID) || cur.StartTimestamp != key.StartTimestamp {
			log.Printf("[AutoLock] Срабатывание для вопроса #%d устарело, пропускаем", key.QuestionID)
			return nil
		}
		next := cur.Clone()
		next.Phase = entity.PhaseLocked
		return gc.commit(ctx, next, gc.question)
	})
	switch {
	case err == nil, errors.Is(err, apperrors.ErrUnavailable), errors.Is(err, context.Canceled):
	case errors.Is(err, apperrors.ErrConflict):
		log.Printf("[AutoLock] Окно вопроса #%d уже закрыто другим экземпляром", key.QuestionID)
	default:
		log.Printf("[AutoLock] Не удалось закрыть прием ответов на вопрос #%d: %v", key.QuestionID, err)
	}
}

func (gc *GameController) questionLocked(ctx context.Context, questionID uint) (*entity.Question, error) {
	if gc.question != nil && gc.question.ID == questionID {
		return gc.question, nil
	}
	return gc.deps.QuestionRepo.GetByID(ctx, questionID)
}

// purgeAnswers удаляет ответы вопроса и снимает отметку о выбывании по нему
func (gc *GameController) purgeAnswers(ctx context.Context, questionID uint) (int64, error) {
	deleted, err := gc.deps.AnswerRepo.DeleteByQuestion(ctx, questionID)
	if err != nil {
		return 0, fmt.Errorf("delete answers for question #%d: %w", questionID, err)
	}
	if err := gc.deps.EliminationRepo.DeleteByQuestion(ctx, questionID, gc.state.Period); err != nil {
		return 0, fmt.Errorf("reopen elimination for question #%d: %w", questionID, err)
	}
	if deleted > 0 {
		log.Printf("[GameController] Удалено ответов на вопрос #%d: %d", questionID, deleted)
	}
	gc.deps.Publisher.Publish(gamecore.AnswersTopic(questionID), gamecore.EventAnswersChanged, map[string]interface{}{
		"question_id": questionID,
		"reset":       true,
	})
	return deleted, nil
}

func (gc *GameController) notifyScored(res *gamecore.ScoreResult) {
	if res.NewlyScored == 0 {
		return
	}
	gc.deps.Publisher.Publish(gamecore.TopicPlayers, gamecore.EventPlayersBulkUpdated, map[string]interface{}{
		"reason":        "scored",
		"question_id":   res.QuestionID,
		"correct_count": res.CorrectCount,
	})
}

func (gc *GameController) notifyElimination(res *gamecore.EliminationResult) {
	if res.AlreadyApplied {
		return
	}
	gc.deps.Publisher.Publish(gamecore.TopicPlayers, gamecore.EventPlayersBulkUpdated, map[string]interface{}{
		"reason":           "eliminated",
		"question_id":      res.QuestionID,
		"eliminated_count": res.EliminatedCount,
		"remaining_count":  res.RemainingCount,
	})
	for _, id := range res.Victims {
		gc.deps.Publisher.SendToPlayer(id.String(), gamecore.EventPlayerUpdated, map[string]interface{}{
			"id":          id,
			"is_eligible": false,
		})
	}
}

// resyncLoop периодически повторяет рассылку состояния для клиентов, пропустивших событие
func (gc *GameController) resyncLoop(interval time.Duration) {
	ticker := gc.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-gc.ctx.Done():
			return
		case <-ticker.Chan():
			// Через очередь: перед рассылкой состояние сверяется с хранилищем
			err := gc.exec(gc.ctx, func(ctx context.Context) error {
				gc.broadcastState()
				return nil
			})
			if err != nil && !errors.Is(err, apperrors.ErrUnavailable) && !errors.Is(err, context.Canceled) {
				log.Printf("[GameController] Периодическая рассылка не удалась: %v", err)
			}
		}
	}
}

func phaseOf(s *entity.GameState) entity.Phase {
	if s == nil {
		return ""
	}
	return s.Phase
}
