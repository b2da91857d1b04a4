package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/handler/dto"
	"github.com/yourusername/survival-quiz/internal/middleware"
	"github.com/yourusername/survival-quiz/internal/repository/memory"
	"github.com/yourusername/survival-quiz/internal/service"
	"github.com/yourusername/survival-quiz/internal/service/gamecore"
	"github.com/yourusername/survival-quiz/internal/websocket"
	"github.com/yourusername/survival-quiz/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// Окружение для тестов обработчиков
// ============================================================================

// nopPublisher глотает события
type nopPublisher struct{}

func (nopPublisher) Publish(topic string, eventType string, data interface{})         {}
func (nopPublisher) SendToPlayer(playerID string, eventType string, data interface{}) {}

type testServer struct {
	router     *gin.Engine
	store      *memory.Store
	clock      *clockwork.FakeClock
	controller *service.GameController
	tickets    *auth.TicketService
}

func newTestServer(t *testing.T, adminKey string) *testServer {
	t.Helper()
	store := memory.NewStore()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
	config := gamecore.DefaultConfig()
	publisher := nopPublisher{}

	controller := service.NewGameController(&gamecore.Dependencies{
		GameStateRepo:   store.GameStates,
		QuestionRepo:    store.Questions,
		PlayerRepo:      store.Players,
		AnswerRepo:      store.Answers,
		EliminationRepo: store.Eliminations,
		Publisher:       publisher,
		Clock:           clock,
		Config:          config,
	})
	require.NoError(t, controller.Start(context.Background()))
	t.Cleanup(controller.Shutdown)

	tickets, err := auth.NewTicketService("handler-test-secret", time.Hour)
	require.NoError(t, err)
	hash := ""
	if adminKey != "" {
		hash, err = auth.HashAdminKey(adminKey)
		require.NoError(t, err)
	}
	adminKeyChecker, err := auth.NewAdminKeyChecker(hash)
	require.NoError(t, err)

	presence := service.NewPresenceService(store.Presence, publisher, clock, config)
	h := Handlers{
		Admin: NewAdminHandler(controller, service.NewReportService(store.Players, nil, nil), tickets, adminKeyChecker),
		Player: NewPlayerHandler(
			service.NewPlayerService(store.Players, store.Answers, controller, publisher),
			controller,
			tickets,
		),
		Screen: NewScreenHandler(
			controller,
			service.NewBoardService(controller, store.Answers, store.Players, store.Presence, nil, config),
			presence,
			tickets,
		),
		Question: NewQuestionHandler(service.NewQuestionService(store.Questions, controller, publisher, config)),
	}

	router := gin.New()
	RegisterRoutes(router, h, middleware.NewAuthMiddleware(tickets, adminKeyChecker), middleware.NewRateLimiter(nil))

	return &testServer{router: router, store: store, clock: clock, controller: controller, tickets: tickets}
}

func (s *testServer) do(t *testing.T, method, path, ticket string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ticket != "" {
		req.Header.Set("Authorization", "Bearer "+ticket)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), "Тело ответа: %s", w.Body.String())
}

func (s *testServer) createQuestion(t *testing.T, ticket string) uint {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/questions", ticket, map[string]interface{}{
		"type": "choice2",
		"text": "Земля круглая?",
		"options": []map[string]string{
			{"id": "yes", "label": "Да"},
			{"id": "no", "label": "Нет"},
		},
		"correct_answer": "yes",
		"time_limit_sec": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var q entity.Question
	decode(t, w, &q)
	return q.ID
}

func (s *testServer) register(t *testing.T, name string) dto.RegisterPlayerResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/players", "", dto.RegisterPlayerRequest{DisplayName: name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.RegisterPlayerResponse
	decode(t, w, &resp)
	return resp
}

func (s *testServer) advance(t *testing.T, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/admin/phase/advance", "", body)
}

func (s *testServer) advanceTo(t *testing.T, phase entity.Phase) {
	t.Helper()
	w := s.advance(t, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.AdvanceResult
	decode(t, w, &res)
	require.Equal(t, phase, res.Phase)
}

// ============================================================================
// Тесты
// ============================================================================

func TestHandlers_FullRound(t *testing.T) {
	// Arrange
	s := newTestServer(t, "")
	questionID := s.createQuestion(t, "")
	fast := s.register(t, "Быстрый")
	slow := s.register(t, "Медленный")

	w := s.do(t, http.MethodPost, "/api/admin/questions/"+itoa(questionID)+"/select", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.advanceTo(t, entity.PhaseActive)
	start := s.controller.Snapshot().State.StartTimestamp

	// Act: ответы игроков
	answer := func(player dto.RegisterPlayerResponse, afterMs int64) *httptest.ResponseRecorder {
		return s.do(t, http.MethodPost, "/api/answers", player.Ticket, dto.SubmitAnswerRequest{
			QuestionID:      questionID,
			AnswerValue:     entity.AnswerValue{Choice: "yes"},
			ClientTimestamp: start + afterMs,
		})
	}
	first := answer(fast, 800)
	second := answer(slow, 2500)
	duplicate := answer(fast, 900)

	// Assert: прием ответов
	assert.Equal(t, http.StatusAccepted, first.Code, first.Body.String())
	assert.Equal(t, http.StatusAccepted, second.Code)
	assert.Equal(t, http.StatusOK, duplicate.Code, "Повтор - не ошибка")
	var dup gamecore.IntakeResult
	decode(t, duplicate, &dup)
	assert.Equal(t, gamecore.OutcomeRejectedDuplicate, dup.Outcome)

	// Act: раунд до RANKING
	s.advanceTo(t, entity.PhaseLocked)
	s.advanceTo(t, entity.PhaseDistribution)
	s.advanceTo(t, entity.PhaseReveal)
	s.advanceTo(t, entity.PhaseRanking)

	// Assert: выход из RANKING требует подтверждения
	w = s.advance(t, dto.AdvancePhaseRequest{})
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.Contains(t, w.Body.String(), "confirmation_required")

	w = s.advance(t, dto.AdvancePhaseRequest{Confirm: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.AdvanceResult
	decode(t, w, &res)
	assert.Equal(t, entity.PhaseIdle, res.Phase)
	require.NotNil(t, res.Elimination)
	assert.Equal(t, 1, res.Elimination.EliminatedCount, "Самый медленный из двух выбывает")

	// Assert: состояние медленного игрока
	w = s.do(t, http.MethodGet, "/api/players/"+slow.ID.String()+"/state", slow.Ticket, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var state service.PlayerState
	decode(t, w, &state)
	assert.False(t, state.Player.IsEligible, "Медленный игрок выбыл")
}

func TestHandlers_AdvanceWithStaleFromIsNoop(t *testing.T) {
	s := newTestServer(t, "")
	questionID := s.createQuestion(t, "")
	w := s.do(t, http.MethodPost, "/api/admin/questions/"+itoa(questionID)+"/select", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	from := "idle"
	w = s.advance(t, dto.AdvancePhaseRequest{From: &from})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.AdvanceResult
	decode(t, w, &res)
	assert.False(t, res.Changed, "Повтор нажатия ничего не меняет")
	assert.Equal(t, entity.PhaseIntro, res.Phase)

	bad := "SOMEWHERE"
	w = s.advance(t, dto.AdvancePhaseRequest{From: &bad})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandlers_AnswerForAnotherPlayerIsForbidden(t *testing.T) {
	s := newTestServer(t, "")
	alice := s.register(t, "Алиса")
	bob := s.register(t, "Боб")

	w := s.do(t, http.MethodPost, "/api/answers", alice.Ticket, dto.SubmitAnswerRequest{
		PlayerID:        bob.ID.String(),
		QuestionID:      1,
		AnswerValue:     entity.AnswerValue{Choice: "yes"},
		ClientTimestamp: 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/answers", "", dto.SubmitAnswerRequest{QuestionID: 1, ClientTimestamp: 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "Без билета ответ не принимается")

	w = s.do(t, http.MethodGet, "/api/players/"+bob.ID.String()+"/state", alice.Ticket, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "Чужое состояние недоступно")
}

func TestHandlers_QuestionImmutableDuringRound(t *testing.T) {
	s := newTestServer(t, "")
	questionID := s.createQuestion(t, "")
	w := s.do(t, http.MethodPost, "/api/admin/questions/"+itoa(questionID)+"/select", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/questions/"+itoa(questionID), "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/questions/999/select", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlers_ImportQuestionsFromYAML(t *testing.T) {
	s := newTestServer(t, "")
	yamlBody := `questions:
  - type: choice4
    text: "Столица Франции?"
    options:
      - {id: a, label: Париж}
      - {id: b, label: Лион}
      - {id: c, label: Ницца}
      - {id: d, label: Марсель}
    correct_answer: a
`
	req := httptest.NewRequest(http.MethodPost, "/api/questions/import", strings.NewReader(yamlBody))
	req.Header.Set("Content-Type", "application/x-yaml")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res dto.ImportResponse
	decode(t, w, &res)
	assert.Equal(t, 1, res.Imported)

	w = s.do(t, http.MethodGet, "/api/questions", "", nil)
	var list dto.QuestionListResponse
	decode(t, w, &list)
	assert.Equal(t, 1, list.Total)
}

func TestHandlers_AdminKeyGuardsControlSurface(t *testing.T) {
	// Arrange
	s := newTestServer(t, "operator-key")

	// Act & Assert
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/admin/state", "", nil).Code)

	w := s.do(t, http.MethodPost, "/api/admin/session", "", dto.SessionRequest{Key: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/session", "", dto.SessionRequest{Key: "operator-key"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session dto.SessionResponse
	decode(t, w, &session)
	assert.Equal(t, auth.RoleAdmin, session.Role)

	w = s.do(t, http.MethodGet, "/api/admin/state", session.Ticket, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	player := s.register(t, "Игрок")
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/admin/state", player.Ticket, nil).Code)
}

func TestHandlers_ScreenEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/api/time", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tm dto.ServerTimeResponse
	decode(t, w, &tm)
	assert.Equal(t, s.clock.Now().UnixMilli(), tm.ServerTime)

	w = s.do(t, http.MethodGet, "/api/screen/distribution", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dist service.Distribution
	decode(t, w, &dist)
	assert.Empty(t, dist.Counts, "В IDLE распределение пустое")

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/screen/ranking?page=0", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/screen/ranking?page=1", "", nil).Code)

	w = s.do(t, http.MethodPost, "/api/screen/session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session dto.SessionResponse
	decode(t, w, &session)
	claims, err := s.tickets.Parse(session.Ticket)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleScreen, claims.Role)
}

func TestHandlers_StandingsExport(t *testing.T) {
	s := newTestServer(t, "")
	s.register(t, "Алиса")

	w := s.do(t, http.MethodGet, "/api/admin/standings/export?format=csv", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Алиса")

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/admin/standings/export?format=pdf", "", nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/api/admin/standings/email", "", nil).Code,
		"Без получателей отправка невозможна")
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

type stubHubMetrics struct {
	snapshot websocket.MetricsSnapshot
}

func (s stubHubMetrics) Metrics() websocket.MetricsSnapshot { return s.snapshot }

func TestOpsHandler_HealthReportsPhaseAndClients(t *testing.T) {
	// Arrange
	srv := newTestServer(t, "")
	hub := stubHubMetrics{snapshot: websocket.MetricsSnapshot{InstanceID: "inst-1", ActiveConnections: 3}}
	ops := NewOpsHandler(hub, srv.controller, "")
	router := gin.New()
	router.GET("/ws/health", ops.Health)

	// Act
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/health", nil))

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "inst-1", body["instance_id"])
	assert.Equal(t, string(entity.PhaseIdle), body["phase"], "Новая игра должна быть в IDLE")
	assert.EqualValues(t, 3, body["clients"])
	assert.Equal(t, "none", body["bus"], "Пустой драйвер шины отображается как none")
}
