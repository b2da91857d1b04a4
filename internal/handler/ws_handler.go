package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/internal/service"
	"github.com/yourusername/survival-quiz/internal/service/gamecore"
	"github.com/yourusername/survival-quiz/internal/websocket"
	"github.com/yourusername/survival-quiz/pkg/auth"
)

// wsCallTimeout ограничивает обработку одного сообщения клиента
const wsCallTimeout = 5 * time.Second

// defaultTopics - темы, на которые соединение подписывается сразу после подключения
var defaultTopics = map[string][]string{
	websocket.RolePlayer: {gamecore.TopicGameState, gamecore.TopicQuestions, gamecore.TopicPlayers},
	websocket.RoleScreen: {gamecore.TopicGameState, gamecore.TopicQuestions, gamecore.TopicPlayers, gamecore.TopicAnswers, gamecore.TopicPresence},
	websocket.RoleAdmin:  {gamecore.TopicGameState, gamecore.TopicQuestions, gamecore.TopicPlayers, gamecore.TopicAnswers, gamecore.TopicPresence},
}

// topicAllowed разрешает подписку только на темы роли. answers:<id> покрывается темой answers.
func topicAllowed(client *websocket.Client, topic string) bool {
	base := topic
	if i := strings.IndexByte(topic, ':'); i > 0 {
		base = topic[:i]
	}
	for _, allowed := range defaultTopics[client.Role] {
		if allowed == base {
			return true
		}
	}
	return false
}

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	wsManager    *websocket.Manager
	controller   *service.GameController
	presence     *service.PresenceService
	tickets      *auth.TicketService
	upgrader     gorillaws.Upgrader
	clientConfig websocket.ClientConfig
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(
	wsManager *websocket.Manager,
	controller *service.GameController,
	presence *service.PresenceService,
	tickets *auth.TicketService,
	allowedOrigins []string,
	clientConfig websocket.ClientConfig,
) *WSHandler {
	handler := &WSHandler{
		wsManager:    wsManager,
		controller:   controller,
		presence:     presence,
		tickets:      tickets,
		upgrader:     newUpgrader(allowedOrigins),
		clientConfig: clientConfig,
	}

	// Регистрируем обработчики сообщений один раз при создании обработчика
	handler.registerMessageHandlers()
	wsManager.SetTopicFilter(topicAllowed)
	wsManager.Hub().SetLifecycleHooks(handler.onClientRegistered, handler.onClientUnregistered)

	return handler
}

func newUpgrader(allowedOrigins []string) gorillaws.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return gorillaws.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Если Origin пустой - это не браузерный клиент. Разрешаем такие подключения
			if origin == "" {
				return true
			}
			if _, ok := allowed["*"]; ok {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}

			log.Printf("[WSHandler] rejected unauthorized origin: %s", origin)
			return false
		},
		EnableCompression: true,
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение
// GET /ws?ticket=...&role=player|screen|admin
func (h *WSHandler) HandleConnection(c *gin.Context) {
	// НЕ логируем тикет - это секретные данные аутентификации
	ticket := c.Query("ticket")
	if ticket == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication ticket parameter"})
		return
	}

	claims, err := h.tickets.Parse(ticket)
	if err != nil {
		log.Printf("[WSHandler] Invalid or expired ticket: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket"})
		return
	}
	if role := c.Query("role"); role != "" && role != claims.Role {
		c.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("Ticket does not grant role %s", role)})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		log.Printf("[WSHandler] Error upgrading connection: %v", err)
		return
	}

	client := websocket.NewClient(h.wsManager.Hub(), conn, claims.SubjectID, claims.Role, h.clientConfig)
	h.wsManager.SubscribeClientToTopics(client, defaultTopics[claims.Role])

	client.StartPumps(h.wsManager.HandleMessage)
	log.Printf("[WSHandler] Connected: user=%s role=%s conn=%s", client.UserID, client.Role, client.ConnectionID)

	// Сразу отдаем текущее состояние, чтобы клиент не ждал следующей рассылки
	h.wsManager.SendEventToClient(client, gamecore.EventGameState, h.controller.State())
	if claims.Role != websocket.RolePlayer {
		h.sendPresenceSync(client)
	}
}

// registerMessageHandlers регистрирует обработчики для различных типов сообщений
func (h *WSHandler) registerMessageHandlers() {
	h.wsManager.RegisterHandler(websocket.EventUserAnswer, h.handleAnswer)
	h.wsManager.RegisterHandler(websocket.EventUserHeartbeat, h.handleHeartbeat)
}

type wsAnswerEvent struct {
	QuestionID      uint            `json:"question_id"`
	AnswerValue     json.RawMessage `json:"answer_value"`
	ClientTimestamp int64           `json:"client_timestamp"`
}

// handleAnswer принимает ответ игрока. Ошибки отправляются клиенту, соединение не закрывается.
func (h *WSHandler) handleAnswer(data json.RawMessage, client *websocket.Client) error {
	if client.Role != websocket.RolePlayer {
		h.wsManager.SendErrorToClient(client, "forbidden", "Only players can answer")
		return nil
	}

	var event wsAnswerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("[WSHandler] Ошибка парсинга user:answer: %v, Data: %s", err, string(data))
		h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse user:answer event")
		return nil
	}

	playerID, err := uuid.Parse(client.UserID)
	if err != nil {
		// Билет игрока всегда несет UUID, иначе соединение испорчено
		log.Printf("[WSHandler] CRITICAL: Ошибка конвертации UserID '%s' в UUID: %v", client.UserID, err)
		h.wsManager.SendErrorToClient(client, "internal_error", "Invalid user ID format")
		return fmt.Errorf("failed to parse user ID: %w", err)
	}

	sub := gamecore.Submission{
		PlayerID:        playerID,
		QuestionID:      event.QuestionID,
		ClientTimestamp: event.ClientTimestamp,
	}
	if len(event.AnswerValue) > 0 {
		if err := json.Unmarshal(event.AnswerValue, &sub.Value); err != nil {
			h.wsManager.SendErrorToClient(client, "invalid_format", "answer_value must be {choice} or {order}")
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsCallTimeout)
	defer cancel()

	result, err := submitAnswer(ctx, h.controller, sub)
	if err != nil {
		h.wsManager.SendErrorToClient(client, answerErrorCode(err), err.Error())
		return nil
	}
	h.wsManager.SendEventToClient(client, websocket.EventAnswerResult, result)

	// Ответ - тоже признак жизни
	h.touchPresence(client)
	return nil
}

type wsHeartbeatEvent struct {
	ClientTime int64 `json:"client_time"`
}

// handleHeartbeat продлевает присутствие и сообщает серверное время
func (h *WSHandler) handleHeartbeat(data json.RawMessage, client *websocket.Client) error {
	var event wsHeartbeatEvent
	if len(data) > 0 {
		// Тело heartbeat необязательно
		_ = json.Unmarshal(data, &event)
	}

	h.touchPresence(client)

	response := map[string]interface{}{
		"server_time": h.controller.ServerTime(),
	}
	if event.ClientTime > 0 {
		response["client_time"] = event.ClientTime
	}
	h.wsManager.SendEventToClient(client, websocket.EventServerHeartbeat, response)
	return nil // Никогда не закрываем соединение из-за heartbeat
}

func (h *WSHandler) touchPresence(client *websocket.Client) {
	if client.Role != websocket.RolePlayer {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), wsCallTimeout)
	defer cancel()
	if err := h.presence.Touch(ctx, client.UserID); err != nil {
		log.Printf("[WSHandler] Ошибка обновления присутствия %s: %v", client.UserID, err)
	}
}

func (h *WSHandler) sendPresenceSync(client *websocket.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), wsCallTimeout)
	defer cancel()
	online, err := h.presence.Online(ctx)
	if err != nil {
		log.Printf("[WSHandler] Ошибка загрузки присутствия для %s: %v", client.UserID, err)
		return
	}
	h.wsManager.SendEventToClient(client, gamecore.EventPresenceSync, map[string]interface{}{
		"players": online,
		"count":   len(online),
	})
}

// onClientRegistered вызывается хабом после регистрации соединения
func (h *WSHandler) onClientRegistered(client *websocket.Client) {
	h.touchPresence(client)
}

// onClientUnregistered вызывается, когда у пользователя не осталось соединения на этом экземпляре
func (h *WSHandler) onClientUnregistered(client *websocket.Client) {
	if client.Role != websocket.RolePlayer {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), wsCallTimeout)
	defer cancel()
	if err := h.presence.Leave(ctx, client.UserID); err != nil {
		log.Printf("[WSHandler] Ошибка снятия присутствия %s: %v", client.UserID, err)
	}
}

func answerErrorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return "invalid_answer"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrUnavailable):
		return "unavailable"
	default:
		return "answer_error"
	}
}
