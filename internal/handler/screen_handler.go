package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/handler/dto"
	"github.com/yourusername/survival-quiz/internal/service"
	"github.com/yourusername/survival-quiz/pkg/auth"
)

// ScreenHandler - публичные данные для проектора и клиентов: состояние, время, табло
type ScreenHandler struct {
	controller *service.GameController
	board      *service.BoardService
	presence   *service.PresenceService
	tickets    *auth.TicketService
}

// NewScreenHandler создает обработчик экрана
func NewScreenHandler(
	controller *service.GameController,
	board *service.BoardService,
	presence *service.PresenceService,
	tickets *auth.TicketService,
) *ScreenHandler {
	return &ScreenHandler{
		controller: controller,
		board:      board,
		presence:   presence,
		tickets:    tickets,
	}
}

// CreateSession выдает билет экрана для подключения к WebSocket
// POST /api/screen/session
func (h *ScreenHandler) CreateSession(c *gin.Context) {
	subjectID := "screen-" + uuid.NewString()
	ticket, err := h.tickets.Issue(subjectID, auth.RoleScreen)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{
		Ticket:    ticket,
		Role:      auth.RoleScreen,
		SubjectID: subjectID,
		ExpiresIn: int64(h.tickets.TTL().Seconds()),
	})
}

// GetState возвращает состояние игры. Правильный ответ виден только с REVEAL.
// GET /api/state
func (h *ScreenHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.State())
}

// GetServerTime возвращает серверное время для оценки смещения часов клиента
// GET /api/time
func (h *ScreenHandler) GetServerTime(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ServerTimeResponse{ServerTime: h.controller.ServerTime()})
}

// GetDistribution возвращает распределение ответов присутствующих игроков
// GET /api/screen/distribution
func (h *ScreenHandler) GetDistribution(c *gin.Context) {
	distribution, err := h.board.Distribution(c.Request.Context())
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, distribution)
}

// GetRanking возвращает страницу рейтинга верно ответивших по скорости
// GET /api/screen/ranking?page=N
func (h *ScreenHandler) GetRanking(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page", "error_type": "invalid_request"})
		return
	}

	ranking, err := h.board.Ranking(c.Request.Context(), page)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranking)
}

// GetPresence возвращает присутствующих игроков
// GET /api/presence
func (h *ScreenHandler) GetPresence(c *gin.Context) {
	online, err := h.presence.Online(c.Request.Context())
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PresenceResponse{Players: online, Count: len(online)})
}
