package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/websocket"
)

// HubMetricsSource отдает счетчики WebSocket-хаба
type HubMetricsSource interface {
	Metrics() websocket.MetricsSnapshot
}

// PhaseSource отдает текущую фазу игры
type PhaseSource interface {
	CurrentPhase() entity.Phase
}

// OpsHandler - служебные эндпоинты экземпляра
type OpsHandler struct {
	hub       HubMetricsSource
	game      PhaseSource
	busDriver string
}

// NewOpsHandler создает обработчик служебных эндпоинтов
func NewOpsHandler(hub HubMetricsSource, game PhaseSource, busDriver string) *OpsHandler {
	if busDriver == "" {
		busDriver = "none"
	}
	return &OpsHandler{hub: hub, game: game, busDriver: busDriver}
}

// Health сообщает, что экземпляр жив, и показывает фазу игры
// GET /ws/health
func (h *OpsHandler) Health(c *gin.Context) {
	m := h.hub.Metrics()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"instance_id": m.InstanceID,
		"phase":       h.game.CurrentPhase(),
		"clients":     m.ActiveConnections,
		"bus":         h.busDriver,
	})
}

// Metrics возвращает счетчики хаба и шины
// GET /ws/metrics
func (h *OpsHandler) Metrics(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"phase": h.game.CurrentPhase(),
		"bus":   h.busDriver,
		"hub":   h.hub.Metrics(),
	})
}
