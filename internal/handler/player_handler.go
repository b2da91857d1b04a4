package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/handler/dto"
	"github.com/yourusername/survival-quiz/internal/middleware"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/internal/service"
	"github.com/yourusername/survival-quiz/internal/service/gamecore"
	"github.com/yourusername/survival-quiz/pkg/auth"
)

// PlayerHandler обслуживает регистрацию игроков, прием ответов и восстановление состояния
type PlayerHandler struct {
	players    *service.PlayerService
	controller *service.GameController
	tickets    *auth.TicketService
}

// NewPlayerHandler создает обработчик игроков
func NewPlayerHandler(
	players *service.PlayerService,
	controller *service.GameController,
	tickets *auth.TicketService,
) *PlayerHandler {
	return &PlayerHandler{
		players:    players,
		controller: controller,
		tickets:    tickets,
	}
}

// Register регистрирует игрока и выдает билет
// POST /api/players
func (h *PlayerHandler) Register(c *gin.Context) {
	var req dto.RegisterPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	player, err := h.players.Register(c.Request.Context(), req.DisplayName, req.RealName)
	if err != nil {
		handleGameError(c, err)
		return
	}

	ticket, err := h.tickets.Issue(player.ID.String(), auth.RolePlayer)
	if err != nil {
		handleGameError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterPlayerResponse{
		ID:          player.ID,
		DisplayName: player.DisplayName,
		Ticket:      ticket,
		ExpiresIn:   int64(h.tickets.TTL().Seconds()),
	})
}

// SubmitAnswer принимает ответ игрока.
// Отказ из-за фазы, выбывания или повтора - не ошибка: ответ 200 с outcome.
// POST /api/answers
func (h *PlayerHandler) SubmitAnswer(c *gin.Context) {
	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	playerID, err := h.ticketPlayerID(c, req.PlayerID)
	if err != nil {
		handleGameError(c, err)
		return
	}

	result, err := submitAnswer(c.Request.Context(), h.controller, gamecore.Submission{
		PlayerID:        playerID,
		QuestionID:      req.QuestionID,
		Value:           req.AnswerValue,
		ClientTimestamp: req.ClientTimestamp,
	})
	if err != nil {
		handleGameError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == gamecore.OutcomeAccepted {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}

// GetState восстанавливает состояние игрока после переподключения
// GET /api/players/:id/state
func (h *PlayerHandler) GetState(c *gin.Context) {
	id := c.MustGet("playerID").(uuid.UUID)
	if _, err := h.ticketPlayerID(c, id.String()); err != nil {
		handleGameError(c, err)
		return
	}

	state, err := h.players.RestoreState(c.Request.Context(), id)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ticketPlayerID берет ID игрока из билета. Заявленный в запросе ID должен совпадать.
func (h *PlayerHandler) ticketPlayerID(c *gin.Context, claimed string) (uuid.UUID, error) {
	subject := c.GetString(middleware.ContextSubjectID)
	if claimed != "" && claimed != subject {
		return uuid.Nil, fmt.Errorf("%w: ticket belongs to another player", apperrors.ErrForbidden)
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: ticket subject is not a player id", apperrors.ErrUnauthorized)
	}
	return id, nil
}

// submitAnswer - общий путь приема ответа для HTTP и WebSocket
func submitAnswer(ctx context.Context, controller *service.GameController, sub gamecore.Submission) (*gamecore.IntakeResult, error) {
	result, err := controller.SubmitAnswer(ctx, sub)
	if err != nil {
		log.Printf("[PlayerHandler] Ошибка приема ответа игрока %s на вопрос %d: %v", sub.PlayerID, sub.QuestionID, err)
		return nil, err
	}
	return result, nil
}
