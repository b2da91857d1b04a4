package handler

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/survival-quiz/internal/domain/entity"
	"github.com/yourusername/survival-quiz/internal/handler/dto"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/internal/service"
	"github.com/yourusername/survival-quiz/pkg/auth"
)

// AdminHandler - пульт оператора: фазы, оценка, выбывание, сбросы, итоги
type AdminHandler struct {
	controller *service.GameController
	reports    *service.ReportService
	tickets    *auth.TicketService
	adminKey   *auth.AdminKeyChecker
}

// NewAdminHandler создает обработчик админ-маршрутов
func NewAdminHandler(
	controller *service.GameController,
	reports *service.ReportService,
	tickets *auth.TicketService,
	adminKey *auth.AdminKeyChecker,
) *AdminHandler {
	return &AdminHandler{
		controller: controller,
		reports:    reports,
		tickets:    tickets,
		adminKey:   adminKey,
	}
}

// CreateSession выдает билет оператора по ключу
// POST /api/admin/session
func (h *AdminHandler) CreateSession(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.adminKey.Verify(req.Key); err != nil {
		log.Printf("[AdminHandler] Отказ во входе оператора с IP %s", c.ClientIP())
		handleGameError(c, err)
		return
	}

	subjectID := "admin-" + uuid.NewString()
	ticket, err := h.tickets.Issue(subjectID, auth.RoleAdmin)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{
		Ticket:    ticket,
		Role:      auth.RoleAdmin,
		SubjectID: subjectID,
		ExpiresIn: int64(h.tickets.TTL().Seconds()),
	})
}

// GetState возвращает текущее состояние игры
// GET /api/admin/state
func (h *AdminHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.State())
}

// AdvancePhase переводит игру в следующую фазу
// POST /api/admin/phase/advance
func (h *AdminHandler) AdvancePhase(c *gin.Context) {
	var req dto.AdvancePhaseRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	advance := service.AdvanceRequest{Confirm: req.Confirm}
	if req.From != nil {
		from, err := entity.ParsePhase(*req.From)
		if err != nil {
			handleGameError(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
			return
		}
		advance.From = &from
	}

	result, err := h.controller.AdvancePhase(c.Request.Context(), advance)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SelectQuestion делает вопрос текущим
// POST /api/admin/questions/:id/select
func (h *AdminHandler) SelectQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	state, err := h.controller.SelectQuestion(c.Request.Context(), questionID)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ScoreQuestion оценивает ответы на вопрос
// POST /api/admin/questions/:id/score
func (h *AdminHandler) ScoreQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	result, err := h.controller.Score(c.Request.Context(), questionID)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// EliminateQuestion выводит из игры ошибившихся и самого медленного
// POST /api/admin/questions/:id/eliminate
func (h *AdminHandler) EliminateQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	result, err := h.controller.Eliminate(c.Request.Context(), questionID)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ResetQuestionAnswers удаляет ответы на вопрос
// POST /api/admin/questions/:id/reset-answers
func (h *AdminHandler) ResetQuestionAnswers(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	result, err := h.controller.ResetQuestionAnswers(c.Request.Context(), questionID)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReviveAll возвращает в игру всех выбывших
// POST /api/admin/revive-all
func (h *AdminHandler) ReviveAll(c *gin.Context) {
	result, err := h.controller.ReviveAll(c.Request.Context())
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ResetGame сбрасывает игру в исходное состояние
// POST /api/admin/reset
func (h *AdminHandler) ResetGame(c *gin.Context) {
	var req dto.ResetGameRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	result, err := h.controller.ResetGame(c.Request.Context(), req.WipePlayers)
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStandings возвращает таблицу игроков по очкам
// GET /api/admin/standings
func (h *AdminHandler) GetStandings(c *gin.Context) {
	rows, err := h.reports.Standings(c.Request.Context())
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"standings": rows,
		"total":     len(rows),
	})
}

// ExportStandings выгружает таблицу игроков в CSV или Excel
// GET /api/admin/standings/export?format=csv|xlsx
func (h *AdminHandler) ExportStandings(c *gin.Context) {
	format := c.DefaultQuery("format", "xlsx")

	rows, err := h.reports.Standings(c.Request.Context())
	if err != nil {
		handleGameError(c, err)
		return
	}

	filename := fmt.Sprintf("standings_%s", time.Now().Format("2006-01-02"))

	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))
		if err := h.reports.WriteCSV(c.Writer, rows); err != nil {
			log.Printf("[AdminHandler] Ошибка выгрузки CSV: %v", err)
		}
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
		if err := h.reports.WriteXLSX(c.Writer, rows); err != nil {
			log.Printf("[AdminHandler] Ошибка выгрузки Excel: %v", err)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx", "error_type": "invalid_request"})
	}
}

// EmailStandings отправляет таблицу игроков на адреса из конфига
// POST /api/admin/standings/email
func (h *AdminHandler) EmailStandings(c *gin.Context) {
	sent, err := h.reports.EmailStandings(c.Request.Context())
	if err != nil {
		handleGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"players": sent,
	})
}
