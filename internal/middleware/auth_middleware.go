package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
	"github.com/yourusername/survival-quiz/pkg/auth"
)

// Ключи контекста gin, которые выставляет middleware
const (
	ContextSubjectID = "subject_id"
	ContextRole      = "role"
)

// AuthMiddleware проверяет билеты подключения
type AuthMiddleware struct {
	tickets  *auth.TicketService
	adminKey *auth.AdminKeyChecker
}

// NewAuthMiddleware создает middleware. adminKey может быть выключен, тогда админ-маршруты открыты.
func NewAuthMiddleware(tickets *auth.TicketService, adminKey *auth.AdminKeyChecker) *AuthMiddleware {
	return &AuthMiddleware{
		tickets:  tickets,
		adminKey: adminKey,
	}
}

// RequirePlayer пропускает только запросы с билетом игрока
func (m *AuthMiddleware) RequirePlayer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authorize(c, auth.RolePlayer) {
			return
		}
		c.Next()
	}
}

// RequireAdmin пропускает только запросы с билетом админа.
// Без настроенного ключа оператора проверка не выполняется.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.adminKey.Enabled() {
			c.Set(ContextRole, auth.RoleAdmin)
			c.Next()
			return
		}
		if !m.authorize(c, auth.RoleAdmin) {
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) authorize(c *gin.Context, role string) bool {
	ticket, ok := TicketFromRequest(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Ticket is required", "error_type": "token_missing"})
		return false
	}

	claims, err := m.tickets.Parse(ticket)
	if err != nil {
		errorType := "token_invalid"
		if errors.Is(err, apperrors.ErrExpiredToken) {
			errorType = "token_expired"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket", "error_type": errorType})
		return false
	}
	if claims.Role != role {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient rights", "error_type": "forbidden"})
		return false
	}

	c.Set(ContextSubjectID, claims.SubjectID)
	c.Set(ContextRole, claims.Role)
	return true
}

// TicketFromRequest достает билет из заголовка Authorization: Bearer или из query-параметра ticket
func TicketFromRequest(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], true
		}
		return "", false
	}
	if ticket := c.Query("ticket"); ticket != "" {
		return ticket, true
	}
	return "", false
}
