package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"

	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
)

// Роли, которые может нести билет подключения
const (
	RolePlayer = "player"
	RoleScreen = "screen"
	RoleAdmin  = "admin"
)

const (
	ticketIssuer   = "survival-quiz"
	ticketAudience = "survival-quiz-ws"
	ticketUsage    = "connection_ticket"

	// DefaultTicketTTL - время жизни билета, если в конфиге не указано
	DefaultTicketTTL = 12 * time.Hour
)

// TicketClaims содержит поля билета подключения
type TicketClaims struct {
	// SubjectID - ID игрока, для экрана и админа - произвольный ID сессии
	SubjectID string `json:"sid"`
	Role      string `json:"role"`
	Usage     string `json:"usage"`
	jwt.RegisteredClaims
}

// TicketService выпускает и проверяет подписанные билеты подключения
type TicketService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTicketService создает сервис билетов с HMAC-подписью
func NewTicketService(secret string, ttl time.Duration) (*TicketService, error) {
	if secret == "" {
		return nil, errors.New("ticket secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &TicketService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL возвращает время жизни выпускаемых билетов
func (s *TicketService) TTL() time.Duration {
	return s.ttl
}

// Issue выпускает билет для субъекта с ролью
func (s *TicketService) Issue(subjectID, role string) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("%w: ticket subject is empty", apperrors.ErrValidation)
	}
	if !isKnownRole(role) {
		return "", fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, role)
	}

	now := s.now()
	claims := &TicketClaims{
		SubjectID: subjectID,
		Role:      role,
		Usage:     ticketUsage,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    ticketIssuer,
			Subject:   subjectID,
			Audience:  jwt.ClaimStrings{ticketAudience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		log.Printf("[Ticket] Ошибка подписи билета для %s (%s): %v", subjectID, role, err)
		return "", err
	}
	return signed, nil
}

// Parse проверяет подпись, срок и назначение билета
func (s *TicketService) Parse(ticket string) (*TicketClaims, error) {
	if ticket == "" {
		return nil, fmt.Errorf("%w: ticket is empty", apperrors.ErrUnauthorized)
	}

	claims := &TicketClaims{}
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}

	parser := jwt.Parser{}
	token, err := parser.ParseWithClaims(ticket, claims, keyFunc)
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, apperrors.ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: invalid ticket: %v", apperrors.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid ticket", apperrors.ErrUnauthorized)
	}
	if claims.Usage != ticketUsage || !claims.VerifyAudience(ticketAudience, true) {
		return nil, fmt.Errorf("%w: invalid ticket usage", apperrors.ErrUnauthorized)
	}
	if !isKnownRole(claims.Role) || claims.SubjectID == "" {
		return nil, fmt.Errorf("%w: invalid ticket claims", apperrors.ErrUnauthorized)
	}
	return claims, nil
}

func isKnownRole(role string) bool {
	switch role {
	case RolePlayer, RoleScreen, RoleAdmin:
		return true
	}
	return false
}
