package service

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yourusername/survival-quiz/internal/domain/repository"
	"github.com/yourusername/survival-quiz/internal/service/gamecore"
)

// PresenceService отслеживает, какие игроки сейчас подключены.
// Отметка живет PresenceTTL, heartbeat и переподключение продлевают ее.
type PresenceService struct {
	presenceRepo repository.PresenceRepository
	publisher    gamecore.Publisher
	clock        clockwork.Clock
	ttl          time.Duration
}

// NewPresenceService создает сервис присутствия
func NewPresenceService(
	presenceRepo repository.PresenceRepository,
	publisher gamecore.Publisher,
	clock clockwork.Clock,
	config *gamecore.Config,
) *PresenceService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PresenceService{
		presenceRepo: presenceRepo,
		publisher:    publisher,
		clock:        clock,
		ttl:          config.PresenceWindow(),
	}
}

// Touch отмечает игрока живым и сообщает о входе, если его не было
func (s *PresenceService) Touch(ctx context.Context, playerID string) error {
	joined, err := s.presenceRepo.Touch(ctx, playerID, s.clock.Now())
	if err != nil {
		return err
	}
	if joined {
		s.publisher.Publish(gamecore.TopicPresence, gamecore.EventPresenceJoin, map[string]string{"player_id": playerID})
	}
	return nil
}

// Leave убирает игрока из присутствующих
func (s *PresenceService) Leave(ctx context.Context, playerID string) error {
	left, err := s.presenceRepo.Remove(ctx, playerID)
	if err != nil {
		return err
	}
	if left {
		s.publisher.Publish(gamecore.TopicPresence, gamecore.EventPresenceLeave, map[string]string{"player_id": playerID})
	}
	return nil
}

// Online возвращает игроков, присутствующих сейчас
func (s *PresenceService) Online(ctx context.Context) ([]string, error) {
	online, err := s.presenceRepo.Online(ctx, s.clock.Now().Add(-s.ttl))
	if err != nil {
		return nil, err
	}
	if online == nil {
		online = []string{}
	}
	return online, nil
}

// Sync рассылает полный список присутствующих
func (s *PresenceService) Sync(ctx context.Context) error {
	online, err := s.Online(ctx)
	if err != nil {
		return err
	}
	s.publisher.Publish(gamecore.TopicPresence, gamecore.EventPresenceSync, map[string]interface{}{
		"players": online,
		"count":   len(online),
	})
	return nil
}

// Sweep удаляет просроченные отметки и сообщает об уходе
func (s *PresenceService) Sweep(ctx context.Context) (int, error) {
	expired, err := s.presenceRepo.Prune(ctx, s.clock.Now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	for _, id := range expired {
		s.publisher.Publish(gamecore.TopicPresence, gamecore.EventPresenceLeave, map[string]string{"player_id": id})
	}
	return len(expired), nil
}

// Run чистит просроченные отметки каждые ttl/2 до отмены ctx
func (s *PresenceService) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Printf("[PresenceService] Ошибка очистки присутствия: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[PresenceService] Игроков ушло по таймауту: %d", n)
				if err := s.Sync(ctx); err != nil {
					log.Printf("[PresenceService] Ошибка рассылки списка: %v", err)
				}
			}
		}
	}
}
