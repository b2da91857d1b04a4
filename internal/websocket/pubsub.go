package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// PubSubProvider - шина между экземплярами сервера.
// Каналы шины соответствуют базовым темам плюс канал direct.
type PubSubProvider interface {
	Publish(channel string, message []byte) error
	// Subscribe возвращает канал входящих сообщений; он закрывается вместе с ctx
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

const (
	busKindBroadcast = "broadcast"
	busKindDirect    = "direct"

	busBufferSize       = 100
	busPublishTimeout   = 2 * time.Second
	busSubscribeTimeout = 5 * time.Second
)

// BusMessage - конверт события между экземплярами
type BusMessage struct {
	Kind        string          `json:"kind"`                   // broadcast или direct
	Topic       string          `json:"topic,omitempty"`        // полная тема, например answers:12
	RecipientID string          `json:"recipient_id,omitempty"` // игрок для direct
	InstanceID  string          `json:"instance_id"`            // отправитель; свое сообщение не доставляется повторно
	Payload     json.RawMessage `json:"payload"`                // готовое клиентское событие
	Timestamp   time.Time       `json:"timestamp"`
}

// NoOpPubSub - шина одиночного экземпляра
type NoOpPubSub struct{}

func (p *NoOpPubSub) Publish(channel string, message []byte) error { return nil }

func (p *NoOpPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (p *NoOpPubSub) Close() error { return nil }

// RedisPubSub - шина на Redis Pub/Sub. Клиент Redis принадлежит вызывающему.
type RedisPubSub struct {
	client redis.UniversalClient

	mu     sync.Mutex
	subs   map[string]*redis.PubSub
	closed bool
}

// NewRedisPubSub проверяет соединение и создает шину
func NewRedisPubSub(client redis.UniversalClient) (*RedisPubSub, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for RedisPubSub")
	}
	ctx, cancel := context.WithTimeout(context.Background(), busSubscribeTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisPubSub{
		client: client,
		subs:   make(map[string]*redis.PubSub),
	}, nil
}

// Publish отправляет конверт в канал Redis
func (p *RedisPubSub) Publish(channel string, message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), busPublishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe подписывается на канал и ждет подтверждения от сервера
func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("redis pubsub is closed")
	}
	if _, ok := p.subs[channel]; ok {
		return nil, fmt.Errorf("already subscribed to Redis channel %s", channel)
	}

	confirmCtx, cancel := context.WithTimeout(ctx, busSubscribeTimeout)
	defer cancel()
	sub := p.client.Subscribe(confirmCtx, channel)
	if _, err := sub.Receive(confirmCtx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to Redis channel %s: %w", channel, err)
	}
	p.subs[channel] = sub
	log.Printf("[RedisPubSub] Подписка на канал '%s'", channel)

	out := make(chan []byte, busBufferSize)
	go p.pump(ctx, channel, sub, out)
	return out, nil
}

// pump перекладывает сообщения Redis в канал подписчика до отмены ctx или закрытия подписки
func (p *RedisPubSub) pump(ctx context.Context, channel string, sub *redis.PubSub, out chan<- []byte) {
	defer func() {
		p.mu.Lock()
		if p.subs[channel] == sub {
			delete(p.subs, channel)
		}
		p.mu.Unlock()
		sub.Close()
		close(out)
	}()

	in := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				log.Printf("[RedisPubSub] Подписка на '%s' закрыта", channel)
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close снимает все подписки. Повторный вызов безопасен.
func (p *RedisPubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for channel, sub := range p.subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", channel, err))
		}
		delete(p.subs, channel)
	}
	return errors.Join(errs...)
}
