package websocket

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATSPubSub реализует PubSubProvider на core NATS.
// Каналы шины становятся subject'ами с общим префиксом.
type NATSPubSub struct {
	nc     *nats.Conn
	prefix string

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NewNATSPubSub создает провайдер на существующем соединении.
// Соединение остается во владении вызывающего.
func NewNATSPubSub(nc *nats.Conn, subjectPrefix string) (*NATSPubSub, error) {
	if nc == nil {
		return nil, errors.New("nats connection cannot be nil for NATSPubSub")
	}
	return &NATSPubSub{
		nc:     nc,
		prefix: subjectPrefix,
		subs:   make(map[string]*nats.Subscription),
	}, nil
}

func (p *NATSPubSub) subject(channel string) string {
	if p.prefix == "" {
		return channel
	}
	return p.prefix + "." + channel
}

// Publish публикует сообщение в subject канала
func (p *NATSPubSub) Publish(channel string, message []byte) error {
	if err := p.nc.Publish(p.subject(channel), message); err != nil {
		return fmt.Errorf("failed to publish to NATS subject %s: %w", p.subject(channel), err)
	}
	return nil
}

// Subscribe подписывается на subject канала
func (p *NATSPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subject := p.subject(channel)
	if _, ok := p.subs[subject]; ok {
		return nil, fmt.Errorf("already subscribed to NATS subject %s", subject)
	}

	msgCh := make(chan []byte, 100)
	var (
		chMu   sync.RWMutex
		closed bool
	)

	sub, err := p.nc.Subscribe(subject, func(msg *nats.Msg) {
		chMu.RLock()
		defer chMu.RUnlock()
		if closed {
			return
		}
		select {
		case msgCh <- msg.Data:
		default:
			log.Printf("[NATSPubSub] Буфер subject '%s' переполнен, сообщение отброшено", subject)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to NATS subject %s: %w", subject, err)
	}
	p.subs[subject] = sub
	log.Printf("[NATSPubSub] Подписка на subject '%s'", subject)

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		if current, ok := p.subs[subject]; ok && current == sub {
			delete(p.subs, subject)
		}
		p.mu.Unlock()
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
			log.Printf("[NATSPubSub] Ошибка отписки от '%s': %v", subject, err)
		}
		chMu.Lock()
		closed = true
		close(msgCh)
		chMu.Unlock()
	}()

	return msgCh, nil
}

// Close снимает все подписки
func (p *NATSPubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for subject, sub := range p.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			lastErr = err
		}
		delete(p.subs, subject)
	}
	return lastErr
}
