package database

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yourusername/survival-quiz/internal/config"
)

// NewNATSConnection подключается к NATS с автоматическим переподключением
func NewNATSConnection(cfg config.NATSConfig, clientName string) (*nats.Conn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	reconnectWait := cfg.ReconnectWait()
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("[NATS] Отключено: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] Переподключено к %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Printf("[NATS] Ошибка (subject %q): %v", subject, err)
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Printf("[NATS] Подключено к %s", nc.ConnectedUrl())
	return nc, nil
}
