package websocket

import (
	"encoding/json"
	"fmt"
	"log"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// incomingEvent - сообщение клиента с сырыми данными
type incomingEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Manager обрабатывает WebSocket сообщения
type Manager struct {
	hub            *Hub
	messageHandler map[string]func(data json.RawMessage, client *Client) error
	// topicFilter решает, может ли клиент подписаться на тему. nil - любые темы.
	topicFilter func(client *Client, topic string) bool
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub *Hub) *Manager {
	m := &Manager{
		hub:            hub,
		messageHandler: make(map[string]func(data json.RawMessage, client *Client) error),
	}
	m.RegisterHandler(EventUserSubscribe, m.handleSubscribe)
	m.RegisterHandler(EventUserUnsubscribe, m.handleUnsubscribe)
	return m
}

// Hub возвращает хаб менеджера
func (m *Manager) Hub() *Hub {
	return m.hub
}

// SetTopicFilter ограничивает темы, доступные через user:subscribe
func (m *Manager) SetTopicFilter(filter func(client *Client, topic string) bool) {
	m.topicFilter = filter
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.messageHandler[eventType] = handler
	log.Printf("[WebSocketManager] Зарегистрирован обработчик для сообщений типа: %s", eventType)
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event incomingEvent
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("[WebSocketManager] Некорректное сообщение от %s: %v", client.UserID, err)
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}

	if err := handler(event.Data, client); err != nil {
		log.Printf("[WebSocketManager] Обработчик '%s' вернул ошибку для клиента %s: %v", event.Type, client.UserID, err)
		return err
	}
	return nil
}

// SendErrorToClient отправляет клиенту сообщение об ошибке, не закрывая соединение
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	m.SendEventToClient(client, EventServerError, map[string]string{
		"code":    code,
		"message": message,
	})
}

// SendEventToClient отправляет событие в конкретное соединение
func (m *Manager) SendEventToClient(client *Client, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	if !m.hub.deliver(client, payload) {
		log.Printf("[WebSocketManager] Не удалось доставить %s клиенту %s", eventType, client.UserID)
	}
}

// SubscribeClientToTopics подписывает клиента на темы
func (m *Manager) SubscribeClientToTopics(client *Client, topics []string) {
	for _, topic := range topics {
		client.Subscribe(topic)
	}
}

type subscriptionRequest struct {
	Topics []string `json:"topics"`
}

func (m *Manager) handleSubscribe(data json.RawMessage, client *Client) error {
	var req subscriptionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		m.SendErrorToClient(client, "invalid_subscription", "topics must be a list of strings")
		return nil
	}
	var denied []string
	for _, topic := range req.Topics {
		if m.topicFilter != nil && !m.topicFilter(client, topic) {
			denied = append(denied, topic)
			continue
		}
		client.Subscribe(topic)
	}
	if len(denied) > 0 {
		m.SendErrorToClient(client, "topic_forbidden", fmt.Sprintf("Topics not available for role %s: %v", client.Role, denied))
	}
	return nil
}

func (m *Manager) handleUnsubscribe(data json.RawMessage, client *Client) error {
	var req subscriptionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		m.SendErrorToClient(client, "invalid_subscription", "topics must be a list of strings")
		return nil
	}
	for _, topic := range req.Topics {
		client.Unsubscribe(topic)
	}
	return nil
}

// Metrics возвращает метрики хаба
func (m *Manager) Metrics() MetricsSnapshot {
	return m.hub.Metrics()
}
