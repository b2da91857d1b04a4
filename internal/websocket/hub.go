package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HubConfig содержит настройки хаба
type HubConfig struct {
	// InstanceID отличает этот экземпляр в шине событий. Пустой - сгенерировать.
	InstanceID string
	// CleanupInterval - период проверки неактивных клиентов, 0 - выключено
	CleanupInterval time.Duration
	// InactivityTimeout - сколько клиент может молчать до отключения
	InactivityTimeout time.Duration
}

// topicMessage - сообщение для рассылки подписчикам темы
type topicMessage struct {
	topic   string
	payload []byte
}

// Hub хранит локальные WebSocket соединения экземпляра и рассылает им события по темам
type Hub struct {
	instanceID string
	clients    sync.Map // *Client -> struct{}
	userMap    sync.Map // UserID -> *Client
	broadcast  chan topicMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
	metrics    *HubMetrics

	cleanupInterval   time.Duration
	inactivityTimeout time.Duration

	hooksMu      sync.RWMutex
	onRegister   func(*Client)
	onUnregister func(*Client)
}

// NewHub создает хаб. Цикл запускается через Run.
func NewHub(cfg HubConfig) *Hub {
	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = "instance_" + uuid.New().String()
	}
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = 2 * pongWait
	}

	h := &Hub{
		instanceID:        instanceID,
		broadcast:         make(chan topicMessage, 256),
		register:          make(chan *Client, 100),
		unregister:        make(chan *Client, 100),
		done:              make(chan struct{}),
		metrics:           NewHubMetrics(),
		cleanupInterval:   cfg.CleanupInterval,
		inactivityTimeout: cfg.InactivityTimeout,
	}
	log.Printf("[Hub] Создан, instance=%s", instanceID)
	return h
}

// InstanceID возвращает ID экземпляра
func (h *Hub) InstanceID() string {
	return h.instanceID
}

// SetLifecycleHooks задает обработчики подключения и отключения клиентов.
// Вызываются в отдельной горутине, цикл хаба не ждет их.
func (h *Hub) SetLifecycleHooks(onRegister, onUnregister func(*Client)) {
	h.hooksMu.Lock()
	defer h.hooksMu.Unlock()
	h.onRegister = onRegister
	h.onUnregister = onUnregister
}

// Run запускает цикл обработки хаба
func (h *Hub) Run() {
	go h.runCleanupTicker()

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		case <-h.done:
			log.Printf("[Hub] Получен сигнал завершения работы, останавливаемся")
			h.cleanupAllClients()
			return
		}
	}
}

// RegisterClient ставит клиента в очередь на регистрацию
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// UnregisterClient ставит клиента в очередь на удаление
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// handleRegister регистрирует клиента. Повторное подключение того же игрока вытесняет старое.
func (h *Hub) handleRegister(client *Client) {
	if existing, loaded := h.userMap.Swap(client.UserID, client); loaded {
		oldClient, ok := existing.(*Client)
		if ok && oldClient != client {
			log.Printf("[Hub] Клиент %s переподключился, старое соединение %s закрывается", client.UserID, oldClient.ConnectionID)
			// Отложенное закрытие, чтобы старый клиент успел дочитать буфер
			go func() {
				time.Sleep(500 * time.Millisecond)
				if _, ok := h.clients.LoadAndDelete(oldClient); ok {
					h.metrics.ConnectionClosed(oldClient.Role)
				}
				if oldClient.conn != nil {
					oldClient.conn.Close()
				}
				oldClient.CloseSend()
			}()
		}
	}

	h.clients.Store(client, struct{}{})
	client.touch()
	h.metrics.ConnectionOpened(client.Role)

	log.Printf("[Hub] Клиент %s (%s) зарегистрирован, conn=%s", client.UserID, client.Role, client.ConnectionID)

	select {
	case client.registrationComplete <- struct{}{}:
	default:
	}

	h.hooksMu.RLock()
	hook := h.onRegister
	h.hooksMu.RUnlock()
	if hook != nil {
		go hook(client)
	}
}

// handleUnregister удаляет клиента
func (h *Hub) handleUnregister(client *Client) {
	if _, ok := h.clients.LoadAndDelete(client); !ok {
		return
	}

	current := h.userMap.CompareAndDelete(client.UserID, client)

	if client.conn != nil {
		client.conn.Close()
	}
	client.CloseSend()
	h.metrics.ConnectionClosed(client.Role)

	log.Printf("[Hub] Клиент %s отключен, conn=%s", client.UserID, client.ConnectionID)

	// Вытесненное соединение не означает ухода игрока
	if !current {
		return
	}
	h.hooksMu.RLock()
	hook := h.onUnregister
	h.hooksMu.RUnlock()
	if hook != nil {
		go hook(client)
	}
}

// handleBroadcast отправляет сообщение подписчикам темы
func (h *Hub) handleBroadcast(msg topicMessage) {
	var clientCount int64
	h.clients.Range(func(key, value interface{}) bool {
		client, ok := key.(*Client)
		if !ok {
			return true
		}
		if !client.IsSubscribed(msg.topic) {
			return true
		}
		if h.deliver(client, msg.payload) {
			clientCount++
		}
		return true
	})

	if clientCount > 0 {
		h.metrics.AddMessageSent(clientCount)
	}
	h.metrics.TopicBroadcast(msg.topic)
}

// deliver кладет сообщение в буфер клиента.
// Медленный клиент получает предупреждения и после maxBufferWarnings отключается.
func (h *Hub) deliver(client *Client, message []byte) bool {
	if client.enqueue(message) {
		client.resetBufferWarningCount()
		return true
	}
	if client.IsSendClosed() {
		return false
	}

	h.metrics.AddMessageDropped()
	newCount := client.incrementBufferWarningCount()
	if newCount >= maxBufferWarnings {
		log.Printf("[Hub] Клиент %s (conn %s) превысил лимит предупреждений о буфере (%d), отключаем", client.UserID, client.ConnectionID, maxBufferWarnings)
		h.metrics.AddSlowClientKicked()
		go h.UnregisterClient(client)
		return false
	}

	log.Printf("[Hub] Буфер клиента %s (conn %s) полон, предупреждение %d/%d", client.UserID, client.ConnectionID, newCount, maxBufferWarnings)
	warning, _ := json.Marshal(Event{
		Type: EventBufferWarning,
		Data: map[string]interface{}{
			"warning_count": newCount,
			"max_warnings":  maxBufferWarnings,
			"message":       "Your connection is slow or buffer is full. You may be disconnected soon.",
		},
	})
	client.enqueue(warning)
	return false
}

// BroadcastLocal рассылает сообщение локальным подписчикам темы
func (h *Hub) BroadcastLocal(topic string, message []byte) {
	select {
	case h.broadcast <- topicMessage{topic: topic, payload: message}:
	default:
		log.Printf("[Hub] Канал рассылки переполнен, сообщение темы %s отброшено", topic)
	}
}

// SendToUser отправляет сообщение локальному клиенту. false - клиента здесь нет или буфер полон.
func (h *Hub) SendToUser(userID string, message []byte) bool {
	value, ok := h.userMap.Load(userID)
	if !ok {
		return false
	}
	client, ok := value.(*Client)
	if !ok {
		return false
	}
	if h.deliver(client, message) {
		h.metrics.AddMessageSent(1)
		return true
	}
	return false
}

// HasUser сообщает, подключен ли пользователь к этому экземпляру
func (h *Hub) HasUser(userID string) bool {
	_, ok := h.userMap.Load(userID)
	return ok
}

// runCleanupTicker периодически отключает молчащих клиентов
func (h *Hub) runCleanupTicker() {
	if h.cleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.cleanupInactiveClients(h.inactivityTimeout)
		case <-h.done:
			return
		}
	}
}

// cleanupInactiveClients инициирует удаление неактивных клиентов
func (h *Hub) cleanupInactiveClients(timeout time.Duration) {
	var inactive int64
	h.clients.Range(func(key, value interface{}) bool {
		client, ok := key.(*Client)
		if !ok {
			return true
		}
		if time.Since(client.LastActivity()) > timeout {
			inactive++
			select {
			case h.unregister <- client:
			default:
				log.Printf("[Hub Cleanup] Канал unregister переполнен, клиент %s будет удален позже", client.UserID)
			}
		}
		return true
	})

	h.metrics.MarkCleanup()
	if inactive > 0 {
		h.metrics.AddInactiveClientsRemoved(inactive)
		log.Printf("[Hub Cleanup] Найдено неактивных клиентов: %d", inactive)
	}
}

// cleanupAllClients закрывает все соединения перед остановкой
func (h *Hub) cleanupAllClients() {
	h.clients.Range(func(key, value interface{}) bool {
		client, ok := key.(*Client)
		if !ok {
			return true
		}
		if client.conn != nil {
			client.conn.Close()
		}
		client.CloseSend()
		h.clients.Delete(client)
		return true
	})
}

// ClientCount возвращает количество локальных клиентов
func (h *Hub) ClientCount() int {
	var count int
	h.clients.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// Metrics возвращает снимок счетчиков этого экземпляра
func (h *Hub) Metrics() MetricsSnapshot {
	s := h.metrics.Snapshot()
	s.InstanceID = h.instanceID
	return s
}

// Close останавливает хаб
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}
