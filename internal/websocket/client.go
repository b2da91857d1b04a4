package websocket

import (
	"bytes"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 2048

	// Размер буфера по умолчанию для каналов отправки сообщений клиенту
	defaultClientBufferSize = 128

	// Максимальное количество предупреждений о переполнении буфера до отключения
	maxBufferWarnings = 3
)

// Роли подключений
const (
	RolePlayer = "player"
	RoleScreen = "screen"
	RoleAdmin  = "admin"
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// ClientConfig содержит настройки для клиента
type ClientConfig struct {
	// BufferSize определяет размер буфера канала отправки сообщений
	BufferSize int

	// PingInterval определяет интервал между ping-сообщениями
	PingInterval time.Duration

	// PongWait определяет время ожидания pong-ответа
	PongWait time.Duration

	// WriteWait определяет тайм-аут для записи сообщений
	WriteWait time.Duration

	// MaxMessageSize определяет максимальный размер сообщения
	MaxMessageSize int64
}

// DefaultClientConfig возвращает конфигурацию клиента по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BufferSize:     defaultClientBufferSize,
		PingInterval:   pingPeriod,
		PongWait:       pongWait,
		WriteWait:      writeWait,
		MaxMessageSize: maxMessageSize,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	def := DefaultClientConfig()
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = (c.PongWait * 9) / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = def.WriteWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	return c
}

// Client является посредником между WebSocket соединением и hub.
type Client struct {
	// ID пользователя. Для игрока это ID игрока, для экрана и админа - уникален на соединение.
	UserID string

	// Уникальный ID для каждого соединения
	ConnectionID string

	// Роль подключения: player, screen или admin
	Role string

	hub    *Hub
	conn   *websocket.Conn
	config ClientConfig

	// Буферизованный канал для исходящих сообщений
	send chan []byte

	// Флаг, указывающий что канал send закрыт (для предотвращения panic)
	sendClosed atomic.Bool
	sendMu     sync.RWMutex

	// Время последней активности клиента, мс от эпохи
	lastActivity atomic.Int64

	// Канал для ожидания завершения регистрации
	registrationComplete chan struct{}

	// Темы, на которые подписан клиент
	subscriptions sync.Map

	// Счетчик предупреждений о переполнении буфера
	bufferWarningCount atomic.Int32
}

// NewClient создает нового клиента
func NewClient(hub *Hub, conn *websocket.Conn, userID, role string, config ClientConfig) *Client {
	config = config.withDefaults()
	c := &Client{
		hub:                  hub,
		conn:                 conn,
		config:               config,
		send:                 make(chan []byte, config.BufferSize),
		UserID:               userID,
		ConnectionID:         uuid.New().String(),
		Role:                 role,
		registrationComplete: make(chan struct{}, 1),
	}
	c.touch()
	return c
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixMilli())
}

// LastActivity возвращает время последней активности
func (c *Client) LastActivity() time.Time {
	return time.UnixMilli(c.lastActivity.Load())
}

// readPump читает сообщения от клиента и передает их обработчику
func (c *Client) readPump(messageHandler func(message []byte, client *Client) error) {
	defer func() {
		log.Printf("[WSClient] Read pump stopped: user=%s conn=%s", c.UserID, c.ConnectionID)
		c.hub.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		c.touch()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WSClient] Read error: user=%s conn=%s: %v", c.UserID, c.ConnectionID, err)
			}
			break
		}

		c.touch()
		c.hub.metrics.AddMessageReceived()

		if handlerErr := safeHandleMessage(message, c, messageHandler); handlerErr != nil {
			log.Printf("[WSClient] Handler error: user=%s conn=%s: %v. Closing connection.", c.UserID, c.ConnectionID, handlerErr)
			break
		}

		// Клиент читает, значит буфер разгружается
		c.resetBufferWarningCount()
	}
}

// safeHandleMessage - обертка для вызова обработчика с recover
func safeHandleMessage(message []byte, client *Client, messageHandler func(message []byte, client *Client) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WSClient] PANIC recovered in message handler: user=%s conn=%s: %v\n%s",
				client.UserID, client.ConnectionID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
	if messageHandler != nil {
		err = messageHandler(message, client)
	}
	return err
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if !ok {
				// Хаб закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				log.Printf("[WSClient] NextWriter error: user=%s conn=%s: %v", c.UserID, c.ConnectionID, err)
				return
			}
			if _, err := w.Write(message); err != nil {
				log.Printf("[WSClient] Write error: user=%s conn=%s: %v", c.UserID, c.ConnectionID, err)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// StartPumps регистрирует клиента в хабе и запускает чтение и запись
func (c *Client) StartPumps(messageHandler func(message []byte, client *Client) error) {
	if c.UserID == "" {
		log.Printf("[WSClient] Client has no UserID, closing")
		c.conn.Close()
		return
	}

	c.hub.RegisterClient(c)

	select {
	case <-c.registrationComplete:
	case <-time.After(5 * time.Second):
		log.Printf("[WSClient] Timeout waiting for registration: user=%s", c.UserID)
		c.conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(messageHandler)
}

// IsSubscribed проверяет подписку на тему.
// Подписка на "answers" покрывает и "answers:<id>".
func (c *Client) IsSubscribed(topic string) bool {
	if topic == "" {
		return true
	}
	if _, ok := c.subscriptions.Load(topic); ok {
		return true
	}
	if i := strings.IndexByte(topic, ':'); i > 0 {
		_, ok := c.subscriptions.Load(topic[:i])
		return ok
	}
	return false
}

// Subscribe подписывает клиента на тему
func (c *Client) Subscribe(topic string) {
	if topic == "" {
		return
	}
	c.subscriptions.Store(topic, struct{}{})
}

// Unsubscribe отменяет подписку клиента на тему
func (c *Client) Unsubscribe(topic string) {
	c.subscriptions.Delete(topic)
}

// GetSubscriptions возвращает список тем клиента
func (c *Client) GetSubscriptions() []string {
	var topics []string
	c.subscriptions.Range(func(key, value interface{}) bool {
		if topic, ok := key.(string); ok {
			topics = append(topics, topic)
		}
		return true
	})
	return topics
}

// incrementBufferWarningCount увеличивает счетчик предупреждений и возвращает новое значение
func (c *Client) incrementBufferWarningCount() int32 {
	return c.bufferWarningCount.Add(1)
}

// resetBufferWarningCount сбрасывает счетчик предупреждений
func (c *Client) resetBufferWarningCount() {
	c.bufferWarningCount.Store(0)
}

// CloseSend безопасно закрывает канал send (только один раз).
// Возвращает true, если канал был закрыт этим вызовом.
func (c *Client) CloseSend() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
		return true
	}
	return false
}

// enqueue ставит сообщение в буфер без блокировки.
// false означает, что буфер полон или канал уже закрыт.
func (c *Client) enqueue(message []byte) bool {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.sendClosed.Load() {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// IsSendClosed проверяет, закрыт ли канал send
func (c *Client) IsSendClosed() bool {
	return c.sendClosed.Load()
}
