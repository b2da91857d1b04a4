package websocket

import (
	"sync"
	"sync/atomic"
	"time"
)

// HubMetrics - счетчики соединений и доставки одного экземпляра
type HubMetrics struct {
	startTime time.Time

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
	messagesDropped  atomic.Int64
	slowClientsKick  atomic.Int64
	inactiveRemoved  atomic.Int64
	busPublished     atomic.Int64
	busReceived      atomic.Int64
	lastCleanup      atomic.Int64 // мс от эпохи

	mu           sync.Mutex
	activeByRole map[string]int64
	topicCounts  map[string]int64
}

// MetricsSnapshot - метрики на момент запроса
type MetricsSnapshot struct {
	InstanceID        string           `json:"instance_id"`
	ActiveConnections int64            `json:"active_connections"`
	ActiveByRole      map[string]int64 `json:"active_by_role"`
	TotalConnections  int64            `json:"total_connections"`
	MessagesSent      int64            `json:"messages_sent"`
	MessagesReceived  int64            `json:"messages_received"`
	MessagesDropped   int64            `json:"messages_dropped"`
	SlowClientsKicked int64            `json:"slow_clients_kicked"`
	InactiveRemoved   int64            `json:"inactive_clients_removed"`
	BusPublished      int64            `json:"bus_published"`
	BusReceived       int64            `json:"bus_received"`
	TopicBroadcasts   map[string]int64 `json:"topic_broadcasts"`
	UptimeSeconds     float64          `json:"uptime_seconds"`
	LastCleanup       *time.Time       `json:"last_cleanup,omitempty"`
}

// NewHubMetrics создает пустые счетчики
func NewHubMetrics() *HubMetrics {
	return &HubMetrics{
		startTime:    time.Now(),
		activeByRole: make(map[string]int64),
		topicCounts:  make(map[string]int64),
	}
}

// ConnectionOpened учитывает новое соединение роли
func (m *HubMetrics) ConnectionOpened(role string) {
	m.totalConnections.Add(1)
	m.mu.Lock()
	m.activeByRole[role]++
	m.mu.Unlock()
}

// ConnectionClosed учитывает закрытое соединение роли
func (m *HubMetrics) ConnectionClosed(role string) {
	m.mu.Lock()
	if m.activeByRole[role] > 0 {
		m.activeByRole[role]--
	}
	m.mu.Unlock()
}

func (m *HubMetrics) AddMessageSent(count int64) { m.messagesSent.Add(count) }

func (m *HubMetrics) AddMessageReceived() { m.messagesReceived.Add(1) }

// AddMessageDropped - сообщение не влезло в буфер клиента
func (m *HubMetrics) AddMessageDropped() { m.messagesDropped.Add(1) }

func (m *HubMetrics) AddSlowClientKicked() { m.slowClientsKick.Add(1) }

func (m *HubMetrics) AddInactiveClientsRemoved(count int64) { m.inactiveRemoved.Add(count) }

func (m *HubMetrics) AddBusPublished() { m.busPublished.Add(1) }

func (m *HubMetrics) AddBusReceived() { m.busReceived.Add(1) }

func (m *HubMetrics) MarkCleanup() { m.lastCleanup.Store(time.Now().UnixMilli()) }

// TopicBroadcast учитывает рассылку по базовой теме (answers:12 считается как answers)
func (m *HubMetrics) TopicBroadcast(topic string) {
	m.mu.Lock()
	m.topicCounts[baseTopic(topic)]++
	m.mu.Unlock()
}

// Snapshot копирует счетчики
func (m *HubMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	byRole := make(map[string]int64, len(m.activeByRole))
	var active int64
	for role, n := range m.activeByRole {
		byRole[role] = n
		active += n
	}
	topics := make(map[string]int64, len(m.topicCounts))
	for topic, n := range m.topicCounts {
		topics[topic] = n
	}
	m.mu.Unlock()

	s := MetricsSnapshot{
		ActiveConnections: active,
		ActiveByRole:      byRole,
		TotalConnections:  m.totalConnections.Load(),
		MessagesSent:      m.messagesSent.Load(),
		MessagesReceived:  m.messagesReceived.Load(),
		MessagesDropped:   m.messagesDropped.Load(),
		SlowClientsKicked: m.slowClientsKick.Load(),
		InactiveRemoved:   m.inactiveRemoved.Load(),
		BusPublished:      m.busPublished.Load(),
		BusReceived:       m.busReceived.Load(),
		TopicBroadcasts:   topics,
		UptimeSeconds:     time.Since(m.startTime).Seconds(),
	}
	if ms := m.lastCleanup.Load(); ms > 0 {
		t := time.UnixMilli(ms)
		s.LastCleanup = &t
	}
	return s
}
