package websocket

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/survival-quiz/internal/service/gamecore"
)

// busTopics - базовые темы, на которые подписан каждый экземпляр
var busTopics = []string{
	gamecore.TopicGameState,
	gamecore.TopicQuestions,
	gamecore.TopicPlayers,
	gamecore.TopicAnswers,
	gamecore.TopicPresence,
}

const directChannel = "direct"

// Fanout доставляет события локальным клиентам и ретранслирует их остальным экземплярам.
// Реализует gamecore.Publisher.
type Fanout struct {
	hub      *Hub
	provider PubSubProvider
	prefix   string

	hooksMu sync.RWMutex
	hooks   map[string][]func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ gamecore.Publisher = (*Fanout)(nil)

// NewFanout создает fan-out. provider может быть nil для одиночного режима.
func NewFanout(hub *Hub, provider PubSubProvider, channelPrefix string) *Fanout {
	if provider == nil {
		provider = &NoOpPubSub{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Fanout{
		hub:      hub,
		provider: provider,
		prefix:   channelPrefix,
		hooks:    make(map[string][]func()),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (f *Fanout) channel(name string) string {
	return f.prefix + name
}

// baseTopic отрезает уточнение темы: answers:12 -> answers
func baseTopic(topic string) string {
	if i := strings.IndexByte(topic, ':'); i > 0 {
		return topic[:i]
	}
	return topic
}

// OnRemote регистрирует обработчик рассылок другого экземпляра по базовой теме.
// Обработчик вызывается в горутине чтения шины и не должен блокироваться.
func (f *Fanout) OnRemote(topic string, fn func()) {
	f.hooksMu.Lock()
	defer f.hooksMu.Unlock()
	f.hooks[baseTopic(topic)] = append(f.hooks[baseTopic(topic)], fn)
}

func (f *Fanout) runHooks(topic string) {
	f.hooksMu.RLock()
	hooks := f.hooks[baseTopic(topic)]
	f.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

// Start подписывается на каналы шины
func (f *Fanout) Start() error {
	for _, topic := range busTopics {
		ch, err := f.provider.Subscribe(f.ctx, f.channel(topic))
		if err != nil {
			return err
		}
		f.wg.Add(1)
		go f.consume(topic, ch)
	}

	ch, err := f.provider.Subscribe(f.ctx, f.channel(directChannel))
	if err != nil {
		return err
	}
	f.wg.Add(1)
	go f.consume(directChannel, ch)

	log.Printf("[Fanout] Запущен, instance=%s", f.hub.InstanceID())
	return nil
}

// Stop останавливает чтение шины
func (f *Fanout) Stop() {
	f.cancel()
	f.wg.Wait()
	if err := f.provider.Close(); err != nil {
		log.Printf("[Fanout] Ошибка закрытия провайдера: %v", err)
	}
}

// Publish рассылает событие подписчикам темы на всех экземплярах
func (f *Fanout) Publish(topic string, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[Fanout] Ошибка сериализации события %s: %v", eventType, err)
		return
	}

	f.hub.BroadcastLocal(topic, payload)
	f.relay(f.channel(baseTopic(topic)), BusMessage{
		Kind:       busKindBroadcast,
		Topic:      topic,
		InstanceID: f.hub.InstanceID(),
		Payload:    payload,
		Timestamp:  time.Now(),
	})
}

// SendToPlayer отправляет событие игроку, где бы он ни был подключен
func (f *Fanout) SendToPlayer(playerID string, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[Fanout] Ошибка сериализации события %s: %v", eventType, err)
		return
	}

	if f.hub.SendToUser(playerID, payload) {
		return
	}
	f.relay(f.channel(directChannel), BusMessage{
		Kind:        busKindDirect,
		RecipientID: playerID,
		InstanceID:  f.hub.InstanceID(),
		Payload:     payload,
		Timestamp:   time.Now(),
	})
}

func (f *Fanout) relay(channel string, msg BusMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Fanout] Ошибка сериализации конверта: %v", err)
		return
	}
	if err := f.provider.Publish(channel, data); err != nil {
		log.Printf("[Fanout] Ошибка публикации в %s: %v", channel, err)
		return
	}
	f.hub.metrics.AddBusPublished()
}

func (f *Fanout) consume(name string, ch <-chan []byte) {
	defer f.wg.Done()
	for {
		select {
		case <-f.ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				log.Printf("[Fanout] Канал шины %s закрыт", name)
				return
			}
			f.handleBusMessage(data)
		}
	}
}

// handleBusMessage доставляет сообщение другого экземпляра локальным клиентам
func (f *Fanout) handleBusMessage(data []byte) {
	var msg BusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("[Fanout] Ошибка десериализации сообщения шины: %v", err)
		return
	}
	if msg.InstanceID == f.hub.InstanceID() {
		return
	}
	f.hub.metrics.AddBusReceived()

	switch msg.Kind {
	case busKindBroadcast:
		f.hub.BroadcastLocal(msg.Topic, msg.Payload)
		f.runHooks(msg.Topic)
	case busKindDirect:
		if msg.RecipientID != "" {
			f.hub.SendToUser(msg.RecipientID, msg.Payload)
		}
	default:
		log.Printf("[Fanout] Неизвестный вид сообщения шины %q от %s", msg.Kind, msg.InstanceID)
	}
}
