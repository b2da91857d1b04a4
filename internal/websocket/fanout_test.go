package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survival-quiz/internal/service/gamecore"
)

// memoryBus - шина в памяти, общая для нескольких экземпляров в тесте
type memoryBus struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

func newMemoryBus() *memoryBus {
	return &memoryBus{subs: make(map[string][]chan []byte)}
}

// memoryBusProvider реализует PubSubProvider для одного экземпляра
type memoryBusProvider struct {
	bus *memoryBus
}

func (p *memoryBusProvider) Publish(channel string, message []byte) error {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()
	for _, ch := range p.bus.subs[channel] {
		ch <- message
	}
	return nil
}

func (p *memoryBusProvider) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 16)
	p.bus.mu.Lock()
	p.bus.subs[channel] = append(p.bus.subs[channel], ch)
	p.bus.mu.Unlock()
	return ch, nil
}

func (p *memoryBusProvider) Close() error { return nil }

func startFanout(t *testing.T, bus *memoryBus, instanceID string) (*Hub, *Fanout) {
	t.Helper()
	hub := startHub(t, instanceID)
	fanout := NewFanout(hub, &memoryBusProvider{bus: bus}, "quiz.")
	require.NoError(t, fanout.Start())
	t.Cleanup(fanout.Stop)
	return hub, fanout
}

func TestFanout_PublishReachesOtherInstanceOnce(t *testing.T) {
	// Arrange
	bus := newMemoryBus()
	hubA, fanoutA := startFanout(t, bus, "a")
	hubB, _ := startFanout(t, bus, "b")
	screenA := connect(t, hubA, "screen-a", RoleScreen, gamecore.TopicAnswers)
	screenB := connect(t, hubB, "screen-b", RoleScreen, gamecore.TopicAnswers)

	// Act
	fanoutA.Publish(gamecore.AnswersTopic(5), gamecore.EventAnswersChanged, map[string]int{"count": 1})

	// Assert
	assert.Equal(t, gamecore.EventAnswersChanged, receive(t, screenA).Type)
	assert.Equal(t, gamecore.EventAnswersChanged, receive(t, screenB).Type)
	assertSilent(t, screenA)
}

func TestFanout_SendToPlayerOnAnotherInstance(t *testing.T) {
	// Arrange
	bus := newMemoryBus()
	hubA, fanoutA := startFanout(t, bus, "a")
	hubB, _ := startFanout(t, bus, "b")
	local := connect(t, hubA, "local", RolePlayer)
	remote := connect(t, hubB, "remote", RolePlayer)

	// Act
	fanoutA.SendToPlayer("local", gamecore.EventAnswerAccepted, nil)
	fanoutA.SendToPlayer("remote", gamecore.EventPlayerUpdated, nil)

	// Assert
	assert.Equal(t, gamecore.EventAnswerAccepted, receive(t, local).Type)
	assert.Equal(t, gamecore.EventPlayerUpdated, receive(t, remote).Type)
	assertSilent(t, local)
}

func TestFanout_OnRemoteFiresOnlyForOtherInstance(t *testing.T) {
	// Arrange
	bus := newMemoryBus()
	_, fanoutA := startFanout(t, bus, "a")
	_, fanoutB := startFanout(t, bus, "b")
	ownCalls := make(chan struct{}, 4)
	remoteCalls := make(chan struct{}, 4)
	fanoutA.OnRemote(gamecore.TopicGameState, func() { ownCalls <- struct{}{} })
	fanoutB.OnRemote(gamecore.TopicGameState, func() { remoteCalls <- struct{}{} })

	// Act
	fanoutA.Publish(gamecore.TopicGameState, gamecore.EventGameState, map[string]string{"phase": "ACTIVE"})
	fanoutA.Publish(gamecore.AnswersTopic(5), gamecore.EventAnswersChanged, nil)

	// Assert
	select {
	case <-remoteCalls:
	case <-time.After(time.Second):
		t.Fatal("Обработчик на втором экземпляре не вызван")
	}
	select {
	case <-ownCalls:
		t.Fatal("Собственная рассылка не должна вызывать обработчик")
	case <-remoteCalls:
		t.Fatal("Рассылка в другую тему не должна вызывать обработчик")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBaseTopic(t *testing.T) {
	assert.Equal(t, "answers", baseTopic("answers:12"))
	assert.Equal(t, "game_state", baseTopic("game_state"))
}
