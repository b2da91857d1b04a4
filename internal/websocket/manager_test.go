package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SubscribeRespectsTopicFilter(t *testing.T) {
	// Arrange
	hub := startHub(t, "a")
	manager := NewManager(hub)
	manager.SetTopicFilter(func(client *Client, topic string) bool {
		return client.Role != RolePlayer || topic != "presence"
	})
	player := connect(t, hub, "p1", RolePlayer)

	// Act
	err := manager.HandleMessage([]byte(`{"type":"user:subscribe","data":{"topics":["questions","presence"]}}`), player)

	// Assert
	require.NoError(t, err)
	assert.True(t, player.IsSubscribed("questions"))
	assert.False(t, player.IsSubscribed("presence"), "Тема presence недоступна игроку")
	event := receive(t, player)
	assert.Equal(t, EventServerError, event.Type)
}

func TestManager_UnknownTypeKeepsConnection(t *testing.T) {
	hub := startHub(t, "a")
	manager := NewManager(hub)
	screen := connect(t, hub, "screen-1", RoleScreen)

	err := manager.HandleMessage([]byte(`{"type":"user:dance","data":{}}`), screen)

	assert.NoError(t, err, "Неизвестный тип не должен закрывать соединение")
	assert.Equal(t, EventServerError, receive(t, screen).Type)
}

func TestManager_InvalidJSONClosesConnection(t *testing.T) {
	hub := startHub(t, "a")
	manager := NewManager(hub)
	screen := connect(t, hub, "screen-1", RoleScreen)

	err := manager.HandleMessage([]byte(`not json`), screen)

	assert.Error(t, err)
	assert.Equal(t, EventServerError, receive(t, screen).Type)
}
