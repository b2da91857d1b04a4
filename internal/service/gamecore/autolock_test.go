package gamecore

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func waitFired(ch <-chan LockKey) (LockKey, bool) {
	select {
	case k := <-ch:
		return k, true
	case <-time.After(time.Second):
		return LockKey{}, false
	}
}

func TestAutoLock_FiresAfterLimitPlusGrace(t *testing.T) {
	// Arrange
	clock := clockwork.NewFakeClockAt(testEpoch)
	fired := make(chan LockKey, 1)
	lock := NewAutoLock(clock, time.Second, func(k LockKey) { fired <- k })
	key := LockKey{QuestionID: 4, StartTimestamp: testEpoch.UnixMilli()}

	// Act: до дедлайна таймер молчит
	lock.Arm(key, 10*time.Second)
	clock.Advance(10500 * time.Millisecond)

	// Assert
	select {
	case <-fired:
		t.Fatal("Таймер не должен срабатывать до лимита + запаса")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(600 * time.Millisecond)
	got, ok := waitFired(fired)
	assert.True(t, ok, "Таймер должен сработать после лимита + 1с")
	assert.Equal(t, key, got)

	_, armed := lock.Armed()
	assert.False(t, armed, "После срабатывания таймер не взведен")
}

func TestAutoLock_CancelPreventsFire(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	fired := make(chan LockKey, 1)
	lock := NewAutoLock(clock, time.Second, func(k LockKey) { fired <- k })

	lock.Arm(LockKey{QuestionID: 1, StartTimestamp: testEpoch.UnixMilli()}, 5*time.Second)
	lock.Cancel()
	clock.Advance(time.Minute)

	_, ok := waitFired(fired)
	assert.False(t, ok, "Снятый таймер не срабатывает")
}

func TestAutoLock_RearmReplacesPreviousWindow(t *testing.T) {
	// Arrange
	clock := clockwork.NewFakeClockAt(testEpoch)
	fired := make(chan LockKey, 2)
	lock := NewAutoLock(clock, time.Second, func(k LockKey) { fired <- k })
	oldKey := LockKey{QuestionID: 1, StartTimestamp: testEpoch.UnixMilli()}
	newKey := LockKey{QuestionID: 2, StartTimestamp: testEpoch.Add(3 * time.Second).UnixMilli()}

	// Act
	lock.Arm(oldKey, 5*time.Second)
	clock.Advance(3 * time.Second)
	lock.Arm(newKey, 5*time.Second)
	clock.Advance(6 * time.Second)

	// Assert
	got, ok := waitFired(fired)
	assert.True(t, ok)
	assert.Equal(t, newKey, got, "Срабатывает только новое окно")
	_, ok = waitFired(fired)
	assert.False(t, ok, "Старое окно не срабатывает")
}

func TestAutoLock_PastDeadlineFiresImmediately(t *testing.T) {
	// Arrange: после рестарта окно уже истекло
	clock := clockwork.NewFakeClockAt(testEpoch.Add(time.Minute))
	fired := make(chan LockKey, 1)
	lock := NewAutoLock(clock, time.Second, func(k LockKey) { fired <- k })

	// Act
	lock.Arm(LockKey{QuestionID: 9, StartTimestamp: testEpoch.UnixMilli()}, 10*time.Second)
	clock.Advance(time.Millisecond)

	// Assert
	_, ok := waitFired(fired)
	assert.True(t, ok)
}
