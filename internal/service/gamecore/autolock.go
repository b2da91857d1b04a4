package gamecore

import (
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// LockKey определяет окно ответов, к которому привязан таймер.
// Срабатывание применяется, только если ключ все еще совпадает с состоянием.
type LockKey struct {
	QuestionID     uint
	StartTimestamp int64
}

// AutoLock - таймер, закрывающий окно ответов через лимит + запас
type AutoLock struct {
	clock clockwork.Clock
	grace time.Duration
	fire  func(LockKey)

	mu         sync.Mutex
	timer      clockwork.Timer
	stop       chan struct{}
	key        LockKey
	armed      bool
	generation uint64
}

// NewAutoLock создает таймер. fire вызывается из отдельной горутины.
func NewAutoLock(clock clockwork.Clock, grace time.Duration, fire func(LockKey)) *AutoLock {
	return &AutoLock{
		clock: clock,
		grace: grace,
		fire:  fire,
	}
}

// Deadline - момент срабатывания для окна
func (a *AutoLock) Deadline(key LockKey, timeLimit time.Duration) time.Time {
	return time.UnixMilli(key.StartTimestamp).Add(timeLimit + a.grace)
}

// Arm взводит таймер для окна, заменяя предыдущий.
// Если дедлайн уже прошел (например, после рестарта), срабатывает сразу.
func (a *AutoLock) Arm(key LockKey, timeLimit time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.armed && a.key == key {
		return
	}
	a.stopLocked()

	a.generation++
	gen := a.generation
	a.key = key
	a.armed = true

	delay := a.Deadline(key, timeLimit).Sub(a.clock.Now())
	if delay < 0 {
		delay = 0
	}
	t := a.clock.NewTimer(delay)
	stop := make(chan struct{})
	a.timer = t
	a.stop = stop

	log.Printf("[AutoLock] Таймер для вопроса #%d взведен на %v", key.QuestionID, delay)

	go func() {
		select {
		case <-t.Chan():
			a.mu.Lock()
			if a.generation != gen || !a.armed {
				a.mu.Unlock()
				return
			}
			a.armed = false
			a.timer = nil
			a.stop = nil
			a.mu.Unlock()
			a.fire(key)
		case <-stop:
		}
	}()
}

// Cancel снимает таймер
func (a *AutoLock) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.armed {
		log.Printf("[AutoLock] Таймер для вопроса #%d снят", a.key.QuestionID)
	}
	a.stopLocked()
}

// Armed возвращает ключ взведенного таймера
func (a *AutoLock) Armed() (LockKey, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.key, a.armed
}

func (a *AutoLock) stopLocked() {
	if a.timer != nil {
		a.timer.Stop()
	}
	if a.stop != nil {
		close(a.stop)
	}
	a.timer = nil
	a.stop = nil
	a.armed = false
	a.generation++
}
