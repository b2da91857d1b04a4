package gamecore

import (
	"github.com/jonboulle/clockwork"
)

// ServerTimeMs возвращает серверное время в мс от эпохи
func ServerTimeMs(clock clockwork.Clock) int64 {
	return clock.Now().UnixMilli()
}

// LatencyMs - время от старта окна до метки клиента, не меньше нуля
func LatencyMs(startTimestamp, clientTimestamp int64) int64 {
	latency := clientTimestamp - startTimestamp
	if latency < 0 {
		return 0
	}
	return latency
}

// RemainingSeconds считает остаток времени по синхронизированным часам клиента:
// limit - (localNow + offset - start) / 1000, но не меньше нуля.
func RemainingSeconds(startTimestamp int64, timeLimitSec int, localNowMs, offsetMs int64) float64 {
	elapsed := float64(localNowMs+offsetMs-startTimestamp) / 1000
	remaining := float64(timeLimitSec) - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
