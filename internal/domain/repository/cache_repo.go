package repository

import (
	"context"
	"time"
)

// BoardKey адресует готовый ответ табло.
// StartTimestamp отличает повторный показ того же вопроса.
type BoardKey struct {
	View           string // distribution или ranking
	QuestionID     uint
	StartTimestamp int64
	Page           int
}

// BoardCacheRepository - короткоживущий кеш ответов табло, общий для экземпляров
type BoardCacheRepository interface {
	// Get заполняет dest или возвращает ErrNotFound
	Get(ctx context.Context, key BoardKey, dest interface{}) error
	Put(ctx context.Context, key BoardKey, value interface{}, ttl time.Duration) error
}
