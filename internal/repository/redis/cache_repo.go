package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/survival-quiz/internal/domain/repository"
	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
)

// BoardCacheRepo хранит ответы табло строками JSON
type BoardCacheRepo struct {
	client redis.UniversalClient
	prefix string
}

var _ repository.BoardCacheRepository = (*BoardCacheRepo)(nil)

// NewBoardCacheRepo создает кеш табло с префиксом ключей
func NewBoardCacheRepo(client redis.UniversalClient, keyPrefix string) (*BoardCacheRepo, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for BoardCacheRepo")
	}
	return &BoardCacheRepo{client: client, prefix: keyPrefix}, nil
}

func (r *BoardCacheRepo) key(k repository.BoardKey) string {
	return fmt.Sprintf("%sboard:%s:%d:%d:%d", r.prefix, k.View, k.QuestionID, k.StartTimestamp, k.Page)
}

func (r *BoardCacheRepo) Get(ctx context.Context, key repository.BoardKey, dest interface{}) error {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *BoardCacheRepo) Put(ctx context.Context, key repository.BoardKey, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}
