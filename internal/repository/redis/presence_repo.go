package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// PresenceRepo хранит присутствие игроков в sorted set: member - id игрока, score - время последней отметки (мс)
type PresenceRepo struct {
	client redis.UniversalClient
	key    string
}

// NewPresenceRepo создает репозиторий присутствия
func NewPresenceRepo(client redis.UniversalClient, key string) (*PresenceRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for PresenceRepo")
	}
	if key == "" {
		key = "presence:players"
	}
	return &PresenceRepo{client: client, key: key}, nil
}

// Touch обновляет отметку игрока
func (r *PresenceRepo) Touch(ctx context.Context, playerID string, at time.Time) (bool, error) {
	added, err := r.client.ZAdd(ctx, r.key, &redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: playerID,
	}).Result()
	if err != nil {
		return false, err
	}
	return added > 0, nil
}

// Remove убирает игрока из множества
func (r *PresenceRepo) Remove(ctx context.Context, playerID string) (bool, error) {
	removed, err := r.client.ZRem(ctx, r.key, playerID).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// Online возвращает игроков с отметкой не раньше since
func (r *PresenceRepo) Online(ctx context.Context, since time.Time) ([]string, error) {
	return r.client.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
}

// Prune удаляет устаревшие отметки и возвращает удаленных игроков
func (r *PresenceRepo) Prune(ctx context.Context, before time.Time) ([]string, error) {
	max := "(" + strconv.FormatInt(before.UnixMilli(), 10)
	stale, err := r.client.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}

	members := make([]interface{}, len(stale))
	for i, id := range stale {
		members[i] = id
	}
	if err := r.client.ZRem(ctx, r.key, members...).Err(); err != nil {
		return nil, err
	}
	return stale, nil
}
