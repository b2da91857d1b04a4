package repository

import (
	"context"
	"time"
)

// PresenceRepository хранит множество игроков, подключенных сейчас
type PresenceRepository interface {
	// Touch отмечает игрока живым. joined=true, если раньше его в множестве не было.
	Touch(ctx context.Context, playerID string, at time.Time) (joined bool, err error)

	// Remove убирает игрока. left=true, если он был в множестве.
	Remove(ctx context.Context, playerID string) (left bool, err error)

	// Online возвращает игроков, отметившихся не раньше since
	Online(ctx context.Context, since time.Time) ([]string, error)

	// Prune удаляет отметки старше before и возвращает удаленных
	Prune(ctx context.Context, before time.Time) ([]string, error)
}
