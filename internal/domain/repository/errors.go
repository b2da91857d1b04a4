package repository

import "errors"

var (
	// ErrEliminationApplied означает, что выбывание по вопросу уже применено в текущем периоде.
	ErrEliminationApplied = errors.New("elimination already applied for question")

	// ErrStaleGameState означает, что состояние игры уже перезаписал другой экземпляр.
	ErrStaleGameState = errors.New("game state revision is stale")
)
