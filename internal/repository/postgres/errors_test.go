package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}), "pgx: 23505 - нарушение уникальности")
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})), "lib/pq: обернутая ошибка")
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey), "Переведенная ошибка gorm")

	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}), "Нарушение внешнего ключа - не дубликат")
	assert.False(t, isUniqueViolation(fmt.Errorf("timeout")))
	assert.False(t, isUniqueViolation(nil))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(gorm.ErrForeignKeyViolated), "Переведенная ошибка gorm")
	assert.True(t, isForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isForeignKeyViolation(fmt.Errorf("delete: %w", &pq.Error{Code: "23503"})))

	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: "23505"}), "Дубликат - не нарушение внешнего ключа")
	assert.False(t, isForeignKeyViolation(nil))
}
