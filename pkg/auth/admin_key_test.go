package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
)

func TestAdminKeyChecker_Verify(t *testing.T) {
	// Arrange
	hash, err := HashAdminKey("operator-key")
	require.NoError(t, err)
	checker, err := NewAdminKeyChecker(hash)
	require.NoError(t, err)

	// Act & Assert
	assert.True(t, checker.Enabled())
	assert.NoError(t, checker.Verify("operator-key"), "Верный ключ должен проходить")
	assert.ErrorIs(t, checker.Verify("wrong"), apperrors.ErrUnauthorized, "Неверный ключ должен отклоняться")
	assert.ErrorIs(t, checker.Verify(""), apperrors.ErrUnauthorized, "Пустой ключ должен отклоняться")
}

func TestAdminKeyChecker_DisabledWithoutHash(t *testing.T) {
	checker, err := NewAdminKeyChecker("")
	require.NoError(t, err)

	assert.False(t, checker.Enabled())
	assert.NoError(t, checker.Verify(""), "Без хеша проверка выключена")
}

func TestAdminKeyChecker_InvalidHash(t *testing.T) {
	_, err := NewAdminKeyChecker("plain-text")
	assert.Error(t, err, "Строка не в формате bcrypt должна отклоняться")
}
