package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/yourusername/survival-quiz/internal/pkg/errors"
)

// AdminKeyChecker проверяет ключ оператора по bcrypt-хешу.
// Пустой хеш выключает проверку: админ-поверхность открыта.
type AdminKeyChecker struct {
	hash []byte
}

// NewAdminKeyChecker создает проверку. Некорректный хеш - ошибка конфигурации.
func NewAdminKeyChecker(hash string) (*AdminKeyChecker, error) {
	if hash == "" {
		return &AdminKeyChecker{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid admin key hash: %w", err)
	}
	return &AdminKeyChecker{hash: []byte(hash)}, nil
}

// Enabled сообщает, включена ли проверка ключа
func (c *AdminKeyChecker) Enabled() bool {
	return c != nil && len(c.hash) > 0
}

// Verify сравнивает ключ с хешем
func (c *AdminKeyChecker) Verify(key string) error {
	if !c.Enabled() {
		return nil
	}
	if key == "" {
		return fmt.Errorf("%w: admin key is empty", apperrors.ErrUnauthorized)
	}
	err := bcrypt.CompareHashAndPassword(c.hash, []byte(key))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%w: wrong admin key", apperrors.ErrUnauthorized)
	}
	return err
}

// HashAdminKey строит хеш для конфигурации
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
