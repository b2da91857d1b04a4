package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный билет, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у клиента недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда билет подключения истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для конфликтов состояния (переход не из той фазы, дубликат ответа).
	ErrConflict = errors.New("resource state conflict")

	// ErrConfirmationRequired возвращается, когда действие необратимо и требует подтверждения оператора.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrUnavailable возвращается, когда игровой контроллер остановлен.
	ErrUnavailable = errors.New("service unavailable")
)
