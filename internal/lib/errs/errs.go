// Package errs определяет единый словарь ошибок сервиса аккаунтов и их
// отображение в HTTP-статусы. Хранилище и сервисы возвращают эти ошибки
// (обёрнутыми через fmt.Errorf), обработчики сопоставляют их кодам
// через errors.Is.
package errs

import (
	"errors"
	"net/http"
)

// Ошибки уровня предметной области. Тексты короткие и пригодны для показа
// пользователю; внутренние детали остаются в серверных логах.
var (
	ErrNotFound           = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBanned             = errors.New("account banned")
	ErrLeaked             = errors.New("account flagged as leaked")
	ErrHWIDMismatch       = errors.New("hwid mismatch")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNicknameTaken      = errors.New("nickname already taken")
	ErrInvalidRole        = errors.New("invalid role")
	ErrNotAdmin           = errors.New("access denied")
	ErrProtectedAdmin     = errors.New("admin accounts cannot be modified")
	ErrSuspicious         = errors.New("suspicious activity detected")
	ErrRateLimited        = errors.New("too many requests")
)

// HTTPStatus возвращает HTTP-статус для ошибки словаря,
// http.StatusInternalServerError для всех прочих.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBanned),
		errors.Is(err, ErrLeaked),
		errors.Is(err, ErrHWIDMismatch),
		errors.Is(err, ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrNicknameTaken),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrProtectedAdmin),
		errors.Is(err, ErrSuspicious):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Message возвращает текст для клиента: текст ошибки словаря либо
// обезличенное сообщение для внутренних ошибок.
func Message(err error) string {
	for _, known := range []error{
		ErrNotFound, ErrInvalidCredentials, ErrBanned, ErrLeaked,
		ErrHWIDMismatch, ErrEmailTaken, ErrNicknameTaken, ErrInvalidRole,
		ErrNotAdmin, ErrProtectedAdmin, ErrSuspicious, ErrRateLimited,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal server error"
}
