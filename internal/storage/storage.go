// Package storage определяет контракт хранилища аккаунтов. Две реализации —
// PostgreSQL (internal/storage/repository) и JSON-файл
// (internal/storage/jsonfile) — выбираются конфигурацией и взаимозаменяемы.
package storage

import (
	"context"
	"time"

	"github.com/lasetdev/laset-account/internal/models"
)

// Store описывает полный контракт хранилища аккаунтов.
//
// Реализации возвращают ошибки словаря errs (ErrNotFound, ErrEmailTaken,
// ErrNicknameTaken), обёрнутые контекстом операции.
type Store interface {
	// CreateUser сохраняет нового пользователя и возвращает назначенный uid.
	// Уникальность: email с учётом регистра, nickname без учёта.
	CreateUser(ctx context.Context, user models.User) (int, error)

	GetUserByUID(ctx context.Context, uid int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByNickname ищет без учёта регистра.
	GetUserByNickname(ctx context.Context, nickname string) (*models.User, error)

	CountUsers(ctx context.Context) (int, error)
	// NextUID возвращает max(uid)+1, не резервируя значение.
	NextUID(ctx context.Context) (int, error)
	// ListUsers возвращает все аккаунты по возрастанию uid.
	ListUsers(ctx context.Context) ([]*models.User, error)

	UpdateNickname(ctx context.Context, uid int, nickname string) error
	UpdatePasswordHash(ctx context.Context, uid int, passwordHash string) error
	// UpdateHWID записывает хэш отпечатка, nil снимает привязку.
	UpdateHWID(ctx context.Context, uid int, hwid *string) error
	UpdateRole(ctx context.Context, uid int, role string) error
	UpdateBanned(ctx context.Context, uid int, banned bool) error
	UpdateStatus(ctx context.Context, uid int, status string) error
	UpdateSubscription(ctx context.Context, uid int, subscriptionType string, expires time.Time) error
	// RecordLogin инкрементирует счётчик входов и обновляет last_login,
	// возвращает новое значение счётчика.
	RecordLogin(ctx context.Context, uid int) (int, error)

	DeleteUser(ctx context.Context, uid int) error
	// DeleteLeakedUsers удаляет все аккаунты со статусом leaked, кроме
	// администраторов, и возвращает количество удалённых.
	DeleteLeakedUsers(ctx context.Context) (int64, error)

	// AppendAudit добавляет запись журнала действий администратора.
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
}
