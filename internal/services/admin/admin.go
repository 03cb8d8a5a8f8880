// Package services содержит логику консоли администратора. Каждая операция
// заново проверяет пароль вызывающего администратора: сессии для
// привилегированных действий не переиспользуются. Все мутации пишутся в
// журнал аудита и публикуются как события безопасности best-effort —
// отказ журнала или брокера не блокирует саму мутацию.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lasetdev/laset-account/internal/lib/errs"
	"github.com/lasetdev/laset-account/internal/lib/password"
	"github.com/lasetdev/laset-account/internal/lib/rabbitmq"
	"github.com/lasetdev/laset-account/internal/lib/sl"
	"github.com/lasetdev/laset-account/internal/metrics"
	"github.com/lasetdev/laset-account/internal/models"
)

// AdminStore описывает контракт хранилища для операций администрирования.
type AdminStore interface {
	GetUserByUID(ctx context.Context, uid int) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateRole(ctx context.Context, uid int, role string) error
	UpdateBanned(ctx context.Context, uid int, banned bool) error
	UpdateStatus(ctx context.Context, uid int, status string) error
	UpdateHWID(ctx context.Context, uid int, hwid *string) error
	UpdateSubscription(ctx context.Context, uid int, subscriptionType string, expires time.Time) error
	DeleteUser(ctx context.Context, uid int) error
	DeleteLeakedUsers(ctx context.Context) (int64, error)
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
}

// AdminService реализует привилегированные мутации аккаунтов.
type AdminService struct {
	store  AdminStore
	log    *slog.Logger
	events *rabbitmq.Publisher
}

// NewAdminService создает новый экземпляр AdminService.
func NewAdminService(store AdminStore, log *slog.Logger, events *rabbitmq.Publisher) *AdminService {
	return &AdminService{
		store:  store,
		log:    log,
		events: events,
	}
}

// authenticate проверяет, что вызывающий существует, имеет роль admin
// и предъявил верный пароль.
func (s *AdminService) authenticate(ctx context.Context, uid int, rawPassword string) (*models.User, error) {
	admin, err := s.store.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrNotAdmin
		}
		return nil, err
	}
	if admin.Role != models.RoleAdmin {
		return nil, errs.ErrNotAdmin
	}
	if err := password.Compare(admin.PasswordHash, rawPassword); err != nil {
		return nil, errs.ErrInvalidCredentials
	}
	return admin, nil
}

// audit пишет запись журнала best-effort: ошибка логируется и не
// распространяется.
func (s *AdminService) audit(ctx context.Context, adminUID int, action string, targetUID int, details *string) {
	metrics.AdminActionsTotal.WithLabelValues(action).Inc()
	if err := s.store.AppendAudit(ctx, models.AuditEntry{
		AdminUID:  adminUID,
		Action:    action,
		TargetUID: targetUID,
		Details:   details,
	}); err != nil {
		s.log.Error("failed to append audit entry", sl.Err(err),
			slog.String("action", action), slog.Int("target_uid", targetUID))
	}
}

// publish отправляет событие безопасности best-effort.
func (s *AdminService) publish(kind string, uid int, details string) {
	if err := s.events.Publish(rabbitmq.SecurityEvent{
		Kind:    kind,
		UID:     uid,
		Details: details,
		At:      time.Now().UTC(),
	}); err != nil {
		s.log.Error("failed to publish security event", sl.Err(err),
			slog.String("kind", kind))
	}
}

// ListUsers возвращает все аккаунты для панели администратора.
func (s *AdminService) ListUsers(ctx context.Context, adminUID int, rawPassword string) ([]*models.User, error) {
	const op = "admin.ListUsers"
	if _, err := s.authenticate(ctx, adminUID, rawPassword); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// SetRole назначает роль аккаунту.
func (s *AdminService) SetRole(ctx context.Context, adminUID int, rawPassword string, targetUID int, role string) error {
	const op = "admin.SetRole"
	if !models.ValidRole(role) {
		return fmt.Errorf("%s: %w", op, errs.ErrInvalidRole)
	}
	if _, err := s.authenticate(ctx, adminUID, rawPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.UpdateRole(ctx, targetUID, role); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	details := "role changed to " + role
	s.audit(ctx, adminUID, "SET_ROLE", targetUID, &details)
	return nil
}

// SetBanned выставляет или снимает бан. Аккаунт с ролью admin
// забанить нельзя.
func (s *AdminService) SetBanned(ctx context.Context, adminUID int, rawPassword string, targetUID int, banned bool) error {
	const op = "admin.SetBanned"
	if _, err := s.authenticate(ctx, adminUID, rawPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	target, err := s.store.GetUserByUID(ctx, targetUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if target.Role == models.RoleAdmin {
		return fmt.Errorf("%s: %w", op, errs.ErrProtectedAdmin)
	}
	if err := s.store.UpdateBanned(ctx, targetUID, banned); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	action := "BAN"
	kind := "ban"
	if !banned {
		action = "UNBAN"
		kind = "unban"
	}
	s.audit(ctx, adminUID, action, targetUID, nil)
	s.publish(kind, targetUID, "")
	return nil
}

// Delete удаляет аккаунт. Аккаунт с ролью admin удалить нельзя.
func (s *AdminService) Delete(ctx context.Context, adminUID int, rawPassword string, targetUID int) error {
	const op = "admin.Delete"
	if _, err := s.authenticate(ctx, adminUID, rawPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	target, err := s.store.GetUserByUID(ctx, targetUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if target.Role == models.RoleAdmin {
		return fmt.Errorf("%s: %w", op, errs.ErrProtectedAdmin)
	}
	if err := s.store.DeleteUser(ctx, targetUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.audit(ctx, adminUID, "DELETE", targetUID, nil)
	s.publish("delete", targetUID, "")
	return nil
}

// UpdateSubscription выдаёт подписку на days дней от текущего момента;
// тип lifetime получает фиксированную дату LifetimeExpiry.
func (s *AdminService) UpdateSubscription(ctx context.Context, adminUID int, rawPassword string, targetUID int, subscriptionType string, days int) error {
	const op = "admin.UpdateSubscription"
	if _, err := s.authenticate(ctx, adminUID, rawPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	expires := time.Now().UTC().AddDate(0, 0, days)
	if subscriptionType == models.SubscriptionLifetime {
		expires = models.LifetimeExpiry
	}
	if err := s.store.UpdateSubscription(ctx, targetUID, subscriptionType, expires); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	details := fmt.Sprintf("subscription %s until %s", subscriptionType, expires.Format(time.RFC3339))
	s.audit(ctx, adminUID, "UPDATE_SUBSCRIPTION", targetUID, &details)
	return nil
}

// ResetHWID снимает привязку HWID у целевого аккаунта (административный
// сброс, пароль владельца не требуется).
func (s *AdminService) ResetHWID(ctx context.Context, adminUID int, rawPassword string, targetUID int) error {
	const op = "admin.ResetHWID"
	if _, err := s.authenticate(ctx, adminUID, rawPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.UpdateHWID(ctx, targetUID, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.audit(ctx, adminUID, "RESET_HWID", targetUID, nil)
	return nil
}

// ClearStatus возвращает аккаунту статус normal после разбирательства
// по утечке.
func (s *AdminService) ClearStatus(ctx context.Context, adminUID int, rawPassword string, targetUID int) error {
	const op = "admin.ClearStatus"
	if _, err := s.authenticate(ctx, adminUID, rawPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.UpdateStatus(ctx, targetUID, models.StatusNormal); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.audit(ctx, adminUID, "CLEAR_STATUS", targetUID, nil)
	return nil
}

// ClearLeaked удаляет все аккаунты со статусом leaked (кроме
// администраторов) и возвращает число удалённых.
func (s *AdminService) ClearLeaked(ctx context.Context, adminUID int, rawPassword string) (int64, error) {
	const op = "admin.ClearLeaked"
	if _, err := s.authenticate(ctx, adminUID, rawPassword); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	removed, err := s.store.DeleteLeakedUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	details := fmt.Sprintf("removed %d leaked accounts", removed)
	s.audit(ctx, adminUID, "CLEAR_LEAKED", 0, &details)
	return removed, nil
}
