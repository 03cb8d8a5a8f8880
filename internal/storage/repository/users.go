package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lasetdev/laset-account/internal/lib/errs"
	"github.com/lasetdev/laset-account/internal/models"
)

const userColumns = `uid, email, nickname, password_hash, role, banned, status, hwid,
			      subscription_type, subscription_expires, sessions, created_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var hwid, subType sql.NullString
	var subExpires, lastLogin sql.NullTime
	if err := row.Scan(&u.UID, &u.Email, &u.Nickname, &u.PasswordHash, &u.Role,
		&u.Banned, &u.Status, &hwid, &subType, &subExpires, &u.Sessions,
		&u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	if hwid.Valid {
		u.HWID = &hwid.String
	}
	if subType.Valid {
		u.SubscriptionType = &subType.String
	}
	if subExpires.Valid {
		u.SubscriptionExpires = &subExpires.Time
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return u, nil
}

// uniqueViolation переводит нарушение уникального ограничения в ошибку словаря.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return errs.ErrEmailTaken
		}
		return errs.ErrNicknameTaken
	}
	return nil
}

// CreateUser сохраняет нового пользователя и возвращает назначенный uid.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (int, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var uid int
	query := `INSERT INTO users (email, nickname, password_hash, role, banned, status)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Nickname, user.PasswordHash, user.Role, user.Banned,
		user.Status).Scan(&uid); err != nil {
		if known := uniqueViolation(err); known != nil {
			return 0, fmt.Errorf("%s: %w", op, known)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// GetUserByUID возвращает пользователя по его uid.
func (s *Storage) GetUserByUID(ctx context.Context, uid int) (*models.User, error) {
	const op = "storage.GetUserByUID"
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email (с учётом регистра).
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByNickname возвращает пользователя по никнейму без учёта регистра.
func (s *Storage) GetUserByNickname(ctx context.Context, nickname string) (*models.User, error) {
	const op = "storage.GetUserByNickname"
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(nickname) = LOWER($1)`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, nickname))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// CountUsers возвращает число зарегистрированных аккаунтов.
func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	const op = "storage.CountUsers"
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// NextUID возвращает следующий свободный uid, не резервируя его.
func (s *Storage) NextUID(ctx context.Context) (int, error) {
	const op = "storage.NextUID"
	var next int
	query := `SELECT COALESCE(MAX(uid), 0) + 1 FROM users`
	if err := s.DB.QueryRowContext(ctx, query).Scan(&next); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return next, nil
}

// ListUsers возвращает все аккаунты, упорядоченные по uid.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	query := `SELECT ` + userColumns + ` FROM users ORDER BY uid ASC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (s *Storage) updateField(ctx context.Context, op, query string, args ...any) error {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		if known := uniqueViolation(err); known != nil {
			return fmt.Errorf("%s: %w", op, known)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return nil
}

// UpdateNickname меняет никнейм; нарушение уникальности отображается
// в errs.ErrNicknameTaken.
func (s *Storage) UpdateNickname(ctx context.Context, uid int, nickname string) error {
	return s.updateField(ctx, "storage.UpdateNickname",
		`UPDATE users SET nickname = $1 WHERE uid = $2`, nickname, uid)
}

// UpdatePasswordHash записывает новый bcrypt-хэш пароля.
func (s *Storage) UpdatePasswordHash(ctx context.Context, uid int, passwordHash string) error {
	return s.updateField(ctx, "storage.UpdatePasswordHash",
		`UPDATE users SET password_hash = $1 WHERE uid = $2`, passwordHash, uid)
}

// UpdateHWID записывает хэш аппаратного отпечатка, nil снимает привязку.
func (s *Storage) UpdateHWID(ctx context.Context, uid int, hwid *string) error {
	return s.updateField(ctx, "storage.UpdateHWID",
		`UPDATE users SET hwid = $1 WHERE uid = $2`, hwid, uid)
}

// UpdateRole меняет роль аккаунта.
func (s *Storage) UpdateRole(ctx context.Context, uid int, role string) error {
	return s.updateField(ctx, "storage.UpdateRole",
		`UPDATE users SET role = $1 WHERE uid = $2`, role, uid)
}

// UpdateBanned выставляет или снимает бан.
func (s *Storage) UpdateBanned(ctx context.Context, uid int, banned bool) error {
	return s.updateField(ctx, "storage.UpdateBanned",
		`UPDATE users SET banned = $1 WHERE uid = $2`, banned, uid)
}

// UpdateStatus меняет статус аккаунта (normal/leaked).
func (s *Storage) UpdateStatus(ctx context.Context, uid int, status string) error {
	return s.updateField(ctx, "storage.UpdateStatus",
		`UPDATE users SET status = $1 WHERE uid = $2`, status, uid)
}

// UpdateSubscription записывает тип подписки и дату истечения.
func (s *Storage) UpdateSubscription(ctx context.Context, uid int, subscriptionType string, expires time.Time) error {
	return s.updateField(ctx, "storage.UpdateSubscription",
		`UPDATE users SET subscription_type = $1, subscription_expires = $2 WHERE uid = $3`,
		subscriptionType, expires, uid)
}

// RecordLogin инкрементирует счётчик входов, обновляет last_login
// и возвращает новое значение счётчика.
func (s *Storage) RecordLogin(ctx context.Context, uid int) (int, error) {
	const op = "storage.RecordLogin"
	var sessions int
	query := `UPDATE users
			  SET last_login = CURRENT_TIMESTAMP, sessions = sessions + 1
			  WHERE uid = $1
			  RETURNING sessions;`
	if err := s.DB.QueryRowContext(ctx, query, uid).Scan(&sessions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}

// DeleteUser удаляет аккаунт по uid.
func (s *Storage) DeleteUser(ctx context.Context, uid int) error {
	return s.updateField(ctx, "storage.DeleteUser",
		`DELETE FROM users WHERE uid = $1`, uid)
}

// DeleteLeakedUsers удаляет все аккаунты со статусом leaked, кроме
// администраторов, и возвращает число удалённых.
func (s *Storage) DeleteLeakedUsers(ctx context.Context) (int64, error) {
	const op = "storage.DeleteLeakedUsers"
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM users WHERE status = $1 AND role <> $2`,
		models.StatusLeaked, models.RoleAdmin)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return affected, nil
}
