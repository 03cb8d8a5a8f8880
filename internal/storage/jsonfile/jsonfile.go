// Package jsonfile реализует файловое хранилище аккаунтов для локального
// запуска без PostgreSQL. Все операции, включая чтение, сериализуются одним
// мьютексом: файл мал, и единственный писатель закрывает гонку
// read-modify-write при конкурентных регистрациях. После каждой мутации
// файл переписывается атомарно (временный файл + rename).
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lasetdev/laset-account/internal/lib/errs"
	"github.com/lasetdev/laset-account/internal/models"
)

type fileUser struct {
	UID                 int        `json:"uid"`
	Email               string     `json:"email"`
	Nickname            string     `json:"nickname"`
	PasswordHash        string     `json:"password_hash"`
	Role                string     `json:"role"`
	Banned              bool       `json:"banned"`
	Status              string     `json:"status"`
	HWID                *string    `json:"hwid,omitempty"`
	SubscriptionType    *string    `json:"subscription_type,omitempty"`
	SubscriptionExpires *time.Time `json:"subscription_expires,omitempty"`
	Sessions            int        `json:"sessions"`
	CreatedAt           time.Time  `json:"created_at"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
}

type fileAudit struct {
	ID        int       `json:"id"`
	AdminUID  int       `json:"admin_uid"`
	Action    string    `json:"action"`
	TargetUID int       `json:"target_uid"`
	Details   *string   `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type fileData struct {
	Users    []fileUser  `json:"users"`
	AuditLog []fileAudit `json:"audit_log"`
}

// Storage файловое хранилище аккаунтов, реализует storage.Store.
type Storage struct {
	path string

	mu   sync.Mutex
	data fileData
}

// New загружает файл хранилища, создавая пустой при отсутствии.
func New(path string) (*Storage, error) {
	const op = "jsonfile.New"
	s := &Storage{path: path}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// save переписывает файл атомарно. Вызывается под мьютексом.
func (s *Storage) save() error {
	const op = "jsonfile.save"
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmp, filepath.Clean(s.path)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func toModel(f *fileUser) *models.User {
	return &models.User{
		UID:                 f.UID,
		Email:               f.Email,
		Nickname:            f.Nickname,
		PasswordHash:        f.PasswordHash,
		Role:                f.Role,
		Banned:              f.Banned,
		Status:              f.Status,
		HWID:                f.HWID,
		SubscriptionType:    f.SubscriptionType,
		SubscriptionExpires: f.SubscriptionExpires,
		Sessions:            f.Sessions,
		CreatedAt:           f.CreatedAt,
		LastLogin:           f.LastLogin,
	}
}

// find возвращает указатель на запись в данных. Вызывается под мьютексом.
func (s *Storage) find(uid int) *fileUser {
	for i := range s.data.Users {
		if s.data.Users[i].UID == uid {
			return &s.data.Users[i]
		}
	}
	return nil
}

func (s *Storage) nextUIDLocked() int {
	next := 1
	for i := range s.data.Users {
		if s.data.Users[i].UID >= next {
			next = s.data.Users[i].UID + 1
		}
	}
	return next
}

// CreateUser сохраняет нового пользователя и возвращает назначенный uid.
func (s *Storage) CreateUser(_ context.Context, user models.User) (int, error) {
	const op = "jsonfile.CreateUser"
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Users {
		if s.data.Users[i].Email == user.Email {
			return 0, fmt.Errorf("%s: %w", op, errs.ErrEmailTaken)
		}
		if strings.EqualFold(s.data.Users[i].Nickname, user.Nickname) {
			return 0, fmt.Errorf("%s: %w", op, errs.ErrNicknameTaken)
		}
	}

	uid := s.nextUIDLocked()
	s.data.Users = append(s.data.Users, fileUser{
		UID:          uid,
		Email:        user.Email,
		Nickname:     user.Nickname,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		Banned:       user.Banned,
		Status:       user.Status,
		CreatedAt:    time.Now().UTC(),
	})
	if err := s.save(); err != nil {
		s.data.Users = s.data.Users[:len(s.data.Users)-1]
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// GetUserByUID возвращает пользователя по его uid.
func (s *Storage) GetUserByUID(_ context.Context, uid int) (*models.User, error) {
	const op = "jsonfile.GetUserByUID"
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.find(uid); f != nil {
		return toModel(f), nil
	}
	return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
}

// GetUserByEmail возвращает пользователя по email (с учётом регистра).
func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	const op = "jsonfile.GetUserByEmail"
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Users {
		if s.data.Users[i].Email == email {
			return toModel(&s.data.Users[i]), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
}

// GetUserByNickname возвращает пользователя по никнейму без учёта регистра.
func (s *Storage) GetUserByNickname(_ context.Context, nickname string) (*models.User, error) {
	const op = "jsonfile.GetUserByNickname"
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Users {
		if strings.EqualFold(s.data.Users[i].Nickname, nickname) {
			return toModel(&s.data.Users[i]), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
}

// CountUsers возвращает число зарегистрированных аккаунтов.
func (s *Storage) CountUsers(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.Users), nil
}

// NextUID возвращает следующий свободный uid, не резервируя его.
func (s *Storage) NextUID(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextUIDLocked(), nil
}

// ListUsers возвращает все аккаунты, упорядоченные по uid.
func (s *Storage) ListUsers(_ context.Context) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*models.User, 0, len(s.data.Users))
	for i := range s.data.Users {
		result = append(result, toModel(&s.data.Users[i]))
	}
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j-1].UID > result[j].UID; j-- {
			result[j-1], result[j] = result[j], result[j-1]
		}
	}
	return result, nil
}

func (s *Storage) update(op string, uid int, apply func(*fileUser) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.find(uid)
	if f == nil {
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	prev := *f
	if err := apply(f); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.save(); err != nil {
		*f = prev
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateNickname меняет никнейм, проверяя уникальность без учёта регистра.
func (s *Storage) UpdateNickname(_ context.Context, uid int, nickname string) error {
	return s.update("jsonfile.UpdateNickname", uid, func(f *fileUser) error {
		for i := range s.data.Users {
			if s.data.Users[i].UID != uid && strings.EqualFold(s.data.Users[i].Nickname, nickname) {
				return errs.ErrNicknameTaken
			}
		}
		f.Nickname = nickname
		return nil
	})
}

// UpdatePasswordHash записывает новый bcrypt-хэш пароля.
func (s *Storage) UpdatePasswordHash(_ context.Context, uid int, passwordHash string) error {
	return s.update("jsonfile.UpdatePasswordHash", uid, func(f *fileUser) error {
		f.PasswordHash = passwordHash
		return nil
	})
}

// UpdateHWID записывает хэш отпечатка, nil снимает привязку.
func (s *Storage) UpdateHWID(_ context.Context, uid int, hwid *string) error {
	return s.update("jsonfile.UpdateHWID", uid, func(f *fileUser) error {
		f.HWID = hwid
		return nil
	})
}

// UpdateRole меняет роль аккаунта.
func (s *Storage) UpdateRole(_ context.Context, uid int, role string) error {
	return s.update("jsonfile.UpdateRole", uid, func(f *fileUser) error {
		f.Role = role
		return nil
	})
}

// UpdateBanned выставляет или снимает бан.
func (s *Storage) UpdateBanned(_ context.Context, uid int, banned bool) error {
	return s.update("jsonfile.UpdateBanned", uid, func(f *fileUser) error {
		f.Banned = banned
		return nil
	})
}

// UpdateStatus меняет статус аккаунта (normal/leaked).
func (s *Storage) UpdateStatus(_ context.Context, uid int, status string) error {
	return s.update("jsonfile.UpdateStatus", uid, func(f *fileUser) error {
		f.Status = status
		return nil
	})
}

// UpdateSubscription записывает тип подписки и дату истечения.
func (s *Storage) UpdateSubscription(_ context.Context, uid int, subscriptionType string, expires time.Time) error {
	return s.update("jsonfile.UpdateSubscription", uid, func(f *fileUser) error {
		f.SubscriptionType = &subscriptionType
		f.SubscriptionExpires = &expires
		return nil
	})
}

// RecordLogin инкрементирует счётчик входов и обновляет last_login.
func (s *Storage) RecordLogin(_ context.Context, uid int) (int, error) {
	var sessions int
	err := s.update("jsonfile.RecordLogin", uid, func(f *fileUser) error {
		now := time.Now().UTC()
		f.Sessions++
		f.LastLogin = &now
		sessions = f.Sessions
		return nil
	})
	return sessions, err
}

// DeleteUser удаляет аккаунт по uid.
func (s *Storage) DeleteUser(_ context.Context, uid int) error {
	const op = "jsonfile.DeleteUser"
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Users {
		if s.data.Users[i].UID == uid {
			prev := s.data.Users
			s.data.Users = append(append([]fileUser{}, prev[:i]...), prev[i+1:]...)
			if err := s.save(); err != nil {
				s.data.Users = prev
				return fmt.Errorf("%s: %w", op, err)
			}
			return nil
		}
	}
	return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
}

// DeleteLeakedUsers удаляет все аккаунты со статусом leaked, кроме
// администраторов, и возвращает число удалённых. При ошибке записи
// данные в памяти остаются прежними.
func (s *Storage) DeleteLeakedUsers(_ context.Context) (int64, error) {
	const op = "jsonfile.DeleteLeakedUsers"
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]fileUser, 0, len(s.data.Users))
	var removed int64
	for i := range s.data.Users {
		u := s.data.Users[i]
		if u.Status == models.StatusLeaked && u.Role != models.RoleAdmin {
			removed++
			continue
		}
		kept = append(kept, u)
	}
	if removed == 0 {
		return 0, nil
	}
	prev := s.data.Users
	s.data.Users = kept
	if err := s.save(); err != nil {
		s.data.Users = prev
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return removed, nil
}

// AppendAudit добавляет запись журнала действий администратора.
func (s *Storage) AppendAudit(_ context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := len(s.data.AuditLog) + 1
	s.data.AuditLog = append(s.data.AuditLog, fileAudit{
		ID:        id,
		AdminUID:  entry.AdminUID,
		Action:    entry.Action,
		TargetUID: entry.TargetUID,
		Details:   entry.Details,
		CreatedAt: time.Now().UTC(),
	})
	return s.save()
}
