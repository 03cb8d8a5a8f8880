// Package services содержит логику бизнес-уровня для регистрации, входа
// и сверки состояния аккаунта, включая привязку HWID.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lasetdev/laset-account/internal/lib/errs"
	"github.com/lasetdev/laset-account/internal/lib/hwid"
	"github.com/lasetdev/laset-account/internal/lib/jwt"
	"github.com/lasetdev/laset-account/internal/lib/password"
	"github.com/lasetdev/laset-account/internal/lib/rabbitmq"
	"github.com/lasetdev/laset-account/internal/lib/sl"
	"github.com/lasetdev/laset-account/internal/metrics"
	"github.com/lasetdev/laset-account/internal/models"
)

// UserStore описывает контракт для работы с аккаунтами в хранилище.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (int, error)
	GetUserByUID(ctx context.Context, uid int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByNickname(ctx context.Context, nickname string) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)
	NextUID(ctx context.Context) (int, error)
	UpdateNickname(ctx context.Context, uid int, nickname string) error
	UpdatePasswordHash(ctx context.Context, uid int, passwordHash string) error
	UpdateHWID(ctx context.Context, uid int, hwid *string) error
	UpdateStatus(ctx context.Context, uid int, status string) error
	RecordLogin(ctx context.Context, uid int) (int, error)
}

// BotPolicy пороги отсечки ботов при регистрации.
type BotPolicy struct {
	ScoreThreshold int
	MinFormTime    time.Duration
}

// AuthService отвечает за регистрацию, вход, сверку состояния аккаунта
// и владельческие операции (смена никнейма/пароля, сброс HWID).
type AuthService struct {
	store      UserStore
	jwtMaker   jwt.Maker
	log        *slog.Logger
	events     *rabbitmq.Publisher
	bcryptCost int
	botPolicy  BotPolicy
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(store UserStore, jwtMaker jwt.Maker, log *slog.Logger, events *rabbitmq.Publisher, bcryptCost int, botPolicy BotPolicy) *AuthService {
	return &AuthService{
		store:      store,
		jwtMaker:   jwtMaker,
		log:        log,
		events:     events,
		bcryptCost: bcryptCost,
		botPolicy:  botPolicy,
	}
}

// Register создает нового пользователя с хэшированием пароля.
// Первый зарегистрированный аккаунт получает роль admin.
func (s *AuthService) Register(ctx context.Context, email, nickname, rawPassword string, behavior *models.Behavior) (*models.User, error) {
	const op = "auth.Register"

	if behavior != nil {
		if behavior.BotScore > s.botPolicy.ScoreThreshold ||
			time.Duration(behavior.TimeTakenMs)*time.Millisecond < s.botPolicy.MinFormTime {
			metrics.RegistrationsTotal.WithLabelValues("suspicious").Inc()
			return nil, fmt.Errorf("%s: %w", op, errs.ErrSuspicious)
		}
	}

	// Предварительная проверка уникальности ради точного сообщения;
	// хранилище проверяет повторно при записи.
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrEmailTaken)
	}
	if _, err := s.store.GetUserByNickname(ctx, nickname); err == nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrNicknameTaken)
	}

	hashed, err := password.Hash(rawPassword, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	role := models.RoleUser
	if count == 0 {
		role = models.RoleAdmin
	}

	user := models.User{
		Email:        email,
		Nickname:     nickname,
		PasswordHash: hashed,
		Role:         role,
		Status:       models.StatusNormal,
	}
	uid, err := s.store.CreateUser(ctx, user)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.UID = uid

	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	return &user, nil
}

// findByIdentifier ищет аккаунт по uid, email или никнейму (без учёта регистра).
func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if uid, convErr := strconv.Atoi(identifier); convErr == nil {
		if user, err := s.store.GetUserByUID(ctx, uid); err == nil {
			return user, nil
		} else if !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
	}
	if strings.Contains(identifier, "@") {
		if user, err := s.store.GetUserByEmail(ctx, identifier); err == nil {
			return user, nil
		} else if !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
	}
	return s.store.GetUserByNickname(ctx, identifier)
}

// Login проверяет учётные данные и состояние аккаунта, при первом входе
// с клиента привязывает HWID. Несовпадение привязанного HWID помечает
// аккаунт как leaked и отклоняет вход; привязанный хэш не изменяется.
func (s *AuthService) Login(ctx context.Context, identifier, rawPassword, rawHWID string) (*models.User, string, error) {
	const op = "auth.Login"

	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("unknown").Inc()
		if errors.Is(err, errs.ErrNotFound) {
			// Единый ответ для неизвестного идентификатора и неверного
			// пароля: без перечисления аккаунтов.
			return nil, "", fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
		}
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	if user.Banned {
		metrics.LoginsTotal.WithLabelValues("banned").Inc()
		return nil, "", fmt.Errorf("%s: %w", op, errs.ErrBanned)
	}
	if user.Status == models.StatusLeaked {
		metrics.LoginsTotal.WithLabelValues("leaked").Inc()
		return nil, "", fmt.Errorf("%s: %w", op, errs.ErrLeaked)
	}

	if err := password.Compare(user.PasswordHash, rawPassword); err != nil {
		metrics.LoginsTotal.WithLabelValues("bad_password").Inc()
		return nil, "", fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}

	if rawHWID != "" {
		hash := hwid.Hash(rawHWID)
		switch {
		case user.HWID == nil:
			if err := s.store.UpdateHWID(ctx, user.UID, &hash); err != nil {
				return nil, "", fmt.Errorf("%s: %w", op, err)
			}
			user.HWID = &hash
		case *user.HWID != hash:
			metrics.HWIDMismatchesTotal.Inc()
			metrics.LoginsTotal.WithLabelValues("hwid_mismatch").Inc()
			if err := s.store.UpdateStatus(ctx, user.UID, models.StatusLeaked); err != nil {
				s.log.Error("failed to flag leaked account", sl.Err(err),
					slog.Int("uid", user.UID))
			}
			if err := s.events.Publish(rabbitmq.SecurityEvent{
				Kind:     "leak_detected",
				UID:      user.UID,
				Nickname: user.Nickname,
				At:       time.Now().UTC(),
			}); err != nil {
				s.log.Error("failed to publish leak event", sl.Err(err))
			}
			return nil, "", fmt.Errorf("%s: %w", op, errs.ErrHWIDMismatch)
		}
	}

	sessions, err := s.store.RecordLogin(ctx, user.UID)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	user.Sessions = sessions

	token, err := s.jwtMaker.GenerateToken(user.UID, user.Nickname, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return user, token, nil
}

// Verify повторно сверяет состояние аккаунта: бан, статус leaked и HWID,
// если он передан. Вызывается клиентским монитором раз в 30 секунд,
// поэтому не имеет побочных эффектов: HWID не привязывается и не сбрасывается.
func (s *AuthService) Verify(ctx context.Context, uid int, rawHWID string) (*models.User, error) {
	const op = "auth.Verify"

	user, err := s.store.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.Banned {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrBanned)
	}
	if user.Status == models.StatusLeaked {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrLeaked)
	}
	if rawHWID != "" && user.HWID != nil && *user.HWID != hwid.Hash(rawHWID) {
		metrics.HWIDMismatchesTotal.Inc()
		return nil, fmt.Errorf("%s: %w", op, errs.ErrHWIDMismatch)
	}
	return user, nil
}

// VerifyToken разбирает JWT и сверяет состояние аккаунта из хранилища.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	const op = "auth.VerifyToken"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}
	return s.Verify(ctx, claims.UID, "")
}

// UpdateProfile меняет никнейм и/или пароль владельца после повторной
// проверки текущего пароля.
func (s *AuthService) UpdateProfile(ctx context.Context, uid int, rawPassword, newNickname, newPassword string) (*models.User, error) {
	const op = "auth.UpdateProfile"

	user, err := s.store.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Compare(user.PasswordHash, rawPassword); err != nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}

	if newNickname != "" && !strings.EqualFold(newNickname, user.Nickname) {
		if err := s.store.UpdateNickname(ctx, uid, newNickname); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user.Nickname = newNickname
	}

	if newPassword != "" {
		hashed, err := password.Hash(newPassword, s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.store.UpdatePasswordHash(ctx, uid, hashed); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return user, nil
}

// ResetHWID снимает привязку HWID по запросу владельца после повторной
// проверки пароля. Следующий вход привяжет новый отпечаток.
func (s *AuthService) ResetHWID(ctx context.Context, uid int, rawPassword string) error {
	const op = "auth.ResetHWID"

	user, err := s.store.GetUserByUID(ctx, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Compare(user.PasswordHash, rawPassword); err != nil {
		return fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}
	if err := s.store.UpdateHWID(ctx, uid, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NextUID возвращает uid, который получит следующий зарегистрированный аккаунт.
func (s *AuthService) NextUID(ctx context.Context) (int, error) {
	const op = "auth.NextUID"
	next, err := s.store.NextUID(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return next, nil
}
