// Package models содержит доменную модель учётной записи игрового клиента:
// пользователя с привязкой HWID, ролью, баном и подпиской, а также запись
// журнала действий администратора. Структуры используются в бизнес‑логике
// и при работе с хранилищем.
package models

import "time"

// Роли пользователей. Первый зарегистрированный аккаунт получает RoleAdmin.
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleVIP     = "vip"
	RoleBeta    = "beta"
	RoleYoutube = "youtube"
	RoleTiktok  = "tiktok"
)

// Статусы аккаунта. StatusLeaked выставляется при несовпадении привязанного HWID.
const (
	StatusNormal = "normal"
	StatusLeaked = "leaked"
)

// SubscriptionLifetime тип "вечной" подписки, моделируется фиксированной
// датой истечения LifetimeExpiry.
const SubscriptionLifetime = "lifetime"

// LifetimeExpiry дата истечения "вечной" подписки.
var LifetimeExpiry = time.Date(2099, time.January, 1, 0, 0, 0, 0, time.UTC)

// ValidRole сообщает, входит ли роль в список допустимых.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleVIP, RoleBeta, RoleYoutube, RoleTiktok:
		return true
	}
	return false
}

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID                 int        // Числовой идентификатор, назначается хранилищем
	Email               string     // Электронная почта, уникальна с учётом регистра
	Nickname            string     // Никнейм, уникален без учёта регистра, до 16 символов
	PasswordHash        string     // bcrypt-хэш пароля
	Role                string     // Одна из Role*-констант
	Banned              bool       // Признак блокировки
	Status              string     // StatusNormal или StatusLeaked
	HWID                *string    // Хэш аппаратного отпечатка, nil пока не привязан
	SubscriptionType    *string    // Тип подписки, nil если не выдавалась
	SubscriptionExpires *time.Time // Дата истечения подписки
	Sessions            int        // Счётчик входов
	CreatedAt           time.Time  // Дата регистрации
	LastLogin           *time.Time // Дата последнего входа
}

// SubscriptionActive сообщает, активна ли подписка на момент now:
// дата истечения задана и ещё не наступила.
func (u *User) SubscriptionActive(now time.Time) bool {
	return u.SubscriptionExpires != nil && u.SubscriptionExpires.After(now)
}

// AuditEntry запись журнала действий администратора.
type AuditEntry struct {
	ID        int
	AdminUID  int     // Кто выполнил действие
	Action    string  // Вид действия: SET_ROLE, BAN, UNBAN, DELETE и т.д.
	TargetUID int     // Над кем выполнено
	Details   *string // Дополнительное описание, опционально
	CreatedAt time.Time
}

// Behavior сигнал о поведении клиента при регистрации, используется
// для грубой отсечки ботов.
type Behavior struct {
	TimeTakenMs    int64 // Время заполнения формы
	MouseMovements int   // Количество движений указателя
	Keystrokes     int   // Количество нажатий клавиш
	BotScore       int   // Итоговая клиентская оценка
}
