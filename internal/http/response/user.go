package response

import (
	"time"

	"github.com/lasetdev/laset-account/internal/models"
)

// UserView представление аккаунта для JSON-ответов. Хэш пароля наружу
// не отдается.
type UserView struct {
	UID                 int        `json:"uid"`
	Email               string     `json:"email"`
	Nickname            string     `json:"nickname"`
	Role                string     `json:"role"`
	Banned              bool       `json:"banned"`
	Status              string     `json:"status"`
	HWIDBound           bool       `json:"hwid_bound"`
	SubscriptionType    *string    `json:"subscription_type,omitempty"`
	SubscriptionExpires *time.Time `json:"subscription_expires,omitempty"`
	SubscriptionActive  bool       `json:"subscription_active"`
	Sessions            int        `json:"sessions"`
	CreatedAt           time.Time  `json:"created_at"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
}

// NewUserView формирует UserView из доменной модели.
func NewUserView(u *models.User) UserView {
	return UserView{
		UID:                 u.UID,
		Email:               u.Email,
		Nickname:            u.Nickname,
		Role:                u.Role,
		Banned:              u.Banned,
		Status:              u.Status,
		HWIDBound:           u.HWID != nil,
		SubscriptionType:    u.SubscriptionType,
		SubscriptionExpires: u.SubscriptionExpires,
		SubscriptionActive:  u.SubscriptionActive(time.Now().UTC()),
		Sessions:            u.Sessions,
		CreatedAt:           u.CreatedAt,
		LastLogin:           u.LastLogin,
	}
}

// NewUserViews формирует список представлений.
func NewUserViews(users []*models.User) []UserView {
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, NewUserView(u))
	}
	return views
}
