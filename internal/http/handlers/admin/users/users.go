// Package users реализует HTTP-обработчик списка аккаунтов для консоли
// администратора. Как и все привилегированные операции, требует повторного
// предъявления пароля администратора.
package users

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lasetdev/laset-account/internal/http/response"
	"github.com/lasetdev/laset-account/internal/lib/errs"
	"github.com/lasetdev/laset-account/internal/lib/sl"
	"github.com/lasetdev/laset-account/internal/models"
)

// Request — пароль администратора для подтверждения операции.
type Request struct {
	UID      int    `json:"uid" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=1,max=72"`
}

// Service описывает интерфейс консоли администратора.
type Service interface {
	ListUsers(ctx context.Context, adminUID int, rawPassword string) ([]*models.User, error)
}

// Handler обрабатывает запросы списка аккаунтов.
type Handler struct {
	log      *slog.Logger
	admin    Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, admin Service) *Handler {
	return &Handler{
		log:      log,
		admin:    admin,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Список аккаунтов
// @Description Возвращает все аккаунты. Требует роль admin и повторный пароль.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Пароль администратора"
// @Success 200 {object} map[string]any "Список аккаунтов"
// @Failure 401 {object} response.ErrorResponse "Неверный пароль"
// @Failure 403 {object} response.ErrorResponse "Нет роли admin"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/users [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.users"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	users, err := h.admin.ListUsers(r.Context(), req.UID, req.Password)
	if err != nil {
		log.Error("failed to list users", sl.Err(err), slog.Int("admin_uid", req.UID))
		w.WriteHeader(errs.HTTPStatus(err))
		render.JSON(w, r, response.Error(errs.Message(err)))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"count": len(users),
		"users": response.NewUserViews(users),
	}))
}
