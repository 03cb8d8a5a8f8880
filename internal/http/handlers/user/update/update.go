// Package update реализует HTTP-обработчик смены никнейма и/или пароля
// владельцем аккаунта. Операция требует повторного предъявления текущего
// пароля.
package update

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

// Request — входные данные для обновления профиля.
//
// Password — текущий пароль, обязателен. Новые значения необязательны,
// но хотя бы одно должно быть задано.
type Request struct {
	UID         int    `json:"uid" validate:"required,min=1"`
	Password    string `json:"password" validate:"required,min=1,max=72"`
	NewNickname string `json:"new_nickname,omitempty" validate:"omitempty,max=16"`
	NewPassword string `json:"new_password,omitempty" validate:"omitempty,min=6,max=72"`
}

// Service описывает интерфейс бизнес-логики обновления профиля.
type Service interface {
	UpdateProfile(ctx context.Context, uid int, rawPassword, newNickname, newPassword string) (*models.User, error)
}

// Handler обрабатывает HTTP-запросы обновления профиля.
type Handler struct {
	log      *slog.Logger
	auth     Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{
		log:      log,
		auth:     auth,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновление профиля
// @Description Меняет никнейм и/или пароль владельца после проверки текущего пароля.
// @Tags User
// @Accept  json
// @Produce  json
// @Param request body Request true "uid, текущий пароль и новые значения"
// @Success 200 {object} map[string]any "Обновленный аккаунт"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или занятый никнейм"
// @Failure 401 {object} response.ErrorResponse "Неверный текущий пароль"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/update [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.update"

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
	if req.NewNickname == "" && req.NewPassword == "" {
		log.Error("nothing to update")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("nothing to update"))
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), req.UID, req.Password, req.NewNickname, req.NewPassword)
	if err != nil {
		log.Error("profile update failed", sl.Err(err), slog.Int("uid", req.UID))
		w.WriteHeader(errs.HTTPStatus(err))
		render.JSON(w, r, response.Error(errs.Message(err)))
		return
	}

	log.Info("profile updated", slog.Int("uid", req.UID))
	render.JSON(w, r, response.OKWithData(response.NewUserView(user)))
}
