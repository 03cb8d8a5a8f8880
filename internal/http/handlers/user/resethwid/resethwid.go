// Package resethwid реализует HTTP-обработчик сброса привязки HWID
// владельцем аккаунта. После сброса следующий вход привяжет новый отпечаток.
package resethwid

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
)

// Request — входные данные для сброса HWID владельцем.
type Request struct {
	UID      int    `json:"uid" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=1,max=72"`
}

// Service описывает интерфейс бизнес-логики сброса HWID.
type Service interface {
	ResetHWID(ctx context.Context, uid int, rawPassword string) error
}

// Handler обрабатывает HTTP-запросы сброса HWID.
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
// @Summary Сброс привязки HWID
// @Description Снимает привязку HWID после проверки пароля владельца.
// @Tags User
// @Accept  json
// @Produce  json
// @Param request body Request true "uid и текущий пароль"
// @Success 200 {object} map[string]any "Привязка снята"
// @Failure 401 {object} response.ErrorResponse "Неверный пароль"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/reset-hwid [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.resethwid"

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

	if err := h.auth.ResetHWID(r.Context(), req.UID, req.Password); err != nil {
		log.Error("hwid reset failed", sl.Err(err), slog.Int("uid", req.UID))
		w.WriteHeader(errs.HTTPStatus(err))
		render.JSON(w, r, response.Error(errs.Message(err)))
		return
	}

	log.Info("hwid reset", slog.Int("uid", req.UID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"uid":     req.UID,
		"message": "hwid binding cleared",
	}))
}
