// Package ban реализует HTTP-обработчик блокировки и разблокировки аккаунта.
// Аккаунты с ролью admin заблокировать нельзя.
package ban

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

// Request — входные данные для бана/разбана.
//
// Banned — указатель, чтобы отличать явное false от отсутствия поля.
type Request struct {
	UID       int    `json:"uid" validate:"required,min=1"`
	Password  string `json:"password" validate:"required,min=1,max=72"`
	TargetUID int    `json:"target_uid" validate:"required,min=1"`
	Banned    *bool  `json:"banned" validate:"required"`
}

// Service описывает интерфейс консоли администратора.
type Service interface {
	SetBanned(ctx context.Context, adminUID int, rawPassword string, targetUID int, banned bool) error
}

// Handler обрабатывает запросы бана/разбана.
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
// @Summary Блокировка аккаунта
// @Description Выставляет или снимает бан. Аккаунты admin защищены.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Цель и признак бана"
// @Success 200 {object} map[string]any "Состояние изменено"
// @Failure 400 {object} response.ErrorResponse "Попытка забанить администратора"
// @Failure 403 {object} response.ErrorResponse "Нет роли admin"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/ban [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.ban"

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

	if err := h.admin.SetBanned(r.Context(), req.UID, req.Password, req.TargetUID, *req.Banned); err != nil {
		log.Error("failed to change ban state", sl.Err(err), slog.Int("target_uid", req.TargetUID))
		w.WriteHeader(errs.HTTPStatus(err))
		render.JSON(w, r, response.Error(errs.Message(err)))
		return
	}

	log.Info("ban state changed", slog.Int("target_uid", req.TargetUID), slog.Bool("banned", *req.Banned))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"target_uid": req.TargetUID,
		"banned":     *req.Banned,
	}))
}
