// Package subscription реализует HTTP-обработчик выдачи подписки аккаунту.
// Тип lifetime получает фиксированную дату истечения, остальные — срок
// в днях от текущего момента.
package subscription

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

// Request — входные данные для выдачи подписки.
//
// Days игнорируется для типа lifetime.
type Request struct {
	UID       int    `json:"uid" validate:"required,min=1"`
	Password  string `json:"password" validate:"required,min=1,max=72"`
	TargetUID int    `json:"target_uid" validate:"required,min=1"`
	Type      string `json:"type" validate:"required,min=1,max=32"`
	Days      int    `json:"days,omitempty" validate:"omitempty,min=1,max=3650"`
}

// Service описывает интерфейс консоли администратора.
type Service interface {
	UpdateSubscription(ctx context.Context, adminUID int, rawPassword string, targetUID int, subscriptionType string, days int) error
}

// Handler обрабатывает запросы выдачи подписки.
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
// @Summary Выдача подписки
// @Description Назначает подписку на срок в днях либо lifetime.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Цель, тип и срок"
// @Success 200 {object} map[string]any "Подписка выдана"
// @Failure 403 {object} response.ErrorResponse "Нет роли admin"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/subscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.subscription"

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
	if req.Type != models.SubscriptionLifetime && req.Days == 0 {
		log.Error("days required for non-lifetime subscription")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("days must be set for non-lifetime subscriptions"))
		return
	}

	if err := h.admin.UpdateSubscription(r.Context(), req.UID, req.Password, req.TargetUID, req.Type, req.Days); err != nil {
		log.Error("failed to update subscription", sl.Err(err), slog.Int("target_uid", req.TargetUID))
		w.WriteHeader(errs.HTTPStatus(err))
		render.JSON(w, r, response.Error(errs.Message(err)))
		return
	}

	log.Info("subscription updated",
		slog.Int("target_uid", req.TargetUID),
		slog.String("type", req.Type),
		slog.Int("days", req.Days))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"target_uid": req.TargetUID,
		"type":       req.Type,
		"days":       req.Days,
	}))
}
