// Package verify реализует HTTP-обработчики периодической сверки состояния
// аккаунта запущенным клиентом: бан, пометка об утечке и совпадение HWID.
// Сверка выполняется без побочных эффектов.
package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/lasetdev/laset-account/internal/http/middlewarectx"
	"github.com/lasetdev/laset-account/internal/http/response"
	"github.com/lasetdev/laset-account/internal/lib/errs"
	"github.com/lasetdev/laset-account/internal/lib/sl"
	"github.com/lasetdev/laset-account/internal/models"
)

// Request — входные данные для сверки.
//
// HWID — сырой аппаратный отпечаток клиента, необязателен: без него
// проверяются только бан и статус.
type Request struct {
	UID  int    `json:"uid" validate:"required,min=1"`
	HWID string `json:"hwid,omitempty" validate:"omitempty,max=256"`
}

// Service описывает интерфейс бизнес-логики сверки состояния.
type Service interface {
	Verify(ctx context.Context, uid int, rawHWID string) (*models.User, error)
}

// Handler обрабатывает POST-запросы сверки по uid.
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
// @Summary Сверка состояния аккаунта
// @Description Проверяет бан, статус и совпадение HWID. Вызывается клиентом периодически.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "uid и опциональный HWID"
// @Success 200 {object} map[string]any "Аккаунт в порядке"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Бан, утечка или несовпадение HWID"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verify"

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

	user, err := h.auth.Verify(r.Context(), req.UID, req.HWID)
	if err != nil {
		log.Error("verification failed", sl.Err(err), slog.Int("uid", req.UID))
		w.WriteHeader(errs.HTTPStatus(err))
		render.JSON(w, r, response.Error(errs.Message(err)))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"uid":                 user.UID,
		"role":                user.Role,
		"subscription_active": user.SubscriptionActive(time.Now().UTC()),
	}))
}

// TokenHandler обрабатывает GET-запросы сверки с bearer-токеном:
// uid берется из контекста, выставленного JWT middleware.
type TokenHandler struct {
	log  *slog.Logger
	auth Service
}

// NewToken создает новый экземпляр TokenHandler.
func NewToken(log *slog.Logger, auth Service) *TokenHandler {
	return &TokenHandler{
		log:  log,
		auth: auth,
	}
}

// ServeHTTP godoc
// @Summary Сверка состояния по токену
// @Description Проверяет бан и статус аккаунта владельца токена.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Аккаунт в порядке"
// @Failure 401 {object} response.ErrorResponse "Нет или невалидный токен"
// @Failure 403 {object} response.ErrorResponse "Бан или утечка"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /verify [get]
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verify.token"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid, ok := r.Context().Value(middlewarectx.UID).(int)
	if !ok {
		log.Error("uid missing in request context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("missing or invalid authorization header"))
		return
	}

	user, err := h.auth.Verify(r.Context(), uid, r.URL.Query().Get("hwid"))
	if err != nil {
		log.Error("verification failed", sl.Err(err), slog.Int("uid", uid))
		w.WriteHeader(errs.HTTPStatus(err))
		render.JSON(w, r, response.Error(errs.Message(err)))
		return
	}

	render.JSON(w, r, response.OKWithData(response.NewUserView(user)))
}
