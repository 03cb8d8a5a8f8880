// Package register реализует HTTP-обработчик регистрации аккаунта.
//
// Обработчик декодирует JSON, валидирует поля, передает поведенческие
// сигналы клиента сервису для отсечки ботов и возвращает созданный аккаунт.
package register

import (
	"context"
	"encoding/json"
	"errors"
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

// Request — входные данные для регистрации.
//
// Nickname — до 16 символов, Password — минимум 6.
// Behavior — необязательные поведенческие сигналы клиентской формы.
type Request struct {
	Email    string    `json:"email" validate:"required,email"`
	Nickname string    `json:"nickname" validate:"required,max=16"`
	Password string    `json:"password" validate:"required,min=6,max=72"`
	Behavior *Behavior `json:"behavior,omitempty"`
}

// Behavior — поведенческие сигналы клиента при заполнении формы.
type Behavior struct {
	TimeTakenMs    int64 `json:"time_taken_ms"`
	MouseMovements int   `json:"mouse_movements"`
	Keystrokes     int   `json:"keystrokes"`
	BotScore       int   `json:"bot_score"`
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, email, nickname, rawPassword string, behavior *models.Behavior) (*models.User, error)
}

// Handler обрабатывает HTTP-запросы регистрации.
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
// @Summary Регистрация аккаунта
// @Description Создает аккаунт с уникальными email и никнеймом. Первый аккаунт получает роль admin.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные регистрации"
// @Success 200 {object} map[string]any "Созданный аккаунт"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или занятые email/никнейм"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Превышен лимит регистраций"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

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
	log.Info("request body decoded", slog.String("nickname", req.Nickname))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	var behavior *models.Behavior
	if req.Behavior != nil {
		behavior = &models.Behavior{
			TimeTakenMs:    req.Behavior.TimeTakenMs,
			MouseMovements: req.Behavior.MouseMovements,
			Keystrokes:     req.Behavior.Keystrokes,
			BotScore:       req.Behavior.BotScore,
		}
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Nickname, req.Password, behavior)
	if err != nil {
		if errors.Is(err, errs.ErrSuspicious) {
			log.Warn("registration rejected as suspicious", slog.String("nickname", req.Nickname))
		} else {
			log.Error("registration failed", sl.Err(err))
		}
		w.WriteHeader(errs.HTTPStatus(err))
		render.JSON(w, r, response.Error(errs.Message(err)))
		return
	}

	log.Info("user registered", slog.Int("uid", user.UID), slog.String("role", user.Role))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"uid":      user.UID,
		"nickname": user.Nickname,
		"role":     user.Role,
		"message":  "user created successfully",
	}))
}
