// Package nextuid реализует HTTP-обработчик, возвращающий uid, который
// будет назначен следующему зарегистрированному аккаунту. Используется
// клиентским лаунчером для предпросмотра.
package nextuid

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lasetdev/laset-account/internal/http/response"
	"github.com/lasetdev/laset-account/internal/lib/errs"
	"github.com/lasetdev/laset-account/internal/lib/sl"
)

// Service описывает интерфейс бизнес-логики предпросмотра uid.
type Service interface {
	NextUID(ctx context.Context) (int, error)
}

// Handler обрабатывает HTTP-запросы предпросмотра следующего uid.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{
		log:  log,
		auth: auth,
	}
}

// ServeHTTP godoc
// @Summary Следующий uid
// @Description Возвращает uid, который получит следующий зарегистрированный аккаунт.
// @Tags User
// @Produce  json
// @Success 200 {object} map[string]any "Следующий uid"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /next-uid [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.nextuid"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	next, err := h.auth.NextUID(r.Context())
	if err != nil {
		log.Error("failed to compute next uid", sl.Err(err))
		w.WriteHeader(errs.HTTPStatus(err))
		render.JSON(w, r, response.Error(errs.Message(err)))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"next_uid": next,
	}))
}
