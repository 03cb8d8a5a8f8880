// Package health реализует проверку живости сервиса и готовности хранилища.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/lasetdev/laset-account/internal/http/response"
	"github.com/lasetdev/laset-account/internal/lib/sl"
)

// Pinger описывает проверку готовности хранилища.
type Pinger interface {
	CheckDatabaseReady(ctx context.Context) error
}

// Handler обрабатывает запросы проверки здоровья.
type Handler struct {
	log    *slog.Logger
	pinger Pinger
	driver string
}

// New создает новый экземпляр Handler. pinger может быть nil для
// хранилищ без внешнего соединения.
func New(log *slog.Logger, pinger Pinger, driver string) *Handler {
	return &Handler{
		log:    log,
		pinger: pinger,
		driver: driver,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if h.pinger != nil {
		if err := h.pinger.CheckDatabaseReady(r.Context()); err != nil {
			h.log.Error("database not ready", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("storage unavailable"))
			return
		}
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"status":  "ok",
		"storage": h.driver,
	}))
}
