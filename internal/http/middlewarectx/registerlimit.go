package middlewarectx

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/lasetdev/laset-account/internal/http/response"
	"github.com/lasetdev/laset-account/internal/lib/sl"
)

// RegistrationLimiter скользящее окно попыток регистрации по адресу клиента.
type RegistrationLimiter interface {
	AllowRegistration(ctx context.Context, addr string, window time.Duration, limit int) (bool, error)
}

// RegistrationLimitMiddleware ограничивает регистрации с одного адреса
// скользящим окном. Без сконфигурированного лимитера (limiter == nil) и при
// отказе Redis запросы пропускаются: ограничитель — защита, а не зависимость.
func RegistrationLimitMiddleware(limiter RegistrationLimiter, log *slog.Logger, window time.Duration, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RegistrationLimitMiddleware"

			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			addr := r.RemoteAddr
			if host, _, err := net.SplitHostPort(addr); err == nil {
				addr = host
			}

			allowed, err := limiter.AllowRegistration(r.Context(), addr, window, limit)
			if err != nil {
				log.Error("registration limiter unavailable", sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				log.Info("registration rate limit exceeded", slog.String("addr", addr))
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many registration attempts, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
