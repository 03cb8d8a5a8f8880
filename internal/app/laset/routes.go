// Package laset предоставляет маршруты сервиса аккаунтов.
package laset

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/lasetdev/laset-account/internal/config"
	"github.com/lasetdev/laset-account/internal/http/handlers/admin/ban"
	"github.com/lasetdev/laset-account/internal/http/handlers/admin/clearleaked"
	"github.com/lasetdev/laset-account/internal/http/handlers/admin/clearstatus"
	"github.com/lasetdev/laset-account/internal/http/handlers/admin/remove"
	adminresethwid "github.com/lasetdev/laset-account/internal/http/handlers/admin/resethwid"
	"github.com/lasetdev/laset-account/internal/http/handlers/admin/setrole"
	adminsubscription "github.com/lasetdev/laset-account/internal/http/handlers/admin/subscription"
	"github.com/lasetdev/laset-account/internal/http/handlers/admin/users"
	"github.com/lasetdev/laset-account/internal/http/handlers/auth/login"
	"github.com/lasetdev/laset-account/internal/http/handlers/auth/register"
	"github.com/lasetdev/laset-account/internal/http/handlers/auth/verify"
	"github.com/lasetdev/laset-account/internal/http/handlers/health"
	"github.com/lasetdev/laset-account/internal/http/handlers/user/nextuid"
	userresethwid "github.com/lasetdev/laset-account/internal/http/handlers/user/resethwid"
	"github.com/lasetdev/laset-account/internal/http/handlers/user/update"
	"github.com/lasetdev/laset-account/internal/http/middlewarectx"
	"github.com/lasetdev/laset-account/internal/storage/repository"

	adminservice "github.com/lasetdev/laset-account/internal/services/admin"
	authservice "github.com/lasetdev/laset-account/internal/services/auth"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authService *authservice.AuthService, adminService *adminservice.AdminService, db *repository.Storage, regLimiter middlewarectx.RegistrationLimiter, cfg *config.Config) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.With(middlewarectx.RegistrationLimitMiddleware(regLimiter, logger, cfg.Auth.RegistrationWindow, cfg.Auth.RegistrationLimit)).
			Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Сверка состояния запущенным клиентом: по uid без токена
		r.Post("/verify", verify.New(logger, authService).ServeHTTP)

		r.Get("/next-uid", nextuid.New(logger, authService).ServeHTTP)

		var pinger health.Pinger
		if db != nil {
			pinger = db
		}
		r.Get("/health", health.New(logger, pinger, cfg.Storage.Driver).ServeHTTP)

		// Маршруты с повторной аутентификацией паролем в теле запроса:
		// сессии для привилегированных действий не переиспользуются,
		// токен не требуется.
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/user/update", update.New(logger, authService).ServeHTTP)
			r.Post("/user/reset-hwid", userresethwid.New(logger, authService).ServeHTTP)

			r.Post("/admin/users", users.New(logger, adminService).ServeHTTP)
			r.Post("/admin/set-role", setrole.New(logger, adminService).ServeHTTP)
			r.Post("/admin/ban", ban.New(logger, adminService).ServeHTTP)
			r.Post("/admin/delete", remove.New(logger, adminService).ServeHTTP)
			r.Post("/admin/subscription", adminsubscription.New(logger, adminService).ServeHTTP)
			r.Post("/admin/reset-hwid", adminresethwid.New(logger, adminService).ServeHTTP)
			r.Post("/admin/clear-status", clearstatus.New(logger, adminService).ServeHTTP)
			r.Delete("/admin/clear-leaked", clearleaked.New(logger, adminService).ServeHTTP)
		})

		// Сверка по bearer-токену
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Get("/verify", verify.NewToken(logger, authService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
