// Package laset собирает сервис аккаунтов: хранилище, миграции, Redis,
// брокер событий, бизнес-сервисы и HTTP-сервер. Redis и RabbitMQ
// необязательны: без них сервис работает в урезанном режиме (без лимитера
// регистраций и без публикации событий безопасности).
package laset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/lasetdev/laset-account/internal/cache"
	"github.com/lasetdev/laset-account/internal/config"
	"github.com/lasetdev/laset-account/internal/http/middlewarectx"
	"github.com/lasetdev/laset-account/internal/lib/jwt"
	"github.com/lasetdev/laset-account/internal/lib/rabbitmq"
	"github.com/lasetdev/laset-account/internal/lib/sl"
	"github.com/lasetdev/laset-account/internal/migrations"
	adminservice "github.com/lasetdev/laset-account/internal/services/admin"
	authservice "github.com/lasetdev/laset-account/internal/services/auth"
	"github.com/lasetdev/laset-account/internal/storage"
	"github.com/lasetdev/laset-account/internal/storage/jsonfile"
	"github.com/lasetdev/laset-account/internal/storage/repository"
)

// App объединяет HTTP-сервер и ресурсы, которые нужно закрыть при остановке.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	amqp   *amqp.Connection
}

// New инициализирует все зависимости приложения по конфигурации.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, db, err := openStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	var cacheRedis *cache.Cache
	if cfg.RedisConnection.AddressRedis != "" {
		cacheRedis, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Error("redis unavailable, registration limiter disabled", sl.Err(err))
			cacheRedis = nil
		}
	}

	var amqpConn *amqp.Connection
	var publisher *rabbitmq.Publisher
	if cfg.RabbitMQ.URL != "" {
		amqpConn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.ConnectRetries, cfg.RabbitMQ.ConnectDelay)
		if err != nil {
			logger.Error("rabbitmq unavailable, security events disabled", sl.Err(err))
		} else {
			ch, chErr := rabbitmq.SetupChannel(amqpConn, []rabbitmq.QueueConfig{
				{QueueName: cfg.RabbitMQ.QueueName, RoutingKey: cfg.RabbitMQ.RoutingKey},
			})
			if chErr != nil {
				logger.Error("rabbitmq channel setup failed, security events disabled", sl.Err(chErr))
			} else {
				publisher = rabbitmq.NewPublisher(ch, cfg.RabbitMQ.RoutingKey)
			}
		}
	}

	jwtMaker := jwt.NewMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)

	authService := authservice.NewAuthService(store, jwtMaker, logger, publisher, cfg.Auth.BcryptCost, authservice.BotPolicy{
		ScoreThreshold: cfg.Auth.BotScoreThreshold,
		MinFormTime:    cfg.Auth.MinFormTime,
	})
	adminService := adminservice.NewAdminService(store, logger, publisher)

	var regLimiter middlewarectx.RegistrationLimiter
	if cacheRedis != nil {
		regLimiter = cacheRedis
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, adminService, db, regLimiter, cfg)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		amqp:   amqpConn,
	}, nil
}

// openStorage создает хранилище по настроенному драйверу. Для postgres
// дополнительно применяет миграции; второй результат ненулевой только
// для postgres и используется проверкой готовности.
func openStorage(cfg *config.Config, logger *slog.Logger) (storage.Store, *repository.Storage, error) {
	const op = "laset.openStorage"

	switch cfg.Storage.Driver {
	case "postgres":
		db, err := repository.New(cfg.Storage.ConnectionString, cfg.Storage.ConnectRetries, cfg.Storage.ConnectDelay)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if err = migrations.Run(db.DB, cfg.Storage.MigrationsPath); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("postgres storage ready")
		return db, db, nil
	case "jsonfile":
		js, err := jsonfile.New(cfg.Storage.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("jsonfile storage ready", slog.String("path", cfg.Storage.FilePath))
		return js, nil, nil
	}
	return nil, nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Storage.Driver)
}

// Run запускает HTTP-сервер и корректно останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.db != nil {
			a.db.DB.Close()
		}
		if a.amqp != nil {
			a.amqp.Close()
		}
		return err
	}
}
