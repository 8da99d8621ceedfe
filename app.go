package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookshelf/internal/config"
	"bookshelf/internal/database"
	"bookshelf/internal/handlers"
	"bookshelf/internal/middleware"
	"bookshelf/internal/repositories"
	"bookshelf/internal/services"
	"bookshelf/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// App bundles the HTTP server with the services and resources behind it.
type App struct {
	Fiber       *fiber.App
	AuthService *services.AuthService
	BookService *services.BookService
	Events      *rabbitmq.Client

	logger  logrus.FieldLogger
	closers []func() error
}

// NewApp builds repositories, services, middleware and routes from cfg.
// RabbitMQ and Redis are optional: when unset or unreachable the service
// runs without events or rate limiting.
func NewApp(cfg config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{logger: log}

	userRepo, tokenRepo, bookRepo, err := a.openRepositories(cfg)
	if err != nil {
		return nil, err
	}

	hasher := services.NewArgon2Hasher(services.Argon2Params{
		Memory:      cfg.Argon2Memory,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
		SaltLength:  services.DefaultArgon2Params().SaltLength,
		KeyLength:   services.DefaultArgon2Params().KeyLength,
	})
	issuer := services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	a.AuthService = services.NewAuthService(userRepo, tokenRepo, hasher, issuer, log.WithField("component", "auth"))
	a.BookService = services.NewBookService(bookRepo, a.AuthService, log.WithField("component", "books"))

	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange}, log.WithField("component", "rabbitmq"))
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, domain events disabled")
		} else {
			a.Events = mq
			a.closers = append(a.closers, mq.Close)
			a.AuthService.SetPublisher(mq)
			a.BookService.SetPublisher(mq)
		}
	}

	var limiter redis.Scripter
	if cfg.RedisAddr != "" && cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis unreachable, rate limiter will fail open")
		}
		cancel()
		limiter = rdb
		a.closers = append(a.closers, rdb.Close)
	}

	a.Fiber = fiber.New(fiber.Config{
		AppName:      "bookshelf",
		ErrorHandler: a.errorHandler,
	})
	a.routes(cfg, limiter)
	return a, nil
}

func (a *App) openRepositories(cfg config.Config) (repositories.UserRepository, repositories.TokenRepository, repositories.BookRepository, error) {
	if cfg.DatabaseDriver == "memory" {
		a.logger.Warn("using in-memory repositories, data will not survive a restart")
		return repositories.NewMemoryUserRepository(), repositories.NewMemoryTokenRepository(), repositories.NewMemoryBookRepository(), nil
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	a.closers = append(a.closers, func() error { return database.Close(db) })
	return repositories.NewGORMUserRepository(db), repositories.NewGORMTokenRepository(db), repositories.NewGORMBookRepository(db), nil
}

func (a *App) routes(cfg config.Config, limiter redis.Scripter) {
	metrics := middleware.NewMetrics()

	a.Fiber.Use(recover.New())
	a.Fiber.Use(logger.New())
	a.Fiber.Use(metrics.Middleware())

	a.Fiber.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": a.Events != nil,
		})
	})
	a.Fiber.Get("/metrics", metrics.Handler())

	api := a.Fiber.Group("/api",
		middleware.Authenticate(a.AuthService, a.logger.WithField("component", "authn")),
		middleware.Authorize(middleware.DefaultRules),
	)

	rateLimit := middleware.RateLimit(cfg.RateLimit, limiter, a.logger.WithField("component", "ratelimit"))
	handlers.NewAuthHandler(a.AuthService, a.logger.WithField("component", "http")).RegisterRoutes(api, rateLimit)
	handlers.NewBookHandler(a.BookService, a.logger.WithField("component", "http")).RegisterRoutes(api.Group("/v1"))
}

// errorHandler answers framework errors (unknown route, bad method, panics
// turned into errors) with the same JSON shape as the handlers.
func (a *App) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		a.logger.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"message": message})
}

// SeedAdmin creates the configured ADMIN account if it does not exist yet.
func (a *App) SeedAdmin(cfg config.Config) error {
	if !cfg.AdminConfigured() {
		return nil
	}
	if _, err := a.AuthService.EnsureAdmin(services.RegisterInput{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}
	return nil
}

// Close shuts the server down and releases every resource, newest first.
func (a *App) Close() error {
	var errs []error
	if a.Fiber != nil {
		if err := a.Fiber.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
