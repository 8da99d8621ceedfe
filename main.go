package main

import (
	"os"
	"os/signal"
	"syscall"

	"bookshelf/internal/config"
	"bookshelf/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	cfg, err := config.Load(viper.New())
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := config.NewLogger(cfg)

	app, err := NewApp(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize application")
	}

	if err := app.SeedAdmin(cfg); err != nil {
		log.WithError(err).Fatal("failed to seed admin")
	}

	if app.Events != nil {
		if err := app.Events.ConsumeEvents(rabbitmq.LogEvent(log.WithField("component", "audit"))); err != nil {
			log.WithError(err).Warn("failed to start RabbitMQ consumer")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("port", cfg.AppPort).Info("starting server")
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			log.WithError(err).Fatal("server failed to start")
		}
	}()

	<-quit
	log.Info("shutting down server")
	if err := app.Close(); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
	log.Info("server gracefully stopped")
}
