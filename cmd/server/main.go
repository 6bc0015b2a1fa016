// Package main запускает сервис заданий.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"assignments/internal/app"
	"assignments/internal/config"
	"assignments/internal/model"
	"assignments/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		// логгер еще не настроен, пишем в stdout с уровнем по умолчанию
		log := logger.New(logger.Options{})
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Инициализация логгера
	log := logger.New(logger.Options{Level: cfg.LogLevel, Path: cfg.LogPath})
	defer func() { _ = log.Sync() }()

	// Контекст отменяется по SIGINT и SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Создание приложения через фабрику
	application, err := app.NewAppWithFactory(ctx, cfg, log)
	if err != nil {
		if errors.Is(err, model.ErrConnectFailure) {
			log.Fatal("Broker is unreachable, refusing to start", zap.Error(err))
		}
		log.Fatal("Failed to create app", zap.Error(err))
	}

	if err := application.Run(ctx); err != nil {
		log.Error("App stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}

	log.Info("App stopped successfully")
}
