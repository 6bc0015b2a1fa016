package storage

import (
	"context"
	"fmt"
	"time"

	"assignments/internal/config"
	"assignments/internal/model"
	"assignments/internal/storage/repository"

	"go.uber.org/zap"
)

// Store объединяет подключение к хранилищу и репозиторий заданий
type Store interface {
	Assignments() model.AssignmentRepository
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*Mongo)(nil)
	_ Store = (*Memory)(nil)
)

// Open открывает хранилище, выбранное в конфигурации, и готовит схему
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Driver {
	case config.StorageDriverPostgres:
		store, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.ConnectRetries, cfg.ConnectDelay, logger)
	case config.StorageDriverMongo:
		store, err = NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.ConnectRetries, cfg.ConnectDelay, logger)
	case config.StorageDriverMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		store = NewMemory()
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.EnsureSchema(ctx); err != nil {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("Failed to close storage", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to prepare storage schema: %w", err)
	}

	logger.Info("Storage ready", zap.String("driver", cfg.Driver))
	return store, nil
}

// Memory хранилище в памяти процесса для локального запуска и тестов
type Memory struct {
	assignments *repository.AssignmentMemoryRepository
}

// NewMemory создает пустое хранилище в памяти
func NewMemory() *Memory {
	return &Memory{assignments: repository.NewAssignmentMemoryRepository()}
}

// Assignments возвращает репозиторий заданий
func (m *Memory) Assignments() model.AssignmentRepository {
	return m.assignments
}

// EnsureSchema ничего не делает
func (m *Memory) EnsureSchema(context.Context) error { return nil }

// Ping всегда успешен
func (m *Memory) Ping(context.Context) error { return nil }

// Close ничего не делает
func (m *Memory) Close() error { return nil }

// sleepContext ждет delay или отмены контекста
func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
