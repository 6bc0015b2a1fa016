// Package app содержит фабрику компонентов приложения.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"assignments/internal/auth"
	"assignments/internal/config"
	"assignments/internal/handlers"
	"assignments/internal/health"
	"assignments/internal/infrastructure/metrics"
	"assignments/internal/middleware"
	"assignments/internal/publisher"
	"assignments/internal/service"
	"assignments/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ComponentFactory создает компоненты приложения
type ComponentFactory struct {
	config   *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
}

// NewComponentFactory создает новую фабрику компонентов
func NewComponentFactory(config *config.Config, logger *zap.Logger) *ComponentFactory {
	if logger == nil {
		panic("Logger cannot be nil")
	}
	if config == nil {
		logger.Fatal("Config cannot be nil")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &ComponentFactory{
		config:   config,
		logger:   logger,
		registry: registry,
	}
}

// CreateStorage открывает хранилище, выбранное в конфигурации
func (f *ComponentFactory) CreateStorage(ctx context.Context) (storage.Store, error) {
	store, err := storage.Open(ctx, f.config.StorageConfig, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	return store, nil
}

// CreatePublisher создает публикатор и подключает его к брокеру
func (f *ComponentFactory) CreatePublisher(ctx context.Context) (*publisher.NATSPublisher, error) {
	cfg := f.config.PublisherConfig
	pub := publisher.New(publisher.Config{
		URL:            cfg.URL,
		Exchange:       cfg.Exchange,
		RoutingKey:     cfg.RoutingKey,
		Heartbeat:      cfg.Heartbeat,
		PublishTimeout: cfg.PublishTimeout,
	}, f.logger)

	if err := pub.Connect(ctx, cfg.MaxRetries, cfg.RetryDelay); err != nil {
		return nil, err
	}

	f.logger.Info("Publisher created successfully", zap.String("url", cfg.URL))
	return pub, nil
}

// CreateMetrics создает метрики в собственном реестре
func (f *ComponentFactory) CreateMetrics() *metrics.Metrics {
	return metrics.NewMetrics(f.registry)
}

// CreateSweeper создает фоновую сверку дедлайнов; nil если она отключена
func (f *ComponentFactory) CreateSweeper(closer service.DeadlineCloser, pub service.EventPublisher, m metrics.Interface) (*service.Sweeper, error) {
	cfg := f.config.SweepConfig
	if !cfg.Enabled {
		f.logger.Info("Deadline sweeper is disabled")
		return nil, nil
	}

	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.Schedule, err)
	}

	return service.NewSweeper(closer, pub, service.SweeperConfig{
		Schedule:    schedule,
		PassTimeout: cfg.PassTimeout,
		Concurrency: cfg.PublishConcurrency,
	}, m, f.logger), nil
}

// CreateHTTPServer создает HTTP сервер API
func (f *ComponentFactory) CreateHTTPServer(svc service.AssignmentServiceInterface, pub service.EventPublisher, m metrics.Interface) (*http.Server, error) {
	resolver, err := auth.NewResolver(f.config.AuthMode, f.config.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth resolver: %w", err)
	}

	h := handlers.New(svc, pub, m, f.logger)
	mw := middleware.New(resolver, m, f.logger)

	return &http.Server{
		Addr:              ":" + f.config.HTTPPort,
		Handler:           handlers.RegisterRoutes(h, mw),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}, nil
}

// CreateHealthServer создает сервер health check
func (f *ComponentFactory) CreateHealthServer(store storage.Store, pub health.ReadyChecker) (*health.Server, error) {
	if !f.config.HealthCheckEnabled {
		f.logger.Info("Health check server is disabled")
		return nil, nil
	}

	if f.config.HealthPort == "" {
		return nil, fmt.Errorf("health port is required when health check is enabled")
	}

	server := health.NewServer(f.config.HealthPort, f.logger, store, pub, f.registry)
	f.logger.Info("Health check server created", zap.String("port", f.config.HealthPort))
	return server, nil
}

// CreateApp создает приложение со всеми зависимостями.
// Ошибка подключения к брокеру оборачивает model.ErrConnectFailure.
func (f *ComponentFactory) CreateApp(ctx context.Context) (*App, error) {
	store, err := f.CreateStorage(ctx)
	if err != nil {
		return nil, err
	}

	pub, err := f.CreatePublisher(ctx)
	if err != nil {
		f.closeStore(store)
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	m := f.CreateMetrics()
	svc := service.NewAssignmentService(store.Assignments(), f.logger)

	sweeper, err := f.CreateSweeper(svc, pub, m)
	if err != nil {
		f.closeAll(store, pub)
		return nil, err
	}

	httpServer, err := f.CreateHTTPServer(svc, pub, m)
	if err != nil {
		f.closeAll(store, pub)
		return nil, err
	}

	healthServer, err := f.CreateHealthServer(store, pub)
	if err != nil {
		f.closeAll(store, pub)
		return nil, fmt.Errorf("failed to create health server: %w", err)
	}

	f.logger.Info("App created successfully with all dependencies")
	return &App{
		config:     f.config,
		logger:     f.logger,
		store:      store,
		publisher:  pub,
		sweeper:    sweeper,
		httpServer: httpServer,
		health:     healthServer,
	}, nil
}

func (f *ComponentFactory) closeStore(store storage.Store) {
	if err := store.Close(); err != nil {
		f.logger.Error("Failed to close storage", zap.Error(err))
	}
}

func (f *ComponentFactory) closeAll(store storage.Store, pub *publisher.NATSPublisher) {
	if err := pub.Close(); err != nil {
		f.logger.Error("Failed to close publisher", zap.Error(err))
	}
	f.closeStore(store)
}
