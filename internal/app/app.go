// Package app содержит основную логику приложения.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"assignments/internal/config"
	"assignments/internal/health"
	"assignments/internal/service"
	"assignments/internal/storage"

	"go.uber.org/zap"
)

// Closer закрывает публикатор
type Closer interface {
	Close() error
}

// App держит singletons процесса и управляет их жизненным циклом
type App struct {
	config     *config.Config
	logger     *zap.Logger
	store      storage.Store
	publisher  Closer
	sweeper    *service.Sweeper
	httpServer *http.Server
	health     *health.Server

	listenOnce sync.Once
	listener   net.Listener
	listenErr  error
}

// NewAppWithFactory создает приложение через фабрику компонентов
func NewAppWithFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	return NewComponentFactory(cfg, logger).CreateApp(ctx)
}

// Handler возвращает обработчик HTTP API
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Listen открывает сокет HTTP API; повторный вызов возвращает тот же результат
func (a *App) Listen() (net.Addr, error) {
	a.listenOnce.Do(func() {
		a.listener, a.listenErr = net.Listen("tcp", a.httpServer.Addr)
	})
	if a.listenErr != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", a.httpServer.Addr, a.listenErr)
	}
	return a.listener.Addr(), nil
}

// Run запускает серверы и сверку, блокируется до отмены ctx или падения HTTP сервера,
// затем выполняет упорядоченную остановку.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting app")

	if _, err := a.Listen(); err != nil {
		a.shutdown(nil, nil)
		return err
	}

	// Сверка живет в собственном контексте: ее останавливают после HTTP сервера
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	if a.sweeper != nil {
		go func() {
			defer close(sweepDone)
			a.sweeper.Run(sweepCtx)
		}()
	} else {
		close(sweepDone)
	}

	if a.health != nil {
		go func() {
			if err := a.health.Start(); err != nil {
				a.logger.Error("Health check server failed", zap.Error(err))
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.listener.Addr().String()))
		if err := a.httpServer.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
			a.logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	a.shutdown(stopSweep, sweepDone)
	a.logger.Info("App stopped successfully")
	return runErr
}

// shutdown останавливает компоненты по порядку: HTTP, сверка, публикатор, хранилище
func (a *App) shutdown(stopSweep context.CancelFunc, sweepDone <-chan struct{}) {
	timeout := a.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.logger.Debug("Graceful shutdown timeout set", zap.Duration("timeout", timeout))

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	if a.health != nil {
		if err := a.health.Stop(shutdownCtx); err != nil {
			a.logger.Error("Failed to stop health check server", zap.Error(err))
		}
	}

	if stopSweep != nil {
		stopSweep()
		select {
		case <-sweepDone:
			a.logger.Info("Deadline sweeper stopped")
		case <-shutdownCtx.Done():
			a.logger.Warn("Graceful shutdown timeout exceeded, sweeper still running")
		}
	}

	if err := a.publisher.Close(); err != nil {
		a.logger.Error("Failed to close publisher", zap.Error(err))
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close storage", zap.Error(err))
	}
}
