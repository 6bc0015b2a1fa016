// Package health содержит health check сервер.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server представляет health check сервер
type Server struct {
	server    *http.Server
	storage   Pinger
	publisher ReadyChecker
	logger    *zap.Logger
	startTime time.Time
}

// Status ответ health check
type Status struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Uptime     string            `json:"uptime,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// NewServer создает новый health check сервер
func NewServer(port string, logger *zap.Logger, storage Pinger, publisher ReadyChecker, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthServer := &Server{
		server:    server,
		storage:   storage,
		publisher: publisher,
		logger:    logger,
		startTime: time.Now(),
	}

	// Регистрируем маршруты
	mux.HandleFunc("/health", healthServer.healthHandler)
	mux.HandleFunc("/ready", healthServer.readyHandler)
	mux.HandleFunc("/live", healthServer.liveHandler)
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return healthServer
}

// Handler возвращает обработчик маршрутов
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start запускает health check сервер
func (s *Server) Start() error {
	s.logger.Info("Starting health check server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает health check сервер
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping health check server")
	return s.server.Shutdown(ctx)
}

// healthHandler обрабатывает запросы /health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	components := s.checkComponents(r.Context())

	status := "healthy"
	code := http.StatusOK
	for name, state := range components {
		if state != "healthy" {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			s.logger.Warn("Component check failed", zap.String("component", name))
		}
	}

	s.write(w, code, Status{
		Status:     status,
		Timestamp:  time.Now().Format(time.RFC3339),
		Uptime:     fmt.Sprintf("%ds", int(time.Since(s.startTime).Seconds())),
		Components: components,
	})
}

// readyHandler обрабатывает запросы /ready
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	code := http.StatusOK

	// Проверяем готовность к работе
	if err := s.checkReadiness(r.Context()); err != nil {
		status = "not ready"
		code = http.StatusServiceUnavailable
		s.logger.Error("Readiness check failed", zap.Error(err))
	}

	s.write(w, code, Status{Status: status, Timestamp: time.Now().Format(time.RFC3339)})
}

// liveHandler обрабатывает запросы /live
func (s *Server) liveHandler(w http.ResponseWriter, _ *http.Request) {
	s.write(w, http.StatusOK, Status{Status: "alive", Timestamp: time.Now().Format(time.RFC3339)})
}

func (s *Server) write(w http.ResponseWriter, code int, status Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to encode health status", zap.Error(err))
	}
}

// checkComponents проверяет хранилище и брокер
func (s *Server) checkComponents(ctx context.Context) map[string]string {
	components := map[string]string{
		"storage":   "healthy",
		"publisher": "healthy",
	}

	if err := s.checkStorage(ctx); err != nil {
		components["storage"] = "unhealthy"
		s.logger.Error("Storage check failed", zap.Error(err))
	}

	if s.publisher == nil || !s.publisher.Ready() {
		components["publisher"] = "unhealthy"
	}

	return components
}

// checkStorage проверяет подключение к хранилищу
func (s *Server) checkStorage(ctx context.Context) error {
	if s.storage == nil {
		return fmt.Errorf("storage is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.storage.Ping(ctx); err != nil {
		return fmt.Errorf("storage ping failed: %w", err)
	}
	return nil
}

// checkReadiness проверяет готовность к работе
func (s *Server) checkReadiness(ctx context.Context) error {
	if err := s.checkStorage(ctx); err != nil {
		return fmt.Errorf("storage is not ready: %w", err)
	}

	if s.publisher == nil || !s.publisher.Ready() {
		return fmt.Errorf("publisher is not ready")
	}

	return nil
}
