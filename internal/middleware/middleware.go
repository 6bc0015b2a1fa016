// Package middleware содержит HTTP middleware компоненты.
package middleware

import (
	"net/http"

	"assignments/internal/auth"
	"assignments/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

// Middleware собирает цепочку обработчиков для API
type Middleware struct {
	resolver auth.Resolver
	metrics  metrics.Interface
	logger   *zap.Logger
}

// New создает новый middleware
func New(resolver auth.Resolver, m metrics.Interface, logger *zap.Logger) *Middleware {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Middleware{
		resolver: resolver,
		metrics:  m,
		logger:   logger,
	}
}

// Wrap оборачивает весь роутер: CORS, recovery, логирование.
// Аутентификация подключается отдельно на защищенные маршруты через Authenticate.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return CORS(Logging(m.logger, m.metrics)(Recovery(m.logger)(next)))
}

// Authenticate возвращает middleware аутентификации
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return Auth(m.resolver, m.logger)(next)
}
