// Package handlers содержит HTTP обработчики API заданий.
package handlers

import (
	"assignments/internal/infrastructure/metrics"
	"assignments/internal/service"

	"go.uber.org/zap"
)

// Handlers содержит все обработчики API
type Handlers struct {
	assignments service.AssignmentServiceInterface
	publisher   service.EventPublisher
	metrics     metrics.Interface
	logger      *zap.Logger
}

// New создает новый экземпляр обработчиков
func New(assignments service.AssignmentServiceInterface, publisher service.EventPublisher, m metrics.Interface, logger *zap.Logger) *Handlers {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Handlers{
		assignments: assignments,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
	}
}
