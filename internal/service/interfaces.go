package service

import (
	"context"
	"time"

	"assignments/internal/model"
)

// EventPublisher определяет интерфейс публикации событий о статусе задания
type EventPublisher interface {
	PublishAssignmentStatus(ctx context.Context, assignmentID string, teacherID *string, status model.AssignmentStatus) error
}

// DeadlineCloser закрывает просроченные задания
type DeadlineCloser interface {
	SweepDeadlines(ctx context.Context, now time.Time) ([]model.ClosedAssignment, error)
}

// AssignmentServiceInterface определяет интерфейс для работы с заданиями
type AssignmentServiceInterface interface {
	DeadlineCloser
	CreateAssignment(ctx context.Context, data model.AssignmentCreate, user model.UserContext) (string, error)
	ListAssignments(ctx context.Context, user model.UserContext) ([]model.Assignment, error)
	GetAssignment(ctx context.Context, assignmentID string, user model.UserContext) (*model.Assignment, error)
	DeleteAssignment(ctx context.Context, assignmentID string, user model.UserContext) (bool, error)
}
