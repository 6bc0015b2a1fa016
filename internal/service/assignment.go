// Package service содержит бизнес-логику приложения.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"assignments/internal/auth"
	"assignments/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxIDAttempts сколько раз генерируется новый ID при коллизии
const maxIDAttempts = 5

// AssignmentService содержит бизнес-логику для работы с заданиями
type AssignmentService struct {
	repo   model.AssignmentRepository
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

var _ AssignmentServiceInterface = (*AssignmentService)(nil)

// Option настраивает AssignmentService
type Option func(*AssignmentService)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *AssignmentService) { s.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов
func WithIDGenerator(newID func() string) Option {
	return func(s *AssignmentService) { s.newID = newID }
}

// NewAssignmentService создает новый сервис заданий
func NewAssignmentService(repo model.AssignmentRepository, logger *zap.Logger, opts ...Option) *AssignmentService {
	s := &AssignmentService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  NewAssignmentID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewAssignmentID возвращает ID вида as-<12 hex>: 48 случайных бит UUID v4
func NewAssignmentID() string {
	id := uuid.New()
	return "as-" + hex.EncodeToString(id[:6])
}

// normalizeTime приводит время к UTC с точностью до миллисекунд
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// CreateAssignment создает задание от имени преподавателя
func (s *AssignmentService) CreateAssignment(ctx context.Context, data model.AssignmentCreate, user model.UserContext) (string, error) {
	if !auth.CanCreate(user) {
		return "", fmt.Errorf("%w: only teachers can create assignments", model.ErrForbidden)
	}

	if err := data.Validate(); err != nil {
		return "", err
	}

	assignment := &model.Assignment{
		TeacherID:   user.UserID,
		Title:       data.Title,
		Description: data.Description,
		Content:     data.Content,
		Deadline:    normalizeTime(data.Deadline),
		Students:    data.NormalizedStudents(),
		Status:      model.AssignmentStatusOpen,
		CreatedAt:   normalizeTime(s.now()),
	}

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		assignment.AssignmentID = s.newID()

		id, err := s.repo.Create(ctx, assignment)
		if err == nil {
			s.logger.Info("Assignment created",
				zap.String("assignment_id", id),
				zap.String("teacher_id", user.UserID),
				zap.Int("students", len(assignment.Students)))
			return id, nil
		}

		if !errors.Is(err, model.ErrDuplicateID) {
			return "", fmt.Errorf("failed to create assignment: %w", err)
		}

		s.logger.Warn("Assignment ID collision, regenerating",
			zap.String("assignment_id", assignment.AssignmentID),
			zap.Int("attempt", attempt))
	}

	return "", fmt.Errorf("failed to allocate assignment ID after %d attempts: %w", maxIDAttempts, model.ErrDuplicateID)
}

// ListAssignments возвращает задания, видимые пользователю.
// Пользователь с обеими ролями видит список преподавателя.
func (s *AssignmentService) ListAssignments(ctx context.Context, user model.UserContext) ([]model.Assignment, error) {
	var (
		assignments []model.Assignment
		err         error
	)

	switch {
	case user.HasRole(model.RoleTeacher):
		assignments, err = s.repo.FindForTeacher(ctx, user.UserID)
	case user.HasRole(model.RoleStudent):
		assignments, err = s.repo.FindForStudent(ctx, user.UserID)
	default:
		return []model.Assignment{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	return assignments, nil
}

// GetAssignment возвращает задание; отсутствие проверяется раньше прав доступа
func (s *AssignmentService) GetAssignment(ctx context.Context, assignmentID string, user model.UserContext) (*model.Assignment, error) {
	assignment, err := s.repo.FindOne(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if assignment == nil {
		return nil, fmt.Errorf("%w: assignment %s", model.ErrNotFound, assignmentID)
	}

	if !auth.CanView(user, assignment) {
		return nil, fmt.Errorf("%w: assignment %s", model.ErrForbidden, assignmentID)
	}

	return assignment, nil
}

// DeleteAssignment удаляет задание. Владение не проверяется: любой преподаватель может удалить задание.
func (s *AssignmentService) DeleteAssignment(ctx context.Context, assignmentID string, user model.UserContext) (bool, error) {
	if !auth.CanDelete(user) {
		return false, fmt.Errorf("%w: only teachers can delete assignments", model.ErrForbidden)
	}

	deleted, err := s.repo.Delete(ctx, assignmentID)
	if err != nil {
		return false, fmt.Errorf("failed to delete assignment: %w", err)
	}

	if deleted {
		s.logger.Info("Assignment deleted",
			zap.String("assignment_id", assignmentID),
			zap.String("user_id", user.UserID))
	}

	return deleted, nil
}

// SweepDeadlines закрывает все открытые задания с дедлайном раньше now
func (s *AssignmentService) SweepDeadlines(ctx context.Context, now time.Time) ([]model.ClosedAssignment, error) {
	closed, err := s.repo.CloseExpired(ctx, normalizeTime(now))
	if err != nil {
		return closed, fmt.Errorf("failed to close expired assignments: %w", err)
	}
	return closed, nil
}
