package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"assignments/internal/model"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// pgUniqueViolation SQLSTATE нарушения уникальности
const pgUniqueViolation = "23505"

// AssignmentRepository реализует model.AssignmentRepository поверх PostgreSQL
type AssignmentRepository struct {
	db     bun.IDB
	logger *zap.Logger
}

// Убеждаемся, что AssignmentRepository реализует интерфейс
var _ model.AssignmentRepository = (*AssignmentRepository)(nil)

// NewAssignmentRepository создает новый репозиторий заданий
func NewAssignmentRepository(db bun.IDB, logger *zap.Logger) *AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create создает новое задание
func (r *AssignmentRepository) Create(ctx context.Context, assignment *model.Assignment) (string, error) {
	_, err := r.db.NewInsert().
		Model(assignment).
		Exec(ctx)

	if err != nil {
		if isUniqueViolation(err) {
			return "", duplicate(assignment.AssignmentID, err)
		}
		return "", unavailable("create assignment", err)
	}

	return assignment.AssignmentID, nil
}

// FindForTeacher возвращает задания преподавателя
func (r *AssignmentRepository) FindForTeacher(ctx context.Context, teacherID string) ([]model.Assignment, error) {
	assignments := make([]model.Assignment, 0)

	err := r.db.NewSelect().
		Model(&assignments).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, unavailable("query assignments for teacher", err)
	}

	return assignments, nil
}

// FindForStudent возвращает задания, назначенные студенту
func (r *AssignmentRepository) FindForStudent(ctx context.Context, studentID string) ([]model.Assignment, error) {
	assignments := make([]model.Assignment, 0)

	err := r.db.NewSelect().
		Model(&assignments).
		Where("? = ANY(students)", studentID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, unavailable("query assignments for student", err)
	}

	return assignments, nil
}

// FindOne возвращает задание по ID
func (r *AssignmentRepository) FindOne(ctx context.Context, assignmentID string) (*model.Assignment, error) {
	assignment := new(model.Assignment)

	err := r.db.NewSelect().
		Model(assignment).
		Where("assignment_id = ?", assignmentID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable("query assignment by ID", err)
	}

	return assignment, nil
}

// Delete удаляет задание
func (r *AssignmentRepository) Delete(ctx context.Context, assignmentID string) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*model.Assignment)(nil)).
		Where("assignment_id = ?", assignmentID).
		Exec(ctx)

	if err != nil {
		return false, unavailable("delete assignment", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("read deleted rows", err)
	}

	return affected > 0, nil
}

// CloseExpired закрывает просроченные задания одним UPDATE ... RETURNING.
// Строка, захваченная конкурентным вызовом, перепроверяется по WHERE после
// снятия блокировки и повторно не возвращается.
func (r *AssignmentRepository) CloseExpired(ctx context.Context, now time.Time) ([]model.ClosedAssignment, error) {
	closed := make([]model.ClosedAssignment, 0)

	_, err := r.db.NewUpdate().
		Model((*model.Assignment)(nil)).
		Set("status = ?", model.AssignmentStatusCompleted).
		Set("completed_at = ?", now).
		Where("deadline < ?", now).
		Where("status <> ?", model.AssignmentStatusCompleted).
		Returning("assignment_id, teacher_id").
		Exec(ctx, &closed)

	if err != nil {
		return nil, unavailable("close expired assignments", err)
	}

	if len(closed) > 0 {
		r.logger.Debug("Closed expired assignments",
			zap.Int("count", len(closed)),
			zap.Time("now", now))
	}

	return closed, nil
}

// EnsureSchema создает таблицу и индексы, если их нет
func (r *AssignmentRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().
		Model((*model.Assignment)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return unavailable("create assignments table", err)
	}

	indexes := []struct {
		name    string
		using   string
		columns []string
	}{
		{name: "assignments_teacher_id_idx", columns: []string{"teacher_id"}},
		{name: "assignments_students_idx", using: "GIN", columns: []string{"students"}},
		{name: "assignments_deadline_status_idx", columns: []string{"deadline", "status"}},
	}

	for _, idx := range indexes {
		q := r.db.NewCreateIndex().
			Model((*model.Assignment)(nil)).
			Index(idx.name).
			IfNotExists().
			Column(idx.columns...)
		if idx.using != "" {
			q = q.Using(idx.using)
		}
		if _, err := q.Exec(ctx); err != nil {
			return unavailable("create index "+idx.name, err)
		}
	}

	return nil
}

// isUniqueViolation проверяет код ошибки PostgreSQL
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	return false
}
