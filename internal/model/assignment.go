// Package model содержит модели данных.
//
// Группа: ENTITIES - Основные сущности
// Содержит: Assignment, AssignmentCreate, ClosedAssignment, AssignmentRepository
package model

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Assignment представляет задание, выданное преподавателем студентам
type Assignment struct {
	bun.BaseModel `bun:"table:assignments" bson:"-" json:"-"`

	AssignmentID string           `bun:"assignment_id,pk" bson:"assignmentId" json:"assignmentId"`
	TeacherID    string           `bun:"teacher_id,notnull" bson:"teacherId" json:"teacherId"`
	Title        string           `bun:"title,notnull" bson:"title" json:"title"`
	Description  string           `bun:"description,notnull" bson:"description" json:"description"`
	Content      string           `bun:"content,notnull" bson:"content" json:"content"`
	Deadline     time.Time        `bun:"deadline,notnull" bson:"deadline" json:"deadline"`
	Students     []string         `bun:"students,array,notnull" bson:"students" json:"students"`
	Status       AssignmentStatus `bun:"status,notnull,default:'open'" bson:"status" json:"status"`
	CreatedAt    time.Time        `bun:"created_at,notnull" bson:"createdAt" json:"createdAt"`
	CompletedAt  *time.Time       `bun:"completed_at,nullzero" bson:"completedAt" json:"completedAt"`
}

// IsCompleted проверяет, закрыто ли задание
func (a *Assignment) IsCompleted() bool {
	return a.Status == AssignmentStatusCompleted
}

// IsExpired проверяет, что дедлайн прошел, а задание еще открыто
func (a *Assignment) IsExpired(now time.Time) bool {
	return !a.IsCompleted() && a.Deadline.Before(now)
}

// HasStudent проверяет, назначено ли задание студенту
func (a *Assignment) HasStudent(studentID string) bool {
	for _, s := range a.Students {
		if s == studentID {
			return true
		}
	}
	return false
}

// Complete переводит задание в статус completed.
// Переход возможен только один раз: completedAt равен моменту сверки, а не дедлайну.
func (a *Assignment) Complete(now time.Time) error {
	if a.IsCompleted() {
		return ErrAlreadyCompleted
	}
	completedAt := now
	a.Status = AssignmentStatusCompleted
	a.CompletedAt = &completedAt
	return nil
}

// Validate проверяет инварианты состояния задания
func (a *Assignment) Validate() error {
	var errors ValidationErrors

	if err := ValidateRequired("assignmentId", a.AssignmentID); err != nil {
		errors = append(errors, err.(ValidationError))
	}
	if err := ValidateRequired("teacherId", a.TeacherID); err != nil {
		errors = append(errors, err.(ValidationError))
	}
	if !a.Status.IsValid() {
		errors = append(errors, ValidationError{Field: "status", Message: "invalid status"})
	}
	if a.IsCompleted() != (a.CompletedAt != nil) {
		errors = append(errors, ValidationError{Field: "completedAt", Message: "must be set iff status is completed"})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// Clone возвращает глубокую копию задания
func (a *Assignment) Clone() *Assignment {
	c := *a
	c.Students = append([]string(nil), a.Students...)
	if a.CompletedAt != nil {
		completedAt := *a.CompletedAt
		c.CompletedAt = &completedAt
	}
	return &c
}

// ClosedAssignment описывает задание, закрытое конкретным вызовом CloseExpired
type ClosedAssignment struct {
	AssignmentID string `bun:"assignment_id" bson:"assignmentId" json:"assignmentId"`
	TeacherID    string `bun:"teacher_id" bson:"teacherId" json:"teacherId"`
}

// ClosedIDs возвращает идентификаторы закрытых заданий
func ClosedIDs(closed []ClosedAssignment) []string {
	ids := make([]string, 0, len(closed))
	for _, c := range closed {
		ids = append(ids, c.AssignmentID)
	}
	return ids
}

// AssignmentRepository определяет интерфейс хранилища заданий.
//
// Все операции могут вернуть ошибку, оборачивающую ErrStorageUnavailable.
type AssignmentRepository interface {
	// Create сохраняет полностью заполненное задание, ErrDuplicateID если ID занят
	Create(ctx context.Context, assignment *Assignment) (string, error)

	// FindForTeacher возвращает задания преподавателя
	FindForTeacher(ctx context.Context, teacherID string) ([]Assignment, error)

	// FindForStudent возвращает задания, в которых студент указан среди students
	FindForStudent(ctx context.Context, studentID string) ([]Assignment, error)

	// FindOne возвращает задание по ID или nil, если его нет
	FindOne(ctx context.Context, assignmentID string) (*Assignment, error)

	// Delete удаляет задание, true если что-то было удалено
	Delete(ctx context.Context, assignmentID string) (bool, error)

	// CloseExpired атомарно закрывает все открытые задания с deadline < now
	// и возвращает ровно те, что были изменены этим вызовом.
	CloseExpired(ctx context.Context, now time.Time) ([]ClosedAssignment, error)
}
