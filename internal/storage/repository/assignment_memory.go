package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"assignments/internal/model"

	"github.com/puzpuzpuz/xsync/v4"
)

// AssignmentMemoryRepository хранит задания в памяти процесса.
// Значения в map неизменяемы: любое изменение кладет новую копию через Compute.
type AssignmentMemoryRepository struct {
	items *xsync.Map[string, *model.Assignment]
}

var _ model.AssignmentRepository = (*AssignmentMemoryRepository)(nil)

// NewAssignmentMemoryRepository создает пустой репозиторий в памяти
func NewAssignmentMemoryRepository() *AssignmentMemoryRepository {
	return &AssignmentMemoryRepository{
		items: xsync.NewMap[string, *model.Assignment](),
	}
}

// Create создает новое задание
func (r *AssignmentMemoryRepository) Create(_ context.Context, assignment *model.Assignment) (string, error) {
	if _, loaded := r.items.LoadOrStore(assignment.AssignmentID, assignment.Clone()); loaded {
		return "", duplicate(assignment.AssignmentID, errors.New("key exists"))
	}
	return assignment.AssignmentID, nil
}

// FindForTeacher возвращает задания преподавателя
func (r *AssignmentMemoryRepository) FindForTeacher(_ context.Context, teacherID string) ([]model.Assignment, error) {
	return r.collect(func(a *model.Assignment) bool { return a.TeacherID == teacherID }), nil
}

// FindForStudent возвращает задания, назначенные студенту
func (r *AssignmentMemoryRepository) FindForStudent(_ context.Context, studentID string) ([]model.Assignment, error) {
	return r.collect(func(a *model.Assignment) bool { return a.HasStudent(studentID) }), nil
}

func (r *AssignmentMemoryRepository) collect(match func(*model.Assignment) bool) []model.Assignment {
	assignments := make([]model.Assignment, 0)
	r.items.Range(func(_ string, a *model.Assignment) bool {
		if match(a) {
			assignments = append(assignments, *a.Clone())
		}
		return true
	})
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].CreatedAt.After(assignments[j].CreatedAt)
	})
	return assignments
}

// FindOne возвращает задание по ID
func (r *AssignmentMemoryRepository) FindOne(_ context.Context, assignmentID string) (*model.Assignment, error) {
	a, ok := r.items.Load(assignmentID)
	if !ok {
		return nil, nil
	}
	return a.Clone(), nil
}

// Delete удаляет задание
func (r *AssignmentMemoryRepository) Delete(_ context.Context, assignmentID string) (bool, error) {
	_, deleted := r.items.LoadAndDelete(assignmentID)
	return deleted, nil
}

// CloseExpired закрывает просроченные задания. Переход каждого задания
// выполняется внутри Compute, поэтому его получает только один вызов.
func (r *AssignmentMemoryRepository) CloseExpired(_ context.Context, now time.Time) ([]model.ClosedAssignment, error) {
	closed := make([]model.ClosedAssignment, 0)

	r.items.Range(func(id string, a *model.Assignment) bool {
		if !a.IsExpired(now) {
			return true
		}
		r.items.Compute(id, func(old *model.Assignment, loaded bool) (*model.Assignment, xsync.ComputeOp) {
			if !loaded || !old.IsExpired(now) {
				return old, xsync.CancelOp
			}
			updated := old.Clone()
			if err := updated.Complete(now); err != nil {
				return old, xsync.CancelOp
			}
			closed = append(closed, model.ClosedAssignment{
				AssignmentID: updated.AssignmentID,
				TeacherID:    updated.TeacherID,
			})
			return updated, xsync.UpdateOp
		})
		return true
	})

	return closed, nil
}

// Len возвращает число заданий
func (r *AssignmentMemoryRepository) Len() int {
	return r.items.Size()
}
