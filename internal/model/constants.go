// Package model содержит константы для моделей.
//
// Группа: BASE - Базовые компоненты
// Содержит: AssignmentStatus, Role
package model

// AssignmentStatus представляет статус задания
type AssignmentStatus string

const (
	AssignmentStatusOpen      AssignmentStatus = "open"
	AssignmentStatusCompleted AssignmentStatus = "completed"
)

// String возвращает строковое представление статуса
func (s AssignmentStatus) String() string {
	return string(s)
}

// IsValid проверяет валидность статуса
func (s AssignmentStatus) IsValid() bool {
	switch s {
	case AssignmentStatusOpen, AssignmentStatusCompleted:
		return true
	default:
		return false
	}
}

// Role представляет роль пользователя
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// String возвращает строковое представление роли
func (r Role) String() string {
	return string(r)
}
