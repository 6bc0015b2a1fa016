// Package auth содержит проверку прав доступа к заданиям и разбор идентичности пользователя.
package auth

import "assignments/internal/model"

// CanCreate создавать задания может только преподаватель
func CanCreate(user model.UserContext) bool {
	return user.HasRole(model.RoleTeacher)
}

// CanView преподаватель видит свои задания, студент видит задания, где он указан
func CanView(user model.UserContext, assignment *model.Assignment) bool {
	if assignment == nil {
		return false
	}
	if user.HasRole(model.RoleTeacher) && assignment.TeacherID == user.UserID {
		return true
	}
	return user.HasRole(model.RoleStudent) && assignment.HasStudent(user.UserID)
}

// CanDelete удалять задания может только преподаватель.
// Владение конкретным заданием здесь не проверяется.
func CanDelete(user model.UserContext) bool {
	return user.HasRole(model.RoleTeacher)
}
