// Package model содержит контекст пользователя.
//
// Группа: ENTITIES - Основные сущности
// Содержит: UserContext, Roles
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Roles набор ролей пользователя.
// В JSON допускается как одна строка, так и массив строк.
type Roles []Role

// UnmarshalJSON реализует json.Unmarshaler
func (r *Roles) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = ParseRoles(single)
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("role must be a string or an array of strings: %w", err)
	}

	roles := make(Roles, 0, len(many))
	for _, m := range many {
		if m = strings.TrimSpace(m); m != "" {
			roles = append(roles, Role(strings.ToLower(m)))
		}
	}
	*r = roles
	return nil
}

// ParseRoles разбирает роли из строки, разделенной запятыми
func ParseRoles(raw string) Roles {
	var roles Roles
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			roles = append(roles, Role(strings.ToLower(part)))
		}
	}
	return roles
}

// Contains проверяет наличие роли в наборе
func (r Roles) Contains(role Role) bool {
	for _, have := range r {
		if have == role {
			return true
		}
	}
	return false
}

// UserContext идентичность вызывающего, полученная от слоя аутентификации
type UserContext struct {
	UserID string `json:"userId"`
	Roles  Roles  `json:"role"`
}

// NewUserContext создает контекст пользователя
func NewUserContext(userID string, roles ...Role) UserContext {
	return UserContext{UserID: userID, Roles: roles}
}

// HasRole проверяет, есть ли у пользователя роль
func (u UserContext) HasRole(role Role) bool {
	return u.Roles.Contains(role)
}
