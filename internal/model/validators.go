// Package model содержит валидаторы для моделей.
//
// Группа: BASE - Базовые компоненты
// Содержит: ValidationError, ValidationErrors, AssignmentCreate, валидаторы
package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors представляет множество ошибок валидации
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// HasErrors проверяет, есть ли ошибки валидации
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// ValidateRequired проверяет, что поле не пустое
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

var (
	structValidator *validator.Validate
	validatorOnce   sync.Once
)

// getValidator возвращает общий экземпляр validator с именами полей из json тегов
func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		structValidator = validator.New()
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return structValidator
}

// AssignmentCreate данные для создания задания
type AssignmentCreate struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	Content     string    `json:"content"`
	Deadline    time.Time `json:"deadline"`
	Students    []string  `json:"students" validate:"dive,required"`
}

// Validate проверяет данные для создания задания
func (c *AssignmentCreate) Validate() error {
	var errs ValidationErrors

	if err := getValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate assignment: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Field:   fe.Field(),
				Message: describeTag(fe),
			})
		}
	}

	if c.Deadline.IsZero() {
		errs = append(errs, ValidationError{Field: "deadline", Message: "is required"})
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NormalizedStudents возвращает студентов без дубликатов, сохраняя порядок
func (c *AssignmentCreate) NormalizedStudents() []string {
	seen := make(map[string]struct{}, len(c.Students))
	students := make([]string, 0, len(c.Students))
	for _, s := range c.Students {
		s = strings.TrimSpace(s)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		students = append(students, s)
	}
	return students
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s'", fe.Tag())
	}
}
