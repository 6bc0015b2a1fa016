// Package repository содержит реализации репозиториев для работы с базой данных.
package repository

import (
	"fmt"

	"assignments/internal/model"
)

// unavailable оборачивает ошибку драйвера в model.ErrStorageUnavailable
func unavailable(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, model.ErrStorageUnavailable, err)
}

// duplicate сообщает о занятом идентификаторе
func duplicate(assignmentID string, err error) error {
	return fmt.Errorf("failed to create assignment %s: %w: %v", assignmentID, model.ErrDuplicateID, err)
}
