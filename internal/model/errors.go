// Package model содержит ошибки доменного слоя.
//
// Группа: BASE - Базовые компоненты
// Содержит: ErrForbidden, ErrNotFound, ErrDuplicateID, ErrStorageUnavailable, ErrPublishFailure, ErrConnectFailure
package model

import "errors"

var (
	// ErrForbidden роль или владение не проходят проверку доступа
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound сущность отсутствует
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID задание с таким ID уже существует
	ErrDuplicateID = errors.New("duplicate assignment id")

	// ErrStorageUnavailable хранилище недоступно
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrPublishFailure событие не удалось доставить брокеру
	ErrPublishFailure = errors.New("publish failure")

	// ErrConnectFailure не удалось подключиться к брокеру за отведенное число попыток
	ErrConnectFailure = errors.New("broker connect failure")

	// ErrAlreadyCompleted задание уже закрыто
	ErrAlreadyCompleted = errors.New("assignment already completed")
)
