package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"assignments/internal/model"

	"go.uber.org/zap"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// CreatedResponse ответ на создание задания
type CreatedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, code int, detail any) {
	h.writeJSON(w, code, ErrorResponse{Detail: detail})
}

// writeServiceError сопоставляет доменную ошибку с HTTP статусом
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs model.ValidationErrors
	var verr model.ValidationError

	switch {
	case errors.As(err, &verrs):
		h.writeError(w, http.StatusBadRequest, verrs)
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, model.ValidationErrors{verr})
	case errors.Is(err, model.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "Assignment not found")
	case errors.Is(err, model.ErrForbidden):
		h.writeError(w, http.StatusForbidden, err.Error())
	default:
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
