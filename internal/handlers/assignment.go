package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"assignments/internal/infrastructure/metrics"
	"assignments/internal/middleware"
	"assignments/internal/model"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxBodyBytes ограничение на размер тела запроса
const maxBodyBytes = 1 << 20

func assignmentLocation(id string) string {
	return APIPrefix + "/assignments/" + id
}

// userFrom достает пользователя, выставленного middleware.Auth
func (h *Handlers) userFrom(w http.ResponseWriter, r *http.Request) (model.UserContext, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
	}
	return user, ok
}

// CreateAssignment обрабатывает POST /assignments
func (h *Handlers) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	var data model.AssignmentCreate
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			h.writeError(w, http.StatusBadRequest, "Request body is required")
			return
		}
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	id, err := h.assignments.CreateAssignment(r.Context(), data, user)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", assignmentLocation(id))

	// Задание уже сохранено; при ошибке брокера клиент получает id и 503
	teacherID := user.UserID
	if err := h.publisher.PublishAssignmentStatus(r.Context(), id, &teacherID, model.AssignmentStatusOpen); err != nil {
		h.metrics.RecordPublish(string(model.AssignmentStatusOpen), metrics.ResultError)
		h.logger.Error("Failed to publish assignment status",
			zap.String("assignment_id", id),
			zap.String("status", string(model.AssignmentStatusOpen)),
			zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, struct {
			Detail string `json:"detail"`
			ID     string `json:"id"`
		}{Detail: "Assignment created but the status event could not be published", ID: id})
		return
	}
	h.metrics.RecordPublish(string(model.AssignmentStatusOpen), metrics.ResultOK)

	h.writeJSON(w, http.StatusCreated, CreatedResponse{Message: "Assignment created", ID: id})
}

// ListAssignments обрабатывает GET /assignments
func (h *Handlers) ListAssignments(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	assignments, err := h.assignments.ListAssignments(r.Context(), user)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}

	h.writeJSON(w, http.StatusOK, assignments)
}

// GetAssignment обрабатывает GET /assignments/{id}
func (h *Handlers) GetAssignment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	assignment, err := h.assignments.GetAssignment(r.Context(), mux.Vars(r)["id"], user)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, assignment)
}

// DeleteAssignment обрабатывает DELETE /assignments/{id}
func (h *Handlers) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userFrom(w, r)
	if !ok {
		return
	}

	deleted, err := h.assignments.DeleteAssignment(r.Context(), mux.Vars(r)["id"], user)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "Assignment not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health обрабатывает GET /assignments/health без аутентификации
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
