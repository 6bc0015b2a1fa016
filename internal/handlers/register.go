// Package handlers содержит регистрацию маршрутов.
package handlers

import (
	"net/http"

	"assignments/internal/middleware"

	"github.com/gorilla/mux"
)

// APIPrefix префикс версии API
const APIPrefix = "/api/v1"

// RegisterRoutes регистрирует все маршруты и возвращает готовый обработчик
func RegisterRoutes(h *Handlers, mw *middleware.Middleware) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix(APIPrefix).Subrouter()

	// health регистрируется раньше {id}, чтобы не считаться идентификатором
	api.HandleFunc("/assignments/health", h.Health).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(mw.Authenticate)
	protected.HandleFunc("/assignments", h.CreateAssignment).Methods(http.MethodPost)
	protected.HandleFunc("/assignments", h.ListAssignments).Methods(http.MethodGet)
	protected.HandleFunc("/assignments/{id}", h.GetAssignment).Methods(http.MethodGet)
	protected.HandleFunc("/assignments/{id}", h.DeleteAssignment).Methods(http.MethodDelete)

	return mw.Wrap(r)
}
