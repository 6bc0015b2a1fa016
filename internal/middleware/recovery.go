// Package middleware содержит middleware для recovery и обработки ошибок.
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recovery обрабатывает панику в обработчике и отвечает 500
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if panicErr := recover(); panicErr != nil {
					if panicErr == http.ErrAbortHandler {
						panic(panicErr)
					}

					logger.Error("Panic recovered in recovery middleware",
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Any("panic", panicErr),
						zap.String("stack", string(debug.Stack())))

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
