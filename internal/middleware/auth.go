package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"assignments/internal/auth"
	"assignments/internal/model"

	"go.uber.org/zap"
)

type userContextKey struct{}

// WithUser кладет контекст пользователя в context.Context
func WithUser(ctx context.Context, user model.UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext достает контекст пользователя, выставленный Auth
func UserFromContext(ctx context.Context) (model.UserContext, bool) {
	user, ok := ctx.Value(userContextKey{}).(model.UserContext)
	return user, ok
}

// Auth определяет пользователя запроса; без валидных учетных данных отвечает 401
func Auth(resolver auth.Resolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.Resolve(r)
			if err != nil {
				logger.Debug("Request rejected by auth",
					zap.String("path", r.URL.Path),
					zap.Error(err))

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Not authenticated"})
				return
			}

			logger.Debug("Request authenticated",
				zap.String("path", r.URL.Path),
				zap.String("user_id", user.UserID))

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
