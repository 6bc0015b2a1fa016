package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"assignments/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// Режимы определения пользователя
const (
	ModeJWT     = "jwt"
	ModeGateway = "gateway"
)

// Заголовки, которые выставляет API gateway
const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "Role"
)

// ErrUnauthenticated запрос без валидных учетных данных
var ErrUnauthenticated = errors.New("unauthenticated")

// Resolver извлекает контекст пользователя из входящего запроса
type Resolver interface {
	Resolve(r *http.Request) (model.UserContext, error)
}

// NewResolver создает Resolver для указанного режима
func NewResolver(mode, secret string) (Resolver, error) {
	switch mode {
	case ModeJWT, "":
		if secret == "" {
			return nil, fmt.Errorf("jwt secret is required for auth mode %q", ModeJWT)
		}
		return NewJWTResolver(secret), nil
	case ModeGateway:
		return GatewayResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", mode)
	}
}

// Claims утверждения токена; role может быть строкой или массивом
type Claims struct {
	UserID string      `json:"user_id,omitempty"`
	Role   model.Roles `json:"role"`
	jwt.RegisteredClaims
}

// JWTResolver проверяет Bearer токен, подписанный HS256
type JWTResolver struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTResolver создает резолвер JWT
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Resolve разбирает заголовок Authorization
func (j *JWTResolver) Resolve(r *http.Request) (model.UserContext, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return model.UserContext{}, fmt.Errorf("missing authorization header: %w", ErrUnauthenticated)
	}

	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return model.UserContext{}, fmt.Errorf("authorization header is not a bearer token: %w", ErrUnauthenticated)
	}

	claims := &Claims{}
	_, err := j.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	})
	if err != nil {
		return model.UserContext{}, fmt.Errorf("invalid token: %v: %w", err, ErrUnauthenticated)
	}

	userID := claims.Subject
	if userID == "" {
		userID = claims.UserID
	}
	if userID == "" {
		return model.UserContext{}, fmt.Errorf("token has no subject: %w", ErrUnauthenticated)
	}

	return model.UserContext{UserID: userID, Roles: claims.Role}, nil
}

// Sign выпускает токен для пользователя; используется тестами и локальной отладкой
func (j *JWTResolver) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// GatewayResolver доверяет заголовкам, выставленным API gateway
type GatewayResolver struct{}

// Resolve читает X-User-ID и Role
func (GatewayResolver) Resolve(r *http.Request) (model.UserContext, error) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		return model.UserContext{}, fmt.Errorf("missing %s header: %w", HeaderUserID, ErrUnauthenticated)
	}
	return model.UserContext{
		UserID: userID,
		Roles:  model.ParseRoles(r.Header.Get(HeaderRole)),
	}, nil
}
