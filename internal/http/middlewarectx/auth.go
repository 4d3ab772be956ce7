// Package middlewarectx содержит HTTP middleware: аутентификацию по JWT,
// проверки доступа, CORS и ограничение частоты запросов.
//
// Authenticate только читает токен. Решение о доступе принимают
// RouteGuard, RequirePermission, RequireSuperAdmin и RequireActiveSubscription.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/fitcoach/internal/guard"
	"github.com/magabrotheeeer/fitcoach/internal/lib/jwt"
	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserKey — ключ для *guard.User в контексте.
	UserKey Key = "user"
	// RoleKey — ключ для models.AdminRole в контексте.
	RoleKey Key = "role"
)

// TokenParser проверяет токен сессии.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// Authenticate кладёт пользователя из заголовка Authorization в контекст.
// Запрос без токена или с негодным токеном проходит дальше анонимным.
func Authenticate(log *slog.Logger, parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Authenticate"

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := parser.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Debug("rejected session token",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("reason", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			user := &guard.User{ID: claims.UserID(), Email: claims.Email}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser возвращает контекст с пользователем.
func WithUser(ctx context.Context, user *guard.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// UserFromContext возвращает пользователя или nil для анонимного запроса.
func UserFromContext(ctx context.Context) *guard.User {
	user, _ := ctx.Value(UserKey).(*guard.User)
	return user
}

// WithRole возвращает контекст с ролью.
func WithRole(ctx context.Context, role models.AdminRole) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}

// RoleFromContext возвращает роль, определённую RouteGuard.
func RoleFromContext(ctx context.Context) models.AdminRole {
	role, _ := ctx.Value(RoleKey).(models.AdminRole)
	return role
}
