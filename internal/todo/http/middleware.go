package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
	"github.com/aussiebroadwan/tasklist/internal/todo/service"
	"github.com/aussiebroadwan/tasklist/pkg/httpx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

type ctxKey struct{}

// UserFromContext returns the authenticated user injected by RequireAuth.
func UserFromContext(ctx context.Context) (domain.PublicUser, bool) {
	u, ok := ctx.Value(ctxKey{}).(domain.PublicUser)
	return u, ok
}

// RequireAuth validates the bearer token on every request and injects the
// embedded user snapshot into the request context.
func RequireAuth(tokens *service.TokenService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				httpx.WriteBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			user, err := tokens.Validate(raw)
			if err != nil {
				slogx.FromContext(ctx).Debug("token validation failed", "err", err)
				httpx.WriteBearerError(w, "invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, ctxKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
