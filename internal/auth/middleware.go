package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/skillgauge/assessment-platform/internal/auth/jwt"
	httperrors "github.com/skillgauge/assessment-platform/pkg/http/errors"
)

type claimsKey struct{}

// ContextWithClaims returns a context carrying the given claims.
func ContextWithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}

// Middleware validates JWT tokens and injects user claims into request
// context. Requests without an Authorization header pass through
// unauthenticated; handlers decide what they require.
func Middleware(authSvc *Service, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid authorization header")
				return
			}

			claims, err := authSvc.ValidateToken(parts[1])
			if err != nil {
				logger.Warn().Err(err).Msg("token validation failed")
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// RequireClaims extracts claims or writes a 401. Handlers use it as their
// first line.
func RequireClaims(w http.ResponseWriter, r *http.Request) (*jwt.Claims, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return nil, false
	}
	return claims, true
}

// RequireAdmin extracts claims and enforces the admin role.
func RequireAdmin(w http.ResponseWriter, r *http.Request) (*jwt.Claims, bool) {
	claims, ok := RequireClaims(w, r)
	if !ok {
		return nil, false
	}
	if !claims.IsAdmin() {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Admin access required")
		return nil, false
	}
	return claims, true
}
