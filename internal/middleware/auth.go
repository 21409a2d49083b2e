package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"dinein-order-services/internal/auth"
)

type staffContextKey struct{}

func WithStaff(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, staffContextKey{}, claims)
}

func GetStaff(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(staffContextKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

func writeAuthError(w http.ResponseWriter, status int, code string, message string) {
	writeAuthErrorDebug(w, status, code, message, "")
}

func writeAuthErrorDebug(w http.ResponseWriter, status int, code string, message string, debug string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload := map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	}

	if os.Getenv("APP_ENV") == "development" && strings.TrimSpace(debug) != "" {
		payload["debug"] = debug
	}

	_ = json.NewEncoder(w).Encode(payload)
}

// StaffAuth verifies the bearer token and stores the staff claims on the
// request context.
func StaffAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token required")
				return
			}

			claims, err := auth.VerifyAccessToken(token, jwtSecret)
			if err != nil {
				writeAuthErrorDebug(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", err.Error())
				return
			}

			noteActor(r.Context(), claims.ActorID(), string(claims.Role))
			next.ServeHTTP(w, r.WithContext(WithStaff(r.Context(), claims)))
		})
	}
}

func RequireRole(roles ...auth.StaffRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetStaff(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token required")
				return
			}
			if !auth.HasAnyRole(claims.Role, roles...) {
				writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireManager() func(http.Handler) http.Handler {
	return RequireRole(auth.RoleOwner, auth.RoleManager)
}
