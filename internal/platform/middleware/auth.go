package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// The gateway's own API authentication, unrelated to authority tickets:
// operators and integrating systems call the HTTP surface with a bearer JWT.

type subjectKey struct{}

// ContextKeySubject is exported for tests that need context.WithValue.
var ContextKeySubject = subjectKey{}

// GetSubject retrieves the authenticated API subject from the context.
func GetSubject(ctx context.Context) string {
	sub, ok := ctx.Value(ContextKeySubject).(string)
	if !ok {
		return ""
	}
	return sub
}

// JWTValidator validates bearer tokens on the gateway API.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

func (v *JWTValidator) Validate(tokenString string) (string, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", jwt.ErrTokenUnverifiable
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	return sub, nil
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":%q,"error_description":%q}`, errCode, errDesc))
}

// RequireAuth rejects requests without a valid bearer token and stores the
// subject in the request context.
func RequireAuth(validator *JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				writeJSONError(w, http.StatusUnauthorized, "invalid_request", "missing bearer token")
				return
			}
			sub, err := validator.Validate(strings.TrimPrefix(authHeader, bearerPrefix))
			if err != nil {
				logger.WarnContext(r.Context(), "rejected token",
					"error", err.Error(),
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "invalid_token", "token validation failed")
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeySubject, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
