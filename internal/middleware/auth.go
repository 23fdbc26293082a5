// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// SubjectKey is the context key for the token subject.
	SubjectKey ContextKey = "subject"
	// ScopesKey is the context key for JWT scopes.
	ScopesKey ContextKey = "scopes"
)

// WebhookSecretHeader carries the shared secret configured on the provider.
const WebhookSecretHeader = "X-Webhook-Secret"

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scope"`
}

func writeJSONError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// Auth creates JWT authentication middleware for the read API.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, `{"error":"missing authorization header"}`)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSONError(w, http.StatusUnauthorized, `{"error":"invalid authorization header format"}`)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})

			if err != nil || !token.Valid {
				writeJSONError(w, http.StatusUnauthorized, `{"error":"invalid token"}`)
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, claims.Subject)
			ctx = context.WithValue(ctx, ScopesKey, claims.Scopes)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject gets the token subject from context.
func GetSubject(ctx context.Context) string {
	if v, ok := ctx.Value(SubjectKey).(string); ok {
		return v
	}
	return ""
}

// GetScopes gets scopes from context.
func GetScopes(ctx context.Context) []string {
	if v, ok := ctx.Value(ScopesKey).([]string); ok {
		return v
	}
	return nil
}

// HasScope checks if the context has a specific scope.
func HasScope(ctx context.Context, scope string) bool {
	for _, s := range GetScopes(ctx) {
		if s == scope {
			return true
		}
	}
	return false
}

// RequireScope creates middleware that requires a specific scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasScope(r.Context(), scope) {
				writeJSONError(w, http.StatusForbidden, `{"error":"insufficient permissions"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WebhookSecret rejects webhook deliveries that do not carry the shared secret.
// An empty secret disables the check.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	want := []byte(secret)
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(WebhookSecretHeader))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				writeJSONError(w, http.StatusUnauthorized, `{"error":"invalid webhook secret"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
