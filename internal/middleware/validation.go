package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxWebhookBody is the largest webhook payload accepted.
const MaxWebhookBody = 10 << 20

const maxIDLength = 128

// MaxBodySize caps the request body.
func MaxBodySize(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// ValidateConversationID validates a provider conversation ID.
func ValidateConversationID(id string) error {
	return validateIdentifier(id, "conversation ID")
}

// ValidateAgentName validates an agent name path parameter.
func ValidateAgentName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("agent name cannot be empty")
	}
	if len(name) > 255 {
		return errors.New("agent name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("agent name must be valid UTF-8")
	}
	return nil
}

func validateIdentifier(id, what string) error {
	if len(id) == 0 {
		return errors.New(what + " cannot be empty")
	}
	if len(id) > maxIDLength {
		return errors.New(what + " exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New(what + " must be valid UTF-8")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return errors.New("invalid " + what + " format")
		}
	}
	return nil
}

// ParseLimit reads a positive integer query value, falling back to def.
func ParseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
