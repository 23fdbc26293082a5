package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit creates rate limiting middleware keyed by token subject, or by IP
// for anonymous callers.
func RateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if subject := GetSubject(r.Context()); subject != "" {
				return "subject:" + subject, nil
			}
			ip, err := httprate.KeyByIP(r)
			return "ip:" + ip, err
		}),
		httprate.WithLimitHandler(limitHandler(windowLength)),
	)
}

// WebhookRateLimit limits provider deliveries per source IP.
func WebhookRateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitHandler(windowLength)),
	)
}

func limitHandler(window time.Duration) http.HandlerFunc {
	retry := strconv.Itoa(int(window.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retry)
		writeJSONError(w, http.StatusTooManyRequests, `{"error":"rate limit exceeded","retry_after":`+retry+`}`)
	}
}
