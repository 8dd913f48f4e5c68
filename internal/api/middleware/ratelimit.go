package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/api/response"
)

// RateLimit limits each client IP to requests per window.
// Limited requests receive 429 with the standard error body.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			response.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded", "try again later")
		}),
	)
}
