package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kudimart/checkout-engine/internal/interfaces/rest"
)

// Timeout cancels the request context and replies with the service's
// error envelope when a handler overruns the deadline.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(rest.ErrorResponse{
		Error: rest.ErrorDetail{
			Code:    "TIMEOUT",
			Message: "Request timeout",
		},
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			timeoutHandler := http.TimeoutHandler(next, timeout, string(body))
			timeoutHandler.ServeHTTP(w, r)
		})
	}
}
