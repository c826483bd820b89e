// Package middleware holds the HTTP middleware chain: request identity,
// transport metrics, and admin authentication.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"watchgate/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an ID and its arrival time. An inbound
// X-Request-ID is trusted for correlation; otherwise one is generated. The
// ID is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), id)
		ctx = requestcontext.WithTime(ctx, time.Now())
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
