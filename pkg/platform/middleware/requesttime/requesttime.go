// Package requesttime pins "now" for the duration of a request. A transition,
// its audit entry and the credential it issues all carry the same instant.
package requesttime

import (
	"context"
	"net/http"
	"time"
)

type contextKeyRequestTime struct{}

// Middleware captures the request's start time in UTC.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		ctx := context.WithValue(r.Context(), contextKeyRequestTime{}, now)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Now returns the request-scoped time, or time.Now() outside a request.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyRequestTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins now for ctx. Tests use it to drive the validity window.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyRequestTime{}, t)
}
