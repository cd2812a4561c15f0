// Package example implements example middleware in an outside package.
package example

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/advdv/rhttp"
)

// ctxKey type scopes middleware values.
type ctxKey string

// Middleware provides an example for middleware that adds a logger to the
// request context before the dispatch engine runs.
func Middleware(logs *slog.Logger) rhttp.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logs := logs.With(slog.String("method", r.Method))

			r = r.WithContext(context.WithValue(r.Context(), ctxKey("slog"), logs))

			next.ServeHTTP(w, r)
		})
	}
}

// Log returns the logger Middleware stored on the context, or nil.
func Log(ctx context.Context) *slog.Logger {
	v, _ := ctx.Value(ctxKey("slog")).(*slog.Logger)

	return v
}
