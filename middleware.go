package rhttp

import "net/http"

// Middleware for cross-cutting concerns around the dispatch engine. It wraps
// the standard library handler the engine produces, so it runs before any
// handler resolution or body decoding.
type Middleware func(http.Handler) http.Handler

// wrap takes the inner handler h and wraps it with middleware. The order is that of the Gorilla and Chi router. That
// is: the middleware provided first is called first and is the "outer" most wrapping, the middleware provided last
// will be the "inner most" wrapping (closest to the handler).
func wrap(h http.Handler, m ...Middleware) http.Handler {
	if len(m) < 1 {
		return h
	}

	wrapped := h
	for i := len(m) - 1; i >= 0; i-- {
		wrapped = m[i](wrapped)
	}

	return wrapped
}
