package rhttp

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// CatchAll is the registration key for a handler that serves any verb
// without a verb-specific handler of its own.
const CatchAll = "*"

// HandlerFunc is the application-supplied function resolved by HTTP verb. It
// returns the response value: a shape the resource's codec accepts, another
// [*Resource] to delegate rendering to, or an error. Returning a [*Envelope]
// as the error produces an intentional error response with its own status.
//
// For POST, PUT and PATCH requests req.Body carries the decoded request body.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

// Resource maps HTTP verbs to handlers for one rendering format. The table
// is built once at construction time; duplicate or invalid registrations
// panic eagerly instead of failing per request.
type Resource struct {
	name     string
	codec    Codec
	handlers map[string]HandlerFunc
}

// NewResource inits a resource rendering through the given codec.
func NewResource(codec Codec) *Resource {
	if codec == nil {
		panic("rhttp: resource requires a codec")
	}

	return &Resource{
		codec:    codec,
		handlers: make(map[string]HandlerFunc),
	}
}

// Named sets the name used in diagnostics and log lines, and returns the
// resource for chaining.
func (r *Resource) Named(name string) *Resource {
	r.name = name
	return r
}

// Handle registers a handler for the given HTTP verb. It panics when the verb
// is empty, the handler is nil, or the verb is already registered.
func (r *Resource) Handle(method string, fn HandlerFunc) *Resource {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		panic("rhttp: cannot register handler for empty method")
	}

	if fn == nil {
		panic("rhttp: cannot register nil handler for method " + method)
	}

	if _, exists := r.handlers[method]; exists {
		panic("rhttp: handler already registered for method " + method)
	}

	r.handlers[method] = fn

	return r
}

// HandleAny registers the catch-all handler, invoked for any verb without a
// verb-specific handler. HEAD is never routed to the catch-all.
func (r *Resource) HandleAny(fn HandlerFunc) *Resource {
	return r.Handle(CatchAll, fn)
}

// Codec returns the resource's codec.
func (r *Resource) Codec() Codec { return r.codec }

// Name returns the diagnostic name, falling back to the codec name.
func (r *Resource) Name() string {
	if r.name != "" {
		return r.name
	}

	return r.codec.Name() + "-resource"
}

// resolve returns the handler serving the given verb, preferring the
// verb-specific entry over the catch-all.
func (r *Resource) resolve(method string) (HandlerFunc, string, bool) {
	if fn, ok := r.handlers[method]; ok {
		return fn, method, true
	}

	if fn, ok := r.handlers[CatchAll]; ok && method != http.MethodHead {
		return fn, CatchAll, true
	}

	return nil, "", false
}

// allowedMethods computes the Allow payload for a 405: every verb with a
// verb-specific handler, plus HEAD which is always implicitly allowed.
func (r *Resource) allowedMethods() []string {
	methods := lo.Filter(lo.Keys(r.handlers), func(m string, _ int) bool {
		return m != CatchAll
	})

	if !lo.Contains(methods, http.MethodHead) {
		methods = append(methods, http.MethodHead)
	}

	sort.Strings(methods)

	return methods
}
