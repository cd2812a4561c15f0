package rhttp

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Request is the per-request context owned by the dispatch engine for the
// request's lifetime. It wraps the raw transport request and carries the
// decoded body, the resolved handler key and response overrides handlers may
// set before the single write happens.
type Request struct {
	// Raw is the inbound transport request.
	Raw *http.Request

	// Body is the decoded request body for POST, PUT and PATCH requests,
	// nil otherwise. Its concrete type is determined by the body-decode
	// strategy, by default the resource's codec.
	Body any

	// Handler is the registration key of the handler serving this request,
	// e.g. "GET" or [CatchAll].
	Handler string

	// Started is the time the dispatch engine first saw the request.
	Started time.Time

	status   int
	header   http.Header
	depth    int
	finished atomic.Bool
	cancel   func()
}

func newRequest(raw *http.Request) *Request {
	return &Request{
		Raw:     raw,
		Started: time.Now(),
		status:  http.StatusOK,
	}
}

// SetStatus overrides the status code of a successful response. It has no
// effect on error envelopes, which carry their own status.
func (r *Request) SetStatus(code int) { r.status = code }

// SetHeader sets a response header applied just before the response is
// written. Accept, Content-Type and Content-Length are owned by the engine
// and cannot be overridden.
func (r *Request) SetHeader(key, value string) {
	if r.header == nil {
		r.header = make(http.Header)
	}

	r.header.Set(key, value)
}

// finish flips the finished flag, reporting whether the caller won the right
// to perform the single write. The normal completion path and the disconnect
// path may race; whichever sets the flag first owns the request's outcome.
func (r *Request) finish() bool {
	return r.finished.CompareAndSwap(false, true)
}

// done reports whether a response was already written (or the connection
// abandoned), after which all continuations are no-ops.
func (r *Request) done() bool { return r.finished.Load() }
