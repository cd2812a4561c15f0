package rhttp

import (
	"fmt"
	"net/http"
	"strings"
)

// Envelope is the uniform error shape rendered to clients. Brief is always
// safe to expose; Detail may carry internals (stack traces, input excerpts)
// and is only rendered when the dispatcher is configured to expose detail.
//
// An Envelope is also an error, so handlers can return one to produce an
// intentional error response with its own status code:
//
//	return nil, rhttp.NewEnvelope(http.StatusConflict, "Duplicate Item", itemID)
type Envelope struct {
	Status int
	Brief  string
	Detail string
}

// NewEnvelope inits an envelope with the given status code.
func NewEnvelope(status int, brief, detail string) *Envelope {
	return &Envelope{Status: status, Brief: brief, Detail: detail}
}

// Error implements the error interface.
func (e *Envelope) Error() string {
	return fmt.Sprintf("[%d] %s - %s", e.Status, e.Brief, e.Detail)
}

// errMethodNotAllowed renders the 405 taxonomy entry. The allowed methods
// live in the brief, the HTTP standard requires them to reach the client
// regardless of the detail-exposure policy.
func errMethodNotAllowed(allowed []string) *Envelope {
	return NewEnvelope(http.StatusMethodNotAllowed,
		"Method Not Allowed; allowed: "+strings.Join(allowed, ", "),
		"")
}

// errMalformedBody renders the 400 taxonomy entry. Body shape is the client's
// responsibility, so this is never a 500.
func errMalformedBody(detail string) *Envelope {
	return NewEnvelope(http.StatusBadRequest, "Malformed HTTP BODY", detail)
}

func errResource(detail string) *Envelope {
	return NewEnvelope(http.StatusInternalServerError, "Resource Error", detail)
}

func errUnhandled(detail string) *Envelope {
	return NewEnvelope(http.StatusInternalServerError, "Unhandled Error", detail)
}

func errCancelled() *Envelope {
	return NewEnvelope(http.StatusServiceUnavailable, "Request Cancelled", "")
}
