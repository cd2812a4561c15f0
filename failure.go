package rhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"
)

// panicError carries a recovered handler panic across the outcome channel.
type panicError struct {
	value any
	stack []byte
}

func newPanicError(v any) *panicError {
	return &panicError{value: v, stack: debug.Stack()}
}

func (p *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", p.value)
}

// onFailure classifies a failure cause and finalizes an error response, in
// priority order: cancellation, intentional envelope, recovered panic,
// anything else. After the finished flag is set no write occurs.
func (e *engine) onFailure(w http.ResponseWriter, req *Request, res *Resource, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// the request was abandoned; render best-effort, nobody is
		// listening anymore.
		e.cfg.logger.LogCancelled(req.Handler, time.Since(req.Started))
		e.render(w, req, res, errCancelled())

		return
	}

	var env *Envelope
	if errors.As(err, &env) {
		e.fail(w, req, res, env)
		return
	}

	var pErr *panicError
	if errors.As(err, &pErr) {
		if cause, ok := pErr.value.(error); ok && errors.Is(cause, http.ErrAbortHandler) {
			// the sanctioned way to abort a response mid-flight; hand the
			// panic back to net/http so it tears the connection down.
			e.cfg.logger.LogDisconnect(DisconnectServerAbort, time.Since(req.Started))
			req.finish()
			panic(http.ErrAbortHandler)
		}

		e.fail(w, req, res, errUnhandled(fmt.Sprintf(
			"panic in resource (%s) [%s]: %v\n%s",
			res.Name(), req.Handler, pErr.value, pErr.stack)))

		return
	}

	e.fail(w, req, res, errUnhandled(fmt.Sprintf(
		"exception in resource (%s) [%s]: %s", res.Name(), req.Handler, err)))
}
