package rhttp

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
)

// onSuccess classifies the value a handler produced and finalizes the wire
// response, or hands the nested resource back to the dispatch loop.
func (e *engine) onSuccess(w http.ResponseWriter, req *Request, res *Resource, v any) (*Resource, bool) {
	if req.done() {
		// the client disconnected before the handler completed, don't reply.
		return nil, false
	}

	if nested, ok := v.(*Resource); ok {
		if req.depth >= e.cfg.maxDepth {
			e.fail(w, req, res, errResource(fmt.Sprintf(
				"recursion limit exceeded [%d] (%s) at resource (%s)",
				req.depth, req.Raw.URL.Path, res.Name())))

			return nil, false
		}

		req.depth++

		return nested, true
	}

	if res.codec.Accepts(v) {
		encoded, err := res.codec.Encode(v, e.cfg.encoding)
		if err != nil {
			e.fail(w, req, res, errResource(fmt.Sprintf(
				"resource (%s) [%s] output serialization failed: %s",
				res.Name(), req.Handler, err)))

			return nil, false
		}

		e.write(w, req, req.status, encoded)

		return nil, false
	}

	if isAsyncArtifact(v) {
		// the handler handed us its asynchronous plumbing instead of a
		// result. A developer-facing diagnostic beats a bare type error.
		e.fail(w, req, res, errResource(fmt.Sprintf(
			"resource (%s) handler [%s] returned an unawaited %T; "+
				"receive from it inside the handler and return the final value",
			res.Name(), req.Handler, v)))

		return nil, false
	}

	e.fail(w, req, res, errResource(fmt.Sprintf(
		"resource (%s) [%s] returned unsupported type %T", res.Name(), req.Handler, v)))

	return nil, false
}

// isAsyncArtifact reports whether v is a channel or function value, the kind
// of thing a handler returns when it forgot to await its own work.
func isAsyncArtifact(v any) bool {
	if v == nil {
		return false
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}

// write performs the single response write. The finished flag decides the
// winner when a disconnect races a completion; the loser no-ops.
func (e *engine) write(w http.ResponseWriter, req *Request, status int, body []byte) {
	if !req.finish() {
		return
	}

	header := w.Header()
	for key, vals := range req.header {
		if key == "Accept" || key == "Content-Type" || key == "Content-Length" {
			continue
		}

		header[key] = vals
	}

	// the exact length is known up front, so the transfer is never chunked.
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// fail logs and renders an error envelope. Client-caused envelopes below 500
// keep their detail out of the server log noise except for malformed bodies,
// which are worth a trace.
func (e *engine) fail(w http.ResponseWriter, req *Request, res *Resource, env *Envelope) {
	if env.Status >= http.StatusInternalServerError || env.Status == http.StatusBadRequest {
		e.cfg.logger.LogEnvelope(env)
	}

	e.render(w, req, res, env)
}

// render writes an envelope without logging it.
func (e *engine) render(w http.ResponseWriter, req *Request, res *Resource, env *Envelope) {
	if req.done() {
		return
	}

	encoded, err := res.codec.EncodeEnvelope(env, e.cfg.encoding, e.cfg.exposeDetail)
	if err != nil {
		// the envelope renderer itself failed; the standard text is the
		// last resort so the client doesn't end up with a white screen.
		if req.finish() {
			http.Error(w, http.StatusText(env.Status), env.Status)
		}

		return
	}

	e.write(w, req, env.Status, encoded)
}
