package rhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
)

const (
	// DefaultMaxDepth bounds how many times handlers may delegate to nested
	// resources within one request. The IETF suggests an HTTP redirect limit
	// of 5, this is a similar concept.
	DefaultMaxDepth = 5

	// DefaultEncoding is the charset used for requests and responses unless
	// configured otherwise.
	DefaultEncoding = "utf-8"
)

type config struct {
	encoding     string
	exposeDetail bool
	maxDepth     int
	logger       Logger
	decoder      BodyDecoder
	middleware   []Middleware
}

// Option configures the dispatch engine at construction time.
type Option func(*config)

// WithEncoding sets the charset for request decoding and response encoding.
// [NewHandler] panics when the name is not a known IANA charset.
func WithEncoding(encoding string) Option {
	return func(c *config) { c.encoding = encoding }
}

// WithExposeDetail controls whether envelope detail (stack traces, input
// excerpts) is rendered to clients. Off by default; 5xx detail is always
// logged server-side regardless.
func WithExposeDetail(expose bool) Option {
	return func(c *config) { c.exposeDetail = expose }
}

// WithMaxDepth overrides the nested-resource delegation bound.
func WithMaxDepth(depth int) Option {
	return func(c *config) { c.maxDepth = depth }
}

// WithLogger overrides the logger, which defaults to the standard library's.
func WithLogger(l Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithBodyDecoder overrides the body-decode strategy for POST, PUT and PATCH
// bodies. The default delegates to the resource's codec; see [AllowEmptyBody]
// and [FormBody] for decorators.
func WithBodyDecoder(d BodyDecoder) Option {
	return func(c *config) { c.decoder = d }
}

// WithMiddleware wraps the engine with middleware. The middleware provided
// first is the outermost wrapping.
func WithMiddleware(m ...Middleware) Option {
	return func(c *config) { c.middleware = append(c.middleware, m...) }
}

// engine drives a request through handler resolution, body decoding, handler
// invocation and response/failure resolution for a resource tree.
type engine struct {
	root *Resource
	cfg  config
}

// NewHandler builds the standard library handler serving the given resource.
// The host mounts it on its own mux; path routing is not this package's
// concern. It panics on an unknown encoding so misconfiguration surfaces at
// startup, not per request.
func NewHandler(res *Resource, opts ...Option) http.Handler {
	cfg := config{
		encoding: DefaultEncoding,
		maxDepth: DefaultMaxDepth,
		logger:   NewStdLogger(nil),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := htmlindex.Get(cfg.encoding); err != nil {
		panic(fmt.Sprintf("rhttp: unknown encoding %q: %s", cfg.encoding, err))
	}

	return wrap(&engine{root: res, cfg: cfg}, cfg.middleware...)
}

// outcome is the single completion of one handler invocation: a value or a
// failure cause, never both observed.
type outcome struct {
	value any
	err   error
}

func (e *engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := newRequest(r)

	// A nested-resource chain is a loop, not call-stack recursion, so a deep
	// synchronous chain cannot overflow the stack.
	for res := e.root; ; {
		next, again := e.serveResource(w, r, req, res)
		if !again {
			return
		}

		res = next
	}
}

// bodyMethods are the verbs whose body is read and decoded before the
// handler runs.
var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

func (e *engine) serveResource(w http.ResponseWriter, r *http.Request, req *Request, res *Resource) (*Resource, bool) {
	// prime the format headers before any handler runs, so even error paths
	// carry them.
	w.Header().Set("Accept", res.codec.Accept())
	w.Header().Set("Content-Type", res.codec.ContentType(e.cfg.encoding))

	// a HEAD without an explicit handler returns an empty body right away,
	// bypassing the whole pipeline.
	if r.Method == http.MethodHead {
		if _, explicit := res.handlers[http.MethodHead]; !explicit {
			if req.finish() {
				w.WriteHeader(http.StatusOK)
			}

			return nil, false
		}
	}

	fn, key, ok := res.resolve(r.Method)
	if !ok {
		allowed := res.allowedMethods()
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		e.fail(w, req, res, errMethodNotAllowed(allowed))

		return nil, false
	}

	if fn == nil {
		// a coding mistake in the application, not a client error.
		e.fail(w, req, res, errResource(fmt.Sprintf(
			"resource (%s) handler [%s] is not invocable", res.Name(), key)))

		return nil, false
	}

	req.Handler = key

	// the body is read and decoded once; a nested resource receives the
	// already-decoded value.
	if req.depth == 0 && bodyMethods[r.Method] {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			e.fail(w, req, res, errMalformedBody("failed reading HTTP body: "+err.Error()))
			return nil, false
		}

		// restore the body so form-decode strategies can re-parse it.
		r.Body = io.NopCloser(bytes.NewReader(body))

		decoder := e.cfg.decoder
		if decoder == nil {
			decoder = CodecBodyDecoder(res.codec)
		}

		decoded, err := decoder.DecodeBody(r, body, e.cfg.encoding)
		if err != nil {
			e.fail(w, req, res, errMalformedBody("failed parsing HTTP body: "+err.Error()))
			return nil, false
		}

		req.Body = decoded
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	req.cancel = cancel

	outc := make(chan outcome, 1)
	go invoke(ctx, fn, req, outc)

	select {
	case out := <-outc:
		if ctx.Err() != nil {
			// the connection went away while the handler completed; the
			// outcome and the disconnect race onto the same select, so
			// resolve both the same way.
			e.resolveDisconnect(w, req, res, ctx, out)
			return nil, false
		}

		if out.err != nil {
			e.onFailure(w, req, res, out.err)
			return nil, false
		}

		return e.onSuccess(w, req, res, out.value)
	case <-ctx.Done():
		e.onDisconnect(req, ctx)

		// the cancelled handler unwinds at its next ctx check; await its
		// outcome so the cancellation is observed, never silently dropped.
		out := <-outc
		e.resolveDisconnect(w, req, res, ctx, out)

		return nil, false
	}
}

// resolveDisconnect routes a post-disconnect outcome into the failure
// resolver; a success value arriving after the connection is gone resolves
// as the cancellation it raced with.
func (e *engine) resolveDisconnect(w http.ResponseWriter, req *Request, res *Resource, ctx context.Context, out outcome) {
	if !req.done() {
		e.onDisconnect(req, ctx)
	}

	if out.err == nil {
		out.err = context.Cause(ctx)
	}

	e.onFailure(w, req, res, out.err)
}

// invoke runs the handler as its own task, funneling a synchronous return, a
// raised panic and a failure into the single outcome channel.
func invoke(ctx context.Context, fn HandlerFunc, req *Request, outc chan<- outcome) {
	defer func() {
		if v := recover(); v != nil {
			outc <- outcome{err: newPanicError(v)}
		}
	}()

	v, err := fn(ctx, req)
	outc <- outcome{value: v, err: err}
}

// onDisconnect handles the connection going away before the handler is done.
// It never writes, the connection is already gone.
func (e *engine) onDisconnect(req *Request, ctx context.Context) {
	reason := DisconnectClientClosed
	if errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
		reason = DisconnectDeadline
	}

	e.cfg.logger.LogDisconnect(reason, time.Since(req.Started))

	req.finish()

	if req.cancel != nil {
		req.cancel()
	}
}
