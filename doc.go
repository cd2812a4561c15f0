// Package rhttp adapts verb-resolved REST handlers onto the standard
// library's HTTP server, with pluggable wire formats.
//
// # Overview
//
// rhttp sits between net/http and application handlers. A [Resource] maps
// HTTP verbs to handlers; the engine built by [NewHandler] decodes request
// bodies through the resource's [Codec], invokes the handler, and turns
// whatever comes back (a structured value, another resource, or an error)
// into exactly one wire response. Client disconnects cancel the in-flight
// handler, and every failure converges on a uniform error envelope.
//
// A minimal example:
//
//	users := rhttp.NewResource(restjson.New()).Named("users").
//	    Handle(http.MethodGet, func(ctx context.Context, req *rhttp.Request) (any, error) {
//	        return map[string]any{"users": []any{}}, nil
//	    }).
//	    Handle(http.MethodPost, func(ctx context.Context, req *rhttp.Request) (any, error) {
//	        doc, ok := req.Body.(map[string]any)
//	        if !ok {
//	            return nil, rhttp.NewEnvelope(http.StatusBadRequest, "Expected Object", "")
//	        }
//	        return doc, nil
//	    })
//
//	http.Handle("/users", rhttp.NewHandler(users))
//
// # Handler contract
//
// Handlers have the signature:
//
//	func(ctx context.Context, req *rhttp.Request) (any, error)
//
// The returned value is classified by the response resolver:
//
//   - A shape the codec accepts (maps/slices for JSON, element trees for
//     XML) is encoded and written with an exact Content-Length.
//   - A [*Resource] delegates rendering to that resource, bounded by
//     [DefaultMaxDepth] delegations per request.
//   - Anything else is an application bug and renders a 500 envelope.
//
// The returned error is classified by the failure resolver: a [*Envelope]
// renders as-is with its own status, a context cancellation is logged and
// never written over an abandoned connection, and any other error (or a
// recovered panic) renders a 500 "Unhandled Error" envelope.
//
// # Error envelope
//
// Every error path renders an [Envelope]: a status code, a brief that is
// always safe to show, and a detail that is only rendered to clients when
// the engine was constructed with [WithExposeDetail]. 5xx envelopes are
// always logged server-side.
//
// # Body decoding
//
// POST, PUT and PATCH bodies are read once and decoded through a
// [BodyDecoder] strategy, by default the codec itself. Decoders compose:
//
//	rhttp.NewHandler(res, rhttp.WithBodyDecoder(
//	    rhttp.AllowEmptyBody(rhttp.FormBody(rhttp.CodecBodyDecoder(codec)))))
//
// Codecs fail fast on bodies that don't start with the format's grammar, so
// malformed input never reaches a handler and always yields a 400.
//
// # Concurrency
//
// Each handler runs as its own task. Completion and client disconnect race
// onto a per-request finished flag, making the response write at-most-once
// deterministic regardless of the race outcome. A disconnect cancels the
// handler's ctx; the cancellation is awaited and logged, never dropped.
//
// # Routing
//
// rhttp resolves handlers by verb only. Path routing belongs to the host:
// mount the [http.Handler] from [NewHandler] on any mux.
package rhttp
