package rhttp_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/advdv/rhttp"
	"github.com/advdv/rhttp/restjson"
	"github.com/advdv/rhttp/restxml"
)

func restxmlDoc(root string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateElement(root)

	return doc
}

func serveJSON(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestGetJSON(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).Named("greeting").
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			return map[string]any{"a": 1}, nil
		})

	rec := serveJSON(t, rhttp.NewHandler(res),
		httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "application/json", rec.Header().Get("Accept"))
	require.Equal(t, `{"a":1}`, rec.Body.String())
	require.Equal(t, strconv.Itoa(rec.Body.Len()), rec.Header().Get("Content-Length"))
}

func TestPostDecodedBody(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).
		Handle(http.MethodPost, func(_ context.Context, req *rhttp.Request) (any, error) {
			doc, ok := req.Body.(map[string]any)
			require.True(t, ok, "body should decode to an object")
			doc["note"] = "seen"

			return doc, nil
		})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a": 1}`))
	rec := serveJSON(t, rhttp.NewHandler(res), req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(1), gjson.Get(rec.Body.String(), "a").Int())
	require.Equal(t, "seen", gjson.Get(rec.Body.String(), "note").String())
}

func TestMalformedBody(t *testing.T) {
	handled := int64(0)
	res := rhttp.NewResource(restjson.New()).
		Handle(http.MethodPost, func(_ context.Context, req *rhttp.Request) (any, error) {
			atomic.AddInt64(&handled, 1)
			return req.Body, nil
		})

	t.Run("detail exposed", func(t *testing.T) {
		logs := rhttp.NewTestLogger(t)
		hdlr := rhttp.NewHandler(res, rhttp.WithExposeDetail(true), rhttp.WithLogger(logs))

		rec := serveJSON(t, hdlr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not-json`)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Malformed HTTP BODY", gjson.Get(rec.Body.String(), "error").String())
		require.Contains(t, gjson.Get(rec.Body.String(), "detail").String(), "not-json")
		require.Equal(t, int64(1), logs.NumLogEnvelope)
	})

	t.Run("detail withheld", func(t *testing.T) {
		hdlr := rhttp.NewHandler(res, rhttp.WithLogger(rhttp.NewTestLogger(t)))

		rec := serveJSON(t, hdlr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not-json`)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.True(t, gjson.Get(rec.Body.String(), "detail").Type == gjson.Null)
	})

	require.Zero(t, atomic.LoadInt64(&handled), "malformed bodies must never reach the handler")
}

func TestMethodNotAllowed(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			return map[string]any{}, nil
		}).
		Handle(http.MethodPost, func(_ context.Context, _ *rhttp.Request) (any, error) {
			return map[string]any{}, nil
		})

	rec := serveJSON(t, rhttp.NewHandler(res),
		httptest.NewRequest(http.MethodDelete, "/", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, HEAD, POST", rec.Header().Get("Allow"))
	require.Contains(t, gjson.Get(rec.Body.String(), "error").String(), "GET, HEAD, POST")
}

func TestHeadBypassesPipeline(t *testing.T) {
	invoked := int64(0)
	res := rhttp.NewResource(restjson.New()).
		HandleAny(func(_ context.Context, _ *rhttp.Request) (any, error) {
			atomic.AddInt64(&invoked, 1)
			return map[string]any{}, nil
		})

	rec := serveJSON(t, rhttp.NewHandler(res),
		httptest.NewRequest(http.MethodHead, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, rec.Body.Len())
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Zero(t, atomic.LoadInt64(&invoked), "HEAD should not invoke any handler")
}

func TestExplicitHeadHandler(t *testing.T) {
	res := rhttp.NewResource(rhttp.StringResponses(restjson.New())).
		Handle(http.MethodHead, func(_ context.Context, req *rhttp.Request) (any, error) {
			req.SetHeader("X-Total", "12")
			return "", nil
		})

	rec := serveJSON(t, rhttp.NewHandler(res),
		httptest.NewRequest(http.MethodHead, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "12", rec.Header().Get("X-Total"))
}

func TestUnhandledError(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).Named("boomer").
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			return nil, errors.New("boom")
		})

	t.Run("detail exposed", func(t *testing.T) {
		logs := rhttp.NewTestLogger(t)
		hdlr := rhttp.NewHandler(res, rhttp.WithExposeDetail(true), rhttp.WithLogger(logs))

		rec := serveJSON(t, hdlr, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "Unhandled Error", gjson.Get(rec.Body.String(), "error").String())
		require.Contains(t, gjson.Get(rec.Body.String(), "detail").String(), "boom")
		require.Contains(t, gjson.Get(rec.Body.String(), "detail").String(), "boomer")
		require.Equal(t, int64(1), logs.NumLogEnvelope)
	})

	t.Run("detail withheld", func(t *testing.T) {
		logs := rhttp.NewTestLogger(t)
		hdlr := rhttp.NewHandler(res, rhttp.WithLogger(logs))

		rec := serveJSON(t, hdlr, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.True(t, gjson.Get(rec.Body.String(), "detail").Type == gjson.Null)
		require.Equal(t, int64(1), logs.NumLogEnvelope, "5xx must be logged even when detail is withheld")
	})
}

func TestHandlerPanic(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			panic("kaboom")
		})

	logs := rhttp.NewTestLogger(t)
	hdlr := rhttp.NewHandler(res, rhttp.WithExposeDetail(true), rhttp.WithLogger(logs))

	rec := serveJSON(t, hdlr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Unhandled Error", gjson.Get(rec.Body.String(), "error").String())
	require.Contains(t, gjson.Get(rec.Body.String(), "detail").String(), "kaboom")
	require.Equal(t, int64(1), logs.NumLogEnvelope)
}

func TestAbortHandlerPanic(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			panic(http.ErrAbortHandler)
		})

	logs := rhttp.NewTestLogger(t)
	hdlr := rhttp.NewHandler(res, rhttp.WithLogger(logs))

	rec := httptest.NewRecorder()
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		hdlr.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	require.Zero(t, rec.Body.Len(), "an aborted response carries no envelope")
	require.Equal(t, int64(1), logs.NumLogDisconnect)
	require.Zero(t, logs.NumLogEnvelope)
}

func TestEnvelopeError(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			return nil, rhttp.NewEnvelope(http.StatusConflict, "Duplicate Item", "id 7 exists")
		})

	rec := serveJSON(t, rhttp.NewHandler(res), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "Duplicate Item", gjson.Get(rec.Body.String(), "error").String())
}

func TestUnsupportedResponseType(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			return 42, nil
		})

	logs := rhttp.NewTestLogger(t)
	hdlr := rhttp.NewHandler(res, rhttp.WithExposeDetail(true), rhttp.WithLogger(logs))

	rec := serveJSON(t, hdlr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Resource Error", gjson.Get(rec.Body.String(), "error").String())
	require.Contains(t, gjson.Get(rec.Body.String(), "detail").String(), "unsupported type int")
	require.Equal(t, int64(1), logs.NumLogEnvelope)
}

func TestAsyncArtifactDiagnostic(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).Named("lazy").
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			out := make(chan any, 1)
			out <- map[string]any{"a": 1}

			return out, nil
		})

	hdlr := rhttp.NewHandler(res, rhttp.WithExposeDetail(true), rhttp.WithLogger(rhttp.NewTestLogger(t)))

	rec := serveJSON(t, hdlr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	detail := gjson.Get(rec.Body.String(), "detail").String()
	require.Contains(t, detail, "unawaited")
	require.Contains(t, detail, "lazy")
	require.Contains(t, detail, "GET")
}

func TestNestedResourceChain(t *testing.T) {
	leaf := rhttp.NewResource(restjson.New()).Named("leaf").
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			return map[string]any{"leaf": true}, nil
		})

	chain := leaf
	for i := 0; i < rhttp.DefaultMaxDepth-1; i++ {
		next := chain
		chain = rhttp.NewResource(restjson.New()).
			Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
				return next, nil
			})
	}

	rec := serveJSON(t, rhttp.NewHandler(chain, rhttp.WithLogger(rhttp.NewTestLogger(t))),
		httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, gjson.Get(rec.Body.String(), "leaf").Bool())
}

func TestRecursionLimitExceeded(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).Named("loop")
	res.Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
		return res, nil
	})

	logs := rhttp.NewTestLogger(t)
	hdlr := rhttp.NewHandler(res, rhttp.WithExposeDetail(true), rhttp.WithLogger(logs))

	rec := serveJSON(t, hdlr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, gjson.Get(rec.Body.String(), "detail").String(), "recursion limit exceeded")
	require.Equal(t, int64(1), logs.NumLogEnvelope)
}

func TestNestedResourceSwitchesCodec(t *testing.T) {
	xmlLeaf := rhttp.NewResource(restxml.New()).Named("xml-leaf").
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			doc := restxmlDoc("pong")
			return doc, nil
		})

	root := rhttp.NewResource(restjson.New()).
		Handle(http.MethodGet, func(_ context.Context, _ *rhttp.Request) (any, error) {
			return xmlLeaf, nil
		})

	rec := serveJSON(t, rhttp.NewHandler(root), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/xml; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "<pong/>")
}

func TestClientDisconnect(t *testing.T) {
	started := make(chan struct{})
	res := rhttp.NewResource(restjson.New()).
		Handle(http.MethodGet, func(ctx context.Context, _ *rhttp.Request) (any, error) {
			close(started)
			<-ctx.Done()

			return nil, ctx.Err()
		})

	logs := rhttp.NewTestLogger(t)
	hdlr := rhttp.NewHandler(res, rhttp.WithLogger(logs))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	rec := serveJSON(t, hdlr, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	require.Zero(t, rec.Body.Len(), "no write may happen after a disconnect")
	require.Equal(t, int64(1), logs.NumLogDisconnect)
	require.Equal(t, int64(1), logs.NumLogCancelled)
	require.Zero(t, logs.NumLogEnvelope)
}

func TestCompletionAfterDisconnectIsDropped(t *testing.T) {
	started := make(chan struct{})
	res := rhttp.NewResource(restjson.New()).
		Handle(http.MethodGet, func(ctx context.Context, _ *rhttp.Request) (any, error) {
			close(started)
			<-ctx.Done()

			// ignore the cancellation and complete anyway.
			return map[string]any{"late": true}, nil
		})

	logs := rhttp.NewTestLogger(t)
	hdlr := rhttp.NewHandler(res, rhttp.WithLogger(logs))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	rec := serveJSON(t, hdlr, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	require.Zero(t, rec.Body.Len())
	require.Equal(t, int64(1), logs.NumLogDisconnect)
	require.Equal(t, int64(1), logs.NumLogCancelled)
}

func TestSetStatusAndHeader(t *testing.T) {
	res := rhttp.NewResource(restjson.New()).
		Handle(http.MethodPost, func(_ context.Context, req *rhttp.Request) (any, error) {
			req.SetStatus(http.StatusCreated)
			req.SetHeader("Location", "/items/1")

			return req.Body, nil
		})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": "x"}`))
	rec := serveJSON(t, rhttp.NewHandler(res), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "/items/1", rec.Header().Get("Location"))
}

func TestUnknownEncodingPanics(t *testing.T) {
	res := rhttp.NewResource(restjson.New())

	require.Panics(t, func() {
		rhttp.NewHandler(res, rhttp.WithEncoding("bad-encoding"))
	})
}
