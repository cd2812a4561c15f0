package rhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAtMostOnce(t *testing.T) {
	eng := &engine{cfg: config{encoding: DefaultEncoding, logger: NewTestLogger(t)}}
	req := newRequest(httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	eng.write(rec, req, http.StatusOK, []byte("first"))
	eng.write(rec, req, http.StatusTeapot, []byte("second"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "first", rec.Body.String())
	require.Equal(t, "5", rec.Header().Get("Content-Length"))
}

func TestFinishAfterDisconnectSuppressesWrite(t *testing.T) {
	eng := &engine{cfg: config{encoding: DefaultEncoding, logger: NewTestLogger(t)}}
	req := newRequest(httptest.NewRequest(http.MethodGet, "/", nil))

	// the disconnect path owns the request now.
	require.True(t, req.finish())

	rec := httptest.NewRecorder()
	eng.write(rec, req, http.StatusOK, []byte("late"))

	require.Zero(t, rec.Body.Len())
}

func TestRequestFinishFlag(t *testing.T) {
	req := newRequest(httptest.NewRequest(http.MethodGet, "/", nil))

	require.False(t, req.done())
	require.True(t, req.finish())
	require.False(t, req.finish(), "only one winner")
	require.True(t, req.done())
}
