package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/and161185/libdesk/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, h http.HandlerFunc, tok string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BaseURL: srv.URL + "/",
		Tokens:  TokenFunc(func(context.Context) (string, error) { return tok, nil }),
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return c
}

func TestDo_AttachesBearerAndRequestID(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, err := uuid.FromString(r.Header.Get(RequestIDHeader))
		require.NoError(t, err)
		require.Equal(t, "/book", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = io.WriteString(w, `{"success":true,"message":"ok","status":200,"data":{"n":1}}`)
	}, "tok-1")

	resp, err := c.Get(context.Background(), "/book", url.Values{"page": {"2"}})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Message)

	var got struct{ N int }
	require.NoError(t, resp.Decode(&got))
	require.Equal(t, 1, got.N)
}

func TestDo_UnauthenticatedCallSendsNoToken(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"success":true,"data":null}`)
	}, "tok")

	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/users/login", Body: map[string]string{"u": "x"}})
	require.NoError(t, err)
}

func TestDo_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
		msg    string
	}{
		{"unauthorized", 401, `{"success":false,"message":"bad creds"}`, errs.ErrUnauthorized, "bad creds"},
		{"not found plain body", 404, `not found`, errs.ErrNotFound, ""},
		{"conflict", 409, `{"message":"dup"}`, errs.ErrConflict, "dup"},
		{"bad request", 400, `{}`, errs.ErrBadRequest, ""},
		{"server", 503, `{"error":"down"}`, errs.ErrServer, "down"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}, "tok")
			_, err := c.Get(context.Background(), "/x", nil)
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, tc.status, errs.StatusOf(err))
			require.Equal(t, tc.msg, errs.ServerMessage(err))
		})
	}
}

func TestDo_ApplicationFailure(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Book not available"}`)
	}, "tok")
	_, err := c.Get(context.Background(), "/x", nil)
	require.ErrorIs(t, err, errs.ErrApplication)
	require.NotErrorIs(t, err, errs.ErrBadRequest)
	require.Equal(t, "Book not available", errs.ServerMessage(err))
}

func TestDo_MalformedEnvelope(t *testing.T) {
	t.Parallel()

	for _, body := range []string{
		`<html>`,
		`[1,2]`,
		`{"data":{}}`,
		`{"success":"yes"}`,
		`{"success":true,"message":42}`,
	} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		}, "tok")
		_, err := c.Get(context.Background(), "/x", nil)
		require.ErrorIs(t, err, errs.ErrMalformed, body)
	}
}

func TestDo_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base})
	require.NoError(t, err)
	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	require.ErrorIs(t, err, errs.ErrTransport)
}

func TestDo_OnUnauthorizedHook(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var calls atomic.Int32
	c, err := New(Config{
		BaseURL:        srv.URL,
		Tokens:         TokenFunc(func(context.Context) (string, error) { return "t", nil }),
		OnUnauthorized: func(context.Context) { calls.Add(1) },
	})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/borrow", nil)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.EqualValues(t, 1, calls.Load())

	// unauthenticated calls (login) never trigger the hook
	_, err = c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/users/login"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.EqualValues(t, 1, calls.Load())
}

func TestDo_TokenSourceError(t *testing.T) {
	t.Parallel()

	c, err := New(Config{
		BaseURL: "http://127.0.0.1:1",
		Tokens:  TokenFunc(func(context.Context) (string, error) { return "", errs.ErrNoSession }),
	})
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "/borrow", nil)
	require.True(t, errors.Is(err, errs.ErrNoSession))
}

func TestNew_RequiresBaseURL(t *testing.T) {
	t.Parallel()
	_, err := New(Config{})
	require.Error(t, err)
}
